package replay

import (
	"math/rand"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/tradepulse/trademl/pkg/constants"
	"github.com/tradepulse/trademl/pkg/errors"
	"github.com/tradepulse/trademl/pkg/models"
)

// BufferConfig configures the experience replay buffer
type BufferConfig struct {
	Capacity    int     `json:"capacity"`
	MinPriority float64 `json:"min_priority"` // floor keeping every record sampleable
	Prioritized bool    `json:"prioritized"`  // priority-weighted sampling vs uniform
}

// getDefaultBufferConfig returns the stock prioritized configuration
func getDefaultBufferConfig() *BufferConfig {
	return &BufferConfig{
		Capacity:    constants.DefaultBufferCapacity,
		MinPriority: constants.DefaultMinPriority,
		Prioritized: true,
	}
}

// Buffer is a fixed-capacity, priority-sampled store of training
// experiences. Insert, evict, and sample run under one critical
// section; concurrent producers hand off completed, immutable records.
type Buffer struct {
	logger *logrus.Logger
	config *BufferConfig
	rand   *rand.Rand

	mu          sync.Mutex
	experiences []*models.Experience
	index       map[string]int // ID -> position in experiences
	evictions   int64
}

// NewBuffer creates a buffer. Nil config or logger get defaults; a nil
// random source gets a time-seeded one.
func NewBuffer(config *BufferConfig, src *rand.Rand, logger *logrus.Logger) *Buffer {
	if config == nil {
		config = getDefaultBufferConfig()
	}
	if logger == nil {
		logger = logrus.New()
	}
	if src == nil {
		src = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Buffer{
		logger: logger,
		config: config,
		rand:   src,
		index:  make(map[string]int),
	}
}

// Add inserts one experience. At capacity it evicts the lowest-priority
// entry first, breaking ties toward the oldest; size never exceeds the
// configured capacity.
func (b *Buffer) Add(exp *models.Experience) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if exp.Priority < b.config.MinPriority {
		exp.Priority = b.config.MinPriority
	}

	if len(b.experiences) >= b.config.Capacity {
		b.evictLocked()
	}

	b.index[exp.ID] = len(b.experiences)
	b.experiences = append(b.experiences, exp)
}

// evictLocked removes the lowest-priority entry; on equal priorities the
// earliest insertion goes first. Caller holds the mutex.
func (b *Buffer) evictLocked() {
	victim := 0
	for i, exp := range b.experiences {
		if exp.Priority < b.experiences[victim].Priority {
			victim = i
		}
	}

	evicted := b.experiences[victim]
	last := len(b.experiences) - 1
	b.experiences[victim] = b.experiences[last]
	b.experiences = b.experiences[:last]
	delete(b.index, evicted.ID)
	if victim < len(b.experiences) {
		b.index[b.experiences[victim].ID] = victim
	}
	b.evictions++
}

// Len reports the current number of stored experiences
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.experiences)
}

// Evictions reports the total number of capacity evictions
func (b *Buffer) Evictions() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.evictions
}

// Sample draws up to n experiences. When prioritized sampling is
// enabled, selection probability is proportional to priority; otherwise
// (or when the total priority mass vanishes) sampling is uniform
// without replacement.
func (b *Buffer) Sample(n int) ([]*models.Experience, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.experiences) == 0 {
		return nil, errors.NewAppError(errors.ErrorTypeCapacity, "BUFFER_EMPTY", "experience buffer is empty")
	}
	if n > len(b.experiences) {
		n = len(b.experiences)
	}

	if !b.config.Prioritized {
		return b.sampleUniformLocked(n), nil
	}

	var total float64
	for _, exp := range b.experiences {
		total += exp.Priority
	}
	if total <= 0 {
		return b.sampleUniformLocked(n), nil
	}

	// Priority-proportional sampling with replacement across draws;
	// one minibatch may legitimately revisit a high-error experience.
	out := make([]*models.Experience, 0, n)
	for len(out) < n {
		target := b.rand.Float64() * total
		var cum float64
		for _, exp := range b.experiences {
			cum += exp.Priority
			if cum >= target {
				out = append(out, exp)
				break
			}
		}
	}
	return out, nil
}

func (b *Buffer) sampleUniformLocked(n int) []*models.Experience {
	perm := b.rand.Perm(len(b.experiences))
	out := make([]*models.Experience, n)
	for i := 0; i < n; i++ {
		out[i] = b.experiences[perm[i]]
	}
	return out
}

// UpdatePriority rewrites one experience's TD error and priority after a
// training step. Unknown IDs are ignored; the record may have been
// evicted between sample and update.
func (b *Buffer) UpdatePriority(id string, tdError float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pos, ok := b.index[id]
	if !ok {
		return
	}
	exp := b.experiences[pos]
	exp.TDError = tdError
	priority := tdError
	if priority < 0 {
		priority = -priority
	}
	if priority < b.config.MinPriority {
		priority = b.config.MinPriority
	}
	exp.Priority = priority
}
