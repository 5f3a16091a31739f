package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tradepulse/trademl/pkg/errors"
	"github.com/tradepulse/trademl/pkg/models"
)

type fakeProvider struct {
	mu       sync.Mutex
	failures map[string]int // symbol -> remaining failures before success
	calls    map[string]int
	batch    []*models.Experience
}

func (p *fakeProvider) FetchExperiences(ctx context.Context, symbol string, limit int) ([]*models.Experience, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.calls == nil {
		p.calls = make(map[string]int)
	}
	p.calls[symbol]++
	if remaining := p.failures[symbol]; remaining > 0 {
		p.failures[symbol]--
		return nil, errors.New("exchange unavailable")
	}

	out := make([]*models.Experience, len(p.batch))
	for i, exp := range p.batch {
		cp := *exp
		out[i] = &cp
	}
	return out, nil
}

type fakeStore struct {
	mu   sync.Mutex
	exps []*models.Experience
}

func (s *fakeStore) Add(exp *models.Experience) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exps = append(s.exps, exp)
}

func (s *fakeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.exps)
}

func newTestCollector(provider *fakeProvider, store *fakeStore, symbols []string) *Collector {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewCollector(&CollectorConfig{
		Symbols:       symbols,
		BatchPerFetch: 10,
		FetchTimeout:  time.Second,
		MaxRetries:    2,
		RetryBackoff:  time.Millisecond,
		Fanout:        2,
	}, provider, store, nil, nil, logger)
}

func TestCollectStoresAllSymbols(t *testing.T) {
	provider := &fakeProvider{
		batch: []*models.Experience{
			{State: []float64{0.1}, Action: 2, Reward: 1.0},
			{State: []float64{0.2}, Action: 0, Reward: -1.0},
		},
	}
	store := &fakeStore{}
	c := newTestCollector(provider, store, []string{"BTC", "ETH"})

	stored, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stored)
	assert.Equal(t, 4, store.Len())

	// Missing identity fields are filled in during ingestion
	for _, exp := range store.exps {
		assert.NotEmpty(t, exp.ID)
		assert.NotEmpty(t, exp.Symbol)
		assert.False(t, exp.Timestamp.IsZero())
	}
}

func TestCollectRetriesTransientFailures(t *testing.T) {
	provider := &fakeProvider{
		failures: map[string]int{"BTC": 2},
		batch:    []*models.Experience{{State: []float64{0.1}}},
	}
	store := &fakeStore{}
	c := newTestCollector(provider, store, []string{"BTC"})

	stored, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stored)
	assert.Equal(t, 3, provider.calls["BTC"])
}

func TestCollectPartialFailureIsRetryable(t *testing.T) {
	provider := &fakeProvider{
		failures: map[string]int{"ETH": 10}, // beyond the retry budget
		batch:    []*models.Experience{{State: []float64{0.1}}},
	}
	store := &fakeStore{}
	c := newTestCollector(provider, store, []string{"BTC", "ETH"})

	stored, err := c.Collect(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsRetryable(err))

	// The healthy symbol's experiences stay stored
	assert.Equal(t, 1, stored)
	assert.Equal(t, 1, store.Len())
}

func TestCollectHonorsProvidedLabels(t *testing.T) {
	provider := &fakeProvider{
		batch: []*models.Experience{{State: []float64{0.1}, Action: 2}},
	}
	store := &fakeStore{}
	c := newTestCollector(provider, store, []string{"BTC"})

	_, err := c.Collect(context.Background())
	require.NoError(t, err)

	// Without a policy and selector the provider's action survives
	assert.Equal(t, 2, store.exps[0].Action)
}

type fixedSelector struct{ action int }

func (s fixedSelector) SelectAction(prediction []float64) int { return s.action }

type fixedPolicy struct{ out []float64 }

func (p fixedPolicy) Predict(features []float64) ([]float64, error) { return p.out, nil }

func TestCollectRelabelsWithPolicy(t *testing.T) {
	provider := &fakeProvider{
		batch: []*models.Experience{{State: []float64{0.1}, Action: 2}},
	}
	store := &fakeStore{}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	c := NewCollector(&CollectorConfig{
		Symbols:       []string{"BTC"},
		BatchPerFetch: 10,
		FetchTimeout:  time.Second,
		MaxRetries:    0,
		RetryBackoff:  time.Millisecond,
		Fanout:        1,
	}, provider, store, fixedSelector{action: 0}, fixedPolicy{out: []float64{0.9, 0.05, 0.05}}, logger)

	_, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, store.exps[0].Action)
}
