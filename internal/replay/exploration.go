package replay

import (
	"math/rand"
	"sync"

	"github.com/tradepulse/trademl/pkg/constants"
	"github.com/tradepulse/trademl/pkg/models"
)

// ExplorationConfig configures the epsilon-greedy policy
type ExplorationConfig struct {
	EpsilonStart float64 `json:"epsilon_start"`
	EpsilonMin   float64 `json:"epsilon_min"`
	EpsilonDecay float64 `json:"epsilon_decay"` // multiplicative decay per step
}

// getDefaultExplorationConfig returns the stock decay schedule
func getDefaultExplorationConfig() *ExplorationConfig {
	return &ExplorationConfig{
		EpsilonStart: constants.DefaultEpsilonStart,
		EpsilonMin:   constants.DefaultEpsilonMin,
		EpsilonDecay: constants.DefaultEpsilonDecay,
	}
}

// EpsilonGreedy selects actions from policy outputs when generating
// live trajectories: random with probability epsilon, arg-max
// otherwise, with epsilon decaying toward its floor on every selection.
type EpsilonGreedy struct {
	config *ExplorationConfig
	rand   *rand.Rand

	mu      sync.Mutex
	epsilon float64
	random  int
	greedy  int
}

// NewEpsilonGreedy creates the policy. Nil config gets defaults; a nil
// random source gets a time-seeded one.
func NewEpsilonGreedy(config *ExplorationConfig, src *rand.Rand) *EpsilonGreedy {
	if config == nil {
		config = getDefaultExplorationConfig()
	}
	if src == nil {
		src = rand.New(rand.NewSource(rand.Int63()))
	}
	return &EpsilonGreedy{
		config:  config,
		rand:    src,
		epsilon: config.EpsilonStart,
	}
}

// SelectAction picks an action index from the prediction vector and
// decays epsilon one step. An empty prediction selects action 0 on
// both branches without touching epsilon.
func (e *EpsilonGreedy) SelectAction(prediction []float64) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(prediction) == 0 {
		return 0
	}

	var action int
	if e.rand.Float64() < e.epsilon {
		action = e.rand.Intn(len(prediction))
		e.random++
	} else {
		action = argmax(prediction)
		e.greedy++
	}

	e.epsilon *= e.config.EpsilonDecay
	if e.epsilon < e.config.EpsilonMin {
		e.epsilon = e.config.EpsilonMin
	}
	return action
}

// Stats returns the current exploration counters
func (e *EpsilonGreedy) Stats() models.ExplorationStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return models.ExplorationStats{
		Epsilon:       e.epsilon,
		RandomActions: e.random,
		GreedyActions: e.greedy,
	}
}

func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}
