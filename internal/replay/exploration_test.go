package replay

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEpsilonDecaysTowardFloor(t *testing.T) {
	eg := NewEpsilonGreedy(&ExplorationConfig{
		EpsilonStart: 1.0,
		EpsilonMin:   0.05,
		EpsilonDecay: 0.9,
	}, rand.New(rand.NewSource(1)))

	prediction := []float64{0.1, 0.2, 0.7}

	eg.SelectAction(prediction)
	assert.InDelta(t, 0.9, eg.Stats().Epsilon, 1e-12)

	eg.SelectAction(prediction)
	assert.InDelta(t, 0.81, eg.Stats().Epsilon, 1e-12)

	for i := 0; i < 100; i++ {
		eg.SelectAction(prediction)
	}
	assert.Equal(t, 0.05, eg.Stats().Epsilon)
}

func TestGreedySelectionAtZeroEpsilon(t *testing.T) {
	eg := NewEpsilonGreedy(&ExplorationConfig{
		EpsilonStart: 0,
		EpsilonMin:   0,
		EpsilonDecay: 0.99,
	}, rand.New(rand.NewSource(2)))

	for i := 0; i < 20; i++ {
		assert.Equal(t, 2, eg.SelectAction([]float64{0.1, 0.2, 0.7}))
	}

	stats := eg.Stats()
	assert.Equal(t, 0, stats.RandomActions)
	assert.Equal(t, 20, stats.GreedyActions)
}

func TestRandomSelectionAtFullEpsilon(t *testing.T) {
	eg := NewEpsilonGreedy(&ExplorationConfig{
		EpsilonStart: 1.0,
		EpsilonMin:   1.0,
		EpsilonDecay: 1.0,
	}, rand.New(rand.NewSource(3)))

	actions := map[int]int{}
	for i := 0; i < 300; i++ {
		a := eg.SelectAction([]float64{0.1, 0.2, 0.7})
		assert.GreaterOrEqual(t, a, 0)
		assert.Less(t, a, 3)
		actions[a]++
	}

	stats := eg.Stats()
	assert.Equal(t, 300, stats.RandomActions)
	assert.Equal(t, 0, stats.GreedyActions)

	// All three actions should appear under uniform random selection.
	assert.Len(t, actions, 3)
}

func TestEmptyPredictionSelectsZero(t *testing.T) {
	eg := NewEpsilonGreedy(&ExplorationConfig{
		EpsilonStart: 1.0,
		EpsilonMin:   0.05,
		EpsilonDecay: 0.9,
	}, rand.New(rand.NewSource(9)))

	assert.Equal(t, 0, eg.SelectAction(nil))
	assert.Equal(t, 0, eg.SelectAction([]float64{}))

	stats := eg.Stats()
	assert.Equal(t, 1.0, stats.Epsilon)
	assert.Equal(t, 0, stats.RandomActions+stats.GreedyActions)
}

func TestSelectionCountersAccumulate(t *testing.T) {
	eg := NewEpsilonGreedy(nil, rand.New(rand.NewSource(4)))

	for i := 0; i < 50; i++ {
		eg.SelectAction([]float64{0.3, 0.7})
	}

	stats := eg.Stats()
	assert.Equal(t, 50, stats.RandomActions+stats.GreedyActions)
}
