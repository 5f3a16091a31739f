package training

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestWatchdog(window, budget int) *Watchdog {
	return NewWatchdog(&WatchdogConfig{
		ExplosionNorm: 100.0,
		Window:        window,
		ResetBudget:   budget,
		LRCutFactor:   0.5,
	}, nil)
}

func TestHealthyStep(t *testing.T) {
	w := newTestWatchdog(3, 5)

	assert.Equal(t, VerdictHealthy, w.Inspect(0.5, 0.01))

	stability := w.Stability()
	assert.Equal(t, 0, stability.NaNCount)
	assert.Equal(t, 0, stability.InfCount)
	assert.Equal(t, 0, stability.ResetCount)
}

func TestNaNAndInfCountedSeparately(t *testing.T) {
	w := newTestWatchdog(10, 5)

	assert.Equal(t, VerdictUnstable, w.Inspect(math.NaN(), 0.01))
	assert.Equal(t, VerdictUnstable, w.Inspect(0.5, math.Inf(1)))

	stability := w.Stability()
	assert.Equal(t, 1, stability.NaNCount)
	assert.Equal(t, 1, stability.InfCount)
}

func TestExplosionWithoutCounterIncrement(t *testing.T) {
	w := newTestWatchdog(10, 5)

	assert.Equal(t, VerdictUnstable, w.Inspect(500.0, 0.01))

	stability := w.Stability()
	assert.Equal(t, 0, stability.NaNCount)
	assert.Equal(t, 0, stability.InfCount)
}

func TestConsecutiveWindowTriggersReset(t *testing.T) {
	w := newTestWatchdog(3, 5)

	assert.Equal(t, VerdictUnstable, w.Inspect(math.NaN(), 0.01))
	assert.Equal(t, VerdictUnstable, w.Inspect(math.NaN(), 0.01))
	assert.Equal(t, VerdictReset, w.Inspect(math.NaN(), 0.01))

	assert.Equal(t, 1, w.Stability().ResetCount)
	assert.Equal(t, 3, w.Stability().NaNCount)
}

func TestHealthyStepBreaksStreak(t *testing.T) {
	w := newTestWatchdog(3, 5)

	w.Inspect(math.NaN(), 0.01)
	w.Inspect(math.NaN(), 0.01)
	assert.Equal(t, VerdictHealthy, w.Inspect(0.5, 0.01))

	// The streak restarts; two more bad steps stay below the window.
	assert.Equal(t, VerdictUnstable, w.Inspect(math.NaN(), 0.01))
	assert.Equal(t, VerdictUnstable, w.Inspect(math.NaN(), 0.01))
	assert.Equal(t, 0, w.Stability().ResetCount)
}

func TestBudgetExhausted(t *testing.T) {
	w := newTestWatchdog(1, 2)

	assert.False(t, w.BudgetExhausted())

	// Window of 1 makes every bad step an immediate reset.
	w.Inspect(math.NaN(), 0.01)
	w.Inspect(math.NaN(), 0.01)
	assert.False(t, w.BudgetExhausted())

	w.Inspect(math.NaN(), 0.01)
	assert.True(t, w.BudgetExhausted())
}

func TestLRCutFactor(t *testing.T) {
	w := newTestWatchdog(3, 5)
	assert.Equal(t, 0.5, w.LRCutFactor())
}
