package training

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExponentialDecayIsDeterministic(t *testing.T) {
	s := NewScheduler(&SchedulerConfig{
		Schedule:    ScheduleExponential,
		InitialRate: 0.01,
		DecayRate:   0.9,
		Floor:       1e-6,
		Ceiling:     0.1,
	})

	assert.InDelta(t, 0.01, s.RateFor(0), 1e-12)
	assert.InDelta(t, 0.009, s.RateFor(1), 1e-12)
	assert.InDelta(t, 0.01*math.Pow(0.9, 10), s.RateFor(10), 1e-12)

	// Same epoch always maps to the same rate
	assert.Equal(t, s.RateFor(7), s.RateFor(7))
}

func TestStagedDecay(t *testing.T) {
	s := NewScheduler(&SchedulerConfig{
		Schedule:    ScheduleStaged,
		InitialRate: 0.01,
		DecayRate:   0.5,
		StepSize:    10,
		Floor:       1e-6,
		Ceiling:     0.1,
	})

	assert.InDelta(t, 0.01, s.RateFor(0), 1e-12)
	assert.InDelta(t, 0.01, s.RateFor(9), 1e-12)
	assert.InDelta(t, 0.005, s.RateFor(10), 1e-12)
	assert.InDelta(t, 0.0025, s.RateFor(20), 1e-12)
}

func TestRateClampedToBand(t *testing.T) {
	s := NewScheduler(&SchedulerConfig{
		Schedule:    ScheduleExponential,
		InitialRate: 0.01,
		DecayRate:   0.5,
		Floor:       1e-4,
		Ceiling:     0.1,
	})

	// After enough epochs the rate pins to the floor instead of underflowing
	assert.InDelta(t, 1e-4, s.RateFor(1000), 1e-12)

	s.Reset(10.0, 0)
	assert.InDelta(t, 0.1, s.BaseRate(), 1e-12)
}

func TestResetRebasesSchedule(t *testing.T) {
	s := NewScheduler(&SchedulerConfig{
		Schedule:    ScheduleExponential,
		InitialRate: 0.01,
		DecayRate:   0.9,
		Floor:       1e-6,
		Ceiling:     0.1,
	})

	s.Reset(0.005, 50)

	// Epoch 50 restarts the decay curve at the new base rate
	assert.InDelta(t, 0.005, s.RateFor(50), 1e-12)
	assert.InDelta(t, 0.005*0.9, s.RateFor(51), 1e-12)

	// Epochs before the reset point never produce a negative elapsed count
	assert.InDelta(t, 0.005, s.RateFor(40), 1e-12)
}

func TestSchedulerDefaults(t *testing.T) {
	s := NewScheduler(nil)
	assert.InDelta(t, 0.001, s.BaseRate(), 1e-12)

	// Partial configs pick defaults for the unset fields
	partial := NewScheduler(&SchedulerConfig{InitialRate: 0.02})
	assert.InDelta(t, 0.02, partial.RateFor(0), 1e-12)
	assert.InDelta(t, 0.02*0.95, partial.RateFor(1), 1e-12)
}
