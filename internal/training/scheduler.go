package training

import (
	"math"

	"github.com/tradepulse/trademl/pkg/constants"
)

// ScheduleType selects the decay curve
type ScheduleType string

const (
	ScheduleExponential ScheduleType = "exponential"
	ScheduleStaged      ScheduleType = "staged"
)

// SchedulerConfig configures the learning-rate schedule
type SchedulerConfig struct {
	Schedule    ScheduleType `json:"schedule"`
	InitialRate float64      `json:"initial_rate"`
	DecayRate   float64      `json:"decay_rate"`
	StepSize    int          `json:"step_size"` // epochs per stage for staged decay
	Floor       float64      `json:"floor"`
	Ceiling     float64      `json:"ceiling"`
}

// getDefaultSchedulerConfig returns an exponential schedule with the
// stock decay and clamp band
func getDefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		Schedule:    ScheduleExponential,
		InitialRate: constants.DefaultLearningRate,
		DecayRate:   constants.DefaultLRDecayRate,
		StepSize:    10,
		Floor:       constants.DefaultLRFloor,
		Ceiling:     constants.DefaultLRCeiling,
	}
}

// Scheduler maps epochs to learning rates deterministically. A watchdog
// reset rebases the schedule at a new rate; the mapping from
// epochs-since-reset to rate stays pure.
type Scheduler struct {
	config     *SchedulerConfig
	baseRate   float64
	resetEpoch int
}

// NewScheduler creates a scheduler. Nil config gets defaults; zero
// fields in a partial config fall back to the defaults too.
func NewScheduler(config *SchedulerConfig) *Scheduler {
	defaults := getDefaultSchedulerConfig()
	if config == nil {
		config = defaults
	}
	if config.Schedule == "" {
		config.Schedule = defaults.Schedule
	}
	if config.InitialRate <= 0 {
		config.InitialRate = defaults.InitialRate
	}
	if config.DecayRate <= 0 {
		config.DecayRate = defaults.DecayRate
	}
	if config.StepSize <= 0 {
		config.StepSize = defaults.StepSize
	}
	if config.Floor <= 0 {
		config.Floor = defaults.Floor
	}
	if config.Ceiling <= 0 {
		config.Ceiling = defaults.Ceiling
	}
	return &Scheduler{config: config, baseRate: config.InitialRate}
}

// RateFor returns the clamped learning rate for an epoch
func (s *Scheduler) RateFor(epoch int) float64 {
	elapsed := epoch - s.resetEpoch
	if elapsed < 0 {
		elapsed = 0
	}

	var rate float64
	switch s.config.Schedule {
	case ScheduleStaged:
		stage := elapsed / s.config.StepSize
		rate = s.baseRate * math.Pow(s.config.DecayRate, float64(stage))
	default:
		rate = s.baseRate * math.Pow(s.config.DecayRate, float64(elapsed))
	}

	return s.clamp(rate)
}

// Reset rebases the schedule at newRate starting from epoch. Invoked by
// the watchdog after a full reset.
func (s *Scheduler) Reset(newRate float64, epoch int) {
	s.baseRate = s.clamp(newRate)
	s.resetEpoch = epoch
}

// BaseRate returns the current base rate
func (s *Scheduler) BaseRate() float64 {
	return s.baseRate
}

func (s *Scheduler) clamp(rate float64) float64 {
	if rate < s.config.Floor {
		return s.config.Floor
	}
	if rate > s.config.Ceiling {
		return s.config.Ceiling
	}
	return rate
}
