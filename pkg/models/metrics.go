package models

import "time"

// LossMetrics aggregates per-epoch loss measures
type LossMetrics struct {
	MSE      float64 `json:"mse"`
	MAE      float64 `json:"mae"`
	RSquared float64 `json:"r_squared"`
}

// AccuracyMetrics aggregates per-epoch accuracy measures
type AccuracyMetrics struct {
	Directional    float64 `json:"directional"`
	Classification float64 `json:"classification"`
}

// StabilityMetrics counts numeric-instability events observed by the
// watchdog. Cumulative over a training run, never reset by recovery.
type StabilityMetrics struct {
	NaNCount   int `json:"nan_count"`
	InfCount   int `json:"inf_count"`
	ResetCount int `json:"reset_count"`
}

// ExplorationStats reports the exploration policy state for the epoch
type ExplorationStats struct {
	Epsilon       float64 `json:"epsilon"`
	RandomActions int     `json:"random_actions"`
	GreedyActions int     `json:"greedy_actions"`
}

// TrainingMetrics is the immutable per-epoch record appended to the
// training history. Created once per epoch and never mutated after.
type TrainingMetrics struct {
	Epoch        int              `json:"epoch"`
	Timestamp    time.Time        `json:"timestamp"`
	Loss         LossMetrics      `json:"loss"`
	Accuracy     AccuracyMetrics  `json:"accuracy"`
	GradientNorm float64          `json:"gradient_norm"`
	LearningRate float64          `json:"learning_rate"`
	Stability    StabilityMetrics `json:"stability"`
	Exploration  ExplorationStats `json:"exploration"`
	Duration     time.Duration    `json:"duration"`
}
