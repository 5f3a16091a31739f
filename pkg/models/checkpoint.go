package models

import "time"

// OptimizerSnapshot captures AdamW moment estimates for one weight
// tensor plus its bias vector, shaped identically to the tensors they
// mirror.
type OptimizerSnapshot struct {
	M     [][]float64 `json:"m"`
	V     [][]float64 `json:"v"`
	BiasM []float64   `json:"bias_m"`
	BiasV []float64   `json:"bias_v"`
}

// Checkpoint is the persisted form of a training session: network
// config, weights, biases, and optimizer state. The JSON encoding is
// loss-lessly round-trippable; shapes and values are identical after
// reload.
type Checkpoint struct {
	ID             string              `json:"id"`
	ModelID        string              `json:"model_id"`
	CreatedAt      time.Time           `json:"created_at"`
	Config         NetworkConfig       `json:"config"`
	Weights        [][][]float64       `json:"weights"`
	Biases         [][]float64         `json:"biases"`
	OptimizerState []OptimizerSnapshot `json:"optimizer_state,omitempty"`
	OptimizerStep  int                 `json:"optimizer_step"`
	Metrics        *TrainingMetrics    `json:"metrics,omitempty"`
}

// ModelInfo is the registry metadata row describing a trained model
type ModelInfo struct {
	ModelID      string           `json:"model_id"`
	Symbol       string           `json:"symbol"`
	Architecture Architecture     `json:"architecture"`
	CreatedAt    time.Time        `json:"created_at"`
	Epochs       int              `json:"epochs"`
	FinalLoss    float64          `json:"final_loss"`
	Metrics      *TrainingMetrics `json:"metrics,omitempty"`
	CheckpointID string           `json:"checkpoint_id"`
}
