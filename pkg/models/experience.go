package models

import "time"

// Experience is a single replay record produced by the feature-extraction
// collaborator. State and NextState are fixed-length feature vectors;
// Action is one of the down/neutral/up labels. TDError and Priority are
// rewritten by the training engine after each step; everything else is
// immutable once stored.
type Experience struct {
	ID        string                 `json:"id"`
	State     []float64              `json:"state"`
	Action    int                    `json:"action"`
	Reward    float64                `json:"reward"`
	NextState []float64              `json:"next_state"`
	Terminal  bool                   `json:"terminal"`
	TDError   float64                `json:"td_error"`
	Priority  float64                `json:"priority"`
	Timestamp time.Time              `json:"timestamp"`
	Symbol    string                 `json:"symbol"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// TrainingExample is a supervised (features, label) pair handed to the
// engine when sampling the buffer for a minibatch.
type TrainingExample struct {
	Features []float64 `json:"features"`
	Target   []float64 `json:"target"`
}
