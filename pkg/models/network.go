package models

// LayerType identifies one of the fixed set of supported layer shapes.
// Dispatch over LayerType is exhaustive at both initialization and
// forward/backward time; an unknown tag is a validation error, never a
// silent fallback.
type LayerType string

const (
	LayerDense     LayerType = "dense"
	LayerLSTM      LayerType = "lstm"
	LayerConv      LayerType = "conv"
	LayerAttention LayerType = "attention"
)

// Activation identifies a forward activation with an exact derivative
// used by the backward pass.
type Activation string

const (
	ActivationLeakyReLU Activation = "leaky_relu"
	ActivationSigmoid   Activation = "sigmoid"
	ActivationTanh      Activation = "tanh"
	ActivationLinear    Activation = "linear"
)

// LossFunction selects the training loss
type LossFunction string

const (
	LossMSE          LossFunction = "mse"
	LossCrossEntropy LossFunction = "cross_entropy"
)

// Architecture tags a layer stack preset
type Architecture string

const (
	ArchitectureDense     Architecture = "dense"
	ArchitectureLSTM      Architecture = "lstm"
	ArchitectureConv      Architecture = "conv"
	ArchitectureAttention Architecture = "attention"
	ArchitectureHybrid    Architecture = "hybrid"
)

// LayerConfig describes a single layer. The weight matrix for the layer
// is always [OutputSize][InputSize] with an [OutputSize] bias vector.
type LayerConfig struct {
	Type       LayerType  `json:"type"`
	InputSize  int        `json:"input_size"`
	OutputSize int        `json:"output_size"`
	Activation Activation `json:"activation"`
	Dropout    float64    `json:"dropout,omitempty"`
	BatchNorm  bool       `json:"batch_norm,omitempty"`
}

// NetworkConfig is an ordered layer stack. Immutable once built by the
// architecture builder; the training loop only reads it.
type NetworkConfig struct {
	Layers        []LayerConfig `json:"layers"`
	InputFeatures int           `json:"input_features"`
	OutputSize    int           `json:"output_size"`
	Architecture  Architecture  `json:"architecture"`
}

// TrainingState tracks the mutable per-run counters owned by the
// training engine, scheduler, and watchdog.
type TrainingState struct {
	LearningRate       float64 `json:"learning_rate"`
	Epoch              int     `json:"epoch"`
	BestValidationLoss float64 `json:"best_validation_loss"`
	PatienceCounter    int     `json:"patience_counter"`
	InstabilityStreak  int     `json:"instability_streak"`
}
