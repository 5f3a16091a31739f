package constants

import "time"

// Application constants
const (
	// Application metadata
	AppName        = "trademl-server"
	AppDescription = "Crypto Trading ML Training Server"
	AppVersion     = "0.1.0"

	// API constants
	APIVersion = "v1"
	APIPrefix  = "/api/v1"

	// Default server configuration
	DefaultPort            = 8080
	DefaultMetricsPort     = 9090
	DefaultHost            = "0.0.0.0"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Training defaults
	DefaultBatchSize    = 32
	DefaultEpochs       = 100
	DefaultLearningRate = 0.001
	DefaultBeta1        = 0.9
	DefaultBeta2        = 0.999
	DefaultEpsilon      = 1e-8
	DefaultWeightDecay  = 0.01
	DefaultMaxGradNorm  = 1.0
	DefaultPatience     = 10
	DefaultMinDelta     = 1e-6

	// Learning rate scheduler defaults
	DefaultLRDecayRate = 0.95
	DefaultLRFloor     = 1e-6
	DefaultLRCeiling   = 0.1

	// Watchdog defaults. The explosion threshold and consecutive-failure
	// window were chosen empirically against BTC/ETH feature sets, not
	// derived from theory; tune per deployment.
	DefaultExplosionNorm      = 100.0
	DefaultInstabilityWindow  = 3
	DefaultResetBudget        = 5
	DefaultLRCutFactor        = 0.5

	// Experience replay defaults
	DefaultBufferCapacity  = 10000
	DefaultMinPriority     = 1e-3
	DefaultEpsilonStart    = 1.0
	DefaultEpsilonMin      = 0.05
	DefaultEpsilonDecay    = 0.995

	// Ingestion defaults
	DefaultFetchTimeout    = 10 * time.Second
	DefaultFetchRetries    = 3
	DefaultFetchBackoff    = 500 * time.Millisecond
	DefaultIngestFanout    = 4

	// Storage defaults
	DefaultStorageTimeout    = 30 * time.Second
	DefaultCheckpointPrefix  = "checkpoints"
	DefaultRedisCheckpointTTL = 24 * time.Hour

	// Worker cycle defaults
	DefaultCollectInterval = 15 * time.Second
	DefaultEpochsPerCycle  = 5
	DefaultWarmupSize      = 128
	DefaultCheckpointEvery = 50
)

// Numeric stability constants. Empirically chosen damping rather than
// textbook values: the halved Xavier gains keep early-epoch gradients
// from exploding on noisy market features.
const (
	// ActivationClamp bounds inputs to exp/sigmoid/tanh before evaluation.
	ActivationClamp = 60.0

	// LeakySlope is the leaky ReLU negative-side slope.
	LeakySlope = 0.01

	// GainDamping halves the textbook Xavier gain for ReLU-family
	// activations (sqrt(2) * GainDamping).
	GainDamping = 0.5

	// SaturatingGain is the gain applied for sigmoid/tanh/softmax layers.
	SaturatingGain = 0.5

	// BalanceFactor bounds acceptable per-layer weight std deviation:
	// a layer is flagged when std falls outside [expected/BalanceFactor,
	// expected*BalanceFactor].
	BalanceFactor = 3.0

	// LossEpsilon guards log/division in cross-entropy and its gradient.
	LossEpsilon = 1e-8
)

// Labels used for classification targets (down/neutral/up).
const (
	LabelDown    = 0
	LabelNeutral = 1
	LabelUp      = 2
)
