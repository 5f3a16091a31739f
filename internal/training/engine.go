package training

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tradepulse/trademl/pkg/constants"
	"github.com/tradepulse/trademl/pkg/errors"
	"github.com/tradepulse/trademl/pkg/models"

	"github.com/tradepulse/trademl/internal/network"
	"github.com/tradepulse/trademl/internal/replay"
)

// State is the engine's lifecycle phase
type State string

const (
	StateUninitialized State = "uninitialized"
	StateReady         State = "ready"
	StateTraining      State = "training"
	StateResetting     State = "resetting"
	StateStopped       State = "stopped"
)

// MetricsRecorder receives each epoch's metrics as they are produced.
// Implemented by the Prometheus collector; a nil recorder is a no-op.
type MetricsRecorder interface {
	ObserveEpoch(metrics *models.TrainingMetrics)
}

// EngineConfig configures a training session
type EngineConfig struct {
	BatchSize          int                        `json:"batch_size"`
	MiniBatchSize      int                        `json:"mini_batch_size"`
	Loss               models.LossFunction        `json:"loss"`
	Patience           int                        `json:"patience"`
	MinDelta           float64                    `json:"min_delta"`
	ValidationSize     int                        `json:"validation_size"`
	MaxGradNorm        float64                    `json:"max_grad_norm"`
	Seed               int64                      `json:"seed"`
	Builder            *network.BuilderConfig     `json:"builder,omitempty"`
	Initializer        *network.InitializerConfig `json:"initializer,omitempty"`
	Optimizer          *AdamWConfig               `json:"optimizer,omitempty"`
	Scheduler          *SchedulerConfig           `json:"scheduler,omitempty"`
	Watchdog           *WatchdogConfig            `json:"watchdog,omitempty"`
}

// getDefaultEngineConfig returns a config suitable for the stock
// classification setup
func getDefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		BatchSize:      constants.DefaultBatchSize,
		MiniBatchSize:  constants.DefaultBatchSize,
		Loss:           models.LossMSE,
		Patience:       constants.DefaultPatience,
		MinDelta:       constants.DefaultMinDelta,
		ValidationSize: constants.DefaultBatchSize / 4,
		MaxGradNorm:    constants.DefaultMaxGradNorm,
	}
}

// Engine orchestrates the epoch loop: sample, forward, backprop, clip,
// update, watchdog, metrics. The weight and optimizer tensors are owned
// by a single logical thread per step; concurrent TrainEpoch calls on
// one engine are serialized by the run mutex and never interleaved.
type Engine struct {
	logger      *logrus.Logger
	config      *EngineConfig
	builder     *network.ArchitectureBuilder
	initializer *network.Initializer
	optimizer   *AdamWOptimizer
	scheduler   *Scheduler
	clipper     *GradientClipper
	watchdog    *Watchdog
	buffer      *replay.Buffer
	exploration *replay.EpsilonGreedy
	recorder    MetricsRecorder

	mu       sync.Mutex
	state    State
	net      *network.Network
	runState models.TrainingState
	history  []models.TrainingMetrics
	modelID  string
}

// NewEngine assembles a training engine around a replay buffer. The
// exploration policy and recorder may be nil.
func NewEngine(config *EngineConfig, buffer *replay.Buffer, exploration *replay.EpsilonGreedy, recorder MetricsRecorder, logger *logrus.Logger) *Engine {
	defaults := getDefaultEngineConfig()
	if config == nil {
		config = defaults
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.Loss == "" {
		config.Loss = defaults.Loss
	}
	if config.Patience <= 0 {
		config.Patience = defaults.Patience
	}
	if config.MinDelta <= 0 {
		config.MinDelta = defaults.MinDelta
	}
	if config.ValidationSize <= 0 {
		config.ValidationSize = defaults.ValidationSize
	}
	if config.MaxGradNorm == 0 {
		config.MaxGradNorm = defaults.MaxGradNorm
	}
	if logger == nil {
		logger = logrus.New()
	}
	if config.MiniBatchSize <= 0 || config.MiniBatchSize > config.BatchSize {
		config.MiniBatchSize = config.BatchSize
	}

	var src *rand.Rand
	if config.Seed != 0 {
		src = rand.New(rand.NewSource(config.Seed))
	}

	initConfig := network.DefaultInitializerConfig()
	if config.Initializer != nil {
		initConfig = *config.Initializer
	}

	scheduler := NewScheduler(config.Scheduler)

	return &Engine{
		logger:      logger,
		config:      config,
		builder:     network.NewArchitectureBuilder(config.Builder, logger),
		initializer: network.NewInitializer(initConfig, src),
		optimizer:   NewAdamWOptimizer(config.Optimizer),
		scheduler:   scheduler,
		clipper:     NewGradientClipper(config.MaxGradNorm),
		watchdog:    NewWatchdog(config.Watchdog, logger),
		buffer:      buffer,
		exploration: exploration,
		recorder:    recorder,
		state:       StateUninitialized,
		modelID:     uuid.New().String(),
		runState: models.TrainingState{
			LearningRate:       scheduler.BaseRate(),
			BestValidationLoss: math.Inf(1),
		},
	}
}

// InitializeNetwork builds the architecture and allocates fresh weights,
// transitioning Uninitialized -> Ready. Invalid shapes fail fast before
// any weight is touched.
func (e *Engine) InitializeNetwork(arch models.Architecture, inputSize, outputSize int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateTraining {
		return errors.NewAppError(errors.ErrorTypeInternal, "TRAINING_ACTIVE", "cannot reinitialize while training")
	}

	config, err := e.builder.Build(arch, inputSize, outputSize)
	if err != nil {
		return err
	}

	net, err := network.NewNetwork(config, e.initializer)
	if err != nil {
		return err
	}

	if report := e.initializer.VerifyGradientBalance(net.Weights()); !report.IsBalanced {
		e.logger.WithField("layers", len(report.Layers)).Warn("Initial weights outside gradient balance band")
	}

	e.net = net
	e.state = StateReady
	e.history = nil
	e.runState = models.TrainingState{
		LearningRate:       e.scheduler.BaseRate(),
		BestValidationLoss: math.Inf(1),
	}

	e.logger.WithFields(logrus.Fields{
		"model_id":     e.modelID,
		"architecture": arch,
		"input_size":   inputSize,
		"output_size":  outputSize,
		"layers":       len(config.Layers),
	}).Info("Network initialized")

	return nil
}

// TrainEpoch runs one epoch: minibatch sampling, forward/backward,
// clipping, AdamW updates at the scheduled rate, watchdog inspection,
// and metrics assembly. Cancellation is checked between minibatches
// only; a partial update would corrupt optimizer state.
func (e *Engine) TrainEpoch(ctx context.Context) (*models.TrainingMetrics, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateUninitialized:
		return nil, errors.NewValidationError("NOT_INITIALIZED", "network not initialized")
	case StateStopped:
		return nil, errors.NewAppError(errors.ErrorTypeInternal, "TRAINING_STOPPED", "training has stopped")
	case StateTraining:
		return nil, errors.NewAppError(errors.ErrorTypeInternal, "ALREADY_TRAINING", "an epoch is already in progress")
	}
	e.state = StateTraining

	start := time.Now()
	epoch := e.runState.Epoch
	lr := e.scheduler.RateFor(epoch)
	e.runState.LearningRate = lr

	batch, err := e.buffer.Sample(e.config.BatchSize)
	if err != nil {
		e.state = StateReady
		return nil, errors.WrapError(err, errors.ErrorTypeExternalData, "EPOCH_ABORTED", "no experiences available for epoch")
	}

	eval := &evaluator{}
	var normSum float64
	var updates int

	for offset := 0; offset < len(batch); offset += e.config.MiniBatchSize {
		if err := ctx.Err(); err != nil {
			e.state = StateReady
			return nil, errors.WrapError(err, errors.ErrorTypeInternal, "EPOCH_CANCELLED", "training cancelled between minibatches")
		}

		end := offset + e.config.MiniBatchSize
		if end > len(batch) {
			end = len(batch)
		}
		mini := batch[offset:end]

		grads := NewZeroGradients(e.net.Config())
		var miniLoss float64
		for _, exp := range mini {
			result, err := e.net.Forward(exp.State)
			if err != nil {
				e.state = StateReady
				return nil, err
			}
			target := e.targetFor(exp)

			sampleGrads, err := CalculateGradients(result, target, e.net.Config(), e.net.Weights(), e.config.Loss)
			if err != nil {
				e.state = StateReady
				return nil, err
			}
			grads.Add(sampleGrads)

			sampleLoss, err := CalculateLoss(result.Output, target, e.config.Loss)
			if err != nil {
				e.state = StateReady
				return nil, err
			}
			miniLoss += sampleLoss
			e.buffer.UpdatePriority(exp.ID, sampleLoss)
			eval.add(result.Output, target)
		}

		grads.Scale(1 / float64(len(mini)))
		miniLoss /= float64(len(mini))

		norm, _ := e.clipper.Clip(grads)
		normSum += norm
		updates++

		verdict := e.watchdog.Inspect(norm, miniLoss)
		if verdict == VerdictReset {
			if err := e.performReset(epoch, lr); err != nil {
				return e.emitMetrics(epoch, eval, normSum/float64(updates), lr, start), err
			}
			break
		}
		if verdict == VerdictUnstable {
			// Skip the poisoned update; moment state stays clean.
			continue
		}

		if err := e.optimizer.Update(e.net.Weights(), e.net.Biases(), grads, lr); err != nil {
			e.state = StateReady
			return nil, err
		}
	}

	metrics := e.emitMetrics(epoch, eval, normSum/float64(updates), lr, start)

	e.updateEarlyStopping(metrics.Loss.MSE)
	e.runState.Epoch++
	if e.state == StateTraining || e.state == StateResetting {
		e.state = StateReady
	}

	return metrics, nil
}

// performReset executes the watchdog's full reset: fresh weights, zeroed
// optimizer state, and a cut learning rate. Escalates to a fatal error
// when the reset budget is exhausted.
func (e *Engine) performReset(epoch int, lr float64) error {
	e.state = StateResetting
	e.runState.InstabilityStreak++

	e.logger.WithFields(logrus.Fields{
		"epoch":       epoch,
		"reset_count": e.watchdog.Stability().ResetCount,
	}).Warn("Watchdog triggered full reset")

	if err := e.net.Reinitialize(e.initializer); err != nil {
		e.state = StateStopped
		return err
	}
	e.optimizer.Reset()
	e.scheduler.Reset(lr*e.watchdog.LRCutFactor(), epoch)

	if e.watchdog.BudgetExhausted() {
		e.state = StateStopped
		return errors.NewInstabilityError("RESET_BUDGET_EXCEEDED", "instability reset budget exceeded").
			WithContext("resets", e.watchdog.Stability().ResetCount)
	}
	return nil
}

func (e *Engine) emitMetrics(epoch int, eval *evaluator, gradientNorm, lr float64, start time.Time) *models.TrainingMetrics {
	metrics := &models.TrainingMetrics{
		Epoch:        epoch,
		Timestamp:    time.Now().UTC(),
		Loss:         eval.lossMetrics(),
		Accuracy:     eval.accuracyMetrics(),
		GradientNorm: gradientNorm,
		LearningRate: lr,
		Stability:    e.watchdog.Stability(),
		Duration:     time.Since(start),
	}
	if e.exploration != nil {
		metrics.Exploration = e.exploration.Stats()
	}

	e.history = append(e.history, *metrics)
	if e.recorder != nil {
		e.recorder.ObserveEpoch(metrics)
	}
	return metrics
}

func (e *Engine) updateEarlyStopping(validationLoss float64) {
	if math.IsNaN(validationLoss) || math.IsInf(validationLoss, 0) {
		e.runState.PatienceCounter++
		return
	}
	if validationLoss < e.runState.BestValidationLoss-e.config.MinDelta {
		e.runState.BestValidationLoss = validationLoss
		e.runState.PatienceCounter = 0
		return
	}
	e.runState.PatienceCounter++
}

// ShouldStopEarly reports whether validation loss has stalled for the
// configured patience window. A true result transitions the engine to
// Stopped; further TrainEpoch calls fail.
func (e *Engine) ShouldStopEarly() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateStopped {
		return true
	}
	if e.runState.PatienceCounter >= e.config.Patience {
		e.state = StateStopped
		e.logger.WithFields(logrus.Fields{
			"epoch":     e.runState.Epoch,
			"best_loss": e.runState.BestValidationLoss,
			"patience":  e.config.Patience,
		}).Info("Early stopping triggered")
		return true
	}
	return false
}

// Predict evaluates the current network on one feature vector. Used by
// trajectory generation alongside the exploration policy.
func (e *Engine) Predict(features []float64) ([]float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.net == nil {
		return nil, errors.NewValidationError("NOT_INITIALIZED", "network not initialized")
	}
	result, err := e.net.Forward(features)
	if err != nil {
		return nil, err
	}
	return result.Output, nil
}

// targetFor converts an experience into a supervised target: a one-hot
// label vector for multi-class outputs, the raw reward for scalar ones.
func (e *Engine) targetFor(exp *models.Experience) []float64 {
	outputSize := e.net.Config().OutputSize
	if outputSize == 1 {
		return []float64{exp.Reward}
	}
	target := make([]float64, outputSize)
	if exp.Action >= 0 && exp.Action < outputSize {
		target[exp.Action] = 1
	}
	return target
}

// ModelID returns the session's model identifier
func (e *Engine) ModelID() string {
	return e.modelID
}

// State returns the current lifecycle state
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// RunState returns a copy of the mutable training counters
func (e *Engine) RunState() models.TrainingState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runState
}

// History returns a copy of the per-epoch metrics history
func (e *Engine) History() []models.TrainingMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.TrainingMetrics, len(e.history))
	copy(out, e.history)
	return out
}

// Weights returns a deep copy of the current weight and bias tensors.
// Callers may inspect or serialize the copy without racing the epoch
// loop.
func (e *Engine) Weights() ([][][]float64, [][]float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.net == nil {
		return nil, nil, errors.NewValidationError("NOT_INITIALIZED", "network not initialized")
	}
	weights, biases := e.net.Snapshot()
	return weights, biases, nil
}

// Checkpoint snapshots the session for the persistence collaborator:
// config, weights, biases, and optimizer state, loss-lessly
// round-trippable.
func (e *Engine) Checkpoint() (*models.Checkpoint, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.net == nil {
		return nil, errors.NewValidationError("NOT_INITIALIZED", "network not initialized")
	}

	weights, biases := e.net.Snapshot()
	cp := &models.Checkpoint{
		ID:            uuid.New().String(),
		ModelID:       e.modelID,
		CreatedAt:     time.Now().UTC(),
		Config:        *e.net.Config(),
		Weights:       weights,
		Biases:        biases,
		OptimizerStep: e.optimizer.Step(),
	}
	if e.optimizer.Step() > 0 {
		cp.OptimizerState = e.optimizer.Snapshot()
	}
	if len(e.history) > 0 {
		last := e.history[len(e.history)-1]
		cp.Metrics = &last
	}
	return cp, nil
}

// RestoreCheckpoint rebuilds the session from a checkpoint, verifying
// every tensor shape against the stored config.
func (e *Engine) RestoreCheckpoint(cp *models.Checkpoint) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateTraining {
		return errors.NewAppError(errors.ErrorTypeInternal, "TRAINING_ACTIVE", "cannot restore while training")
	}

	net, err := network.NewNetwork(&cp.Config, e.initializer)
	if err != nil {
		return err
	}
	if err := net.Restore(cp.Weights, cp.Biases); err != nil {
		return err
	}

	if len(cp.OptimizerState) > 0 {
		if err := e.optimizer.Restore(cp.OptimizerState, cp.OptimizerStep); err != nil {
			return err
		}
	} else {
		e.optimizer.Reset()
	}

	e.net = net
	e.modelID = cp.ModelID
	e.state = StateReady
	return nil
}
