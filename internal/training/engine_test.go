package training

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradepulse/trademl/internal/network"
	"github.com/tradepulse/trademl/internal/replay"
	apperrors "github.com/tradepulse/trademl/pkg/errors"
	"github.com/tradepulse/trademl/pkg/models"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// seedBuffer fills a buffer with a linearly separable toy problem: the
// sign of the first feature decides the class.
func seedBuffer(t *testing.T, n, inputSize int) *replay.Buffer {
	t.Helper()
	buffer := replay.NewBuffer(&replay.BufferConfig{
		Capacity:    n + 1,
		MinPriority: 1e-3,
		Prioritized: true,
	}, rand.New(rand.NewSource(5)), quietLogger())

	src := rand.New(rand.NewSource(6))
	for i := 0; i < n; i++ {
		state := make([]float64, inputSize)
		for j := range state {
			state[j] = src.NormFloat64() * 0.1
		}
		action := 0
		if i%2 == 0 {
			state[0] = 1.0 + src.Float64()*0.2
			action = 2
		} else {
			state[0] = -1.0 - src.Float64()*0.2
		}
		buffer.Add(&models.Experience{
			ID:     fmt.Sprintf("exp-%d", i),
			State:  state,
			Action: action,
			Reward: float64(action - 1),
			Symbol: "BTC",
		})
	}
	return buffer
}

func newTestEngine(t *testing.T, buffer *replay.Buffer) *Engine {
	t.Helper()
	return NewEngine(&EngineConfig{
		BatchSize:     32,
		MiniBatchSize: 32,
		Loss:          models.LossMSE,
		Patience:      10,
		MinDelta:      1e-6,
		MaxGradNorm:   1.0,
		Seed:          17,
		Builder:       &network.BuilderConfig{HiddenSizes: []int{16, 8}},
		Scheduler: &SchedulerConfig{
			Schedule:    ScheduleExponential,
			InitialRate: 0.01,
			DecayRate:   0.999,
			Floor:       1e-6,
			Ceiling:     0.1,
		},
	}, buffer, nil, nil, quietLogger())
}

func TestEngineLifecycle(t *testing.T) {
	buffer := seedBuffer(t, 8, 4)
	engine := newTestEngine(t, buffer)

	assert.Equal(t, StateUninitialized, engine.State())
	assert.NotEmpty(t, engine.ModelID())

	_, err := engine.TrainEpoch(context.Background())
	assert.Error(t, err)

	require.NoError(t, engine.InitializeNetwork(models.ArchitectureDense, 4, 3))
	assert.Equal(t, StateReady, engine.State())
}

func TestInitializeNetworkRejectsBadShape(t *testing.T) {
	engine := newTestEngine(t, seedBuffer(t, 8, 4))

	assert.Error(t, engine.InitializeNetwork(models.ArchitectureDense, 0, 3))
	assert.Error(t, engine.InitializeNetwork(models.Architecture("transformer"), 4, 3))
	assert.Equal(t, StateUninitialized, engine.State())
}

func TestTrainEpochReducesLoss(t *testing.T) {
	buffer := seedBuffer(t, 64, 4)
	engine := newTestEngine(t, buffer)
	require.NoError(t, engine.InitializeNetwork(models.ArchitectureDense, 4, 3))

	ctx := context.Background()

	first, err := engine.TrainEpoch(ctx)
	require.NoError(t, err)
	require.False(t, math.IsNaN(first.Loss.MSE))

	var last *models.TrainingMetrics
	for i := 0; i < 60; i++ {
		last, err = engine.TrainEpoch(ctx)
		require.NoError(t, err)
		assert.False(t, math.IsNaN(last.Loss.MSE))
		assert.False(t, math.IsInf(last.GradientNorm, 0))
	}

	assert.Less(t, last.Loss.MSE, first.Loss.MSE)
	assert.Equal(t, 0, last.Stability.ResetCount)
	assert.Equal(t, 60, last.Epoch)
	assert.Len(t, engine.History(), 61)
}

func TestTrainEpochEmptyBuffer(t *testing.T) {
	buffer := replay.NewBuffer(nil, nil, quietLogger())
	engine := newTestEngine(t, buffer)
	require.NoError(t, engine.InitializeNetwork(models.ArchitectureDense, 4, 3))

	_, err := engine.TrainEpoch(context.Background())
	assert.Error(t, err)
	assert.Equal(t, StateReady, engine.State())
}

func TestTrainEpochCancelledContext(t *testing.T) {
	buffer := seedBuffer(t, 16, 4)
	engine := newTestEngine(t, buffer)
	require.NoError(t, engine.InitializeNetwork(models.ArchitectureDense, 4, 3))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.TrainEpoch(ctx)
	assert.Error(t, err)
	assert.Equal(t, StateReady, engine.State())
}

func TestEarlyStopping(t *testing.T) {
	buffer := seedBuffer(t, 16, 4)
	engine := NewEngine(&EngineConfig{
		BatchSize:     16,
		MiniBatchSize: 16,
		Loss:          models.LossMSE,
		Patience:      2,
		MinDelta:      1e9, // no finite improvement ever counts
		MaxGradNorm:   1.0,
		Seed:          17,
	}, buffer, nil, nil, quietLogger())
	require.NoError(t, engine.InitializeNetwork(models.ArchitectureDense, 4, 3))

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := engine.TrainEpoch(ctx)
		require.NoError(t, err)
	}

	assert.True(t, engine.ShouldStopEarly())
	assert.Equal(t, StateStopped, engine.State())

	_, err := engine.TrainEpoch(ctx)
	assert.Error(t, err)
}

// newUnstableEngine configures a watchdog that judges every finite step
// an explosion, so each epoch's first minibatch triggers a full reset.
func newUnstableEngine(t *testing.T, buffer *replay.Buffer, resetBudget int) *Engine {
	t.Helper()
	return NewEngine(&EngineConfig{
		BatchSize:     16,
		MiniBatchSize: 16,
		Loss:          models.LossMSE,
		MaxGradNorm:   1.0,
		Seed:          17,
		Builder:       &network.BuilderConfig{HiddenSizes: []int{8}},
		Watchdog: &WatchdogConfig{
			ExplosionNorm: 1e-12,
			Window:        1,
			ResetBudget:   resetBudget,
			LRCutFactor:   0.5,
		},
	}, buffer, nil, nil, quietLogger())
}

func TestWatchdogResetRecovers(t *testing.T) {
	buffer := seedBuffer(t, 16, 4)
	engine := newUnstableEngine(t, buffer, 100)
	require.NoError(t, engine.InitializeNetwork(models.ArchitectureDense, 4, 3))

	metrics, err := engine.TrainEpoch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, metrics.Stability.ResetCount)
	assert.Equal(t, StateReady, engine.State())

	out, err := engine.Predict([]float64{0.5, -0.2, 0.1, 0.3})
	require.NoError(t, err)
	for _, v := range out {
		assert.False(t, math.IsNaN(v))
		assert.False(t, math.IsInf(v, 0))
	}
}

func TestResetZeroesOptimizerAndCutsRate(t *testing.T) {
	buffer := seedBuffer(t, 32, 4)
	engine := newTestEngine(t, buffer)
	require.NoError(t, engine.InitializeNetwork(models.ArchitectureDense, 4, 3))

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := engine.TrainEpoch(ctx)
		require.NoError(t, err)
	}
	require.Equal(t, 3, engine.optimizer.Step())

	before := engine.net.Weights()[0].At(0, 0)
	lr := engine.scheduler.RateFor(3)
	require.NoError(t, engine.performReset(3, lr))

	assert.Equal(t, StateResetting, engine.state)
	assert.Equal(t, 0, engine.optimizer.Step())
	assert.InDelta(t, lr*0.5, engine.scheduler.BaseRate(), 1e-12)
	assert.NotEqual(t, before, engine.net.Weights()[0].At(0, 0))
}

func TestWatchdogBudgetExhaustedStopsEngine(t *testing.T) {
	buffer := seedBuffer(t, 16, 4)
	engine := newUnstableEngine(t, buffer, 1)
	require.NoError(t, engine.InitializeNetwork(models.ArchitectureDense, 4, 3))

	ctx := context.Background()
	metrics, err := engine.TrainEpoch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, metrics.Stability.ResetCount)
	assert.Equal(t, StateReady, engine.State())

	_, err = engine.TrainEpoch(ctx)
	require.Error(t, err)
	assert.True(t, apperrors.IsInstabilityError(err))
	assert.Equal(t, StateStopped, engine.State())

	_, err = engine.TrainEpoch(ctx)
	assert.Error(t, err)
}

func TestPredictRequiresInitialization(t *testing.T) {
	engine := newTestEngine(t, seedBuffer(t, 8, 4))

	_, err := engine.Predict([]float64{1, 2, 3, 4})
	assert.Error(t, err)

	require.NoError(t, engine.InitializeNetwork(models.ArchitectureDense, 4, 3))
	out, err := engine.Predict([]float64{0.1, 0.2, 0.3, 0.4})
	require.NoError(t, err)
	require.Len(t, out, 3)
}

func TestCheckpointRestoreRoundtrip(t *testing.T) {
	buffer := seedBuffer(t, 32, 4)
	engine := newTestEngine(t, buffer)
	require.NoError(t, engine.InitializeNetwork(models.ArchitectureDense, 4, 3))

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := engine.TrainEpoch(ctx)
		require.NoError(t, err)
	}

	cp, err := engine.Checkpoint()
	require.NoError(t, err)
	assert.Equal(t, engine.ModelID(), cp.ModelID)
	assert.NotEmpty(t, cp.OptimizerState)
	assert.Equal(t, 3, cp.OptimizerStep)

	input := []float64{0.5, -0.2, 0.1, 0.3}
	want, err := engine.Predict(input)
	require.NoError(t, err)

	restored := newTestEngine(t, seedBuffer(t, 32, 4))
	require.NoError(t, restored.RestoreCheckpoint(cp))
	assert.Equal(t, cp.ModelID, restored.ModelID())
	assert.Equal(t, StateReady, restored.State())

	got, err := restored.Predict(input)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCheckpointRequiresInitialization(t *testing.T) {
	engine := newTestEngine(t, seedBuffer(t, 8, 4))

	_, err := engine.Checkpoint()
	assert.Error(t, err)
}

func TestTargetForOneHotAndScalar(t *testing.T) {
	engine := newTestEngine(t, seedBuffer(t, 8, 4))
	require.NoError(t, engine.InitializeNetwork(models.ArchitectureDense, 4, 3))

	target := engine.targetFor(&models.Experience{Action: 2, Reward: 1.5})
	assert.Equal(t, []float64{0, 0, 1}, target)

	// Out-of-range actions produce an all-zero target instead of panicking
	target = engine.targetFor(&models.Experience{Action: 7})
	assert.Equal(t, []float64{0, 0, 0}, target)

	require.NoError(t, engine.InitializeNetwork(models.ArchitectureDense, 4, 1))
	target = engine.targetFor(&models.Experience{Action: 2, Reward: 1.5})
	assert.Equal(t, []float64{1.5}, target)
}
