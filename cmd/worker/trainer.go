package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tradepulse/trademl/internal/ingest"
	"github.com/tradepulse/trademl/internal/replay"
	"github.com/tradepulse/trademl/internal/training"
	"github.com/tradepulse/trademl/pkg/interfaces"
)

// Trainer drives the worker's collect-then-train cycle. Each tick it
// pulls fresh experiences into the replay buffer, then runs a fixed
// number of epochs once the buffer has warmed up.
type Trainer struct {
	config      *WorkerConfig
	logger      *logrus.Logger
	engine      *training.Engine
	buffer      *replay.Buffer
	collector   *ingest.Collector
	checkpoints interfaces.CheckpointStorage

	epochs      int64
	collections int64
	cycleActive int32
}

func NewTrainer(config *WorkerConfig, engine *training.Engine, buffer *replay.Buffer, collector *ingest.Collector, checkpoints interfaces.CheckpointStorage, logger *logrus.Logger) *Trainer {
	return &Trainer{
		config:      config,
		logger:      logger,
		engine:      engine,
		buffer:      buffer,
		collector:   collector,
		checkpoints: checkpoints,
	}
}

func (t *Trainer) Start(ctx context.Context) {
	t.logger.Info("Trainer started")

	ticker := time.NewTicker(t.config.CollectInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Trainer stopping due to context cancellation")
			return
		case <-ticker.C:
			t.runCycle(ctx)
		}
	}
}

func (t *Trainer) runCycle(ctx context.Context) {
	atomic.StoreInt32(&t.cycleActive, 1)
	defer atomic.StoreInt32(&t.cycleActive, 0)

	startTime := time.Now()

	stored, err := t.collector.Collect(ctx)
	if err != nil {
		t.logger.WithError(err).WithField("stored", stored).Warn("Collection cycle incomplete")
	}
	atomic.AddInt64(&t.collections, 1)

	if t.buffer.Len() < t.config.WarmupSize {
		t.logger.WithFields(logrus.Fields{
			"bufferSize": t.buffer.Len(),
			"warmup":     t.config.WarmupSize,
		}).Debug("Buffer warming up, skipping training")
		return
	}

	for i := 0; i < t.config.EpochsPerCycle; i++ {
		metrics, err := t.engine.TrainEpoch(ctx)
		if err != nil {
			t.logger.WithError(err).Error("Epoch failed")
			return
		}
		atomic.AddInt64(&t.epochs, 1)

		t.logger.WithFields(logrus.Fields{
			"epoch":        metrics.Epoch,
			"loss":         metrics.Loss.MSE,
			"gradientNorm": metrics.GradientNorm,
			"learningRate": metrics.LearningRate,
		}).Info("Epoch completed")

		if t.config.CheckpointEvery > 0 && metrics.Epoch%t.config.CheckpointEvery == 0 {
			t.saveCheckpoint(ctx)
		}

		if t.engine.ShouldStopEarly() {
			t.logger.WithField("epoch", metrics.Epoch).Info("Early stopping triggered")
			t.saveCheckpoint(ctx)
			return
		}
	}

	t.logger.WithFields(logrus.Fields{
		"stored":   stored,
		"duration": time.Since(startTime),
	}).Debug("Cycle completed")
}

func (t *Trainer) saveCheckpoint(ctx context.Context) {
	cp, err := t.engine.Checkpoint()
	if err != nil {
		t.logger.WithError(err).Error("Failed to snapshot checkpoint")
		return
	}
	if err := t.checkpoints.Save(ctx, cp); err != nil {
		t.logger.WithError(err).Error("Failed to persist checkpoint")
		return
	}
	t.logger.WithField("checkpointID", cp.ID).Info("Checkpoint saved")
}

// Drain blocks until any in-flight cycle finishes, then writes a final
// checkpoint.
func (t *Trainer) Drain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for atomic.LoadInt32(&t.cycleActive) == 1 {
		select {
		case <-ctx.Done():
			return fmt.Errorf("shutdown timeout exceeded")
		case <-ticker.C:
		}
	}

	if t.engine.State() != training.StateUninitialized {
		t.saveCheckpoint(ctx)
	}
	return nil
}

func (t *Trainer) EpochsCompleted() int64 {
	return atomic.LoadInt64(&t.epochs)
}

func (t *Trainer) CollectionsCompleted() int64 {
	return atomic.LoadInt64(&t.collections)
}
