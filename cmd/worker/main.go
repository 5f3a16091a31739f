package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tradepulse/trademl/internal/ingest"
	"github.com/tradepulse/trademl/internal/replay"
	"github.com/tradepulse/trademl/internal/storage/file"
	"github.com/tradepulse/trademl/internal/training"
	"github.com/tradepulse/trademl/pkg/constants"
	"github.com/tradepulse/trademl/pkg/models"
)

type WorkerConfig struct {
	WorkerID        string
	FeatureURL      string
	Symbols         []string
	Architecture    string
	InputSize       int
	OutputSize      int
	CollectInterval time.Duration
	EpochsPerCycle  int
	WarmupSize      int
	CheckpointDir   string
	CheckpointEvery int
	LogLevel        string
	LogFormat       string
}

var logger *logrus.Logger

func main() {
	config := parseFlags()

	logger = setupLogger(config.LogLevel, config.LogFormat)

	logger.WithFields(logrus.Fields{
		"workerID":   config.WorkerID,
		"featureURL": config.FeatureURL,
		"symbols":    config.Symbols,
	}).Info("Starting Crypto Trading ML Training Worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	buffer := replay.NewBuffer(nil, nil, logger)
	exploration := replay.NewEpsilonGreedy(nil, nil)
	engine := training.NewEngine(nil, buffer, exploration, nil, logger)

	if err := engine.InitializeNetwork(models.Architecture(config.Architecture), config.InputSize, config.OutputSize); err != nil {
		logger.WithError(err).Fatal("Failed to initialize network")
	}

	provider := NewHTTPFeatureProvider(config.FeatureURL, logger)
	collector := ingest.NewCollector(&ingest.CollectorConfig{
		Symbols:       config.Symbols,
		BatchPerFetch: 100,
		FetchTimeout:  constants.DefaultFetchTimeout,
		MaxRetries:    constants.DefaultFetchRetries,
		RetryBackoff:  constants.DefaultFetchBackoff,
		Fanout:        constants.DefaultIngestFanout,
	}, provider, buffer, exploration, engine, logger)

	checkpoints, err := file.NewFileStorage(&file.FileConfig{BaseDir: config.CheckpointDir}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize checkpoint storage")
	}

	trainer := NewTrainer(config, engine, buffer, collector, checkpoints, logger)

	go trainer.Start(ctx)

	// Monitor worker health
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logger.WithFields(logrus.Fields{
					"epochs":      trainer.EpochsCompleted(),
					"collections": trainer.CollectionsCompleted(),
					"bufferSize":  buffer.Len(),
				}).Debug("Worker health check")
			}
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	logger.Info("Shutdown signal received")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := trainer.Drain(shutdownCtx); err != nil {
		logger.WithError(err).Error("Worker shutdown failed")
		os.Exit(1)
	}

	logger.Info("Worker stopped successfully")
}

func parseFlags() *WorkerConfig {
	config := &WorkerConfig{}
	var symbols string

	flag.StringVar(&config.WorkerID, "worker-id", generateWorkerID(), "Unique worker ID")
	flag.StringVar(&config.FeatureURL, "feature-url", "http://localhost:8080", "Feature provider base URL")
	flag.StringVar(&symbols, "symbols", "BTC,ETH,SOL", "Comma-separated symbols to collect")
	flag.StringVar(&config.Architecture, "architecture", string(models.ArchitectureDense), "Network architecture")
	flag.IntVar(&config.InputSize, "input-size", 32, "Feature vector length")
	flag.IntVar(&config.OutputSize, "output-size", 3, "Output vector length")
	flag.DurationVar(&config.CollectInterval, "collect-interval", constants.DefaultCollectInterval, "Experience collection interval")
	flag.IntVar(&config.EpochsPerCycle, "epochs-per-cycle", constants.DefaultEpochsPerCycle, "Training epochs per collection cycle")
	flag.IntVar(&config.WarmupSize, "warmup-size", constants.DefaultWarmupSize, "Buffer size before training starts")
	flag.StringVar(&config.CheckpointDir, "checkpoint-dir", "./checkpoints", "Checkpoint directory")
	flag.IntVar(&config.CheckpointEvery, "checkpoint-every", constants.DefaultCheckpointEvery, "Epochs between checkpoints")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level")
	flag.StringVar(&config.LogFormat, "log-format", "json", "Log format")

	flag.Parse()

	for _, s := range strings.Split(symbols, ",") {
		if s = strings.TrimSpace(s); s != "" {
			config.Symbols = append(config.Symbols, s)
		}
	}

	return config
}

func setupLogger(level, format string) *logrus.Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

func generateWorkerID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, os.Getpid())
}
