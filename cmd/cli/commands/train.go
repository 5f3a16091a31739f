package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tradepulse/trademl/internal/replay"
	"github.com/tradepulse/trademl/internal/storage/file"
	"github.com/tradepulse/trademl/internal/training"
	"github.com/tradepulse/trademl/pkg/models"
)

type TrainOptions struct {
	DatasetFile   string
	Architecture  string
	InputSize     int
	OutputSize    int
	Epochs        int
	BatchSize     int
	LearningRate  float64
	Loss          string
	Seed          int64
	CheckpointDir string
	LogLevel      string
}

func NewTrainCmd() *cobra.Command {
	opts := &TrainOptions{}

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a model on a local experience dataset",
		Long: `Train a neural network offline from a JSON file of labeled trading
experiences, then write the final checkpoint to the checkpoint directory.`,
		Example: `  # Train a dense classifier on recorded BTC experiences
  trademl-cli train --dataset btc_experiences.json --input-size 32 --epochs 200

  # Reproducible run with a fixed seed and lower learning rate
  trademl-cli train --dataset data.json --seed 42 --learning-rate 0.0005`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrain(opts)
		},
	}

	// Add flags
	cmd.Flags().StringVarP(&opts.DatasetFile, "dataset", "d", "", "JSON file of labeled experiences (required)")
	cmd.Flags().StringVarP(&opts.Architecture, "architecture", "a", "dense", "Network architecture (dense, lstm, conv, attention, hybrid)")
	cmd.Flags().IntVar(&opts.InputSize, "input-size", 32, "Feature vector length")
	cmd.Flags().IntVar(&opts.OutputSize, "output-size", 3, "Output vector length")
	cmd.Flags().IntVarP(&opts.Epochs, "epochs", "e", 100, "Maximum training epochs")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", 32, "Samples per epoch batch")
	cmd.Flags().Float64Var(&opts.LearningRate, "learning-rate", 0.001, "Initial learning rate")
	cmd.Flags().StringVar(&opts.Loss, "loss", "mse", "Loss function (mse, cross_entropy)")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "Random seed (0 for nondeterministic)")
	cmd.Flags().StringVar(&opts.CheckpointDir, "checkpoint-dir", "./checkpoints", "Checkpoint output directory")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "warn", "Log level during training")
	cmd.MarkFlagRequired("dataset")

	return cmd
}

func runTrain(opts *TrainOptions) error {
	experiences, err := loadDataset(opts.DatasetFile)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	fmt.Printf("Training model...\n")
	fmt.Printf("Dataset: %s (%d experiences)\n", opts.DatasetFile, len(experiences))
	fmt.Printf("Architecture: %s (%d -> %d)\n", opts.Architecture, opts.InputSize, opts.OutputSize)
	fmt.Printf("Loss: %s, Batch Size: %d, Learning Rate: %g\n", opts.Loss, opts.BatchSize, opts.LearningRate)

	logger := logrus.New()
	if level, err := logrus.ParseLevel(opts.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	buffer := replay.NewBuffer(&replay.BufferConfig{
		Capacity:    len(experiences) + 1,
		Prioritized: true,
	}, nil, logger)
	for _, exp := range experiences {
		buffer.Add(exp)
	}

	engine := training.NewEngine(&training.EngineConfig{
		BatchSize:     opts.BatchSize,
		MiniBatchSize: opts.BatchSize,
		Loss:          models.LossFunction(opts.Loss),
		Seed:          opts.Seed,
		Scheduler:     &training.SchedulerConfig{InitialRate: opts.LearningRate},
	}, buffer, nil, nil, logger)

	if err := engine.InitializeNetwork(models.Architecture(opts.Architecture), opts.InputSize, opts.OutputSize); err != nil {
		return fmt.Errorf("failed to initialize network: %w", err)
	}

	ctx := context.Background()
	startTime := time.Now()

	for epoch := 0; epoch < opts.Epochs; epoch++ {
		metrics, err := engine.TrainEpoch(ctx)
		if err != nil {
			return fmt.Errorf("epoch %d failed: %w", epoch, err)
		}

		if epoch%10 == 0 || epoch == opts.Epochs-1 {
			fmt.Printf("epoch %4d  loss=%.6f  acc=%.3f  |g|=%.4f  lr=%.6f\n",
				metrics.Epoch, metrics.Loss.MSE, metrics.Accuracy.Classification,
				metrics.GradientNorm, metrics.LearningRate)
		}

		if engine.ShouldStopEarly() {
			fmt.Printf("Early stopping at epoch %d\n", metrics.Epoch)
			break
		}
	}

	storage, err := file.NewFileStorage(&file.FileConfig{BaseDir: opts.CheckpointDir}, logger)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint storage: %w", err)
	}
	defer storage.Close()

	cp, err := engine.Checkpoint()
	if err != nil {
		return fmt.Errorf("failed to snapshot checkpoint: %w", err)
	}
	if err := storage.Save(ctx, cp); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	fmt.Printf("\nTraining completed in %s\n", time.Since(startTime).Round(time.Millisecond))
	fmt.Printf("Model ID: %s\n", engine.ModelID())
	fmt.Printf("Checkpoint: %s\n", cp.ID)
	return nil
}

func loadDataset(path string) ([]*models.Experience, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var experiences []*models.Experience
	if err := json.NewDecoder(f).Decode(&experiences); err != nil {
		return nil, err
	}
	if len(experiences) == 0 {
		return nil, fmt.Errorf("dataset is empty")
	}
	return experiences, nil
}
