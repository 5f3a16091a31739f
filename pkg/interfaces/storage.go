package interfaces

import (
	"context"

	"github.com/tradepulse/trademl/pkg/models"
)

// CheckpointStorage persists and restores training checkpoints. The
// round trip must be loss-less: shapes and values identical after
// Load(Save(cp)).
type CheckpointStorage interface {
	// Save stores a checkpoint under its ID
	Save(ctx context.Context, cp *models.Checkpoint) error

	// Load retrieves a checkpoint by ID
	Load(ctx context.Context, id string) (*models.Checkpoint, error)

	// List returns checkpoint IDs for a model, newest first
	List(ctx context.Context, modelID string) ([]string, error)

	// Delete removes a checkpoint by ID
	Delete(ctx context.Context, id string) error

	// Close releases storage resources
	Close() error
}

// ModelRegistry records metadata about trained models
type ModelRegistry interface {
	// Register inserts or updates a model's metadata
	Register(ctx context.Context, info *models.ModelInfo) error

	// Get retrieves metadata for one model
	Get(ctx context.Context, modelID string) (*models.ModelInfo, error)

	// List returns all registered models, newest first
	List(ctx context.Context) ([]*models.ModelInfo, error)

	// Delete removes a model's metadata
	Delete(ctx context.Context, modelID string) error

	// Close releases registry resources
	Close() error
}

// MetricsSink appends per-epoch training metrics to a history store
type MetricsSink interface {
	// Write appends one epoch's metrics for a model
	Write(ctx context.Context, modelID string, metrics *models.TrainingMetrics) error

	// Flush forces buffered points out
	Flush(ctx context.Context) error

	// Close releases sink resources
	Close() error
}
