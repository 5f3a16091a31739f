package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/tradepulse/trademl/pkg/errors"
	"github.com/tradepulse/trademl/pkg/models"
)

// PostgresConfig holds configuration for the model registry database
type PostgresConfig struct {
	DSN string `json:"dsn"`
}

// Registry records trained-model metadata in Postgres: which models
// exist, how they trained, and which checkpoint holds their weights.
type Registry struct {
	config *PostgresConfig
	db     *sql.DB
	logger *logrus.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS models (
    model_id      TEXT PRIMARY KEY,
    symbol        TEXT NOT NULL DEFAULT '',
    architecture  TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL,
    epochs        INTEGER NOT NULL DEFAULT 0,
    final_loss    DOUBLE PRECISION NOT NULL DEFAULT 0,
    metrics       JSONB,
    checkpoint_id TEXT NOT NULL DEFAULT ''
)`

// NewRegistry opens the registry database and ensures the schema exists
func NewRegistry(config *PostgresConfig, logger *logrus.Logger) (*Registry, error) {
	if config == nil || config.DSN == "" {
		return nil, errors.NewStorageError("INVALID_CONFIG", "postgres DSN is required")
	}
	if logger == nil {
		logger = logrus.New()
	}

	db, err := sql.Open("postgres", config.DSN)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, "CONNECT_FAILED", "failed to open postgres connection")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, "SCHEMA_FAILED", "failed to ensure registry schema")
	}

	return &Registry{config: config, db: db, logger: logger}, nil
}

// Register inserts or updates a model's metadata
func (r *Registry) Register(ctx context.Context, info *models.ModelInfo) error {
	if info == nil || info.ModelID == "" {
		return errors.NewValidationError("INVALID_MODEL_INFO", "model info must have a model ID")
	}

	var metricsJSON []byte
	if info.Metrics != nil {
		var err error
		metricsJSON, err = json.Marshal(info.Metrics)
		if err != nil {
			return errors.WrapError(err, errors.ErrorTypeStorage, "MARSHAL_FAILED", "failed to encode metrics")
		}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO models (model_id, symbol, architecture, created_at, epochs, final_loss, metrics, checkpoint_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (model_id) DO UPDATE SET
			epochs = EXCLUDED.epochs,
			final_loss = EXCLUDED.final_loss,
			metrics = EXCLUDED.metrics,
			checkpoint_id = EXCLUDED.checkpoint_id`,
		info.ModelID, info.Symbol, string(info.Architecture), info.CreatedAt,
		info.Epochs, info.FinalLoss, metricsJSON, info.CheckpointID)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, "WRITE_FAILED", "failed to register model").
			WithContext("model_id", info.ModelID)
	}
	return nil
}

// Get retrieves metadata for one model
func (r *Registry) Get(ctx context.Context, modelID string) (*models.ModelInfo, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT model_id, symbol, architecture, created_at, epochs, final_loss, metrics, checkpoint_id
		FROM models WHERE model_id = $1`, modelID)

	info, err := scanModel(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewStorageError("MODEL_NOT_FOUND", "model not found").
			WithContext("model_id", modelID)
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, "READ_FAILED", "failed to load model")
	}
	return info, nil
}

// List returns all registered models, newest first
func (r *Registry) List(ctx context.Context) ([]*models.ModelInfo, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT model_id, symbol, architecture, created_at, epochs, final_loss, metrics, checkpoint_id
		FROM models ORDER BY created_at DESC`)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, "READ_FAILED", "failed to list models")
	}
	defer rows.Close()

	var out []*models.ModelInfo
	for rows.Next() {
		info, err := scanModel(rows)
		if err != nil {
			return nil, errors.WrapError(err, errors.ErrorTypeStorage, "READ_FAILED", "failed to scan model row")
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, "READ_FAILED", "failed to iterate model rows")
	}
	return out, nil
}

// Delete removes a model's metadata
func (r *Registry) Delete(ctx context.Context, modelID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM models WHERE model_id = $1`, modelID)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, "DELETE_FAILED", "failed to delete model")
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.NewStorageError("MODEL_NOT_FOUND", "model not found").
			WithContext("model_id", modelID)
	}
	return nil
}

// Close releases the database pool
func (r *Registry) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanModel(row scanner) (*models.ModelInfo, error) {
	var info models.ModelInfo
	var arch string
	var metricsJSON []byte
	if err := row.Scan(&info.ModelID, &info.Symbol, &arch, &info.CreatedAt,
		&info.Epochs, &info.FinalLoss, &metricsJSON, &info.CheckpointID); err != nil {
		return nil, err
	}
	info.Architecture = models.Architecture(arch)
	if len(metricsJSON) > 0 {
		var m models.TrainingMetrics
		if err := json.Unmarshal(metricsJSON, &m); err == nil {
			info.Metrics = &m
		}
	}
	return &info, nil
}
