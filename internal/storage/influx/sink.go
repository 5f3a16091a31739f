package influx

import (
	"context"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/sirupsen/logrus"

	"github.com/tradepulse/trademl/pkg/errors"
	"github.com/tradepulse/trademl/pkg/models"
)

// InfluxConfig holds configuration for the metrics history sink
type InfluxConfig struct {
	URL          string `json:"url"`
	Token        string `json:"token"`
	Organization string `json:"organization"`
	Bucket       string `json:"bucket"`
}

// Sink appends per-epoch training metrics to InfluxDB. The history is a
// time series: one point per epoch tagged by model.
type Sink struct {
	config   *InfluxConfig
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	logger   *logrus.Logger
}

// NewSink creates an InfluxDB-backed metrics sink
func NewSink(config *InfluxConfig, logger *logrus.Logger) (*Sink, error) {
	if config == nil || config.URL == "" {
		return nil, errors.NewStorageError("INVALID_CONFIG", "influxdb URL is required")
	}
	if logger == nil {
		logger = logrus.New()
	}

	client := influxdb2.NewClient(config.URL, config.Token)
	return &Sink{
		config:   config,
		client:   client,
		writeAPI: client.WriteAPIBlocking(config.Organization, config.Bucket),
		logger:   logger,
	}, nil
}

// Ping verifies connectivity
func (s *Sink) Ping(ctx context.Context) error {
	ok, err := s.client.Ping(ctx)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, "PING_FAILED", "influxdb ping failed")
	}
	if !ok {
		return errors.NewStorageError("PING_FAILED", "influxdb not ready")
	}
	return nil
}

// Write appends one epoch's metrics for a model
func (s *Sink) Write(ctx context.Context, modelID string, metrics *models.TrainingMetrics) error {
	if metrics == nil {
		return errors.NewValidationError("INVALID_METRICS", "metrics cannot be nil")
	}

	point := influxdb2.NewPointWithMeasurement("training_epoch").
		AddTag("model_id", modelID).
		AddField("epoch", metrics.Epoch).
		AddField("mse", metrics.Loss.MSE).
		AddField("mae", metrics.Loss.MAE).
		AddField("r_squared", metrics.Loss.RSquared).
		AddField("directional_accuracy", metrics.Accuracy.Directional).
		AddField("classification_accuracy", metrics.Accuracy.Classification).
		AddField("gradient_norm", metrics.GradientNorm).
		AddField("learning_rate", metrics.LearningRate).
		AddField("nan_count", metrics.Stability.NaNCount).
		AddField("inf_count", metrics.Stability.InfCount).
		AddField("reset_count", metrics.Stability.ResetCount).
		AddField("epsilon", metrics.Exploration.Epsilon).
		SetTime(metrics.Timestamp)

	if err := s.writeAPI.WritePoint(ctx, point); err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, "WRITE_FAILED", "failed to write metrics point").
			WithContext("model_id", modelID).
			WithContext("epoch", metrics.Epoch)
	}
	return nil
}

// Flush is a no-op for the blocking write API
func (s *Sink) Flush(ctx context.Context) error {
	return nil
}

// Close releases the client
func (s *Sink) Close() error {
	s.client.Close()
	return nil
}
