package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/tradepulse/trademl/pkg/models"
)

// PrometheusConfig configures the metrics collector
type PrometheusConfig struct {
	Namespace string `json:"namespace"`
	Subsystem string `json:"subsystem"`
}

// getDefaultPrometheusConfig returns the stock naming
func getDefaultPrometheusConfig() *PrometheusConfig {
	return &PrometheusConfig{
		Namespace: "trademl",
		Subsystem: "training",
	}
}

// PrometheusMetrics exposes per-epoch training metrics, buffer activity,
// and instability events to Prometheus. Implements the engine's
// MetricsRecorder hook.
type PrometheusMetrics struct {
	logger   *logrus.Logger
	registry *prometheus.Registry
	config   *PrometheusConfig

	epochsTotal     prometheus.Counter
	epochDuration   prometheus.Histogram
	lossMSE         prometheus.Gauge
	lossMAE         prometheus.Gauge
	rSquared        prometheus.Gauge
	accuracy        *prometheus.GaugeVec
	gradientNorm    prometheus.Gauge
	learningRate    prometheus.Gauge
	epsilon         prometheus.Gauge
	nanTotal        prometheus.Gauge
	infTotal        prometheus.Gauge
	resetTotal      prometheus.Gauge
	bufferSize      prometheus.Gauge
	bufferEvictions prometheus.Gauge
	collectedTotal  prometheus.Counter
	fetchErrors     prometheus.Counter
}

// NewPrometheusMetrics creates a collector on a private registry
func NewPrometheusMetrics(config *PrometheusConfig, logger *logrus.Logger) *PrometheusMetrics {
	if config == nil {
		config = getDefaultPrometheusConfig()
	}
	if logger == nil {
		logger = logrus.New()
	}

	registry := prometheus.NewRegistry()
	opts := func(name, help string) prometheus.GaugeOpts {
		return prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      name,
			Help:      help,
		}
	}

	pm := &PrometheusMetrics{
		logger:   logger,
		registry: registry,
		config:   config,
		epochsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace, Subsystem: config.Subsystem,
			Name: "epochs_total", Help: "Total completed training epochs",
		}),
		epochDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: config.Namespace, Subsystem: config.Subsystem,
			Name: "epoch_duration_seconds", Help: "Training epoch wall time",
			Buckets: prometheus.DefBuckets,
		}),
		lossMSE:      prometheus.NewGauge(opts("loss_mse", "Epoch mean squared error")),
		lossMAE:      prometheus.NewGauge(opts("loss_mae", "Epoch mean absolute error")),
		rSquared:     prometheus.NewGauge(opts("r_squared", "Epoch coefficient of determination")),
		gradientNorm: prometheus.NewGauge(opts("gradient_norm", "Epoch mean global gradient norm")),
		learningRate: prometheus.NewGauge(opts("learning_rate", "Scheduled learning rate")),
		epsilon:      prometheus.NewGauge(opts("exploration_epsilon", "Current epsilon-greedy exploration rate")),
		nanTotal:     prometheus.NewGauge(opts("nan_events_total", "Cumulative NaN detections")),
		infTotal:     prometheus.NewGauge(opts("inf_events_total", "Cumulative Inf detections")),
		resetTotal:   prometheus.NewGauge(opts("watchdog_resets_total", "Cumulative watchdog resets")),
		bufferSize:   prometheus.NewGauge(opts("buffer_size", "Experiences currently in the replay buffer")),
		bufferEvictions: prometheus.NewGauge(
			opts("buffer_evictions_total", "Cumulative replay buffer evictions")),
		accuracy: prometheus.NewGaugeVec(opts("accuracy", "Epoch accuracy by kind"), []string{"kind"}),
		collectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace, Subsystem: config.Subsystem,
			Name: "experiences_collected_total", Help: "Experiences handed to the replay buffer",
		}),
		fetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace, Subsystem: config.Subsystem,
			Name: "fetch_errors_total", Help: "Failed feature provider fetches",
		}),
	}

	registry.MustRegister(
		pm.epochsTotal, pm.epochDuration, pm.lossMSE, pm.lossMAE, pm.rSquared,
		pm.accuracy, pm.gradientNorm, pm.learningRate, pm.epsilon,
		pm.nanTotal, pm.infTotal, pm.resetTotal,
		pm.bufferSize, pm.bufferEvictions, pm.collectedTotal, pm.fetchErrors,
	)

	return pm
}

// ObserveEpoch records one epoch's metrics
func (pm *PrometheusMetrics) ObserveEpoch(m *models.TrainingMetrics) {
	pm.epochsTotal.Inc()
	pm.epochDuration.Observe(m.Duration.Seconds())
	pm.lossMSE.Set(m.Loss.MSE)
	pm.lossMAE.Set(m.Loss.MAE)
	pm.rSquared.Set(m.Loss.RSquared)
	pm.accuracy.WithLabelValues("directional").Set(m.Accuracy.Directional)
	pm.accuracy.WithLabelValues("classification").Set(m.Accuracy.Classification)
	pm.gradientNorm.Set(m.GradientNorm)
	pm.learningRate.Set(m.LearningRate)
	pm.epsilon.Set(m.Exploration.Epsilon)
	pm.nanTotal.Set(float64(m.Stability.NaNCount))
	pm.infTotal.Set(float64(m.Stability.InfCount))
	pm.resetTotal.Set(float64(m.Stability.ResetCount))
}

// ObserveBuffer records replay buffer occupancy
func (pm *PrometheusMetrics) ObserveBuffer(size int, evictions int64) {
	pm.bufferSize.Set(float64(size))
	pm.bufferEvictions.Set(float64(evictions))
}

// ObserveCollection records an ingestion round
func (pm *PrometheusMetrics) ObserveCollection(stored int, failed bool) {
	pm.collectedTotal.Add(float64(stored))
	if failed {
		pm.fetchErrors.Inc()
	}
}

// Handler returns the scrape endpoint for this collector's registry
func (pm *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for additional collectors
func (pm *PrometheusMetrics) Registry() *prometheus.Registry {
	return pm.registry
}
