package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/tradepulse/trademl/internal/observability/health"
	obsmetrics "github.com/tradepulse/trademl/internal/observability/metrics"
	"github.com/tradepulse/trademl/internal/replay"
	"github.com/tradepulse/trademl/internal/storage/file"
	"github.com/tradepulse/trademl/internal/storage/influx"
	"github.com/tradepulse/trademl/internal/storage/postgres"
	redisstore "github.com/tradepulse/trademl/internal/storage/redis"
	"github.com/tradepulse/trademl/internal/training"
	"github.com/tradepulse/trademl/pkg/interfaces"
)

const healthProbeTimeout = 5 * time.Second

func main() {
	config := ParseFlags()

	logger := setupLogger(config.LogLevel, config.LogFormat)

	logger.WithFields(logrus.Fields{
		"version":   Version,
		"commit":    GitCommit,
		"buildDate": BuildDate,
	}).Info("Starting Crypto Trading ML Training Server")

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	promMetrics := obsmetrics.NewPrometheusMetrics(nil, logger)
	checker := health.NewChecker(logger)

	buffer := replay.NewBuffer(nil, nil, logger)
	exploration := replay.NewEpsilonGreedy(nil, nil)
	engine := training.NewEngine(nil, buffer, exploration, promMetrics, logger)

	checkpoints, err := file.NewFileStorage(&file.FileConfig{BaseDir: config.CheckpointDir}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize checkpoint storage")
	}

	var registry interfaces.ModelRegistry
	if config.PostgresDSN != "" {
		pg, err := postgres.NewRegistry(&postgres.PostgresConfig{DSN: config.PostgresDSN}, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect model registry")
		}
		defer pg.Close()
		registry = pg
	}

	var sink interfaces.MetricsSink
	if config.InfluxURL != "" {
		is, err := influx.NewSink(&influx.InfluxConfig{
			URL:          config.InfluxURL,
			Token:        config.InfluxToken,
			Organization: config.InfluxOrg,
			Bucket:       config.InfluxBucket,
		}, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect metrics sink")
		}
		defer is.Close()
		sink = is
		checker.Register("influxdb", is.Ping)
	}

	if config.RedisAddr != "" {
		cache, err := redisstore.NewRedisStorage(&redisstore.RedisConfig{Addr: config.RedisAddr, KeyPrefix: "trademl"}, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect redis checkpoint cache")
		}
		defer cache.Close()
		checker.Register("redis", cache.Ping)
	}

	server := NewTrainingServer(engine, buffer, checkpoints, registry, sink, checker, logger)

	// Initialize router
	router := mux.NewRouter()
	router.Use(mux.MiddlewareFunc(requestIDMiddleware))
	router.Use(mux.MiddlewareFunc(recoveryMiddleware(logger)))
	router.Use(mux.MiddlewareFunc(loggingMiddleware(logger)))
	router.HandleFunc("/health", server.HandleHealth).Methods("GET")
	router.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		info := GetBuildInfo()
		fmt.Fprintf(w, `{"version":"%s","commit":"%s","buildDate":"%s","goVersion":"%s","platform":"%s"}`,
			info.Version, info.GitCommit, info.BuildDate, info.GoVersion, info.Platform)
	}).Methods("GET")
	server.RegisterRoutes(router)

	// Start metrics server
	go func() {
		metricsAddr := fmt.Sprintf(":%d", config.MetricsPort)
		logger.WithField("address", metricsAddr).Info("Starting metrics server")

		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promMetrics.Handler())

		if err := http.ListenAndServe(metricsAddr, metricsMux); err != nil {
			logger.WithError(err).Error("Metrics server failed")
		}
	}()

	// Configure main server
	serverAddr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithField("address", serverAddr).Info("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	logger.Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}

	logger.Info("Server stopped")
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
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}
