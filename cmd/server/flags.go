package main

import (
	"flag"
	"fmt"
	"os"
)

type Config struct {
	Port            int
	Host            string
	ConfigFile      string
	LogLevel        string
	LogFormat       string
	MetricsPort     int
	CheckpointDir   string
	RedisAddr       string
	PostgresDSN     string
	InfluxURL       string
	InfluxToken     string
	InfluxOrg       string
	InfluxBucket    string
	Version         bool
}

func ParseFlags() *Config {
	config := &Config{}

	flag.IntVar(&config.Port, "port", 8080, "Server port")
	flag.StringVar(&config.Host, "host", "0.0.0.0", "Server host")
	flag.StringVar(&config.ConfigFile, "config", "", "Path to configuration file")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&config.LogFormat, "log-format", "json", "Log format (json, text)")
	flag.IntVar(&config.MetricsPort, "metrics-port", 9090, "Prometheus metrics port")
	flag.StringVar(&config.CheckpointDir, "checkpoint-dir", "checkpoints", "Directory for checkpoint files")
	flag.StringVar(&config.RedisAddr, "redis-addr", "", "Redis address for the hot checkpoint cache (optional)")
	flag.StringVar(&config.PostgresDSN, "postgres-dsn", "", "Postgres DSN for the model registry (optional)")
	flag.StringVar(&config.InfluxURL, "influx-url", "", "InfluxDB URL for the metrics history sink (optional)")
	flag.StringVar(&config.InfluxToken, "influx-token", "", "InfluxDB API token")
	flag.StringVar(&config.InfluxOrg, "influx-org", "", "InfluxDB organization")
	flag.StringVar(&config.InfluxBucket, "influx-bucket", "training", "InfluxDB bucket for training metrics")
	flag.BoolVar(&config.Version, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nCrypto Trading ML Training Server\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if config.Version {
		info := GetBuildInfo()
		fmt.Printf("Version: %s\n", info.Version)
		fmt.Printf("Git Commit: %s\n", info.GitCommit)
		fmt.Printf("Build Date: %s\n", info.BuildDate)
		fmt.Printf("Go Version: %s\n", info.GoVersion)
		fmt.Printf("Platform: %s\n", info.Platform)
		os.Exit(0)
	}

	return config
}
