package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

type CLIConfig struct {
	ServerURL     string      `mapstructure:"server_url"`
	CheckpointDir string      `mapstructure:"checkpoint_dir"`
	Training      TrainingCfg `mapstructure:"training"`
	Preferences   Preferences `mapstructure:"preferences"`
}

type TrainingCfg struct {
	Architecture string  `mapstructure:"architecture"`
	InputSize    int     `mapstructure:"input_size"`
	OutputSize   int     `mapstructure:"output_size"`
	Epochs       int     `mapstructure:"epochs"`
	LearningRate float64 `mapstructure:"learning_rate"`
}

type Preferences struct {
	ColorOutput bool   `mapstructure:"color_output"`
	TimeZone    string `mapstructure:"timezone"`
}

func LoadConfig(cfgFile string) (*CLIConfig, error) {
	config := &CLIConfig{
		ServerURL:     "http://localhost:8080",
		CheckpointDir: "./checkpoints",
		Training: TrainingCfg{
			Architecture: "dense",
			InputSize:    32,
			OutputSize:   3,
			Epochs:       100,
			LearningRate: 0.001,
		},
		Preferences: Preferences{
			ColorOutput: true,
			TimeZone:    "UTC",
		},
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}

		configPath := filepath.Join(home, ".trademl")
		viper.AddConfigPath(configPath)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("TRADEML")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("server_url", config.ServerURL)
	viper.SetDefault("checkpoint_dir", config.CheckpointDir)
	viper.SetDefault("training.architecture", config.Training.Architecture)
	viper.SetDefault("training.input_size", config.Training.InputSize)
	viper.SetDefault("training.output_size", config.Training.OutputSize)
	viper.SetDefault("training.epochs", config.Training.Epochs)
	viper.SetDefault("training.learning_rate", config.Training.LearningRate)
	viper.SetDefault("preferences.color_output", config.Preferences.ColorOutput)
	viper.SetDefault("preferences.timezone", config.Preferences.TimeZone)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return config, nil
}

func SaveConfig(config *CLIConfig, cfgFile string) error {
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}

		configDir := filepath.Join(home, ".trademl")
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return fmt.Errorf("error creating config directory: %w", err)
		}

		cfgFile = filepath.Join(configDir, "config.yaml")
	}

	viper.Set("server_url", config.ServerURL)
	viper.Set("checkpoint_dir", config.CheckpointDir)
	viper.Set("training", config.Training)
	viper.Set("preferences", config.Preferences)

	return viper.WriteConfigAs(cfgFile)
}

func GetDefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".trademl", "config.yaml")
}
