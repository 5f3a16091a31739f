package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cliconfig "github.com/tradepulse/trademl/cmd/cli/config"
)

// NewConfigCmd creates the config command with show and init subcommands.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  `View and initialize the trademl CLI configuration file.`,
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigInitCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cliconfig.LoadConfig(viper.ConfigFileUsed())
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "server_url\t%s\n", cfg.ServerURL)
			fmt.Fprintf(w, "checkpoint_dir\t%s\n", cfg.CheckpointDir)
			fmt.Fprintf(w, "training.architecture\t%s\n", cfg.Training.Architecture)
			fmt.Fprintf(w, "training.input_size\t%d\n", cfg.Training.InputSize)
			fmt.Fprintf(w, "training.output_size\t%d\n", cfg.Training.OutputSize)
			fmt.Fprintf(w, "training.epochs\t%d\n", cfg.Training.Epochs)
			fmt.Fprintf(w, "training.learning_rate\t%g\n", cfg.Training.LearningRate)
			fmt.Fprintf(w, "preferences.color_output\t%t\n", cfg.Preferences.ColorOutput)
			fmt.Fprintf(w, "preferences.timezone\t%s\n", cfg.Preferences.TimeZone)
			return w.Flush()
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Long:  `Write a config file with default values to ~/.trademl/config.yaml.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cliconfig.GetDefaultConfigPath()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
			}

			cfg, err := cliconfig.LoadConfig("")
			if err != nil {
				return fmt.Errorf("failed to build default config: %w", err)
			}
			if err := cliconfig.SaveConfig(cfg, ""); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}

			fmt.Printf("Wrote config to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	return cmd
}
