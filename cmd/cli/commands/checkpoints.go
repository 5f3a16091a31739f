package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tradepulse/trademl/internal/storage/file"
)

type CheckpointsOptions struct {
	Dir     string
	ModelID string
}

func NewCheckpointsCmd() *cobra.Command {
	opts := &CheckpointsOptions{}

	cmd := &cobra.Command{
		Use:   "checkpoints",
		Short: "Inspect local checkpoints",
	}

	cmd.PersistentFlags().StringVar(&opts.Dir, "dir", "", "Checkpoint directory (default from config)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List checkpoints in the checkpoint directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			resolveDir(opts)
			return runCheckpointsList(cmd, opts)
		},
	}
	listCmd.Flags().StringVarP(&opts.ModelID, "model", "m", "", "Filter by model ID")

	showCmd := &cobra.Command{
		Use:   "show <checkpoint-id>",
		Short: "Print one checkpoint's config and metrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolveDir(opts)
			return runCheckpointsShow(cmd, opts, args[0])
		},
	}

	cmd.AddCommand(listCmd)
	cmd.AddCommand(showCmd)

	return cmd
}

func resolveDir(opts *CheckpointsOptions) {
	if opts.Dir == "" {
		opts.Dir = viper.GetString("checkpoint_dir")
	}
	if opts.Dir == "" {
		opts.Dir = "./checkpoints"
	}
}

func runCheckpointsList(cmd *cobra.Command, opts *CheckpointsOptions) error {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	storage, err := file.NewFileStorage(&file.FileConfig{BaseDir: opts.Dir}, logger)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint storage: %w", err)
	}
	defer storage.Close()

	ctx := context.Background()
	ids, err := storage.List(ctx, opts.ModelID)
	if err != nil {
		return fmt.Errorf("failed to list checkpoints: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CHECKPOINT ID\tMODEL ID\tLAYERS\tSTEP\tCREATED")
	for _, id := range ids {
		cp, err := storage.Load(ctx, id)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
			cp.ID, cp.ModelID, len(cp.Weights), cp.OptimizerStep,
			cp.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func runCheckpointsShow(cmd *cobra.Command, opts *CheckpointsOptions, id string) error {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	storage, err := file.NewFileStorage(&file.FileConfig{BaseDir: opts.Dir}, logger)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint storage: %w", err)
	}
	defer storage.Close()

	cp, err := storage.Load(context.Background(), id)
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}

	// Weights stay out of the summary; only the descriptive fields print.
	summary := map[string]interface{}{
		"id":             cp.ID,
		"model_id":       cp.ModelID,
		"created_at":     cp.CreatedAt,
		"config":         cp.Config,
		"optimizer_step": cp.OptimizerStep,
		"metrics":        cp.Metrics,
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
