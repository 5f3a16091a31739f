package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tradepulse/trademl/pkg/models"
)

type ModelsOptions struct {
	ServerURL string
	Output    string
}

func NewModelsCmd() *cobra.Command {
	opts := &ModelsOptions{}

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List registered models on the training server",
		Example: `  # List models as a table
  trademl-cli models

  # Raw JSON from a remote server
  trademl-cli models --server http://training.internal:8080 --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.ServerURL == "" {
				opts.ServerURL = viper.GetString("server_url")
			}
			return runModels(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.ServerURL, "server", "", "Training server URL (default from config)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "table", "Output format (table, json)")

	return cmd
}

func runModels(cmd *cobra.Command, opts *ModelsOptions) error {
	client := &http.Client{Timeout: 15 * time.Second}

	resp, err := client.Get(fmt.Sprintf("%s/api/v1/models", opts.ServerURL))
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	var infos []*models.ModelInfo
	if err := json.NewDecoder(resp.Body).Decode(&infos); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if opts.Output == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL ID\tARCHITECTURE\tEPOCHS\tLOSS\tACCURACY\tCREATED")
	for _, info := range infos {
		acc := "-"
		if info.Metrics != nil {
			acc = fmt.Sprintf("%.3f", info.Metrics.Accuracy.Classification)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%.6f\t%s\t%s\n",
			info.ModelID, info.Architecture, info.Epochs, info.FinalLoss, acc,
			info.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}
