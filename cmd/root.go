package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"recon/internal/config"
	"recon/internal/logger"
)

var version = "1.0.0"

// cfg is loaded before every subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "recon",
	Short: "Extract client transactions and reconcile them against monthly balances",
	Long: `recon turns accounting journal dumps, transaction report fragments, report PDFs
and spreadsheet exports into structured visits with line items and totals.

Extracted visits are stored in a database, reconciled against independently
reported monthly balances, and grouped into per-client invoices.

Configuration is read from the environment (and .env) and may be overlaid by a
YAML file given with --config or RECON_CONFIG.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := logger.Setup(loaded.GetLoggerConfig()); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		cfg = loaded
		return nil
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "YAML configuration file (default: $RECON_CONFIG)")
	rootCmd.PersistentFlags().Bool("dry-run", false, "Process inputs but don't write to the database or Google Sheets")
	rootCmd.PersistentFlags().StringP("out", "o", "", "Output file or directory (default: stdout)")
}
