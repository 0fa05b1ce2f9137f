package cmd

import (
	"github.com/spf13/cobra"

	"recon/internal/logger"
	"recon/internal/pipeline"
)

var journalCmd = &cobra.Command{
	Use:   "journal [file-or-folder...]",
	Short: "Extract visits from accounting journal dumps",
	Long: `Extract client visits from plain-text journal dumps.

Only lines posted to the target account (TARGET_ACCOUNT, default 1105) are
read. Lines sharing client, date, time and reference form one visit even when
they are not adjacent. Folders are searched for .txt and .csv files.

The extracted visits are stored in the database (DATABASE_DRIVER, DATABASE_DSN)
and their item rows are written as JSON.

Optional environment variables:
  BATCH_WORKERS - Number of parallel workers (default: 12)`,
	Example: `  # Extract one journal and print the item rows
  recon journal journal-2025-08.txt

  # Extract a folder of journals without storing anything
  recon journal ./journals --dry-run -o rows.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runJournal,
}

func init() {
	rootCmd.AddCommand(journalCmd)
}

func runJournal(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("journal")

	files, err := findFiles(args, ".txt", ".csv")
	if err != nil {
		return err
	}
	docs := documents(files, func(string) pipeline.Kind { return pipeline.KindJournal })

	log.Info().
		Int("files", len(files)).
		Str("account", cfg.TargetAccount).
		Msg("Starting journal extraction")

	return runExtraction(cmd, docs, nil, log)
}
