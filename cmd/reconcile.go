package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"recon/internal/invoice"
	"recon/internal/issues"
	"recon/internal/logger"
	"recon/internal/reconciliation"
	"recon/internal/spreadsheet"
	"recon/pkg/models"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Compare stored visit totals with reported monthly balances",
	Long: `Compare the total of each client's stored visits in a period with the
balance the monthly report gives for that client.

One discrepancy is reported per client and period whose difference exceeds
RECONCILE_TOLERANCE (default 0.01). Clients with visits but no reported
balance are reported as unreported. Nothing stored is modified.

The monthly balances are taken from --monthly, from --sheet, or from balances
imported earlier with "recon import monthly".

Required environment variables for --sheet and --write-sheet:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_SHEET_URL - Google Sheets URL`,
	Example: `  # Reconcile against balances imported earlier
  recon reconcile --period 2025-08

  # Reconcile against a report file and save the discrepancies as Excel
  recon reconcile --period 2025-08 --monthly august.xlsx -o discrepancies.xlsx

  # Read the report from Google Sheets and write the discrepancies back
  recon reconcile --period 2025-08 --sheet "August" --write-sheet`,
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().String("period", "", "Reporting period (format: YYYY-MM) [REQUIRED]")
	reconcileCmd.Flags().String("monthly", "", "Monthly report file (.csv or .xlsx)")
	reconcileCmd.Flags().String("sheet", "", "Read the monthly report from this worksheet of GOOGLE_SHEET_URL")
	reconcileCmd.Flags().Bool("write-sheet", false, "Append the discrepancies to GOOGLE_SHEET_WORKSHEET")
	reconcileCmd.MarkFlagRequired("period")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("reconcile")

	dryRun, outputPath := commonFlags(cmd)
	period, _ := cmd.Flags().GetString("period")
	monthlyFile, _ := cmd.Flags().GetString("monthly")
	sheetName, _ := cmd.Flags().GetString("sheet")
	writeSheet, _ := cmd.Flags().GetBool("write-sheet")

	if _, _, err := invoice.PeriodBounds(period); err != nil {
		return fmt.Errorf("invalid period. Use YYYY-MM: %w", err)
	}

	log.Info().
		Str("period", period).
		Str("monthly", monthlyFile).
		Str("sheet", sheetName).
		Bool("dry_run", dryRun).
		Msg("Starting reconciliation")

	ctx, cancel := createContext(10*time.Minute, log)
	defer cancel()

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	found := &issues.Log{}
	var reports []models.MonthlyReport
	source := "monthly_report"
	if monthlyFile != "" || sheetName != "" {
		var reportIssues []issues.Issue
		reports, reportIssues, err = loadMonthlyReport(ctx, monthlyFile, sheetName, period, log)
		if err != nil {
			return err
		}
		found.Add(reportIssues...)
		if monthlyFile != "" {
			source = filepath.Base(monthlyFile)
		} else {
			source = sheetName
		}
	} else {
		reports, err = s.MonthlyReports(ctx, period)
		if err != nil {
			return err
		}
	}
	if len(reports) == 0 {
		log.Warn().Str("period", period).Msg("No reported balances for period")
	}

	visits, err := s.VisitsForPeriod(ctx, period, "")
	if err != nil {
		return err
	}

	engine := reconciliation.NewEngine(cfg.Tolerance())
	discrepancies := engine.Reconcile(visits, reports)
	found.Add(reconciliation.Issues(discrepancies, source)...)

	if err := writeDiscrepancies(discrepancies, outputPath, log); err != nil {
		return err
	}

	if writeSheet && !dryRun {
		reader, err := createDataReader(ctx)
		if err != nil {
			return err
		}
		if err := reader.WriteDiscrepancies(ctx, cfg.GoogleSheetWorksheet, discrepancies); err != nil {
			return fmt.Errorf("failed to write to Google Sheet: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Sheet: %s\n", cfg.GoogleSheetWorksheet)
	}

	fmt.Fprintln(os.Stderr, strings.Repeat("=", 50))
	fmt.Fprintf(os.Stderr, "Period: %s\n", period)
	fmt.Fprintf(os.Stderr, "Visits: %d\n", len(visits))
	fmt.Fprintf(os.Stderr, "Reported balances: %d\n", len(reports))
	fmt.Fprintf(os.Stderr, "Discrepancies: %d\n", len(discrepancies))
	fmt.Fprintln(os.Stderr, strings.Repeat("=", 50))
	printSummary(found, log)

	log.Info().
		Int("visits", len(visits)).
		Int("reports", len(reports)).
		Int("discrepancies", len(discrepancies)).
		Msg("Reconciliation completed")
	return nil
}

func writeDiscrepancies(ds []reconciliation.Discrepancy, outputPath string, log zerolog.Logger) error {
	if spreadsheet.IsExcel(outputPath) {
		if err := spreadsheet.WriteExcel(outputPath, "Discrepancies", reconciliation.DiscrepancyHeaders, reconciliation.Rows(ds)); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		log.Info().Str("output_file", outputPath).Int("rows", len(ds)).Msg("Discrepancies written to file")
		return nil
	}
	return writeJSON(ds, outputPath, log)
}
