package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"recon/internal/logger"
	"recon/internal/ocr"
	"recon/internal/pipeline"
)

var reportCmd = &cobra.Command{
	Use:   "report [file-or-folder...]",
	Short: "Extract visits from transaction reports",
	Long: `Extract client visits from multi-page transaction reports.

Reports are read as positioned text fragments. JSON fragment dumps are read
directly; PDF reports are sent to an OCR backend first. Spreadsheet exports
(.csv, .xlsx) of the same transactions are accepted as well.

Backends:
  json        - fragment dumps only (default)
  vision      - Google Cloud Vision document text detection
  documentai  - Google Document AI OCR processor

Required environment variables for OCR backends:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_CLOUD_PROJECT - Google Cloud project ID (documentai)
  GOOGLE_CLOUD_LOCATION - Processing location (documentai, default: us)
  DOCUMENT_AI_PROCESSOR_ID - Document AI OCR processor ID (documentai)`,
	Example: `  # Extract a fragment dump
  recon report report-2025-08.json

  # OCR a folder of PDF reports with Cloud Vision
  recon report ./reports --backend vision

  # Spreadsheet export, dry run
  recon report transactions.xlsx --dry-run`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().String("backend", "json", "Fragment source for PDF reports (json, vision, documentai)")
}

func runReport(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("report")

	backend, _ := cmd.Flags().GetString("backend")
	backend = strings.ToLower(backend)

	files, err := findFiles(args, ".json", ".pdf", ".csv", ".xlsx")
	if err != nil {
		return err
	}
	docs := documents(files, pipeline.DetectKind)

	var source ocr.FragmentSource
	if hasPDF(docs) {
		s, err := createFragmentSource(context.Background(), backend, log)
		if err != nil {
			return err
		}
		defer s.Close()
		source = s
	}

	log.Info().
		Int("files", len(files)).
		Str("backend", backend).
		Msg("Starting report extraction")

	return runExtraction(cmd, docs, source, log)
}

func hasPDF(docs []pipeline.Document) bool {
	for _, d := range docs {
		if d.Kind == pipeline.KindPDF {
			return true
		}
	}
	return false
}

// createFragmentSource creates the OCR backend used for PDF reports
func createFragmentSource(ctx context.Context, backend string, log zerolog.Logger) (ocr.FragmentSource, error) {
	switch backend {
	case "vision":
		source, err := ocr.NewVisionService(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create Vision service")
			return nil, fmt.Errorf("failed to create Vision service: %w", err)
		}
		return source, nil
	case "documentai":
		if err := cfg.RequireDocumentAI(); err != nil {
			return nil, err
		}
		source, err := ocr.NewDocumentAIService(ctx, ocr.DocumentAIConfig{
			ProjectID:   cfg.GoogleCloudProject,
			Location:    cfg.GoogleCloudLocation,
			ProcessorID: cfg.DocumentAIProcessorID,
		})
		if err != nil {
			log.Error().Err(err).Msg("Failed to create Document AI service")
			return nil, fmt.Errorf("failed to create Document AI service: %w", err)
		}
		return source, nil
	case "json":
		return nil, fmt.Errorf("PDF reports need an OCR backend: use --backend vision or --backend documentai")
	default:
		return nil, fmt.Errorf("invalid backend: %s (must be json, vision or documentai)", backend)
	}
}
