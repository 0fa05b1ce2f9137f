package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"recon/internal/journal"
	"recon/internal/layout"
	"recon/internal/ocr"
	"recon/internal/pipeline"
	"recon/pkg/models"
)

// runExtraction extracts visits from docs, stores them unless --dry-run is
// set, and writes the flattened item rows. Unreadable documents fail the
// command after every document has been tried; nothing is stored then.
func runExtraction(cmd *cobra.Command, docs []pipeline.Document, source ocr.FragmentSource, log zerolog.Logger) error {
	dryRun, outputPath := commonFlags(cmd)

	if len(docs) == 0 {
		fmt.Fprintln(os.Stderr, "No input documents found.")
		return nil
	}

	ctx, cancel := createContext(30*time.Minute, log)
	defer cancel()

	p := pipeline.New(pipeline.Options{
		Tokenizer: journal.Tokenizer{Account: cfg.TargetAccount},
		Extractor: layout.Extractor{
			RowTolerance:   cfg.LayoutRowTolerance,
			IgnorePatterns: cfg.IgnorePatterns(),
		},
		OCR: source,
	})

	fmt.Fprintf(os.Stderr, "Processing %d documents with %d parallel workers...\n", len(docs), cfg.BatchWorkers)
	result := p.Run(ctx, docs, cfg.BatchWorkers)

	for i, d := range result.Documents {
		status := "ok"
		switch {
		case d.Err != nil:
			status = "error: " + d.Err.Error()
		case len(d.Issues) > 0:
			status = fmt.Sprintf("%d issues", len(d.Issues))
		}
		fmt.Fprintf(os.Stderr, "[%d/%d] %s - %d visits (%s)\n", i+1, len(docs), d.Document.Name(), len(d.Visits), status)
	}

	if err := result.Err(); err != nil {
		log.Error().Int("failed", len(result.Failed())).Msg("Unreadable documents, nothing stored")
		return err
	}

	visits, found := pipeline.Merge(result)

	if !dryRun {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		conflicts, err := s.SaveVisits(ctx, visits)
		if err != nil {
			return fmt.Errorf("failed to store visits: %w", err)
		}
		found.Add(conflicts...)
	}

	if err := writeJSON(models.Rows(visits), outputPath, log); err != nil {
		return err
	}

	printSummary(found, log)
	log.Info().
		Int("documents", len(docs)).
		Int("visits", len(visits)).
		Bool("dry_run", dryRun).
		Msg("Extraction completed")
	return nil
}

func documents(files []string, kind func(string) pipeline.Kind) []pipeline.Document {
	docs := make([]pipeline.Document, len(files))
	for i, f := range files {
		docs[i] = pipeline.Document{Path: f, Kind: kind(f)}
	}
	return docs
}
