// Package pipeline extracts visits from many source documents in parallel.
//
// Each document is read by the extractor matching its kind, its visits are
// aggregated, and the per-document results are kept in input order. Merge
// then folds the results into one visit list, applying the identity rule:
// a visit seen twice with the same content is kept once, a visit whose
// identifier reappears with different content is reported and the later copy
// dropped.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"recon/internal/aggregate"
	"recon/internal/issues"
	"recon/internal/journal"
	"recon/internal/layout"
	"recon/internal/logger"
	"recon/internal/ocr"
	"recon/internal/spreadsheet"
	"recon/pkg/models"
)

// Kind selects the extractor for a document.
type Kind string

const (
	// KindJournal is a plain-text accounting journal dump.
	KindJournal Kind = "journal"
	// KindFragments is a JSON dump of positioned report fragments.
	KindFragments Kind = "fragments"
	// KindPDF is a report PDF read through an OCR backend.
	KindPDF Kind = "pdf"
	// KindSpreadsheet is a csv or xlsx transaction export.
	KindSpreadsheet Kind = "spreadsheet"
)

// ErrNoOCRSource is returned for PDF documents when no OCR backend is configured.
var ErrNoOCRSource = errors.New("no OCR backend configured for PDF reports")

// Document is one input file.
type Document struct {
	Path string
	Kind Kind
}

// Name is the base name used as the source of visits and issues.
func (d Document) Name() string {
	return filepath.Base(d.Path)
}

// DetectKind guesses the kind of a report file from its extension. Anything
// that is not a PDF or a spreadsheet is treated as a fragment dump.
func DetectKind(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return KindPDF
	case ".csv", ".xlsx", ".xlsm", ".xls":
		return KindSpreadsheet
	default:
		return KindFragments
	}
}

// DocumentResult is the outcome of extracting one document.
type DocumentResult struct {
	Document Document
	Index    int
	Visits   []models.Visit
	Issues   []issues.Issue
	Err      error
}

// Result holds the per-document results in input order.
type Result struct {
	Documents []DocumentResult
}

// Failed returns the results whose document could not be read.
func (r Result) Failed() []DocumentResult {
	var failed []DocumentResult
	for _, d := range r.Documents {
		if d.Err != nil {
			failed = append(failed, d)
		}
	}
	return failed
}

// Err joins the errors of every unreadable document, or returns nil.
func (r Result) Err() error {
	var errs []error
	for _, d := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", d.Document.Path, d.Err))
	}
	return errors.Join(errs...)
}

// Options configures the extractors.
type Options struct {
	Tokenizer journal.Tokenizer
	Extractor layout.Extractor
	OCR       ocr.FragmentSource
}

// Pipeline runs extraction jobs.
type Pipeline struct {
	opts Options
	log  zerolog.Logger
}

// New creates a pipeline. Options.Extractor.Source is replaced per document.
func New(opts Options) *Pipeline {
	return &Pipeline{opts: opts, log: logger.WithComponent("pipeline")}
}

type job struct {
	doc   Document
	index int
}

// Run extracts every document using a pool of workers and returns the results
// in input order. A document that cannot be read is recorded in its result;
// the other documents are still processed.
func (p *Pipeline) Run(ctx context.Context, docs []Document, workers int) Result {
	if workers < 1 {
		workers = 1
	}
	if workers > len(docs) {
		workers = len(docs)
	}

	jobs := make(chan job, len(docs))
	results := make([]DocumentResult, len(docs))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for j := range jobs {
				p.log.Debug().
					Int("worker", workerID).
					Str("file", j.doc.Path).
					Int("index", j.index+1).
					Msg("Worker processing document")

				res := p.process(ctx, j.doc)
				res.Index = j.index
				results[j.index] = res
			}
		}(w)
	}

	for i, d := range docs {
		jobs <- job{doc: d, index: i}
	}
	close(jobs)
	wg.Wait()

	return Result{Documents: results}
}

func (p *Pipeline) process(ctx context.Context, doc Document) DocumentResult {
	res := DocumentResult{Document: doc}
	log := logger.WithSource("pipeline", doc.Name())

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	visits, found, err := p.extract(ctx, doc)
	if err != nil {
		log.Error().Err(err).Msg("Document could not be read")
		res.Err = err
		return res
	}
	found = append(found, aggregate.All(visits)...)

	res.Visits = visits
	res.Issues = found
	log.Info().
		Str("kind", string(doc.Kind)).
		Int("visits", len(visits)).
		Int("issues", len(found)).
		Msg("Document extracted")
	return res
}

func (p *Pipeline) extract(ctx context.Context, doc Document) ([]models.Visit, []issues.Issue, error) {
	const op = "Extract"

	if doc.Kind == KindSpreadsheet {
		return spreadsheet.ReadTransactions(doc.Path)
	}

	f, err := os.Open(doc.Path)
	if err != nil {
		return nil, nil, issues.WrapSourceError(op, err, doc.Path)
	}
	defer f.Close()

	switch doc.Kind {
	case KindJournal:
		return journal.Parse(ctx, f, doc.Name(), p.opts.Tokenizer)
	case KindFragments:
		pages, err := layout.ReadPagesJSON(f, doc.Name())
		if err != nil {
			return nil, nil, err
		}
		visits, found := p.extractor(doc).Extract(pages)
		return visits, found, nil
	case KindPDF:
		if p.opts.OCR == nil {
			return nil, nil, fmt.Errorf("%s: %w", op, ErrNoOCRSource)
		}
		pages, err := p.opts.OCR.Fragments(ctx, f)
		if err != nil {
			return nil, nil, err
		}
		visits, found := p.extractor(doc).Extract(pages)
		return visits, found, nil
	default:
		return nil, nil, fmt.Errorf("%s: unknown document kind %q", op, doc.Kind)
	}
}

func (p *Pipeline) extractor(doc Document) layout.Extractor {
	e := p.opts.Extractor
	e.Source = doc.Name()
	return e
}
