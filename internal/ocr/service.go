// Package ocr turns scanned or digital PDF transaction reports into positioned
// text fragments using Google Cloud OCR services.
//
// Two backends are available: Cloud Vision document text detection and a
// Document AI OCR processor. Both return pages of layout.Fragment values that
// the layout extractor consumes; neither interprets the text.
//
// Required Environment Variables:
//   - GOOGLE_APPLICATION_CREDENTIALS: Path to service account JSON file, OR
//   - GOOGLE_CREDENTIALS: Inline JSON credentials string
//   - GOOGLE_CLOUD_PROJECT: Google Cloud project ID (Document AI only)
//   - DOCUMENT_AI_PROCESSOR_ID: Document AI OCR processor ID (Document AI only)
//
// Cloud Vision API Limitations:
//   - Maximum file size: 20MB for synchronous processing
//   - Maximum pages: 5 pages per synchronous request; longer reports are
//     requested in batches of 5 pages
//   - Supported formats: PDF, TIFF
package ocr

import (
	"context"
	"fmt"
	"io"

	"recon/internal/layout"
)

const (
	// MaxFileSizeBytes is the maximum file size for synchronous processing (20MB)
	MaxFileSizeBytes = 20 * 1024 * 1024

	// MaxPagesSync is the maximum number of pages for one synchronous Vision request
	MaxPagesSync = 5
)

// FragmentSource extracts positioned text fragments from a PDF report.
type FragmentSource interface {
	// Fragments returns the pages of the document in page order.
	Fragments(ctx context.Context, pdfData io.Reader) ([]layout.Page, error)

	// Close releases the underlying client.
	Close() error
}

// readPDF reads and sanity-checks a PDF document.
func readPDF(op string, pdfData io.Reader) ([]byte, error) {
	pdfBytes, err := io.ReadAll(io.LimitReader(pdfData, MaxFileSizeBytes+1))
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to read PDF data")
	}
	if len(pdfBytes) > MaxFileSizeBytes {
		return nil, WrapOCRError(op, ErrPDFTooLarge, fmt.Sprintf("file size exceeds %d bytes", MaxFileSizeBytes))
	}
	if len(pdfBytes) < 4 || string(pdfBytes[:4]) != "%PDF" {
		return nil, WrapOCRError(op, ErrInvalidPDF, "missing PDF header")
	}
	return pdfBytes, nil
}

// countFragments returns the total number of fragments across pages.
func countFragments(pages []layout.Page) int {
	n := 0
	for _, p := range pages {
		n += len(p.Fragments)
	}
	return n
}
