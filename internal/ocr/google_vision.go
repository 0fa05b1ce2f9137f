package ocr

import (
	"context"
	"fmt"
	"io"
	"os"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"recon/internal/layout"
	"recon/internal/logger"
)

// fileAnnotator is the part of the Vision client used here.
type fileAnnotator interface {
	BatchAnnotateFiles(ctx context.Context, req *visionpb.BatchAnnotateFilesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateFilesResponse, error)
	Close() error
}

// VisionService implements FragmentSource using Google Cloud Vision API.
type VisionService struct {
	client fileAnnotator
	log    zerolog.Logger
}

// NewVisionService creates a new Vision fragment source with credentials from environment.
// It expects either GOOGLE_APPLICATION_CREDENTIALS path or GOOGLE_CREDENTIALS JSON in env.
func NewVisionService(ctx context.Context) (*VisionService, error) {
	const op = "NewVisionService"

	var client *vision.ImageAnnotatorClient
	var err error

	// Check for inline credentials first
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return nil, WrapOCRError(op, err, "failed to create client with GOOGLE_CREDENTIALS")
		}
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(credFile))
		if err != nil {
			return nil, WrapOCRError(op, err, "failed to create client with GOOGLE_APPLICATION_CREDENTIALS")
		}
	} else {
		// Try default credentials as fallback
		client, err = vision.NewImageAnnotatorClient(ctx)
		if err != nil {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
	}

	return newVisionService(client), nil
}

func newVisionService(client fileAnnotator) *VisionService {
	return &VisionService{
		client: client,
		log:    logger.WithComponent("vision"),
	}
}

// Fragments runs document text detection over every page of the PDF, five
// pages per request, and returns word-level fragments.
func (g *VisionService) Fragments(ctx context.Context, pdfData io.Reader) ([]layout.Page, error) {
	const op = "Fragments"

	pdfBytes, err := readPDF(op, pdfData)
	if err != nil {
		return nil, err
	}

	var pages []layout.Page
	total := int32(MaxPagesSync) // refined from the first response
	for first := int32(1); first <= total; first += MaxPagesSync {
		if err := ctx.Err(); err != nil {
			return nil, WrapOCRError(op, ErrContextCanceled, err.Error())
		}

		fileResp, err := g.annotate(ctx, pdfBytes, first, pageRange(first, total))
		if err != nil {
			return nil, WrapOCRError(op, err, fmt.Sprintf("pages from %d", first))
		}
		if fileResp.GetTotalPages() > 0 {
			total = fileResp.GetTotalPages()
		}
		pages = append(pages, layout.PagesFromVision(fileResp)...)

		g.log.Debug().
			Int32("first_page", first).
			Int32("total_pages", total).
			Msg("Vision batch processed")
	}

	if countFragments(pages) == 0 {
		return nil, WrapOCRError(op, ErrEmptyDocument, "")
	}

	g.log.Info().
		Int("pages", len(pages)).
		Int("fragments", countFragments(pages)).
		Msg("Vision text detection completed")

	return pages, nil
}

func (g *VisionService) annotate(ctx context.Context, pdfBytes []byte, first int32, pages []int32) (*visionpb.AnnotateFileResponse, error) {
	req := &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{
			{
				InputConfig: &visionpb.InputConfig{
					Content:  pdfBytes,
					MimeType: "application/pdf",
				},
				Features: []*visionpb.Feature{
					{
						Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION,
					},
				},
				Pages: pages,
			},
		},
	}

	resp, err := g.client.BatchAnnotateFiles(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: Vision API call failed: %v", ErrOCRFailed, err)
	}
	if len(resp.GetResponses()) == 0 {
		return nil, fmt.Errorf("%w: no response from Vision API", ErrOCRFailed)
	}

	fileResp := resp.GetResponses()[0]
	if fileResp.GetError() != nil {
		return nil, fmt.Errorf("%w: Vision API error: %s", ErrOCRFailed, fileResp.GetError().GetMessage())
	}
	for i, page := range fileResp.GetResponses() {
		if page.GetError() != nil {
			return nil, fmt.Errorf("%w: page %d: %s", ErrOCRFailed, int(first)+i, page.GetError().GetMessage())
		}
	}
	return fileResp, nil
}

// pageRange returns up to MaxPagesSync page numbers starting at first and not
// beyond total. The first batch is left to the API default (the first five
// pages) since the page count is not known yet.
func pageRange(first, total int32) []int32 {
	if first == 1 {
		return nil
	}
	var pages []int32
	for p := first; p < first+MaxPagesSync && p <= total; p++ {
		pages = append(pages, p)
	}
	return pages
}

// Close closes the underlying Vision client.
func (g *VisionService) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
