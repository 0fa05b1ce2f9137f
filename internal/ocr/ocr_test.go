package ocr

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"recon/internal/issues"
)

const fakePDF = "%PDF-1.7 fake"

type fakeAnnotator struct {
	totalPages int32
	requests   [][]int32
}

func (f *fakeAnnotator) BatchAnnotateFiles(ctx context.Context, req *visionpb.BatchAnnotateFilesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateFilesResponse, error) {
	pages := req.GetRequests()[0].GetPages()
	f.requests = append(f.requests, pages)
	if len(pages) == 0 {
		for p := int32(1); p <= MaxPagesSync && p <= f.totalPages; p++ {
			pages = append(pages, p)
		}
	}
	fileResp := &visionpb.AnnotateFileResponse{TotalPages: f.totalPages}
	for _, p := range pages {
		fileResp.Responses = append(fileResp.Responses, &visionpb.AnnotateImageResponse{
			Context: &visionpb.ImageAnnotationContext{PageNumber: p},
			FullTextAnnotation: &visionpb.TextAnnotation{Pages: []*visionpb.Page{{
				Width: 100, Height: 100,
				Blocks: []*visionpb.Block{{Paragraphs: []*visionpb.Paragraph{{Words: []*visionpb.Word{{
					Symbols: []*visionpb.Symbol{{Text: "x"}},
					BoundingBox: &visionpb.BoundingPoly{Vertices: []*visionpb.Vertex{
						{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 2, Y: 3}, {X: 1, Y: 3},
					}},
				}}}}}},
			}}},
		})
	}
	return &visionpb.BatchAnnotateFilesResponse{Responses: []*visionpb.AnnotateFileResponse{fileResp}}, nil
}

func (f *fakeAnnotator) Close() error { return nil }

func TestVisionFragmentsBatchesPages(t *testing.T) {
	fake := &fakeAnnotator{totalPages: 12}
	svc := newVisionService(fake)

	pages, err := svc.Fragments(context.Background(), strings.NewReader(fakePDF))
	if err != nil {
		t.Fatalf("Fragments() error = %v", err)
	}
	if len(pages) != 12 {
		t.Fatalf("got %d pages, want 12", len(pages))
	}
	for i, p := range pages {
		if p.Number != i+1 || len(p.Fragments) != 1 {
			t.Errorf("page %d = %+v", i, p)
		}
	}
	if len(fake.requests) != 3 || fake.requests[0] != nil || len(fake.requests[2]) != 2 || fake.requests[2][0] != 11 {
		t.Errorf("requests = %v", fake.requests)
	}
}

func TestReadPDF(t *testing.T) {
	if _, err := readPDF("test", strings.NewReader("hello")); !errors.Is(err, ErrInvalidPDF) {
		t.Errorf("readPDF(non-PDF) error = %v, want ErrInvalidPDF", err)
	}
	big := fakePDF + strings.Repeat(" ", MaxFileSizeBytes)
	if _, err := readPDF("test", strings.NewReader(big)); !errors.Is(err, ErrPDFTooLarge) {
		t.Errorf("readPDF(big) error = %v, want ErrPDFTooLarge", err)
	}
	if _, err := readPDF("test", strings.NewReader(fakePDF)); err != nil {
		t.Errorf("readPDF(valid) error = %v", err)
	}
}

func TestOCRErrorIsUnreadableSource(t *testing.T) {
	err := WrapOCRError("Fragments", ErrOCRFailed, "boom")
	if !errors.Is(err, issues.ErrUnreadableSource) || !errors.Is(err, ErrOCRFailed) {
		t.Errorf("error %v does not match both sentinels", err)
	}
	if WrapOCRError("Fragments", err, "again") != err {
		t.Error("WrapOCRError double-wrapped an OCRError")
	}
}

type fakeProcessor struct {
	doc *documentaipb.Document
	err error
	req *documentaipb.ProcessRequest
}

func (f *fakeProcessor) ProcessDocument(ctx context.Context, req *documentaipb.ProcessRequest, opts ...gax.CallOption) (*documentaipb.ProcessResponse, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &documentaipb.ProcessResponse{Document: f.doc}, nil
}

func (f *fakeProcessor) Close() error { return nil }

func TestDocumentAIFragments(t *testing.T) {
	fake := &fakeProcessor{doc: &documentaipb.Document{
		Text: "C-42 3.50",
		Pages: []*documentaipb.Document_Page{{
			PageNumber: 1,
			Tokens: []*documentaipb.Document_Page_Token{{Layout: &documentaipb.Document_Page_Layout{
				TextAnchor: &documentaipb.Document_TextAnchor{TextSegments: []*documentaipb.Document_TextAnchor_TextSegment{
					{StartIndex: 0, EndIndex: 4},
				}},
			}}},
		}},
	}}
	svc := newDocumentAIService(fake, DocumentAIConfig{ProjectID: "p", Location: "eu", ProcessorID: "abc", Timeout: 1e9})

	pages, err := svc.Fragments(context.Background(), strings.NewReader(fakePDF))
	if err != nil {
		t.Fatalf("Fragments() error = %v", err)
	}
	if len(pages) != 1 || pages[0].Fragments[0].Text != "C-42" {
		t.Errorf("pages = %+v", pages)
	}
	if fake.req.GetName() != "projects/p/locations/eu/processors/abc" {
		t.Errorf("processor name = %s", fake.req.GetName())
	}
}

func TestDocumentAIErrors(t *testing.T) {
	tests := []struct {
		code codes.Code
		want error
	}{
		{codes.PermissionDenied, ErrInvalidCredentials},
		{codes.ResourceExhausted, ErrQuotaExceeded},
		{codes.NotFound, ErrProcessorNotFound},
		{codes.InvalidArgument, ErrInvalidPDF},
		{codes.Internal, ErrOCRFailed},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			fake := &fakeProcessor{err: status.Error(tt.code, "nope")}
			svc := newDocumentAIService(fake, DocumentAIConfig{ProjectID: "p", Location: "us", ProcessorID: "abc", Timeout: 1e9})
			_, err := svc.Fragments(context.Background(), strings.NewReader(fakePDF))
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewDocumentAIServiceRequiresConfig(t *testing.T) {
	_, err := NewDocumentAIService(context.Background(), DocumentAIConfig{ProcessorID: "abc"})
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("error = %v, want ErrInvalidConfiguration", err)
	}
}
