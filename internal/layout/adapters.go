package layout

import (
	"strings"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
)

// normalizedScale is used for normalized coordinates when the page size is unknown.
const normalizedScale = 1000.0

// PagesFromVision converts a Vision document text detection response into
// word-level fragments. X is the left edge and Y the vertical centre of each word.
func PagesFromVision(resp *visionpb.AnnotateFileResponse) []Page {
	if resp == nil {
		return nil
	}
	var pages []Page
	for i, img := range resp.GetResponses() {
		number := i + 1
		if n := img.GetContext().GetPageNumber(); n > 0 {
			number = int(n)
		}
		page := Page{Number: number}
		for _, vp := range img.GetFullTextAnnotation().GetPages() {
			width, height := float64(vp.GetWidth()), float64(vp.GetHeight())
			for _, block := range vp.GetBlocks() {
				for _, para := range block.GetParagraphs() {
					for _, word := range para.GetWords() {
						var text strings.Builder
						for _, sym := range word.GetSymbols() {
							text.WriteString(sym.GetText())
						}
						x, y := visionPosition(word.GetBoundingBox(), width, height)
						page.Fragments = append(page.Fragments, Fragment{
							Text: text.String(),
							Page: number,
							X:    x,
							Y:    y,
						})
					}
				}
			}
		}
		pages = append(pages, page)
	}
	return pages
}

func visionPosition(box *visionpb.BoundingPoly, width, height float64) (float64, float64) {
	if vs := box.GetVertices(); len(vs) > 0 {
		xs := make([]float64, len(vs))
		ys := make([]float64, len(vs))
		for i, v := range vs {
			xs[i], ys[i] = float64(v.GetX()), float64(v.GetY())
		}
		return minOf(xs), meanOf(ys)
	}
	nvs := box.GetNormalizedVertices()
	if len(nvs) == 0 {
		return 0, 0
	}
	xs := make([]float64, len(nvs))
	ys := make([]float64, len(nvs))
	for i, v := range nvs {
		xs[i], ys[i] = float64(v.GetX()), float64(v.GetY())
	}
	return minOf(xs) * scale(width), meanOf(ys) * scale(height)
}

// PagesFromDocumentAI converts a processed Document AI document into
// token-level fragments, reading token text through its text anchor.
func PagesFromDocumentAI(doc *documentaipb.Document) []Page {
	if doc == nil {
		return nil
	}
	// Segment indices count characters, not bytes.
	text := []rune(doc.GetText())
	var pages []Page
	for i, dp := range doc.GetPages() {
		number := i + 1
		if n := dp.GetPageNumber(); n > 0 {
			number = int(n)
		}
		width := float64(dp.GetDimension().GetWidth())
		height := float64(dp.GetDimension().GetHeight())
		page := Page{Number: number}
		for _, tok := range dp.GetTokens() {
			layout := tok.GetLayout()
			t := strings.TrimSpace(anchorText(text, layout.GetTextAnchor()))
			if t == "" {
				continue
			}
			x, y := documentAIPosition(layout.GetBoundingPoly(), width, height)
			page.Fragments = append(page.Fragments, Fragment{Text: t, Page: number, X: x, Y: y})
		}
		pages = append(pages, page)
	}
	return pages
}

func anchorText(text []rune, anchor *documentaipb.Document_TextAnchor) string {
	if anchor == nil {
		return ""
	}
	if c := anchor.GetContent(); c != "" {
		return c
	}
	var b strings.Builder
	for _, seg := range anchor.GetTextSegments() {
		start, end := int(seg.GetStartIndex()), int(seg.GetEndIndex())
		if start < 0 || end > len(text) || start >= end {
			continue
		}
		b.WriteString(string(text[start:end]))
	}
	return b.String()
}

func documentAIPosition(poly *documentaipb.BoundingPoly, width, height float64) (float64, float64) {
	if vs := poly.GetVertices(); len(vs) > 0 {
		xs := make([]float64, len(vs))
		ys := make([]float64, len(vs))
		for i, v := range vs {
			xs[i], ys[i] = float64(v.GetX()), float64(v.GetY())
		}
		return minOf(xs), meanOf(ys)
	}
	nvs := poly.GetNormalizedVertices()
	if len(nvs) == 0 {
		return 0, 0
	}
	xs := make([]float64, len(nvs))
	ys := make([]float64, len(nvs))
	for i, v := range nvs {
		xs[i], ys[i] = float64(v.GetX()), float64(v.GetY())
	}
	return minOf(xs) * scale(width), meanOf(ys) * scale(height)
}

func scale(size float64) float64 {
	if size > 0 {
		return size
	}
	return normalizedScale
}

func minOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func meanOf(vs []float64) float64 {
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}
