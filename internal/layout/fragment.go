// Package layout rebuilds visits from the positioned text of a multi-page
// transaction report.
//
// A report lists, per visit, one header row (client code, date, time,
// reference, employee) followed by item rows (description and price). Visits
// may continue onto the next page without a repeated header, so the extractor
// folds pages through an explicit State value.
package layout

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"

	"recon/internal/issues"
)

// Fragment is a piece of text at a position on a page. Y grows downwards.
type Fragment struct {
	Text string  `json:"text"`
	Page int     `json:"page"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Page holds the fragments of one report page in any order.
type Page struct {
	Number    int        `json:"number"`
	Fragments []Fragment `json:"fragments"`
}

// ReadPagesJSON reads a fragment dump: either a list of pages or a flat list
// of fragments carrying their page numbers.
func ReadPagesJSON(r io.Reader, source string) ([]Page, error) {
	const op = "ReadPagesJSON"
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, issues.WrapSourceError(op, err, source)
	}

	var pages []Page
	if err := json.Unmarshal(data, &pages); err == nil && hasPageNumbers(pages) {
		sortPages(pages)
		return pages, nil
	}

	var fragments []Fragment
	if err := json.Unmarshal(data, &fragments); err != nil {
		return nil, issues.WrapSourceError(op, fmt.Errorf("not a page or fragment list: %w", err), source)
	}
	return GroupPages(fragments), nil
}

func hasPageNumbers(pages []Page) bool {
	if len(pages) == 0 {
		return false
	}
	for _, p := range pages {
		if p.Number == 0 {
			return false
		}
	}
	return true
}

// GroupPages splits fragments by their page number, pages in ascending order.
func GroupPages(fragments []Fragment) []Page {
	byNumber := make(map[int]*Page)
	var pages []Page
	var order []int
	for _, f := range fragments {
		p, ok := byNumber[f.Page]
		if !ok {
			p = &Page{Number: f.Page}
			byNumber[f.Page] = p
			order = append(order, f.Page)
		}
		p.Fragments = append(p.Fragments, f)
	}
	sort.Ints(order)
	for _, n := range order {
		pages = append(pages, *byNumber[n])
	}
	return pages
}

func sortPages(pages []Page) {
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].Number < pages[j].Number })
	for i := range pages {
		for j := range pages[i].Fragments {
			if pages[i].Fragments[j].Page == 0 {
				pages[i].Fragments[j].Page = pages[i].Number
			}
		}
	}
}

// positionKey identifies a fragment by text and rounded position, ignoring the page.
func positionKey(f Fragment) string {
	return fmt.Sprintf("%s@%d,%d", f.Text, int(math.Round(f.X)), int(math.Round(f.Y)))
}
