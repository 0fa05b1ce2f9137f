package layout

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// DefaultRowTolerance is the vertical distance within which fragments share a row.
const DefaultRowTolerance = 3.0

type row struct {
	Fragments []Fragment
}

func (r row) text() string {
	parts := make([]string, 0, len(r.Fragments))
	for _, f := range r.Fragments {
		if t := strings.TrimSpace(f.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// groupRows clusters fragments whose Y lies within tolerance of the first
// fragment of the row, then orders each row left to right. The result does not
// depend on the order the backend emitted the fragments in.
func groupRows(fragments []Fragment, tolerance float64) []row {
	if tolerance <= 0 {
		tolerance = DefaultRowTolerance
	}
	sorted := append([]Fragment(nil), fragments...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y < sorted[j].Y
		}
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Text < sorted[j].Text
	})

	var rows []row
	anchor := math.Inf(-1)
	for _, f := range sorted {
		if len(rows) == 0 || f.Y-anchor > tolerance {
			rows = append(rows, row{})
			anchor = f.Y
		}
		last := &rows[len(rows)-1]
		last.Fragments = append(last.Fragments, f)
	}
	for i := range rows {
		frags := rows[i].Fragments
		sort.SliceStable(frags, func(a, b int) bool {
			if frags[a].X != frags[b].X {
				return frags[a].X < frags[b].X
			}
			return frags[a].Text < frags[b].Text
		})
	}
	return rows
}

// DetectBoilerplate returns the fragments that occur with the same text at the
// same rounded position on every page, outside the band of visit rows of each
// page. At least two pages are needed.
//
// The band of a page runs from its first header or priced row to its last
// one, so identical items printed at the same spot on every page stay content.
func (e Extractor) DetectBoilerplate(pages []Page) map[string]struct{} {
	boilerplate := make(map[string]struct{})
	if len(pages) < 2 {
		return boilerplate
	}
	counts := make(map[string]int)
	for _, p := range pages {
		top, bottom, banded := e.contentBand(p)
		seen := make(map[string]struct{})
		for _, f := range p.Fragments {
			if strings.TrimSpace(f.Text) == "" {
				continue
			}
			if banded && f.Y >= top && f.Y <= bottom {
				continue
			}
			key := positionKey(f)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			counts[key]++
		}
	}
	for key, n := range counts {
		if n == len(pages) {
			boilerplate[key] = struct{}{}
		}
	}
	return boilerplate
}

// contentBand returns the vertical extent of the rows holding a visit header
// or a price. ok is false for a page without such rows.
func (e Extractor) contentBand(p Page) (top, bottom float64, ok bool) {
	for _, r := range groupRows(nonBlank(p.Fragments), e.RowTolerance) {
		text := r.text()
		if matchesAny(text, e.IgnorePatterns) {
			continue
		}
		if !headerPattern.MatchString(text) {
			if _, _, priced := splitItem(r); !priced {
				continue
			}
		}
		for _, f := range r.Fragments {
			if !ok || f.Y < top {
				top = f.Y
			}
			if !ok || f.Y > bottom {
				bottom = f.Y
			}
			ok = true
		}
	}
	return top, bottom, ok
}

func nonBlank(fragments []Fragment) []Fragment {
	kept := make([]Fragment, 0, len(fragments))
	for _, f := range fragments {
		if strings.TrimSpace(f.Text) != "" {
			kept = append(kept, f)
		}
	}
	return kept
}

// content drops boilerplate fragments and rows matching an ignore pattern,
// such as page counters that change from page to page.
func content(p Page, boilerplate map[string]struct{}, ignore []*regexp.Regexp, tolerance float64) []row {
	kept := make([]Fragment, 0, len(p.Fragments))
	for _, f := range nonBlank(p.Fragments) {
		if _, skip := boilerplate[positionKey(f)]; skip {
			continue
		}
		kept = append(kept, f)
	}

	var rows []row
	for _, r := range groupRows(kept, tolerance) {
		if matchesAny(r.text(), ignore) {
			continue
		}
		rows = append(rows, r)
	}
	return rows
}

func matchesAny(s string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
