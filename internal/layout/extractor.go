package layout

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"recon/internal/issues"
	"recon/pkg/models"
)

// headerPattern matches a visit header row:
//
//	C-42  8/7/25  14:32  #1001  Marie Tremblay
var headerPattern = regexp.MustCompile(
	`^(?P<code>[A-Za-z0-9][\w-]*)\s+` +
		`(?P<date>\d{1,2}/\d{1,2}/\d{2}(?:\d{2})?|\d{4}-\d{2}-\d{2})\s+` +
		`(?P<time>\d{1,2}:\d{2}(?::\d{2})?(?:\s?[AaPp][Mm])?)\s+` +
		`#?\s*(?P<ref>[\w-]+)` +
		`(?:\s+(?P<emp>.*))?$`)

// Extractor turns report pages into visits. The zero value is usable.
type Extractor struct {
	// RowTolerance is the vertical distance within which fragments share a row.
	RowTolerance float64

	// IgnorePatterns drop whole rows, e.g. "Page 3 of 9" footers.
	IgnorePatterns []*regexp.Regexp

	// Source names the document in issues and on the produced visits.
	Source string
}

// State is carried from one page to the next. It is treated as a value:
// Step never modifies the State it is given.
type State struct {
	// Open is the visit whose header has been seen but which is not complete yet.
	Open *models.Visit

	// Pending is a description-only row waiting for its price on the next row.
	Pending string

	// Boilerplate holds the position keys of repeated header and footer fragments.
	Boilerplate map[string]struct{}
}

// Step processes one page. It returns the updated state, the visits closed on
// this page and the issues found.
func (e Extractor) Step(state State, page Page) (State, []models.Visit, []issues.Issue) {
	next := State{Pending: state.Pending, Boilerplate: state.Boilerplate}
	if state.Open != nil {
		next.Open = cloneVisit(state.Open)
	}

	var closed []models.Visit
	var found []issues.Issue
	report := func(format string, args ...any) {
		found = append(found, issues.New(issues.MalformedRecord, e.Source, format, args...).AtPage(page.Number))
	}

	for _, r := range content(page, state.Boilerplate, e.IgnorePatterns, e.RowTolerance) {
		text := r.text()

		if m := headerPattern.FindStringSubmatch(text); m != nil {
			v, err := e.header(m)
			if next.Open != nil {
				closed = append(closed, *next.Open)
			}
			next.Open = v
			next.Pending = ""
			if err != nil {
				report("header %q: %v", text, err)
			}
			continue
		}

		desc, price, ok := splitItem(r)
		switch {
		case !ok:
			// Text without an amount: a description waiting for its price, or
			// report furniture before the first header.
			if next.Open != nil {
				next.Pending = strings.TrimSpace(next.Pending + " " + text)
			}
		case next.Open == nil:
			report("item %q before any visit header", text)
		case desc == "" && next.Pending == "":
			report("price %s without a description", price.StringFixed(2))
		default:
			if desc == "" {
				desc = next.Pending
			}
			next.Open.AddLine(desc, price)
			next.Pending = ""
		}
	}
	return next, closed, found
}

// Finish closes the visit still open at the end of the document.
func (e Extractor) Finish(state State) []models.Visit {
	if state.Open == nil {
		return nil
	}
	return []models.Visit{*cloneVisit(state.Open)}
}

// Extract folds Step over the pages in page order.
func (e Extractor) Extract(pages []Page) ([]models.Visit, []issues.Issue) {
	ordered := append([]Page(nil), pages...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Number < ordered[j].Number })

	state := State{Boilerplate: e.DetectBoilerplate(ordered)}
	var visits []models.Visit
	var found []issues.Issue
	for _, p := range ordered {
		var closed []models.Visit
		var pageIssues []issues.Issue
		state, closed, pageIssues = e.Step(state, p)
		visits = append(visits, closed...)
		found = append(found, pageIssues...)
	}
	visits = append(visits, e.Finish(state)...)
	return visits, found
}

func (e Extractor) header(m []string) (*models.Visit, error) {
	group := func(name string) string {
		return strings.TrimSpace(m[headerPattern.SubexpIndex(name)])
	}
	date, err := models.ParseDate(group("date"))
	if err != nil {
		return nil, err
	}
	clock, err := models.ParseClock(group("time"))
	if err != nil {
		return nil, err
	}
	v := models.NewVisit(group("code"), date, clock, group("ref"), group("emp"))
	v.Source = e.Source
	return &v, nil
}

// splitItem takes the rightmost amount of the row as the price and the
// fragments to its left as the description.
func splitItem(r row) (string, decimal.Decimal, bool) {
	for i := len(r.Fragments) - 1; i >= 0; i-- {
		text := strings.TrimSpace(r.Fragments[i].Text)
		if !models.LooksLikeAmount(text) {
			continue
		}
		price, err := models.ParseAmount(text)
		if err != nil {
			continue
		}
		desc := row{Fragments: r.Fragments[:i]}.text()
		return strings.TrimRight(desc, " $"), price, true
	}
	return "", decimal.Zero, false
}

func cloneVisit(v *models.Visit) *models.Visit {
	c := *v
	c.Items = append([]models.VisitItem(nil), v.Items...)
	return &c
}
