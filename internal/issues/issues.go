// Package issues carries the non-fatal problems found while extracting,
// aggregating and reconciling visits. Processing continues past every issue;
// only an unreadable source stops a run.
package issues

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Kind classifies an issue.
type Kind string

const (
	UnrecognizedLine       Kind = "unrecognized_line"
	MalformedRecord        Kind = "malformed_record"
	InconsistentTotals     Kind = "inconsistent_totals"
	ReconciliationMismatch Kind = "reconciliation_mismatch"
	IdentityConflict       Kind = "identity_conflict"
	MissingClient          Kind = "missing_client"
)

var (
	ErrUnrecognizedLine       = errors.New("unrecognized line")
	ErrMalformedRecord        = errors.New("malformed record")
	ErrInconsistentTotals     = errors.New("inconsistent totals")
	ErrReconciliationMismatch = errors.New("reconciliation mismatch")
	ErrIdentityConflict       = errors.New("identity conflict")
	ErrMissingClient          = errors.New("missing client")
)

var sentinels = map[Kind]error{
	UnrecognizedLine:       ErrUnrecognizedLine,
	MalformedRecord:        ErrMalformedRecord,
	InconsistentTotals:     ErrInconsistentTotals,
	ReconciliationMismatch: ErrReconciliationMismatch,
	IdentityConflict:       ErrIdentityConflict,
	MissingClient:          ErrMissingClient,
}

// Issue is one reported problem. Line and Page are 1-based; zero means unknown.
type Issue struct {
	Kind    Kind   `json:"kind"`
	Source  string `json:"source,omitempty"`
	Line    int    `json:"line,omitempty"`
	Page    int    `json:"page,omitempty"`
	VisitID string `json:"visit_id,omitempty"`
	Details string `json:"details"`
}

// New creates an issue of the given kind.
func New(kind Kind, source string, format string, args ...any) Issue {
	return Issue{Kind: kind, Source: source, Details: fmt.Sprintf(format, args...)}
}

// AtLine returns a copy of the issue positioned at a source line.
func (i Issue) AtLine(line int) Issue {
	i.Line = line
	return i
}

// AtPage returns a copy of the issue positioned on a document page.
func (i Issue) AtPage(page int) Issue {
	i.Page = page
	return i
}

// ForVisit returns a copy of the issue attached to a visit.
func (i Issue) ForVisit(id string) Issue {
	i.VisitID = id
	return i
}

func (i Issue) Error() string {
	var b strings.Builder
	b.WriteString(string(i.Kind))
	if i.Source != "" {
		b.WriteString(" ")
		b.WriteString(i.Source)
		if i.Line > 0 {
			fmt.Fprintf(&b, ":%d", i.Line)
		}
		if i.Page > 0 {
			fmt.Fprintf(&b, " page %d", i.Page)
		}
	}
	if i.VisitID != "" {
		fmt.Fprintf(&b, " visit %s", i.VisitID)
	}
	if i.Details != "" {
		b.WriteString(": ")
		b.WriteString(i.Details)
	}
	return b.String()
}

// Unwrap returns the sentinel error for the issue kind.
func (i Issue) Unwrap() error {
	return sentinels[i.Kind]
}

// MarshalZerologObject lets issues be logged as structured fields.
func (i Issue) MarshalZerologObject(e *zerolog.Event) {
	e.Str("kind", string(i.Kind))
	if i.Source != "" {
		e.Str("source", i.Source)
	}
	if i.Line > 0 {
		e.Int("line", i.Line)
	}
	if i.Page > 0 {
		e.Int("page", i.Page)
	}
	if i.VisitID != "" {
		e.Str("visit_id", i.VisitID)
	}
	e.Str("details", i.Details)
}

// Log collects issues from concurrent workers.
type Log struct {
	mu     sync.Mutex
	issues []Issue
}

// Add appends issues in order.
func (l *Log) Add(items ...Issue) {
	if len(items) == 0 {
		return
	}
	l.mu.Lock()
	l.issues = append(l.issues, items...)
	l.mu.Unlock()
}

// Issues returns a copy of the collected issues.
func (l *Log) Issues() []Issue {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Issue(nil), l.issues...)
}

// Len returns the number of collected issues.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.issues)
}

// Counts returns the number of issues per kind.
func (l *Log) Counts() map[Kind]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	counts := make(map[Kind]int)
	for _, i := range l.issues {
		counts[i.Kind]++
	}
	return counts
}

// Summary renders the per-kind counts, sorted by kind, e.g.
// "malformed_record=2 unrecognized_line=5".
func (l *Log) Summary() string {
	counts := l.Counts()
	if len(counts) == 0 {
		return "no issues"
	}
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[Kind(k)])
	}
	return strings.Join(parts, " ")
}

// Report logs every issue at warn level followed by the summary at info level.
func (l *Log) Report(log zerolog.Logger) {
	for _, i := range l.Issues() {
		log.Warn().EmbedObject(i).Msg("issue")
	}
	log.Info().Int("issues", l.Len()).Str("summary", l.Summary()).Msg("issue summary")
}
