// Package journal turns a plaintext cash-journal dump into visits for one
// ledger account.
//
// The dump is comma-delimited and may concatenate several days. Recognised
// line shapes, fields trimmed:
//
//	08-07-25                                                  day header
//	1105, 2025-08-07, 14:32, R-001, marie                     visit header
//	1105, 2025-08-07, 14:32, R-001, marie, 3.50, Coffee[, C-42]  transaction
//	1105, 2.75[, Muffin]                                      continuation
//
// Lines for any other account are noise.
package journal

import (
	"encoding/csv"
	"strings"

	"github.com/shopspring/decimal"

	"recon/internal/issues"
	"recon/pkg/models"
)

// Kind classifies a tokenized line.
type Kind int

const (
	KindNoise Kind = iota
	KindUnrecognized
	KindMalformed
	KindDayHeader
	KindVisitHeader
	KindTransaction
	KindContinuation
)

func (k Kind) String() string {
	switch k {
	case KindNoise:
		return "noise"
	case KindUnrecognized:
		return "unrecognized"
	case KindMalformed:
		return "malformed"
	case KindDayHeader:
		return "day_header"
	case KindVisitHeader:
		return "visit_header"
	case KindTransaction:
		return "transaction"
	case KindContinuation:
		return "continuation"
	}
	return "unknown"
}

// Token is one classified journal line. Only the fields relevant to Kind are set.
type Token struct {
	Kind Kind
	Line int

	Account     string
	Date        string // YYYY-MM-DD
	Time        string // HH:MM
	Reference   string
	Employee    string
	Amount      decimal.Decimal
	Description string
	Client      string

	// Issue is set for KindMalformed and KindUnrecognized.
	Issue *issues.Issue
}

// Tokenizer classifies journal lines for a single target account.
type Tokenizer struct {
	Account string
}

// Tokenize classifies one line. It is pure: the same line always yields the same token.
func (t Tokenizer) Tokenize(line string, lineNo int) Token {
	tok := Token{Line: lineNo}
	line = strings.TrimSpace(line)
	if line == "" {
		tok.Kind = KindNoise
		return tok
	}

	fields, err := splitFields(line)
	if err != nil || len(fields) == 0 {
		return unrecognized(tok, line)
	}

	// A day header may carry trailing labels; accounts are never dates.
	if date, err := models.ParseDate(fields[0]); err == nil && !isAccount(fields[0]) {
		tok.Kind = KindDayHeader
		tok.Date = date
		return tok
	}

	if !isAccount(fields[0]) {
		return unrecognized(tok, line)
	}
	tok.Account = fields[0]
	if tok.Account != strings.TrimSpace(t.Account) {
		tok.Kind = KindNoise
		return tok
	}

	switch n := len(fields); {
	case n == 2 || n == 3:
		return continuation(tok, fields)
	case n == 5:
		return visitHeader(tok, fields)
	case n == 7 || n == 8:
		return transaction(tok, fields)
	default:
		return malformed(tok, "expected 2, 3, 5, 7 or 8 fields, got %d", n)
	}
}

func continuation(tok Token, fields []string) Token {
	amount, err := models.ParseAmount(fields[1])
	if err != nil {
		return malformed(tok, "%v", err)
	}
	tok.Kind = KindContinuation
	tok.Amount = amount
	if len(fields) == 3 {
		tok.Description = fields[2]
	}
	return tok
}

func visitHeader(tok Token, fields []string) Token {
	if err := parseHeaderFields(&tok, fields); err != nil {
		return malformed(tok, "%v", err)
	}
	tok.Kind = KindVisitHeader
	return tok
}

func transaction(tok Token, fields []string) Token {
	if err := parseHeaderFields(&tok, fields); err != nil {
		return malformed(tok, "%v", err)
	}
	amount, err := models.ParseAmount(fields[5])
	if err != nil {
		return malformed(tok, "%v", err)
	}
	tok.Kind = KindTransaction
	tok.Amount = amount
	tok.Description = fields[6]
	if len(fields) == 8 {
		tok.Client = fields[7]
	}
	return tok
}

func parseHeaderFields(tok *Token, fields []string) error {
	date, err := models.ParseDate(fields[1])
	if err != nil {
		return err
	}
	clock, err := models.ParseClock(fields[2])
	if err != nil {
		return err
	}
	ref := strings.TrimPrefix(fields[3], "#")
	if ref == "" {
		return errEmptyReference
	}
	tok.Date = date
	tok.Time = clock
	tok.Reference = ref
	tok.Employee = fields[4]
	return nil
}

func malformed(tok Token, format string, args ...any) Token {
	issue := issues.New(issues.MalformedRecord, "", format, args...).AtLine(tok.Line)
	tok.Kind = KindMalformed
	tok.Issue = &issue
	return tok
}

func unrecognized(tok Token, line string) Token {
	issue := issues.New(issues.UnrecognizedLine, "", "%q", truncate(line, 60)).AtLine(tok.Line)
	tok.Kind = KindUnrecognized
	tok.Issue = &issue
	return tok
}

// splitFields splits one delimited line. Quoted fields may contain commas.
func splitFields(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	fields, err := r.Read()
	if err != nil {
		return nil, err
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	// Trailing delimiters are common in exported dumps.
	for len(fields) > 1 && fields[len(fields)-1] == "" {
		fields = fields[:len(fields)-1]
	}
	return fields, nil
}

func isAccount(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
