package journal

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"recon/internal/issues"
	"recon/internal/logger"
	"recon/pkg/models"
)

// Lines under a day header that never see a visit header are booked to a
// single day-level visit with this time and reference.
const (
	dayVisitTime      = "00:00"
	dayVisitReference = "DAY"
)

// refKey identifies a visit without its client. Only transaction lines name
// the client, so headers and transactions of one visit meet on this key.
type refKey struct {
	date, clock, ref string
}

// assembly is the running state of one Assemble call. open is the visit that
// continuation lines attach to.
type assembly struct {
	source  string
	date    string // from the latest day header
	open    *models.VisitKey
	index   map[models.VisitKey]int
	clients map[refKey]string
	visits  []models.Visit
	issues  []issues.Issue
}

// Assemble groups tokens into visits keyed by (client, date, time, reference).
// Lines sharing a key are merged wherever they occur in the dump; items keep
// source order and visits are returned in order of first appearance.
func Assemble(tokens []Token, source string) ([]models.Visit, []issues.Issue) {
	a := &assembly{
		source:  source,
		index:   make(map[models.VisitKey]int),
		clients: make(map[refKey]string),
	}
	for _, tok := range tokens {
		a.add(tok)
	}
	return a.visits, a.issues
}

func (a *assembly) add(tok Token) {
	switch tok.Kind {
	case KindNoise:
	case KindUnrecognized, KindMalformed:
		issue := *tok.Issue
		issue.Source = a.source
		a.issues = append(a.issues, issue)
	case KindDayHeader:
		a.date = tok.Date
		a.open = nil
	case KindVisitHeader:
		a.openVisit(a.clientOf(tok), tok.Date, tok.Time, tok.Reference, tok.Employee)
	case KindTransaction:
		a.learnClient(tok)
		v := a.openVisit(a.clientOf(tok), tok.Date, tok.Time, tok.Reference, tok.Employee)
		v.AddLine(tok.Description, tok.Amount)
	case KindContinuation:
		var v *models.Visit
		switch {
		case a.open != nil:
			v = &a.visits[a.index[*a.open]]
		case a.date != "":
			v = a.openVisit(tok.Account, a.date, dayVisitTime, dayVisitReference, "")
		default:
			a.issues = append(a.issues, issues.New(issues.MalformedRecord, a.source,
				"continuation line with no open visit or day header").AtLine(tok.Line))
			return
		}
		desc := tok.Description
		if desc == "" {
			desc = "Account " + tok.Account
		}
		v.AddLine(desc, tok.Amount)
	}
}

// openVisit returns the visit for the key, creating it on first sight, and
// makes it the target of following continuation lines.
func (a *assembly) openVisit(client, date, clock, ref, employee string) *models.Visit {
	key := models.VisitKey{ClientCode: client, Date: date, Time: clock, Reference: ref}
	i, ok := a.index[key]
	if !ok {
		v := models.NewVisit(client, date, clock, ref, employee)
		v.Source = a.source
		a.visits = append(a.visits, v)
		i = len(a.visits) - 1
		a.index[key] = i
	}
	v := &a.visits[i]
	if v.Employee == "" {
		v.Employee = employee
	}
	a.open = &key
	return v
}

// clientOf returns the client a line belongs to: its own client column, the
// client another line gave for the same date, time and reference, or else
// the account itself.
func (a *assembly) clientOf(tok Token) string {
	if tok.Client != "" {
		return tok.Client
	}
	if client, ok := a.clients[refKey{tok.Date, tok.Time, tok.Reference}]; ok {
		return client
	}
	return tok.Account
}

// learnClient records the client named by a transaction line. A visit opened
// earlier for the same reference without a client is moved to that client, so
// one visit never appears under both the account and the client.
func (a *assembly) learnClient(tok Token) {
	if tok.Client == "" {
		return
	}
	rk := refKey{tok.Date, tok.Time, tok.Reference}
	if _, known := a.clients[rk]; known {
		return
	}
	a.clients[rk] = tok.Client

	placeholder := models.VisitKey{ClientCode: tok.Account, Date: tok.Date, Time: tok.Time, Reference: tok.Reference}
	i, ok := a.index[placeholder]
	if !ok || tok.Client == tok.Account {
		return
	}
	target := models.VisitKey{ClientCode: tok.Client, Date: tok.Date, Time: tok.Time, Reference: tok.Reference}
	v := &a.visits[i]
	v.ClientCode = tok.Client
	v.ID = models.VisitID(v.ClientCode, v.Date, v.Time, v.Reference)
	for k := range v.Items {
		v.Items[k].VisitID = v.ID
	}
	delete(a.index, placeholder)
	a.index[target] = i
	if a.open != nil && *a.open == placeholder {
		a.open = &target
	}
}

// Parse streams a journal dump line by line and assembles its visits. Only a
// read failure is returned as an error; everything else is reported as issues.
func Parse(ctx context.Context, r io.Reader, source string, t Tokenizer) ([]models.Visit, []issues.Issue, error) {
	const op = "ParseJournal"
	if t.Account == "" {
		return nil, nil, ErrNoTargetAccount
	}
	log := logger.WithSource("journal", source)

	var tokens []Token
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, fmt.Errorf("%s: %w", op, err)
			}
		}
		tokens = append(tokens, t.Tokenize(scanner.Text(), lineNo))
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, issues.WrapSourceError(op, err, source)
	}

	visits, found := Assemble(tokens, source)
	log.Debug().Int("lines", lineNo).Int("visits", len(visits)).Int("issues", len(found)).Msg("journal parsed")
	return visits, found, nil
}
