package journal

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"recon/internal/issues"
	"recon/pkg/models"
)

var tok1105 = Tokenizer{Account: "1105"}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Kind
	}{
		{"blank", "   ", KindNoise},
		{"day header", "08-07-25", KindDayHeader},
		{"day header trailing comma", "08-07-25,,", KindDayHeader},
		{"day header with label", "08-05-25, Journal", KindDayHeader},
		{"other account", "4000, 2025-08-07, 14:32, R-001, marie, 3.50, Coffee", KindNoise},
		{"transaction", "1105, 2025-08-07, 14:32, R-001, marie, 3.50, Coffee", KindTransaction},
		{"transaction with client", "1105, 2025-08-07, 14:32, #R-001, marie, 3.50, Coffee, C-42", KindTransaction},
		{"quoted description", `1105, 08/07/2025, 2:32 PM, R-001, marie, 3.50, "Coffee, large"`, KindTransaction},
		{"visit header", "1105, 2025-08-07, 14:32, R-001, marie", KindVisitHeader},
		{"continuation", "1105, 2.75, Muffin", KindContinuation},
		{"short continuation", "1105, 31.85", KindContinuation},
		{"bad amount", "1105, 2025-08-07, 14:32, R-001, marie, abc, Coffee", KindMalformed},
		{"bad date", "1105, 2025-13-45, 14:32, R-001, marie", KindMalformed},
		{"bad time", "1105, 2025-08-07, 25:99, R-001, marie", KindMalformed},
		{"wrong field count", "1105, 2025-08-07, 14:32, R-001", KindMalformed},
		{"text", "JOURNAL ENTRY REPORT", KindUnrecognized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tok1105.Tokenize(tt.line, 3)
			if got.Kind != tt.want {
				t.Fatalf("Tokenize(%q).Kind = %v, want %v", tt.line, got.Kind, tt.want)
			}
			if (got.Kind == KindMalformed || got.Kind == KindUnrecognized) != (got.Issue != nil) {
				t.Errorf("Tokenize(%q).Issue = %v", tt.line, got.Issue)
			}
			if got.Issue != nil && got.Issue.Line != 3 {
				t.Errorf("Issue.Line = %d, want 3", got.Issue.Line)
			}
		})
	}
}

func TestTokenizeFields(t *testing.T) {
	got := tok1105.Tokenize(`1105, 08/07/2025, 2:32 PM, #R-001, marie, "$1,003.50", "Coffee, large", C-42`, 1)
	if got.Date != "2025-08-07" || got.Time != "14:32" || got.Reference != "R-001" {
		t.Errorf("header = %s %s %s", got.Date, got.Time, got.Reference)
	}
	if !got.Amount.Equal(decimal.RequireFromString("1003.50")) {
		t.Errorf("Amount = %v, want 1003.50", got.Amount)
	}
	if got.Description != "Coffee, large" || got.Client != "C-42" {
		t.Errorf("Description = %q, Client = %q", got.Description, got.Client)
	}
}

func TestTokenizeIsPure(t *testing.T) {
	line := "1105, 2025-08-07, 14:32, R-001, marie, 3.50, Coffee"
	a, b := tok1105.Tokenize(line, 1), tok1105.Tokenize(line, 1)
	if a.Kind != b.Kind || a.Reference != b.Reference || !a.Amount.Equal(b.Amount) {
		t.Errorf("Tokenize not deterministic: %+v != %+v", a, b)
	}
}

func parse(t *testing.T, dump string) ([]visitSummary, []issues.Issue) {
	t.Helper()
	visits, found, err := Parse(context.Background(), strings.NewReader(dump), "test.txt", tok1105)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	var out []visitSummary
	for _, v := range visits {
		s := visitSummary{client: v.ClientCode, date: v.Date, time: v.Time, ref: v.Reference, subtotal: v.ItemsTotal().StringFixed(2)}
		for _, it := range v.Items {
			s.items = append(s.items, it.Description)
		}
		out = append(out, s)
	}
	return out, found
}

type visitSummary struct {
	client, date, time, ref, subtotal string
	items                             []string
}

func TestAssembleCoffeeMuffin(t *testing.T) {
	dump := `1105, 2025-08-07, 14:32, R-001, marie, 3.50, Coffee
1105, 2025-08-07, 14:32, R-001, marie, 2.75, Muffin
`
	visits, found := parse(t, dump)
	if len(found) != 0 {
		t.Fatalf("issues = %v", found)
	}
	if len(visits) != 1 {
		t.Fatalf("visits = %d, want 1", len(visits))
	}
	if visits[0].subtotal != "6.25" {
		t.Errorf("subtotal = %s, want 6.25", visits[0].subtotal)
	}
	if strings.Join(visits[0].items, ",") != "Coffee,Muffin" {
		t.Errorf("items = %v, want source order", visits[0].items)
	}
}

func TestAssembleMergesNonAdjacentLines(t *testing.T) {
	dump := `08-07-25
1105, 2025-08-07, 14:32, R-001, marie
1105, 3.50, Coffee
1105, 2025-08-07, 15:10, R-002, paul, 4.00, Tea
2000, 2025-08-07, 15:10, R-002, paul, 9.99, Ignored
08-08-25
1105, 2025-08-07, 14:32, R-001, marie, 2.75, Muffin
1105, 2025-08-07, 14:32, R-001, marie, 0.31, TPS
`
	visits, found := parse(t, dump)
	if len(found) != 0 {
		t.Fatalf("issues = %v", found)
	}
	if len(visits) != 2 {
		t.Fatalf("visits = %d, want 2", len(visits))
	}
	first := visits[0]
	if first.ref != "R-001" || first.subtotal != "6.25" {
		t.Errorf("first visit = %+v, want R-001 with subtotal 6.25", first)
	}
	if strings.Join(first.items, ",") != "Coffee,Muffin" {
		t.Errorf("items = %v", first.items)
	}
	if visits[1].ref != "R-002" {
		t.Errorf("second visit = %s, want R-002", visits[1].ref)
	}
}

func TestAssembleDaySections(t *testing.T) {
	dump := `08-05-25
1105, 31.85
4000, 12.00
08-06-25
1105, 10.00
`
	visits, found := parse(t, dump)
	if len(found) != 0 {
		t.Fatalf("issues = %v", found)
	}
	if len(visits) != 2 {
		t.Fatalf("visits = %d, want one per day", len(visits))
	}
	if visits[0].date != "2025-08-05" || visits[0].subtotal != "31.85" {
		t.Errorf("day visit = %+v", visits[0])
	}
	if visits[0].client != "1105" || visits[0].time != "00:00" {
		t.Errorf("day visit key = %+v", visits[0])
	}
}

func TestAssembleReportsWithoutAborting(t *testing.T) {
	dump := `JOURNAL REPORT
1105, 2.00, Orphan
1105, 2025-08-07, 14:32, R-001, marie, x, Coffee
1105, 2025-08-07, 14:32, R-001, marie, 3.50, Coffee
`
	visits, found := parse(t, dump)
	if len(visits) != 1 || visits[0].subtotal != "3.50" {
		t.Fatalf("visits = %+v, want the one valid visit", visits)
	}
	kinds := map[issues.Kind]int{}
	for _, i := range found {
		kinds[i.Kind]++
		if i.Source != "test.txt" || i.Line == 0 {
			t.Errorf("issue without location: %v", i)
		}
	}
	if kinds[issues.UnrecognizedLine] != 1 || kinds[issues.MalformedRecord] != 2 {
		t.Errorf("issue kinds = %v", kinds)
	}
}

func TestAssembleIdempotent(t *testing.T) {
	dump := "1105, 2025-08-07, 14:32, R-001, marie, 3.50, Coffee, C-42\n1105, 2.75, Muffin\n"
	a, _, _ := Parse(context.Background(), strings.NewReader(dump), "a.txt", tok1105)
	b, _, _ := Parse(context.Background(), strings.NewReader(dump), "a.txt", tok1105)
	if len(a) != 1 || len(b) != 1 || a[0].ID != b[0].ID {
		t.Fatalf("ids differ between runs")
	}
	if a[0].ClientCode != "C-42" {
		t.Errorf("ClientCode = %s, want C-42 from the client field", a[0].ClientCode)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestParseUnreadableSource(t *testing.T) {
	_, _, err := Parse(context.Background(), failingReader{}, "gone.txt", tok1105)
	if !errors.Is(err, issues.ErrUnreadableSource) {
		t.Errorf("Parse() error = %v, want ErrUnreadableSource", err)
	}
}

func TestParseRequiresAccount(t *testing.T) {
	_, _, err := Parse(context.Background(), strings.NewReader(""), "x.txt", Tokenizer{})
	if !errors.Is(err, ErrNoTargetAccount) {
		t.Errorf("Parse() error = %v, want ErrNoTargetAccount", err)
	}
}

func TestAssembleResolvesClientAcrossLines(t *testing.T) {
	tests := []struct {
		name    string
		dump    string
		want    []visitSummary
		nIssues int
	}{
		{
			name: "header before client lines",
			dump: `1105, 2025-08-07, 14:32, R-001, marie
1105, 2025-08-07, 14:32, R-001, marie, 3.50, Coffee, C-42
1105, 2025-08-07, 14:32, R-001, marie, 2.75, Muffin, C-42
`,
			want: []visitSummary{{client: "C-42", date: "2025-08-07", time: "14:32", ref: "R-001", subtotal: "6.25", items: []string{"Coffee", "Muffin"}}},
		},
		{
			name: "client lines before header",
			dump: `1105, 2025-08-07, 14:32, R-001, marie, 3.50, Coffee, C-42
1105, 2025-08-07, 14:32, R-001, marie
1105, 2.75, Muffin
`,
			want: []visitSummary{{client: "C-42", date: "2025-08-07", time: "14:32", ref: "R-001", subtotal: "6.25", items: []string{"Coffee", "Muffin"}}},
		},
		{
			name: "continuation before client is known",
			dump: `1105, 2025-08-07, 14:32, R-001, marie
1105, 1.00, Cookie
1105, 2025-08-07, 14:32, R-001, marie, 3.50, Coffee, C-42
`,
			want: []visitSummary{{client: "C-42", date: "2025-08-07", time: "14:32", ref: "R-001", subtotal: "4.50", items: []string{"Cookie", "Coffee"}}},
		},
		{
			name: "day headers with labels",
			dump: `08-05-25, Journal
1105, 31.85
08-06-25, Journal
1105, 10.00
`,
			want: []visitSummary{
				{client: "1105", date: "2025-08-05", time: "00:00", ref: "DAY", subtotal: "31.85", items: []string{"Account 1105"}},
				{client: "1105", date: "2025-08-06", time: "00:00", ref: "DAY", subtotal: "10.00", items: []string{"Account 1105"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			visits, found := parse(t, tt.dump)
			if len(found) != tt.nIssues {
				t.Fatalf("issues = %v, want %d", found, tt.nIssues)
			}
			if len(visits) != len(tt.want) {
				t.Fatalf("visits = %+v, want %d", visits, len(tt.want))
			}
			for i, want := range tt.want {
				got := visits[i]
				if got.client != want.client || got.date != want.date || got.time != want.time || got.ref != want.ref {
					t.Errorf("visit %d key = %s %s %s %s, want %s %s %s %s", i,
						got.client, got.date, got.time, got.ref, want.client, want.date, want.time, want.ref)
				}
				if got.subtotal != want.subtotal {
					t.Errorf("visit %d subtotal = %s, want %s", i, got.subtotal, want.subtotal)
				}
				if strings.Join(got.items, ",") != strings.Join(want.items, ",") {
					t.Errorf("visit %d items = %v, want %v", i, got.items, want.items)
				}
			}
		})
	}
}

func TestAssembleRekeyedVisitIDs(t *testing.T) {
	tokens := []Token{
		tok1105.Tokenize("1105, 2025-08-07, 14:32, R-001, marie", 1),
		tok1105.Tokenize("1105, 1.00, Cookie", 2),
		tok1105.Tokenize("1105, 2025-08-07, 14:32, R-001, marie, 3.50, Coffee, C-42", 3),
	}
	visits, found := Assemble(tokens, "test.txt")
	if len(found) != 0 || len(visits) != 1 {
		t.Fatalf("visits = %d, issues = %v", len(visits), found)
	}
	v := visits[0]
	if want := models.VisitID("C-42", "2025-08-07", "14:32", "R-001"); v.ID != want {
		t.Errorf("ID = %s, want %s", v.ID, want)
	}
	for _, it := range v.Items {
		if it.VisitID != v.ID {
			t.Errorf("item %q VisitID = %s, want %s", it.Description, it.VisitID, v.ID)
		}
	}
}
