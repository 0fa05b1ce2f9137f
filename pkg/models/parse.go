package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var dateLayouts = []string{
	"2006-01-02",
	"01-02-06",
	"1-2-06",
	"1/2/06",
	"01/02/2006",
	"1/2/2006",
}

var clockLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04PM",
	"3:04 PM",
	"3:04pm",
	"3:04 pm",
	"3:04:05 PM",
}

// ParseAmount parses a printed money amount such as "$1,234.50", "-3.00",
// "(12.00)" or "6,25". Parenthesised and minus-prefixed amounts are negative.
func ParseAmount(s string) (decimal.Decimal, error) {
	raw := s
	s = strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = strings.TrimPrefix(s, "-")
	} else if strings.HasSuffix(s, "-") {
		negative = !negative
		s = strings.TrimSuffix(s, "-")
	}
	s = normalizeSeparators(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount %q", raw)
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return decimal.Zero, fmt.Errorf("invalid amount %q", raw)
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// A lone comma followed by exactly two digits is a decimal mark; any other
// comma groups thousands.
func normalizeSeparators(s string) string {
	if !strings.Contains(s, ".") && strings.Count(s, ",") == 1 {
		i := strings.Index(s, ",")
		if len(s)-i-1 == 2 {
			return s[:i] + "." + s[i+1:]
		}
	}
	return strings.ReplaceAll(s, ",", "")
}

// LooksLikeAmount reports whether s parses as an amount and carries a decimal
// part or a currency sign, which separates prices from bare integers such as
// quantities or reference numbers.
func LooksLikeAmount(s string) bool {
	s = strings.TrimSpace(s)
	if _, err := ParseAmount(s); err != nil {
		return false
	}
	if strings.Contains(s, "$") {
		return true
	}
	t := strings.Trim(s, "()-$ ")
	if i := strings.LastIndexAny(t, ".,"); i >= 0 && len(t)-i-1 == 2 {
		return true
	}
	return false
}

// ParseDate normalizes the date formats found in sources to YYYY-MM-DD.
func ParseDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("invalid date %q", s)
}

// ParseClock normalizes a time of day to HH:MM.
func ParseClock(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04"), nil
		}
	}
	return "", fmt.Errorf("invalid time %q", s)
}

// PeriodOf returns the YYYY-MM period of a YYYY-MM-DD date.
func PeriodOf(date string) string {
	if len(date) < 7 {
		return date
	}
	return date[:7]
}

// MustAmount is ParseAmount for literals known to be valid. It panics otherwise.
func MustAmount(s string) decimal.Decimal {
	d, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return d
}
