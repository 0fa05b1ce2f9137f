package models

import "strings"

// ChargeKind classifies a priced line that is not a sold item.
type ChargeKind int

const (
	ChargeNone ChargeKind = iota
	ChargeSubtotal
	ChargeTPS
	ChargeTVQ
	ChargeTip
	ChargeDiscount
	ChargeTotal
)

// Order matters: longer keywords sharing a prefix come first.
var chargeKeywords = []struct {
	keyword string
	kind    ChargeKind
}{
	{"SOUS-TOTAL", ChargeSubtotal},
	{"SOUS TOTAL", ChargeSubtotal},
	{"SUBTOTAL", ChargeSubtotal},
	{"SUB-TOTAL", ChargeSubtotal},
	{"SUB TOTAL", ChargeSubtotal},
	{"TPS", ChargeTPS},
	{"GST", ChargeTPS},
	{"TVQ", ChargeTVQ},
	{"QST", ChargeTVQ},
	{"PST", ChargeTVQ},
	{"POURBOIRE", ChargeTip},
	{"GRATUITY", ChargeTip},
	{"TIP", ChargeTip},
	{"DISCOUNT", ChargeDiscount},
	{"RABAIS", ChargeDiscount},
	{"ESCOMPTE", ChargeDiscount},
	{"TOTAL", ChargeTotal},
}

// ClassifyCharge maps a line description to the visit-level field it feeds.
// Descriptions such as "TPS 5%" or "Total:" match; "Totally Fries" does not.
func ClassifyCharge(description string) ChargeKind {
	d := strings.ToUpper(strings.TrimSpace(description))
	for _, c := range chargeKeywords {
		if d == c.keyword {
			return c.kind
		}
		if strings.HasPrefix(d, c.keyword) {
			next := d[len(c.keyword)]
			if next == ' ' || next == ':' || next == '(' || next == '#' {
				return c.kind
			}
		}
	}
	return ChargeNone
}

func (k ChargeKind) String() string {
	switch k {
	case ChargeSubtotal:
		return "subtotal"
	case ChargeTPS:
		return "tax_tps"
	case ChargeTVQ:
		return "tax_tvq"
	case ChargeTip:
		return "tip"
	case ChargeDiscount:
		return "discount"
	case ChargeTotal:
		return "total"
	default:
		return "item"
	}
}
