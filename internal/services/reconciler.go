package services

import "github.com/shopspring/decimal"

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// GSTTriple holds the three related money fields of an invoice. A nil or
// zero value is unknown.
type GSTTriple struct {
	Amount    *decimal.Decimal
	GSTAmount *decimal.Decimal
	GSTRate   *decimal.Decimal
}

// ReconcileGST derives at most one missing member of the triple from the
// other two. Money is rounded to 2 places, the rate to a whole percent.
// Inputs are never mutated.
func ReconcileGST(t GSTTriple) GSTTriple {
	if !known(t.GSTRate) && known(t.GSTAmount) && known(t.Amount) && t.Amount.GreaterThan(*t.GSTAmount) {
		base := t.Amount.Sub(*t.GSTAmount)
		rate := t.GSTAmount.Div(base).Mul(hundred).Round(0)
		t.GSTRate = &rate
	}

	if !known(t.GSTAmount) && known(t.Amount) && known(t.GSTRate) {
		base := t.Amount.Div(one.Add(t.GSTRate.Div(hundred)))
		gst := t.Amount.Sub(base).Round(2)
		t.GSTAmount = &gst
	}

	if !known(t.Amount) && known(t.GSTAmount) && known(t.GSTRate) {
		base := t.GSTAmount.Mul(hundred).Div(*t.GSTRate)
		amount := base.Add(*t.GSTAmount).Round(2)
		t.Amount = &amount
	}

	return t
}

func known(d *decimal.Decimal) bool {
	return d != nil && !d.IsZero()
}
