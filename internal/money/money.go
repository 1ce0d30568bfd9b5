// Package money converts between major-unit amounts and integer cents.
// All arithmetic on order lines happens in cents; float amounts exist only at
// the rail boundary and in human-readable ledger columns.
package money

import "github.com/shopspring/decimal"

// ToCents converts a major-unit amount to integer cents, rounding half up.
func ToCents(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// FromCents converts integer cents to a major-unit amount.
func FromCents(cents int64) float64 {
	f, _ := decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).Float64()
	return f
}

// Percent applies pct to cents and rounds half up, e.g. Percent(1000, 30) = 300.
func Percent(cents int64, pct float64) int64 {
	return decimal.NewFromInt(cents).
		Mul(decimal.NewFromFloat(pct)).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}
