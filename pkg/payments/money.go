package payments

import "github.com/shopspring/decimal"

// Cents converts a major-unit amount to integer minor units. Orders store
// float totals; everything past this line works in cents so 25.50 becomes
// exactly 2550, never 2549.
func Cents(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// Major converts cents back to a major-unit float for fields that store
// amounts as floats.
func Major(cents int64) float64 {
	f, _ := decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).Float64()
	return f
}

// majorUnits renders cents as a two-decimal string for providers that want
// "25.50" instead of 2550.
func majorUnits(cents int64) string {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).StringFixed(2)
}
