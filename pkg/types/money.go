package types

import "github.com/shopspring/decimal"

// FormatCents renders integer cents as a dollar amount with two decimals.
func FormatCents(cents int) string {
	return decimal.NewFromInt(int64(cents)).Div(decimal.NewFromInt(100)).StringFixed(2)
}
