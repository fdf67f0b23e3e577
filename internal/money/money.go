// Package money fixes the monetary semantics shared by the pricing engine,
// the quote ledger, and the persisted two-decimal columns: every monetary
// value is rounded to two decimal places, half away from zero, at the point
// it is produced.
package money

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Round2 rounds to exactly two decimal places using half-away-from-zero
// rounding. decimal.Round implements exactly that rule.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Number renders a monetary value as a bare JSON number with two decimals,
// e.g. 1.50 rather than "1.50".
func Number(d decimal.Decimal) json.Number {
	return json.Number(d.Round(2).StringFixed(2))
}

// Rate renders a VAT rate as a bare JSON number, trimming trailing zeros so
// 20 stays 20 and 5.5 stays 5.5.
func Rate(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
