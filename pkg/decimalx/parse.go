package decimalx

import (
	"github.com/shopspring/decimal"
)

// Positive reports whether every value is strictly greater than zero.
func Positive(ds ...decimal.Decimal) bool {
	for _, d := range ds {
		if !d.IsPositive() {
			return false
		}
	}
	return true
}
