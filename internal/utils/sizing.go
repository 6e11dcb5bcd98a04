package utils

import (
	"math"

	"github.com/shopspring/decimal"
)

// CalculateExecutableQuantity returns the quantity to execute for a signal: the
// suggested quantity capped at the number of whole units the available capital
// can afford at the given price.
func CalculateExecutableQuantity(suggested float64, availableCapital float64, price float64) float64 {
	if price <= 0 || availableCapital <= 0 || suggested <= 0 {
		return 0
	}

	// Decimal division so quantities like 100/0.1 floor to 1000, not 999.
	affordable, _ := decimal.NewFromFloat(availableCapital).
		Div(decimal.NewFromFloat(price)).
		Floor().
		Float64()

	return math.Min(suggested, affordable)
}
