package fees

import (
	"github.com/shopspring/decimal"

	"github.com/quantra-lab/quantra-backtest/internal/types"
)

// PercentageCalculator charges a fixed fraction of the fill notional on both
// entry and exit.
type PercentageCalculator struct {
	rate float64
}

func NewPercentageCalculator(rate float64) Calculator {
	return &PercentageCalculator{rate: rate}
}

func (c *PercentageCalculator) Quote(price float64, quantity float64, _ types.SignalAction) (Quote, error) {
	if err := validateFill(price, quantity); err != nil {
		return Quote{}, err
	}

	fee, _ := decimal.NewFromFloat(price).
		Mul(decimal.NewFromFloat(quantity)).
		Mul(decimal.NewFromFloat(c.rate)).
		Float64()

	return Quote{TotalFees: fee, Breakdown: map[string]float64{"commission": fee}}, nil
}
