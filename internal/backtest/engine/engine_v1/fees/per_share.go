package fees

import "github.com/quantra-lab/quantra-backtest/internal/types"

type PerShareCalculator struct {
	rate    float64
	minimum float64
}

func NewPerShareCalculator(rate float64, minimum float64) Calculator {
	return &PerShareCalculator{rate: rate, minimum: minimum}
}

func (c *PerShareCalculator) Quote(price float64, quantity float64, _ types.SignalAction) (Quote, error) {
	if err := validateFill(price, quantity); err != nil {
		return Quote{}, err
	}

	commission := c.rate * quantity
	breakdown := map[string]float64{"commission": commission}

	if commission < c.minimum {
		breakdown["minimum_adjustment"] = c.minimum - commission
		commission = c.minimum
	}

	return Quote{TotalFees: commission, Breakdown: breakdown}, nil
}
