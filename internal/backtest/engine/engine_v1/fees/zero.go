package fees

import "github.com/quantra-lab/quantra-backtest/internal/types"

// ZeroCalculator implements Calculator with no fees at all.
type ZeroCalculator struct{}

// NewZeroCalculator creates a fee calculator that always quotes zero.
func NewZeroCalculator() Calculator {
	return &ZeroCalculator{}
}

// Quote returns a zero fee for any fill.
func (c *ZeroCalculator) Quote(price float64, quantity float64, _ types.SignalAction) (Quote, error) {
	if err := validateFill(price, quantity); err != nil {
		return Quote{}, err
	}

	return Quote{TotalFees: 0, Breakdown: map[string]float64{}}, nil
}
