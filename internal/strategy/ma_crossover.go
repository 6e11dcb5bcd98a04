package strategy

import (
	"fmt"

	"github.com/quantra-lab/quantra-backtest/internal/indicator"
	"github.com/quantra-lab/quantra-backtest/internal/types"
	"github.com/quantra-lab/quantra-backtest/pkg/errors"
)

// MACrossover buys when a fast moving average crosses above a slow one and
// sells on the opposite cross. The averages are simple by default; the
// "average" parameter switches both lines to exponential.
type MACrossover struct {
	average    indicator.AverageKind
	fastPeriod int
	slowPeriod int
	quantity   float64
}

func newMACrossover(params map[string]string) (*MACrossover, error) {
	c := &MACrossover{}

	var err error
	if c.fastPeriod, err = paramInt(params, "fast_period", 10); err != nil {
		return nil, err
	}

	if c.slowPeriod, err = paramInt(params, "slow_period", 30); err != nil {
		return nil, err
	}

	if c.quantity, err = paramFloat(params, "quantity", 1); err != nil {
		return nil, err
	}

	if c.fastPeriod >= c.slowPeriod {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter,
			"fast_period (%d) must be smaller than slow_period (%d)", c.fastPeriod, c.slowPeriod)
	}

	raw := paramString(params, "average", string(indicator.SimpleAverage))

	average, ok := indicator.ParseAverageKind(raw)
	if !ok {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter,
			"strategy parameter \"average\" must be %q or %q, got %q",
			indicator.SimpleAverage, indicator.ExponentialAverage, raw)
	}

	c.average = average

	return c, nil
}

// Name returns the name of the signal source.
func (c *MACrossover) Name() string {
	return string(KindMACrossover)
}

// GenerateSignals emits a BUY on the step where the fast average first closes
// above the slow one, and a SELL on the step it first closes below.
func (c *MACrossover) GenerateSignals(history []types.Bar) ([]types.Signal, error) {
	series := symbolSeries(history)
	signals := make([]types.Signal, 0)

	for _, symbol := range sortedSymbols(series) {
		bars := series[symbol]
		// One extra bar so the previous step already has a valid slow average.
		if len(bars) <= c.slowPeriod {
			continue
		}

		prices := closes(bars)
		fast := indicator.Average(c.average, prices, c.fastPeriod)
		slow := indicator.Average(c.average, prices, c.slowPeriod)

		last := len(prices) - 1
		bar := bars[last]

		switch indicator.LastCross(fast, slow) {
		case indicator.CrossUp:
			signals = append(signals, types.Signal{
				Symbol:   symbol,
				Action:   types.SignalActionBuy,
				Quantity: c.quantity,
				Price:    bar.Close,
				Reason:   fmt.Sprintf("ma crossover up: fast=%.2f slow=%.2f", fast[last], slow[last]),
			})
		case indicator.CrossDown:
			signals = append(signals, types.Signal{
				Symbol:   symbol,
				Action:   types.SignalActionSell,
				Quantity: c.quantity,
				Price:    bar.Close,
				Reason:   fmt.Sprintf("ma crossover down: fast=%.2f slow=%.2f", fast[last], slow[last]),
			})
		}
	}

	return signals, nil
}
