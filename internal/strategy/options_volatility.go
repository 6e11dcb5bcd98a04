package strategy

import (
	"fmt"

	"github.com/quantra-lab/quantra-backtest/internal/indicator"
	"github.com/quantra-lab/quantra-backtest/internal/options"
	"github.com/quantra-lab/quantra-backtest/internal/types"
)

// OptionsVolatility prices a synthetic call struck at the slow moving average,
// feeding it trailing realized volatility, and trades the underlying on the
// call's delta: a high delta means price sits well above its anchor relative
// to recent volatility, a low delta means the move has unwound.
type OptionsVolatility struct {
	volPeriod     int
	smaPeriod     int
	expiryDays    float64
	riskFreeRate  float64
	annualization float64
	deltaEntry    float64
	deltaExit     float64
	quantity      float64
}

func newOptionsVolatility(params map[string]string) (*OptionsVolatility, error) {
	o := &OptionsVolatility{}

	var err error
	if o.volPeriod, err = paramInt(params, "vol_period", 21); err != nil {
		return nil, err
	}

	if o.smaPeriod, err = paramInt(params, "sma_period", 20); err != nil {
		return nil, err
	}

	if o.expiryDays, err = paramFloat(params, "expiry_days", 30); err != nil {
		return nil, err
	}

	if o.riskFreeRate, err = paramFloat(params, "risk_free_rate", 0); err != nil {
		return nil, err
	}

	if o.annualization, err = paramFloat(params, "annualization", 365); err != nil {
		return nil, err
	}

	if o.deltaEntry, err = paramFloat(params, "delta_entry", 0.62); err != nil {
		return nil, err
	}

	if o.deltaExit, err = paramFloat(params, "delta_exit", 0.45); err != nil {
		return nil, err
	}

	if o.quantity, err = paramFloat(params, "quantity", 1); err != nil {
		return nil, err
	}

	return o, nil
}

// Name returns the name of the signal source.
func (o *OptionsVolatility) Name() string {
	return string(KindOptionsVolatility)
}

// GenerateSignals emits a BUY when the synthetic call's delta rises above the
// entry level and a SELL when it falls below the exit level.
func (o *OptionsVolatility) GenerateSignals(history []types.Bar) ([]types.Signal, error) {
	series := symbolSeries(history)
	signals := make([]types.Signal, 0)

	warmup := o.volPeriod
	if o.smaPeriod > warmup {
		warmup = o.smaPeriod
	}

	for _, symbol := range sortedSymbols(series) {
		bars := series[symbol]
		if len(bars) <= warmup {
			continue
		}

		prices := closes(bars)

		vol, ok := indicator.RealizedVolatility(prices, o.volPeriod, o.annualization)
		if !ok || vol <= 0 {
			continue
		}

		anchor := indicator.Average(indicator.SimpleAverage, prices, o.smaPeriod)
		last := len(prices) - 1
		bar := bars[last]

		strike := anchor[last]
		if strike <= 0 {
			continue
		}

		greeks, err := options.Price(options.PricingInput{
			Spot:         bar.Close,
			Strike:       strike,
			RiskFreeRate: o.riskFreeRate,
			Volatility:   vol,
			TimeToExpiry: o.expiryDays / 365,
			Kind:         options.Call,
		})
		if err != nil {
			return nil, err
		}

		switch {
		case greeks.Delta >= o.deltaEntry:
			signals = append(signals, types.Signal{
				Symbol:   symbol,
				Action:   types.SignalActionBuy,
				Quantity: o.quantity,
				Price:    bar.Close,
				Reason:   fmt.Sprintf("synthetic call delta %.3f above %.3f (vol=%.3f)", greeks.Delta, o.deltaEntry, vol),
			})
		case greeks.Delta <= o.deltaExit:
			signals = append(signals, types.Signal{
				Symbol:   symbol,
				Action:   types.SignalActionSell,
				Quantity: o.quantity,
				Price:    bar.Close,
				Reason:   fmt.Sprintf("synthetic call delta %.3f below %.3f (vol=%.3f)", greeks.Delta, o.deltaExit, vol),
			})
		}
	}

	return signals, nil
}
