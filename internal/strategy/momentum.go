package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"

	"github.com/quantra-lab/quantra-backtest/internal/indicator"
	"github.com/quantra-lab/quantra-backtest/internal/types"
)

// Momentum buys rate-of-change breakouts and sells when momentum fades.
// An RSI filter keeps it from chasing already-overbought symbols.
type Momentum struct {
	rocPeriod      int
	rsiPeriod      int
	rsiUpper       float64
	entryThreshold float64
	exitThreshold  float64
	quantity       float64
	stopLossPct    float64
	targetPct      float64
}

func newMomentum(params map[string]string) (*Momentum, error) {
	m := &Momentum{}

	var err error
	if m.rocPeriod, err = paramInt(params, "period", 10); err != nil {
		return nil, err
	}

	if m.rsiPeriod, err = paramInt(params, "rsi_period", 14); err != nil {
		return nil, err
	}

	if m.rsiUpper, err = paramFloat(params, "rsi_upper", 70); err != nil {
		return nil, err
	}

	if m.entryThreshold, err = paramFloat(params, "entry_threshold", 1.0); err != nil {
		return nil, err
	}

	if m.exitThreshold, err = paramFloat(params, "exit_threshold", -1.0); err != nil {
		return nil, err
	}

	if m.quantity, err = paramFloat(params, "quantity", 1); err != nil {
		return nil, err
	}

	if m.stopLossPct, err = paramFloat(params, "stop_loss_pct", 0); err != nil {
		return nil, err
	}

	if m.targetPct, err = paramFloat(params, "target_pct", 0); err != nil {
		return nil, err
	}

	return m, nil
}

// Name returns the name of the signal source.
func (m *Momentum) Name() string {
	return string(KindMomentum)
}

// GenerateSignals emits a BUY when the rate of change over the lookback period
// crosses the entry threshold while RSI is below the overbought level, and a
// SELL when the rate of change drops through the exit threshold.
func (m *Momentum) GenerateSignals(history []types.Bar) ([]types.Signal, error) {
	series := symbolSeries(history)
	signals := make([]types.Signal, 0)

	for _, symbol := range sortedSymbols(series) {
		bars := series[symbol]
		prices := closes(bars)

		roc, ok := indicator.LastROC(prices, m.rocPeriod)
		if !ok {
			continue
		}

		rsi, ok := indicator.LastRSI(prices, m.rsiPeriod)
		if !ok {
			continue
		}

		bar := bars[len(bars)-1]

		switch {
		case roc >= m.entryThreshold && rsi < m.rsiUpper:
			signal := types.Signal{
				Symbol:   symbol,
				Action:   types.SignalActionBuy,
				Quantity: m.quantity,
				Price:    bar.Close,
				Reason:   fmt.Sprintf("momentum entry: roc=%.2f rsi=%.2f", roc, rsi),
			}
			if m.stopLossPct > 0 {
				signal.StopLoss = optional.Some(bar.Close * (1 - m.stopLossPct/100))
			}

			if m.targetPct > 0 {
				signal.Target = optional.Some(bar.Close * (1 + m.targetPct/100))
			}

			signals = append(signals, signal)
		case roc <= m.exitThreshold:
			signals = append(signals, types.Signal{
				Symbol:   symbol,
				Action:   types.SignalActionSell,
				Quantity: m.quantity,
				Price:    bar.Close,
				Reason:   fmt.Sprintf("momentum exit: roc=%.2f", roc),
			})
		}
	}

	return signals, nil
}
