package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quantra-lab/quantra-backtest/internal/types"
)

// computeRunID derives the run identifier from everything that shapes the
// simulation. Two runs with the same configuration get the same ID, which is
// what makes results reproducible byte for byte.
func computeRunID(config types.RunConfig) string {
	seed := fmt.Sprintf("%s|%s|%s|%d|%d|%.8f|%.8f|%s",
		config.Strategy,
		strings.Join(config.Symbols, ","),
		config.Interval,
		config.Start.UTC().UnixNano(),
		config.End.UTC().UnixNano(),
		config.InitialCapital,
		config.RiskFreeRate,
		config.FeeAccounting,
	)

	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
}

// runContext owns every piece of mutable state of a single simulation run:
// the ledger, the equity curve, the drawdown tracker and the last observed
// prices. A fresh context is created per invocation and snapshot into the
// result at finalize, so concurrent runs share nothing.
type runContext struct {
	runID  string
	config types.RunConfig
	ledger *PositionLedger
	state  types.RunState
	runErr error

	initialCapital float64
	equity         []types.EquityCurvePoint
	hwm            float64
	maxDrawdown    float64
	lastCapital    float64
	lastPrices     map[string]float64
}

func newRunContext(runID string, config types.RunConfig, ledger *PositionLedger) *runContext {
	return &runContext{
		runID:          runID,
		config:         config,
		ledger:         ledger,
		state:          types.RunStateRunning,
		initialCapital: config.InitialCapital,
		equity:         make([]types.EquityCurvePoint, 0),
		lastCapital:    config.InitialCapital,
		lastPrices:     make(map[string]float64),
	}
}

// observePrices remembers each symbol's latest close so period-end force
// closes can price positions whose symbol stopped trading before the end.
func (rc *runContext) observePrices(step TimeStep) {
	for _, bar := range step.Bars {
		rc.lastPrices[bar.Symbol] = bar.Close
	}
}

// recordStep appends the equity curve point for the step that just finished
// and advances the high-water mark and maximum drawdown.
func (rc *runContext) recordStep(at time.Time) {
	capital := rc.ledger.Capital()

	cumulative := 0.0
	if rc.initialCapital != 0 {
		cumulative = (capital - rc.initialCapital) / rc.initialCapital
	}

	rc.equity = append(rc.equity, types.EquityCurvePoint{
		Time:    at,
		Capital: capital,
		Return:  cumulative,
		PnL:     capital - rc.lastCapital,
	})
	rc.lastCapital = capital

	if capital > rc.hwm {
		rc.hwm = capital
	}

	// A zero high-water mark means no positive capital recorded yet; drawdown
	// stays 0 rather than dividing by zero.
	if rc.hwm > 0 {
		drawdown := (rc.hwm - capital) / rc.hwm
		if drawdown > rc.maxDrawdown {
			rc.maxDrawdown = drawdown
		}
	}
}

// fail marks the run FAILED. The first failure wins; later calls keep the
// original error.
func (rc *runContext) fail(err error) {
	if rc.state == types.RunStateFailed {
		return
	}

	rc.state = types.RunStateFailed
	rc.runErr = err
}

// finalize freezes the context into the run's result. Completed runs get the
// full metrics computation; failed runs carry whatever the ledger and curve
// held when the failure hit, with zero-guarded metrics.
func (rc *runContext) finalize(riskFreeRate float64) *types.BacktestResult {
	if rc.state != types.RunStateFailed {
		rc.state = types.RunStateCompleted
	}

	trades := rc.ledger.Trades()

	result := &types.BacktestResult{
		RunID:          rc.runID,
		Config:         rc.config,
		State:          rc.state,
		InitialCapital: rc.initialCapital,
		FinalCapital:   rc.ledger.Capital(),
		Trades:         trades,
		EquityCurve:    rc.equity,
		Metrics:        ComputeMetrics(trades, rc.equity, rc.initialCapital, riskFreeRate, rc.maxDrawdown),
	}

	if rc.runErr != nil {
		result.Error = rc.runErr.Error()
	}

	return result
}
