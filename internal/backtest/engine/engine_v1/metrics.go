package engine

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/quantra-lab/quantra-backtest/internal/types"
)

// tradingDaysPerYear annualizes period statistics. Crypto and FX trade every
// calendar day; equity data simply has no weekend points.
const tradingDaysPerYear = 365.0

// ComputeMetrics derives the aggregate statistics of a finished run from its
// trade list and equity curve. It is a pure function: feeding a deserialized
// result's trades and curve back through it reconstructs identical metrics.
// Undefined ratios (zero trades, zero variance, zero loss) come back 0, never
// NaN or infinity. maxDrawdown is the value tracked while the simulation ran;
// it is echoed, not recomputed, so the report can never diverge from the run.
func ComputeMetrics(
	trades []types.Trade,
	equity []types.EquityCurvePoint,
	initialCapital float64,
	riskFreeRate float64,
	maxDrawdown float64,
) types.PerformanceMetrics {
	metrics := types.PerformanceMetrics{
		MaxDrawdown: maxDrawdown,
	}

	tallyTrades(&metrics, trades)

	if initialCapital != 0 {
		net := 0.0
		for _, trade := range trades {
			net += trade.GrossPnL - trade.Fees
		}

		metrics.TotalReturn = net / initialCapital
	}

	returns := periodReturns(equity, initialCapital)

	metrics.AnnualizedReturn = annualize(metrics.TotalReturn, len(equity))
	metrics.Volatility = annualizedVolatility(returns)

	if metrics.Volatility > 0 {
		metrics.SharpeRatio = (metrics.AnnualizedReturn - riskFreeRate) / metrics.Volatility
	}

	if downside := downsideDeviation(returns); downside > 0 {
		metrics.SortinoRatio = (metrics.AnnualizedReturn - riskFreeRate) / downside
	}

	metrics.VaR95, metrics.CVaR95 = valueAtRisk(returns)

	return metrics
}

// tallyTrades fills the trade-count and gross profit/loss fields.
func tallyTrades(metrics *types.PerformanceMetrics, trades []types.Trade) {
	metrics.TotalTrades = len(trades)

	for i := range trades {
		trade := &trades[i]

		metrics.TotalFees += trade.Fees

		switch {
		case trade.RealizedPnL > 0:
			metrics.WinningTrades++
			metrics.GrossProfit += trade.RealizedPnL
		case trade.RealizedPnL < 0:
			metrics.LosingTrades++
			metrics.GrossLoss += -trade.RealizedPnL
		}
	}

	if metrics.TotalTrades > 0 {
		metrics.WinRate = float64(metrics.WinningTrades) / float64(metrics.TotalTrades)
	}

	if metrics.GrossLoss > 0 {
		metrics.ProfitFactor = metrics.GrossProfit / metrics.GrossLoss
	}
}

// periodReturns converts the equity curve into simple per-step returns. The
// first period is measured against the initial capital, every later one
// against the previous step's capital. A zero base yields a 0 return for that
// period rather than a division error.
func periodReturns(equity []types.EquityCurvePoint, initialCapital float64) []float64 {
	returns := make([]float64, 0, len(equity))

	previous := initialCapital
	for _, point := range equity {
		if previous != 0 {
			returns = append(returns, (point.Capital-previous)/previous)
		} else {
			returns = append(returns, 0)
		}

		previous = point.Capital
	}

	return returns
}

// annualize compounds the total return to a full year, with the number of
// equity curve points standing in for trading days.
func annualize(totalReturn float64, tradingDays int) float64 {
	if tradingDays == 0 {
		return 0
	}

	base := 1 + totalReturn
	if base < 0 {
		return 0
	}

	annualized := math.Pow(base, tradingDaysPerYear/float64(tradingDays)) - 1
	if math.IsNaN(annualized) || math.IsInf(annualized, 0) {
		return 0
	}

	return annualized
}

// annualizedVolatility is the sample standard deviation of period returns
// scaled to a year. Fewer than two observations carry no variance information.
func annualizedVolatility(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	sigma := stat.StdDev(returns, nil)
	if math.IsNaN(sigma) {
		return 0
	}

	return sigma * math.Sqrt(tradingDaysPerYear)
}

// downsideDeviation is the annualized root mean square of negative period
// returns, the Sortino denominator. Zero when no period lost money.
func downsideDeviation(returns []float64) float64 {
	sumSquares := 0.0
	count := 0

	for _, r := range returns {
		if r < 0 {
			sumSquares += r * r
			count++
		}
	}

	if count == 0 {
		return 0
	}

	return math.Sqrt(sumSquares / float64(count) * tradingDaysPerYear)
}

// valueAtRisk returns the 5th-percentile period return and the mean of the
// tail at or below it.
func valueAtRisk(returns []float64) (var95 float64, cvar95 float64) {
	if len(returns) == 0 {
		return 0, 0
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	index := int(0.05 * float64(len(sorted)))
	var95 = sorted[index]

	tail := make([]float64, 0, index+1)
	for _, r := range sorted {
		if r <= var95 {
			tail = append(tail, r)
		}
	}

	if len(tail) == 0 {
		return var95, 0
	}

	return var95, stat.Mean(tail, nil)
}
