package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RunState is the lifecycle state of a single simulation run.
type RunState string

const (
	RunStateInitialized RunState = "INITIALIZED"
	RunStateRunning     RunState = "RUNNING"
	RunStateCompleted   RunState = "COMPLETED"
	RunStateFailed      RunState = "FAILED"
)

// FeeAccounting selects whether fees are netted into each trade's RealizedPnL.
// Capital is always debited and credited net of fees; only the reported per-trade
// profit differs between the two modes.
type FeeAccounting string

const (
	// FeeAccountingInclusive reports RealizedPnL = GrossPnL - Fees.
	FeeAccountingInclusive FeeAccounting = "inclusive"
	// FeeAccountingExclusive reports RealizedPnL = GrossPnL, with fees tracked separately.
	FeeAccountingExclusive FeeAccounting = "exclusive"
)

// AllFeeAccountingModes lists both accounting modes, used for schema generation.
var AllFeeAccountingModes = []any{
	FeeAccountingInclusive,
	FeeAccountingExclusive,
}

// EquityCurvePoint is one snapshot of the account per simulated time step.
type EquityCurvePoint struct {
	Time time.Time `yaml:"time" json:"time" csv:"time"`
	// Capital is the cumulative account value after this step.
	Capital float64 `yaml:"capital" json:"capital" csv:"capital"`
	// Return is the cumulative return against initial capital, (capital-initial)/initial.
	Return float64 `yaml:"return" json:"return" csv:"return"`
	// PnL is the capital change produced by this step alone.
	PnL float64 `yaml:"pnl" json:"pnl" csv:"pnl"`
}

// PerformanceMetrics are the aggregate statistics of one completed run.
// Every ratio is well-defined for zero-trade and zero-variance inputs:
// undefined values are reported as 0, never NaN or infinity.
type PerformanceMetrics struct {
	// TotalReturn is (finalCapital - initialCapital) / initialCapital.
	TotalReturn float64 `yaml:"total_return" json:"total_return"`
	// AnnualizedReturn compounds TotalReturn to a 365-day year.
	AnnualizedReturn float64 `yaml:"annualized_return" json:"annualized_return"`
	// Volatility is the annualized standard deviation of period returns.
	Volatility float64 `yaml:"volatility" json:"volatility"`
	// SharpeRatio is (AnnualizedReturn - riskFreeRate) / Volatility.
	SharpeRatio float64 `yaml:"sharpe_ratio" json:"sharpe_ratio"`
	// SortinoRatio uses downside deviation in the denominator instead.
	SortinoRatio float64 `yaml:"sortino_ratio" json:"sortino_ratio"`
	// MaxDrawdown is the largest peak-to-trough capital decline observed while
	// the simulation ran. It is tracked by the loop, not recomputed afterwards.
	MaxDrawdown float64 `yaml:"max_drawdown" json:"max_drawdown"`
	// WinRate is winning trades over total trades, in [0,1].
	WinRate float64 `yaml:"win_rate" json:"win_rate"`
	// ProfitFactor is gross profit over gross loss.
	ProfitFactor float64 `yaml:"profit_factor" json:"profit_factor"`
	// VaR95 is the 5th-percentile period return.
	VaR95 float64 `yaml:"var_95" json:"var_95"`
	// CVaR95 is the mean of all period returns at or below VaR95.
	CVaR95 float64 `yaml:"cvar_95" json:"cvar_95"`

	TotalTrades   int `yaml:"total_trades" json:"total_trades"`
	WinningTrades int `yaml:"winning_trades" json:"winning_trades"`
	LosingTrades  int `yaml:"losing_trades" json:"losing_trades"`

	// GrossProfit is the sum of positive trade PnL; GrossLoss the absolute sum
	// of negative trade PnL.
	GrossProfit float64 `yaml:"gross_profit" json:"gross_profit"`
	GrossLoss   float64 `yaml:"gross_loss" json:"gross_loss"`
	// TotalFees is the sum of all entry and exit fees paid.
	TotalFees float64 `yaml:"total_fees" json:"total_fees"`
}

// RunConfig is the configuration echo attached to every result, sufficient to
// identify what was simulated without referring back to the config file.
type RunConfig struct {
	// Strategy is the name reported by the strategy that produced the signals.
	Strategy string `yaml:"strategy" json:"strategy"`
	// Symbols are the instruments requested from the data source.
	Symbols []string `yaml:"symbols" json:"symbols"`
	// Interval is the bar granularity the run advanced by.
	Interval Interval `yaml:"interval" json:"interval"`
	// Start and End bound the simulated period.
	Start time.Time `yaml:"start" json:"start"`
	End   time.Time `yaml:"end" json:"end"`
	// InitialCapital is the starting account value.
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital"`
	// RiskFreeRate is the annual risk-free rate used by Sharpe and Sortino.
	RiskFreeRate float64 `yaml:"risk_free_rate" json:"risk_free_rate"`
	// FeeAccounting selects fee-inclusive or fee-exclusive trade PnL.
	FeeAccounting FeeAccounting `yaml:"fee_accounting" json:"fee_accounting"`
}

// BacktestResult is the sole artifact a completed run produces. It is read-only
// once finalized and serializes losslessly: feeding the deserialized trade list
// and equity curve back through the metrics computation reconstructs identical
// metrics.
type BacktestResult struct {
	// RunID is derived deterministically from the run configuration, so
	// identical inputs produce identical results byte for byte.
	RunID  string    `yaml:"run_id" json:"run_id"`
	Config RunConfig `yaml:"config" json:"config"`
	State  RunState  `yaml:"state" json:"state"`
	// Error holds the failure description when State is FAILED.
	Error string `yaml:"error,omitempty" json:"error,omitempty"`

	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital"`
	FinalCapital   float64 `yaml:"final_capital" json:"final_capital"`

	Trades      []Trade            `yaml:"trades" json:"trades"`
	EquityCurve []EquityCurvePoint `yaml:"equity_curve" json:"equity_curve"`
	Metrics     PerformanceMetrics `yaml:"metrics" json:"metrics"`
}

// WriteBacktestResult writes the result to path as YAML.
func WriteBacktestResult(path string, result *BacktestResult) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal backtest result to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write backtest result to file: %w", err)
	}

	return nil
}

// LoadBacktestResult reads a result previously written by WriteBacktestResult.
func LoadBacktestResult(path string) (*BacktestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read backtest result file: %w", err)
	}

	var result BacktestResult
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal backtest result: %w", err)
	}

	return &result, nil
}
