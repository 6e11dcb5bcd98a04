package engine

import (
	"context"
	"time"

	"github.com/quantra-lab/quantra-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/quantra-lab/quantra-backtest/internal/strategy"
	"github.com/quantra-lab/quantra-backtest/internal/types"
)

// Lifecycle callback types for backtest phases.
// All callbacks with an error return can abort execution if they return an error.

// OnBacktestStartCallback is called once before any simulation work begins.
// totalRuns is 1 for a single run and the window count for a walk-forward sweep.
type OnBacktestStartCallback func(totalRuns int) error

// OnBacktestEndCallback is called when the entire backtest completes (always called via defer).
type OnBacktestEndCallback func(err error)

// OnRunStartCallback is called when a single simulation run begins.
// runID is the deterministic identifier of the run, derived from its configuration.
type OnRunStartCallback func(runID string, strategyName string, totalSteps int) error

// OnRunEndCallback is called when a single simulation run ends.
// resultFolderPath is empty when result persistence is disabled.
type OnRunEndCallback func(runID string, state types.RunState, resultFolderPath string)

// OnProcessDataCallback is called after each simulated time step.
type OnProcessDataCallback func(current int, total int) error

// OnWindowStartCallback is called before a walk-forward window is dispatched.
type OnWindowStartCallback func(index int, kind types.WindowKind, start time.Time, end time.Time) error

// OnWindowEndCallback is called after a walk-forward window finished, in window order.
type OnWindowEndCallback func(index int, kind types.WindowKind, state types.RunState)

// LifecycleCallbacks holds all lifecycle callback functions for the backtest engine.
// All fields are pointers - nil means no callback will be invoked.
type LifecycleCallbacks struct {
	OnBacktestStart *OnBacktestStartCallback
	OnBacktestEnd   *OnBacktestEndCallback
	OnRunStart      *OnRunStartCallback
	OnRunEnd        *OnRunEndCallback
	OnProcessData   *OnProcessDataCallback
	OnWindowStart   *OnWindowStartCallback
	OnWindowEnd     *OnWindowEndCallback
}

// Engine replays historical bars through a signal source and reports the
// outcome as a BacktestResult. A single run is strictly sequential; separate
// invocations share no mutable state and may execute concurrently.
type Engine interface {
	// Initialize parses the YAML engine configuration and prepares the engine
	// for runs. Configuration errors are fatal: no simulation starts.
	Initialize(config string) error
	// SetStrategy sets the signal source used by every subsequent run. When no
	// strategy is set explicitly, the engine resolves the one named in the
	// configuration from the built-in registry.
	SetStrategy(source strategy.SignalSource) error
	// SetDataSource sets the data source bars are loaded from.
	SetDataSource(source datasource.DataSource) error
	// SetResultsFolder sets the output directory for result files. An empty
	// folder disables persistence; results are only returned in memory.
	SetResultsFolder(folder string) error
	// Run executes one backtest over the configured period and returns its
	// result. The context is only observed between runs, never mid-run: a
	// caller wanting early termination should discard the result.
	Run(ctx context.Context, callbacks LifecycleCallbacks) (*types.BacktestResult, error)
	// RunWalkForward partitions the configured period into rolling
	// training/testing windows and runs each window as an independent backtest.
	RunWalkForward(ctx context.Context, callbacks LifecycleCallbacks) (*types.WalkForwardResult, error)
	// RunMonteCarlo bootstrap-resamples the trade PnL sequence of a completed
	// run to estimate the distribution of outcomes.
	RunMonteCarlo(ctx context.Context, base *types.BacktestResult) (*types.MonteCarloSummary, error)
	// GetConfigSchema returns the JSON schema of the engine configuration.
	GetConfigSchema() (string, error)
}
