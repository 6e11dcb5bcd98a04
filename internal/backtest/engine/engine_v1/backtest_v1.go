package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/quantra-lab/quantra-backtest/internal/backtest/engine"
	"github.com/quantra-lab/quantra-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/quantra-lab/quantra-backtest/internal/backtest/engine/engine_v1/fees"
	"github.com/quantra-lab/quantra-backtest/internal/logger"
	"github.com/quantra-lab/quantra-backtest/internal/strategy"
	"github.com/quantra-lab/quantra-backtest/internal/types"
	"github.com/quantra-lab/quantra-backtest/pkg/errors"
)

// BacktestEngineV1 replays historical bars through a signal source one time
// step at a time. Every run owns a fresh run context (ledger, equity curve,
// drawdown tracker), so a single engine value serves sequential runs and
// walk-forward fan-out without leaking state between them.
type BacktestEngineV1 struct {
	config        BacktestConfigV1
	strategy      strategy.SignalSource
	datasource    datasource.DataSource
	resultsFolder string
	log           *logger.Logger
	initialized   bool
}

// NewBacktestEngineV1 creates an uninitialized engine. Initialize must be
// called with a configuration before any run.
func NewBacktestEngineV1() engine.Engine {
	return &BacktestEngineV1{
		config: EmptyConfig(),
	}
}

// Initialize implements engine.Engine.
func (b *BacktestEngineV1) Initialize(config string) error {
	if err := yaml.Unmarshal([]byte(config), &b.config); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse configuration", err)
	}

	var loggerError error

	b.log, loggerError = logger.NewLogger()
	if loggerError != nil {
		return loggerError
	}

	if err := b.config.Validate(); err != nil {
		return err
	}

	if b.config.ResultsFolder != "" {
		b.resultsFolder = b.config.ResultsFolder
	}

	b.initialized = true

	b.log.Debug("Backtest engine initialized",
		zap.String("strategy", string(b.config.Strategy.Kind)),
		zap.String("interval", string(b.config.Interval)),
		zap.Float64("initial_capital", b.config.InitialCapital),
	)

	return nil
}

// SetStrategy implements engine.Engine.
func (b *BacktestEngineV1) SetStrategy(source strategy.SignalSource) error {
	if source == nil {
		return errors.New(errors.ErrCodeBacktestNoStrategy, "strategy must not be nil")
	}

	b.strategy = source

	if b.log != nil {
		b.log.Debug("Strategy set",
			zap.String("name", source.Name()),
		)
	}

	return nil
}

// SetDataSource implements engine.Engine.
func (b *BacktestEngineV1) SetDataSource(source datasource.DataSource) error {
	if source == nil {
		return errors.New(errors.ErrCodeBacktestNoDatasource, "data source must not be nil")
	}

	b.datasource = source

	return nil
}

// SetResultsFolder implements engine.Engine.
func (b *BacktestEngineV1) SetResultsFolder(folder string) error {
	b.resultsFolder = folder

	if b.log != nil {
		b.log.Debug("Results folder set",
			zap.String("folder", folder),
		)
	}

	return nil
}

// GetConfigSchema implements engine.Engine.
func (b *BacktestEngineV1) GetConfigSchema() (string, error) {
	config := b.config

	schema, err := config.GenerateSchemaJSON()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to generate schema", err)
	}

	return schema, nil
}

// Run implements engine.Engine.
func (b *BacktestEngineV1) Run(ctx context.Context, callbacks engine.LifecycleCallbacks) (*types.BacktestResult, error) {
	if err := b.preRunCheck(); err != nil {
		return nil, err
	}

	if err := fireBacktestStart(callbacks, 1); err != nil {
		return nil, err
	}

	var result *types.BacktestResult

	var runErr error

	defer func() { fireBacktestEnd(callbacks, runErr) }()

	// The context is observed between runs only, never mid-run.
	if runErr = ctx.Err(); runErr != nil {
		return nil, runErr
	}

	result, runErr = b.runOnce(b.config, callbacks)

	return result, runErr
}

// runOnce executes one complete simulation over the given configuration.
// Run-level failures (no data, strategy errors) come back as a FAILED result
// plus the error that caused it; a nil result means the run never started.
func (b *BacktestEngineV1) runOnce(config BacktestConfigV1, callbacks engine.LifecycleCallbacks) (*types.BacktestResult, error) {
	var start, end time.Time

	if config.StartTime.IsSome() {
		start = config.StartTime.Unwrap().UTC()
	}

	if config.EndTime.IsSome() {
		end = config.EndTime.Unwrap().UTC()
	}

	source, strategyErr := b.resolveStrategy(config)

	strategyName := string(config.Strategy.Kind)
	if strategyErr == nil {
		strategyName = source.Name()
	}

	runConfig := types.RunConfig{
		Strategy:       strategyName,
		Symbols:        config.Symbols,
		Interval:       config.Interval,
		Start:          start,
		End:            end,
		InitialCapital: config.InitialCapital,
		RiskFreeRate:   config.RiskFreeRate,
		FeeAccounting:  config.FeeAccounting,
	}

	runID := computeRunID(runConfig)
	ledger := NewPositionLedger(
		config.InitialCapital,
		fees.GetCalculator(config.Fees),
		config.FeeAccounting,
		uuid.MustParse(runID),
		b.log,
	)
	rc := newRunContext(runID, runConfig, ledger)

	if strategyErr != nil {
		rc.fail(strategyErr)
	} else if abort := b.simulate(rc, source, config, callbacks); abort != nil {
		return nil, abort
	}

	result := rc.finalize(config.RiskFreeRate)

	resultFolderPath := ""

	var writeErr error

	if result.State == types.RunStateCompleted && b.resultsFolder != "" {
		resultFolderPath, writeErr = b.writeResults(result)
		if writeErr != nil {
			b.log.Error("Failed to write results",
				zap.String("run_id", runID),
				zap.Error(writeErr),
			)
		}
	}

	fireRunEnd(callbacks, runID, result.State, resultFolderPath)

	b.log.Info("Run finished",
		zap.String("run_id", runID),
		zap.String("state", string(result.State)),
		zap.Float64("final_capital", result.FinalCapital),
		zap.Int("trades", len(result.Trades)),
	)

	if rc.runErr != nil {
		return result, rc.runErr
	}

	return result, writeErr
}

// simulate drives the step loop, mutating the run context. Run failures are
// recorded on the context; the only non-nil return is a callback abort.
func (b *BacktestEngineV1) simulate(rc *runContext, source strategy.SignalSource, config BacktestConfigV1, callbacks engine.LifecycleCallbacks) error {
	bars, err := b.datasource.GetBars(config.Symbols, rc.config.Start, rc.config.End)
	if err != nil {
		rc.fail(errors.Wrap(errors.ErrCodeQueryFailed, "failed to load bars", err))

		return nil
	}

	if len(bars) == 0 {
		noData := errors.NewNoHistoricalDataErrorf(config.Symbols, rc.config.Start, rc.config.End,
			"no bars for symbols %v in the requested window", config.Symbols)
		rc.fail(errors.Wrap(errors.ErrCodeNoHistoricalData, "no historical data", noData))

		return nil
	}

	steps, err := GroupBars(bars, config.Interval)
	if err != nil {
		rc.fail(err)

		return nil
	}

	if err := fireRunStart(callbacks, rc.runID, source.Name(), len(steps)); err != nil {
		return err
	}

	b.log.Info("Run started",
		zap.String("run_id", rc.runID),
		zap.String("strategy", source.Name()),
		zap.Int("bars", len(bars)),
		zap.Int("steps", len(steps)),
	)

	sorted := make([]types.Bar, len(bars))
	copy(sorted, bars)
	SortBars(sorted)

	history := make([]types.Bar, 0, len(sorted))
	cursor := 0

	for i, step := range steps {
		// The strategy sees every bar bucketed at or before this step and
		// nothing later.
		for cursor < len(sorted) && !config.Interval.Bucket(sorted[cursor].Time).After(step.Time) {
			history = append(history, sorted[cursor])
			cursor++
		}

		signals, err := source.GenerateSignals(history)
		if err != nil {
			rc.fail(errors.Wrap(errors.ErrCodeCollaborator, "strategy failed to generate signals", err))

			return nil
		}

		// Exit levels only apply to positions that existed before this
		// step's signals, so an entry never exits on its own bar.
		sweepable := rc.ledger.OpenPositions()

		if err := b.applySignals(rc, step, signals); err != nil {
			rc.fail(err)

			return nil
		}

		if err := b.sweepExits(rc, step, sweepable); err != nil {
			rc.fail(err)

			return nil
		}

		rc.observePrices(step)
		rc.recordStep(step.Time)

		if err := fireProcessData(callbacks, i+1, len(steps)); err != nil {
			return err
		}
	}

	if err := rc.ledger.ForceCloseAll(rc.lastPrices, steps[len(steps)-1].Time); err != nil {
		rc.fail(errors.Wrap(errors.ErrCodeCollaborator, "failed to close remaining positions", err))
	}

	return nil
}

// applySignals resolves each signal against the step's bars and applies it to
// the ledger. Signals without a bar this step and signals failing validation
// are skipped and logged, never fatal.
func (b *BacktestEngineV1) applySignals(rc *runContext, step TimeStep, signals []types.Signal) error {
	for _, signal := range signals {
		bar, ok := step.Bar(signal.Symbol)
		if !ok {
			b.log.Debug("Signal skipped, no bar for symbol at this step",
				zap.String("symbol", signal.Symbol),
				zap.Time("step", step.Time),
			)

			continue
		}

		if err := signal.Validate(); err != nil {
			b.log.Warn("Signal skipped, failed validation",
				zap.String("symbol", signal.Symbol),
				zap.Error(err),
			)

			continue
		}

		var err error

		switch signal.Action {
		case types.SignalActionBuy:
			err = rc.ledger.Open(signal, bar.Close, step.Time)
		case types.SignalActionSell:
			err = rc.ledger.Close(signal.Symbol, bar.Close, types.CloseReasonSignal, step.Time)
		}

		if err != nil {
			return errors.Wrap(errors.ErrCodeCollaborator, "ledger rejected signal", err)
		}
	}

	return nil
}

// sweepExits closes positions whose stop-loss or target the current step's
// bar range crossed. Fills happen at the bar's close, like every other fill.
func (b *BacktestEngineV1) sweepExits(rc *runContext, step TimeStep, positions []types.Position) error {
	for _, position := range positions {
		bar, ok := step.Bar(position.Symbol)
		if !ok {
			continue
		}

		// A signal may have closed it this step already.
		if _, stillOpen := rc.ledger.Position(position.Symbol); !stillOpen {
			continue
		}

		reason, hit := exitLevelHit(position, bar)
		if !hit {
			continue
		}

		if err := rc.ledger.Close(position.Symbol, bar.Close, reason, step.Time); err != nil {
			return errors.Wrap(errors.ErrCodeCollaborator, "failed to close position at exit level", err)
		}

		b.log.Debug("Exit level hit",
			zap.String("symbol", position.Symbol),
			zap.String("reason", string(reason)),
			zap.Time("step", step.Time),
		)
	}

	return nil
}

// exitLevelHit reports whether the bar's range crossed the position's
// stop-loss or target. The stop wins when one bar crosses both.
func exitLevelHit(position types.Position, bar types.Bar) (types.CloseReason, bool) {
	if position.StopLoss.IsSome() && bar.Low <= position.StopLoss.Unwrap() {
		return types.CloseReasonStopLoss, true
	}

	if position.Target.IsSome() && bar.High >= position.Target.Unwrap() {
		return types.CloseReasonTarget, true
	}

	return "", false
}

// resolveStrategy prefers an explicitly set strategy and falls back to the
// kind named in the configuration.
func (b *BacktestEngineV1) resolveStrategy(config BacktestConfigV1) (strategy.SignalSource, error) {
	if b.strategy != nil {
		return b.strategy, nil
	}

	return strategy.New(config.Strategy)
}

func (b *BacktestEngineV1) writeResults(result *types.BacktestResult) (string, error) {
	folder := getResultFolder(b.resultsFolder, result)

	if err := WriteRunResults(result, folder); err != nil {
		return "", err
	}

	return folder, nil
}

func (b *BacktestEngineV1) preRunCheck() error {
	if !b.initialized {
		return errors.New(errors.ErrCodeBacktestNotInitialized, "engine is not initialized, call Initialize first")
	}

	if b.datasource == nil {
		return errors.New(errors.ErrCodeBacktestNoDatasource, "no data source set")
	}

	if b.strategy == nil && b.config.Strategy.Kind == "" {
		return errors.New(errors.ErrCodeBacktestNoStrategy, "no strategy set and none named in the configuration")
	}

	return nil
}

func fireBacktestStart(callbacks engine.LifecycleCallbacks, totalRuns int) error {
	if callbacks.OnBacktestStart == nil {
		return nil
	}

	return (*callbacks.OnBacktestStart)(totalRuns)
}

func fireBacktestEnd(callbacks engine.LifecycleCallbacks, err error) {
	if callbacks.OnBacktestEnd == nil {
		return
	}

	(*callbacks.OnBacktestEnd)(err)
}

func fireRunStart(callbacks engine.LifecycleCallbacks, runID string, strategyName string, totalSteps int) error {
	if callbacks.OnRunStart == nil {
		return nil
	}

	return (*callbacks.OnRunStart)(runID, strategyName, totalSteps)
}

func fireRunEnd(callbacks engine.LifecycleCallbacks, runID string, state types.RunState, resultFolderPath string) {
	if callbacks.OnRunEnd == nil {
		return
	}

	(*callbacks.OnRunEnd)(runID, state, resultFolderPath)
}

func fireProcessData(callbacks engine.LifecycleCallbacks, current int, total int) error {
	if callbacks.OnProcessData == nil {
		return nil
	}

	return (*callbacks.OnProcessData)(current, total)
}

func fireWindowStart(callbacks engine.LifecycleCallbacks, index int, kind types.WindowKind, start time.Time, end time.Time) error {
	if callbacks.OnWindowStart == nil {
		return nil
	}

	return (*callbacks.OnWindowStart)(index, kind, start, end)
}

func fireWindowEnd(callbacks engine.LifecycleCallbacks, index int, kind types.WindowKind, state types.RunState) {
	if callbacks.OnWindowEnd == nil {
		return
	}

	(*callbacks.OnWindowEnd)(index, kind, state)
}
