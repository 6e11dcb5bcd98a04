package engine

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jinzhu/copier"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/quantra-lab/quantra-backtest/internal/backtest/engine"
	"github.com/quantra-lab/quantra-backtest/internal/types"
	"github.com/quantra-lab/quantra-backtest/pkg/errors"
)

const walkForwardFileName = "walk_forward.yaml"

// window is one slice of a walk-forward sweep. The training and testing halves
// of the same carve share an index.
type window struct {
	index int
	kind  types.WindowKind
	start time.Time
	end   time.Time
}

// RunWalkForward implements engine.Engine. The configured period is carved into
// rolling training/testing windows, each simulated as a fully independent run:
// fresh initial capital, fresh ledger, no state carried across windows. Windows
// fan out over a bounded worker pool; a FAILED window is recorded and excluded
// from the aggregate averages rather than aborting the sweep.
func (b *BacktestEngineV1) RunWalkForward(ctx context.Context, callbacks engine.LifecycleCallbacks) (*types.WalkForwardResult, error) {
	if err := b.preRunCheck(); err != nil {
		return nil, err
	}

	if b.config.StartTime.IsNone() || b.config.EndTime.IsNone() {
		return nil, errors.New(errors.ErrCodeWalkForward, "walk-forward requires explicit start_time and end_time")
	}

	if b.config.WalkForward.WindowSizeDays <= 0 {
		return nil, errors.New(errors.ErrCodeWalkForward, "walk-forward requires window_size_days greater than zero")
	}

	start := b.config.StartTime.Unwrap().UTC()
	end := b.config.EndTime.Unwrap().UTC()

	windows := carveWindows(start, end, b.config.WalkForward)
	if len(windows) == 0 {
		return nil, errors.Newf(errors.ErrCodeWalkForward,
			"period %s to %s is too short for a single %d day window",
			start.Format(time.RFC3339), end.Format(time.RFC3339), b.config.WalkForward.WindowSizeDays)
	}

	if err := fireBacktestStart(callbacks, len(windows)); err != nil {
		return nil, err
	}

	var sweepErr error

	defer func() { fireBacktestEnd(callbacks, sweepErr) }()

	b.log.Info("Walk-forward sweep started",
		zap.Int("windows", len(windows)),
		zap.Int("parallelism", b.config.WalkForward.Parallelism),
	)

	parallelism := b.config.WalkForward.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}

	results := make([]types.WindowResult, len(windows))
	windowErrs := make([]error, len(windows))

	sem := make(chan struct{}, parallelism)

	var wg sync.WaitGroup

	for slot := range windows {
		// Cancellation is observed between windows only; in-flight windows
		// run to completion.
		if err := ctx.Err(); err != nil {
			sweepErr = errors.Wrap(errors.ErrCodeWalkForward, "walk-forward sweep cancelled", err)

			break
		}

		w := windows[slot]

		if err := fireWindowStart(callbacks, w.index, w.kind, w.start, w.end); err != nil {
			sweepErr = err

			break
		}

		wg.Add(1)
		sem <- struct{}{}

		go func(slot int, w window) {
			defer wg.Done()
			defer func() { <-sem }()

			results[slot], windowErrs[slot] = b.runWindow(w)
		}(slot, w)
	}

	wg.Wait()

	if sweepErr != nil {
		return nil, sweepErr
	}

	// Infrastructure failures only; FAILED sub-runs land in the window result.
	for _, err := range windowErrs {
		if err != nil {
			sweepErr = err

			return nil, sweepErr
		}
	}

	for _, wr := range results {
		fireWindowEnd(callbacks, wr.Index, wr.Kind, wr.Result.State)
	}

	sweep := aggregateWindows(results)

	if b.resultsFolder != "" {
		if err := b.writeWalkForwardResult(sweep); err != nil {
			b.log.Error("Failed to write walk-forward result",
				zap.Error(err),
			)

			sweepErr = err

			return sweep, sweepErr
		}
	}

	b.log.Info("Walk-forward sweep finished",
		zap.Int("training_windows", sweep.TrainingWindows),
		zap.Int("testing_windows", sweep.TestingWindows),
		zap.Int("failed_windows", sweep.FailedWindows),
		zap.Float64("avg_training_return", sweep.AvgTrainingReturn),
		zap.Float64("avg_testing_return", sweep.AvgTestingReturn),
	)

	return sweep, nil
}

// runWindow executes one sub-window as an independent backtest. Run-level
// failures are carried inside the FAILED window result; the returned error is
// reserved for infrastructure problems like a failed config clone.
func (b *BacktestEngineV1) runWindow(w window) (types.WindowResult, error) {
	config, err := b.windowConfig(w)
	if err != nil {
		return types.WindowResult{}, err
	}

	result, _ := b.runOnce(config, engine.LifecycleCallbacks{})
	if result == nil {
		return types.WindowResult{}, errors.Newf(errors.ErrCodeWalkForward,
			"window %d %s produced no result", w.index, w.kind)
	}

	return types.WindowResult{
		Index:       w.index,
		Kind:        w.kind,
		WindowStart: w.start,
		WindowEnd:   w.end,
		Result:      *result,
	}, nil
}

// windowConfig clones the engine configuration with the window's bounds. Each
// window mutates its own copy, so concurrent windows share nothing.
func (b *BacktestEngineV1) windowConfig(w window) (BacktestConfigV1, error) {
	var clone BacktestConfigV1

	if err := copier.Copy(&clone, &b.config); err != nil {
		return BacktestConfigV1{}, errors.Wrap(errors.ErrCodeWalkForward, "failed to clone configuration", err)
	}

	clone.StartTime = optional.Some(w.start)
	clone.EndTime = optional.Some(w.end)

	return clone, nil
}

// carveWindows slices [start, end) into training/testing pairs. Training spans
// windowSize days, the testing slice that follows spans stepSize days capped at
// the period end, and the carve stops once the remaining testing span is
// shorter than minTestPeriod.
func carveWindows(start time.Time, end time.Time, config WalkForwardConfig) []window {
	windowSize := time.Duration(config.WindowSizeDays) * 24 * time.Hour
	minTest := time.Duration(config.MinTestPeriodDays) * 24 * time.Hour

	stepSize := time.Duration(config.StepSizeDays) * 24 * time.Hour
	if stepSize <= 0 {
		stepSize = windowSize
	}

	var windows []window

	index := 0

	for w := start; ; w = w.Add(stepSize) {
		trainEnd := w.Add(windowSize)
		if !trainEnd.Before(end) {
			break
		}

		testEnd := trainEnd.Add(stepSize)
		if testEnd.After(end) {
			testEnd = end
		}

		if testEnd.Sub(trainEnd) < minTest {
			break
		}

		windows = append(windows,
			window{index: index, kind: types.WindowKindTraining, start: w, end: trainEnd},
			window{index: index, kind: types.WindowKindTesting, start: trainEnd, end: testEnd},
		)
		index++
	}

	return windows
}

// aggregateWindows folds the window results into the sweep summary. Only
// completed windows contribute to the averages.
func aggregateWindows(results []types.WindowResult) *types.WalkForwardResult {
	sweep := &types.WalkForwardResult{Windows: results}

	for _, wr := range results {
		if wr.Result.State != types.RunStateCompleted {
			sweep.FailedWindows++

			continue
		}

		switch wr.Kind {
		case types.WindowKindTraining:
			sweep.TrainingWindows++
			sweep.AvgTrainingReturn += wr.Result.Metrics.TotalReturn
		case types.WindowKindTesting:
			sweep.TestingWindows++
			sweep.AvgTestingReturn += wr.Result.Metrics.TotalReturn
		}
	}

	if sweep.TrainingWindows > 0 {
		sweep.AvgTrainingReturn /= float64(sweep.TrainingWindows)
	}

	if sweep.TestingWindows > 0 {
		sweep.AvgTestingReturn /= float64(sweep.TestingWindows)
	}

	return sweep
}

func (b *BacktestEngineV1) writeWalkForwardResult(sweep *types.WalkForwardResult) error {
	strategyName := string(b.config.Strategy.Kind)
	if b.strategy != nil {
		strategyName = b.strategy.Name()
	}

	folder := filepath.Join(b.resultsFolder, strategyName)
	if err := os.MkdirAll(folder, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeResultsWrite, "failed to create results folder", err)
	}

	path := filepath.Join(folder, walkForwardFileName)
	if err := types.WriteWalkForwardResult(path, sweep); err != nil {
		return errors.Wrap(errors.ErrCodeResultsWrite, "failed to write walk-forward result", err)
	}

	return nil
}
