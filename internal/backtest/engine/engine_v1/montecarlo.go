package engine

import (
	"context"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/quantra-lab/quantra-backtest/internal/types"
	"github.com/quantra-lab/quantra-backtest/pkg/errors"
)

const monteCarloFileName = "monte_carlo.yaml"

// RunMonteCarlo implements engine.Engine. It bootstrap-resamples the base
// run's realized trade PnL sequence: each iteration draws len(trades) values
// with replacement, sums them to a simulated total, and replays the drawn
// sequence as a mini equity curve to detect drawdown breaches. Trades are
// treated as exchangeable, an approximation that ignores any serial dependence
// between them.
//
// Every iteration owns a generator seeded with seed+iteration, so the summary
// is reproducible at any parallelism.
func (b *BacktestEngineV1) RunMonteCarlo(ctx context.Context, base *types.BacktestResult) (*types.MonteCarloSummary, error) {
	if !b.initialized {
		return nil, errors.New(errors.ErrCodeBacktestNotInitialized, "engine is not initialized, call Initialize first")
	}

	if base == nil {
		return nil, errors.New(errors.ErrCodeMonteCarlo, "monte carlo requires a base result")
	}

	if base.State != types.RunStateCompleted {
		return nil, errors.Newf(errors.ErrCodeMonteCarlo, "cannot resample a %s run", base.State)
	}

	if len(base.Trades) == 0 {
		return nil, errors.New(errors.ErrCodeMonteCarlo, "cannot resample a run with no trades")
	}

	config := b.config.MonteCarlo

	pnls := make([]float64, len(base.Trades))
	for i := range base.Trades {
		pnls[i] = base.Trades[i].RealizedPnL
	}

	b.log.Info("Monte carlo resampling started",
		zap.String("run_id", base.RunID),
		zap.Int("simulations", config.Simulations),
		zap.Int("trades", len(pnls)),
		zap.Int64("seed", config.Seed),
	)

	parallelism := config.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}

	totals := make([]float64, config.Simulations)
	breached := make([]bool, config.Simulations)

	sem := make(chan struct{}, parallelism)

	var wg sync.WaitGroup

	var runErr error

	for i := 0; i < config.Simulations; i++ {
		if err := ctx.Err(); err != nil {
			runErr = errors.Wrap(errors.ErrCodeMonteCarlo, "monte carlo resampling cancelled", err)

			break
		}

		wg.Add(1)
		sem <- struct{}{}

		go func(iteration int) {
			defer wg.Done()
			defer func() { <-sem }()

			totals[iteration], breached[iteration] = resamplePath(
				rand.New(rand.NewSource(config.Seed+int64(iteration))),
				pnls,
				base.InitialCapital,
				config.DrawdownThreshold,
			)
		}(i)
	}

	wg.Wait()

	if runErr != nil {
		return nil, runErr
	}

	summary := summarizeTotals(totals, breached)
	summary.Simulations = config.Simulations
	summary.Confidence = config.Confidence
	summary.Seed = config.Seed
	summary.DrawdownThreshold = config.DrawdownThreshold

	if b.resultsFolder != "" {
		if err := b.writeMonteCarloSummary(base, summary); err != nil {
			b.log.Error("Failed to write monte carlo summary",
				zap.Error(err),
			)

			return summary, err
		}
	}

	b.log.Info("Monte carlo resampling finished",
		zap.Float64("expected_return", summary.ExpectedReturn),
		zap.Float64("probability_of_loss", summary.ProbabilityOfLoss),
		zap.Float64("probability_of_drawdown", summary.ProbabilityOfDrawdown),
	)

	return summary, nil
}

// resamplePath draws len(pnls) trades with replacement and walks the drawn
// sequence as an equity curve. It returns the summed PnL and whether the
// path's running drawdown ever exceeded threshold.
func resamplePath(rng *rand.Rand, pnls []float64, initialCapital float64, threshold float64) (float64, bool) {
	total := 0.0
	equity := initialCapital
	hwm := initialCapital
	maxDrawdown := 0.0

	for range pnls {
		pnl := pnls[rng.Intn(len(pnls))]

		total += pnl
		equity += pnl

		if equity > hwm {
			hwm = equity
		}

		if hwm > 0 {
			if drawdown := (hwm - equity) / hwm; drawdown > maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}

	return total, maxDrawdown > threshold
}

// summarizeTotals folds the simulated totals into the distribution summary.
func summarizeTotals(totals []float64, breached []bool) *types.MonteCarloSummary {
	summary := &types.MonteCarloSummary{
		BestCase:  math.Inf(-1),
		WorstCase: math.Inf(1),
	}

	losses := 0
	drawdowns := 0

	for i, total := range totals {
		if total > summary.BestCase {
			summary.BestCase = total
		}

		if total < summary.WorstCase {
			summary.WorstCase = total
		}

		if total < 0 {
			losses++
		}

		if breached[i] {
			drawdowns++
		}
	}

	summary.ExpectedReturn = stat.Mean(totals, nil)
	summary.ProbabilityOfLoss = float64(losses) / float64(len(totals))
	summary.ProbabilityOfDrawdown = float64(drawdowns) / float64(len(totals))

	if len(totals) >= 2 {
		summary.ExpectedVolatility = stat.StdDev(totals, nil)
	}

	return summary
}

func (b *BacktestEngineV1) writeMonteCarloSummary(base *types.BacktestResult, summary *types.MonteCarloSummary) error {
	folder := filepath.Join(b.resultsFolder, base.Config.Strategy)
	if err := os.MkdirAll(folder, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeResultsWrite, "failed to create results folder", err)
	}

	path := filepath.Join(folder, monteCarloFileName)
	if err := types.WriteMonteCarloSummary(path, summary); err != nil {
		return errors.Wrap(errors.ErrCodeResultsWrite, "failed to write monte carlo summary", err)
	}

	return nil
}
