package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/quantra-lab/quantra-backtest/internal/backtest/engine"
	enginev1 "github.com/quantra-lab/quantra-backtest/internal/backtest/engine/engine_v1"
	"github.com/quantra-lab/quantra-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/quantra-lab/quantra-backtest/internal/logger"
	"github.com/quantra-lab/quantra-backtest/internal/types"
)

// engineFlags are shared by every subcommand that executes a backtest.
var engineFlags = []cli.Flag{
	&cli.StringFlag{
		Name:     "config",
		Aliases:  []string{"c"},
		Usage:    "Path to the backtest configuration YAML",
		Required: true,
	},
	&cli.StringFlag{
		Name:     "data",
		Aliases:  []string{"d"},
		Usage:    "Path to the market data Parquet file",
		Required: true,
	},
	&cli.StringFlag{
		Name:    "results",
		Aliases: []string{"r"},
		Usage:   "Results output directory, overriding the configured one",
	},
}

// setupEngine builds an initialized engine wired to the Parquet data source.
func setupEngine(cmd *cli.Command) (engine.Engine, error) {
	configBytes, err := os.ReadFile(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", cmd.String("config"), err)
	}

	backtester := enginev1.NewBacktestEngineV1()
	if err := backtester.Initialize(string(configBytes)); err != nil {
		return nil, fmt.Errorf("failed to initialize backtest engine: %w", err)
	}

	l, err := logger.NewLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	source, err := datasource.NewDataSource(":memory:", l)
	if err != nil {
		return nil, fmt.Errorf("failed to open data source: %w", err)
	}

	if err := source.Initialize(cmd.String("data")); err != nil {
		return nil, fmt.Errorf("failed to attach market data %s: %w", cmd.String("data"), err)
	}

	if err := backtester.SetDataSource(source); err != nil {
		return nil, err
	}

	if folder := cmd.String("results"); folder != "" {
		if err := backtester.SetResultsFolder(folder); err != nil {
			return nil, err
		}
	}

	return backtester, nil
}

// progressCallbacks renders a terminal progress bar over the run lifecycle.
func progressCallbacks() engine.LifecycleCallbacks {
	var bar *progressbar.ProgressBar

	onRunStart := engine.OnRunStartCallback(func(_ string, strategyName string, totalSteps int) error {
		bar = progressbar.Default(int64(totalSteps), fmt.Sprintf("Backtesting %s", strategyName))

		return nil
	})

	onProcessData := engine.OnProcessDataCallback(func(current int, _ int) error {
		if bar != nil {
			return bar.Set(current)
		}

		return nil
	})

	onRunEnd := engine.OnRunEndCallback(func(_ string, _ types.RunState, _ string) {
		if bar != nil {
			_ = bar.Finish()
		}
	})

	return engine.LifecycleCallbacks{
		OnRunStart:    &onRunStart,
		OnProcessData: &onProcessData,
		OnRunEnd:      &onRunEnd,
	}
}

func printRunSummary(result *types.BacktestResult) {
	fmt.Printf("Run %s finished: %s\n", result.RunID, result.State)
	fmt.Printf("  Period:          %s to %s\n", result.Config.Start.Format("2006-01-02"), result.Config.End.Format("2006-01-02"))
	fmt.Printf("  Initial capital: %.2f\n", result.InitialCapital)
	fmt.Printf("  Final capital:   %.2f\n", result.FinalCapital)
	fmt.Printf("  Total return:    %.2f%%\n", result.Metrics.TotalReturn*100)
	fmt.Printf("  Sharpe ratio:    %.2f\n", result.Metrics.SharpeRatio)
	fmt.Printf("  Max drawdown:    %.2f%%\n", result.Metrics.MaxDrawdown*100)
	fmt.Printf("  Trades:          %d (win rate %.1f%%)\n", result.Metrics.TotalTrades, result.Metrics.WinRate*100)
	fmt.Printf("  Total fees:      %.2f\n", result.Metrics.TotalFees)
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	backtester, err := setupEngine(cmd)
	if err != nil {
		return err
	}

	result, err := backtester.Run(ctx, progressCallbacks())
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	printRunSummary(result)

	return nil
}

func walkForwardAction(ctx context.Context, cmd *cli.Command) error {
	backtester, err := setupEngine(cmd)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar

	onBacktestStart := engine.OnBacktestStartCallback(func(totalRuns int) error {
		bar = progressbar.Default(int64(totalRuns), "Walk-forward windows")

		return nil
	})

	onWindowEnd := engine.OnWindowEndCallback(func(_ int, _ types.WindowKind, _ types.RunState) {
		if bar != nil {
			_ = bar.Add(1)
		}
	})

	callbacks := engine.LifecycleCallbacks{
		OnBacktestStart: &onBacktestStart,
		OnWindowEnd:     &onWindowEnd,
	}

	sweep, err := backtester.RunWalkForward(ctx, callbacks)
	if err != nil {
		return fmt.Errorf("walk-forward analysis failed: %w", err)
	}

	if bar != nil {
		_ = bar.Finish()
	}

	fmt.Printf("Walk-forward finished: %d training / %d testing windows (%d failed)\n",
		sweep.TrainingWindows, sweep.TestingWindows, sweep.FailedWindows)
	fmt.Printf("  Avg training return: %.2f%%\n", sweep.AvgTrainingReturn*100)
	fmt.Printf("  Avg testing return:  %.2f%%\n", sweep.AvgTestingReturn*100)

	if sweep.TrainingWindows > 0 && sweep.AvgTrainingReturn > 0 {
		fmt.Printf("  Testing/training efficiency: %.2f\n", sweep.AvgTestingReturn/sweep.AvgTrainingReturn)
	}

	return nil
}

func monteCarloAction(ctx context.Context, cmd *cli.Command) error {
	backtester, err := setupEngine(cmd)
	if err != nil {
		return err
	}

	result, err := backtester.Run(ctx, progressCallbacks())
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	printRunSummary(result)

	summary, err := backtester.RunMonteCarlo(ctx, result)
	if err != nil {
		return fmt.Errorf("monte carlo simulation failed: %w", err)
	}

	fmt.Printf("Monte Carlo (%d simulations, seed %d):\n", summary.Simulations, summary.Seed)
	fmt.Printf("  Expected PnL:    %.2f +/- %.2f\n", summary.ExpectedReturn, summary.ExpectedVolatility)
	fmt.Printf("  %.0f%% interval:    [%.2f, %.2f]\n", summary.Confidence*100, summary.WorstCase, summary.BestCase)
	fmt.Printf("  P(loss):         %.1f%%\n", summary.ProbabilityOfLoss*100)
	fmt.Printf("  P(drawdown>%.0f%%): %.1f%%\n", summary.DrawdownThreshold*100, summary.ProbabilityOfDrawdown*100)

	return nil
}

func schemaAction(_ context.Context, _ *cli.Command) error {
	backtester := enginev1.NewBacktestEngineV1()

	schema, err := backtester.GetConfigSchema()
	if err != nil {
		return fmt.Errorf("failed to generate config schema: %w", err)
	}

	fmt.Println(schema)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "Run historical strategy backtests",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run a single backtest over the configured period",
				Flags:  engineFlags,
				Action: runAction,
			},
			{
				Name:   "walkforward",
				Usage:  "Run a rolling walk-forward analysis",
				Flags:  engineFlags,
				Action: walkForwardAction,
			},
			{
				Name:   "montecarlo",
				Usage:  "Run a backtest and bootstrap-resample its trade outcomes",
				Flags:  engineFlags,
				Action: monteCarloAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the configuration JSON schema",
				Action: schemaAction,
			},
		},
	}

	// Ctrl-C stops between runs; a run in flight finishes its window first.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
