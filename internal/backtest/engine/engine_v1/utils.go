package engine

import (
	"fmt"
	"path/filepath"

	"github.com/quantra-lab/quantra-backtest/internal/types"
)

// getResultFolder builds the folder a run's artifacts land in:
// <resultsFolder>/<strategy>/<timeRange>/<runID>. The time range folder reads
// like "20240101_20241231" with "all" standing in for an unbounded side, and
// is omitted entirely for fully unbounded runs. The run ID is deterministic,
// so re-running an identical configuration overwrites its own results.
func getResultFolder(resultsFolder string, result *types.BacktestResult) string {
	strategyFolder := filepath.Join(resultsFolder, result.Config.Strategy)

	var rangeFolder string

	if !result.Config.Start.IsZero() || !result.Config.End.IsZero() {
		startStr := "all"
		endStr := "all"

		if !result.Config.Start.IsZero() {
			startStr = result.Config.Start.Format("20060102")
		}

		if !result.Config.End.IsZero() {
			endStr = result.Config.End.Format("20060102")
		}

		timeRange := fmt.Sprintf("%s_%s", startStr, endStr)
		rangeFolder = filepath.Join(strategyFolder, timeRange)
	} else {
		rangeFolder = strategyFolder
	}

	return filepath.Join(rangeFolder, result.RunID)
}
