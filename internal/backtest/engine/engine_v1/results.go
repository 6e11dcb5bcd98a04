package engine

import (
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Masterminds/squirrel"
	"github.com/gocarina/gocsv"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/quantra-lab/quantra-backtest/internal/types"
	"github.com/quantra-lab/quantra-backtest/pkg/errors"
)

const (
	resultFileName        = "result.yaml"
	tradesCSVFileName     = "trades.csv"
	equityCSVFileName     = "equity.csv"
	tradesParquetFileName = "trades.parquet"
)

// WriteRunResults persists one finished run under folder: result.yaml with the
// full BacktestResult, trades.csv and equity.csv for spreadsheet tooling, and
// trades.parquet for downstream analytics.
func WriteRunResults(result *types.BacktestResult, folder string) error {
	if err := os.MkdirAll(folder, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeResultsWrite, "failed to create results folder", err)
	}

	if err := types.WriteBacktestResult(filepath.Join(folder, resultFileName), result); err != nil {
		return errors.Wrap(errors.ErrCodeResultsWrite, "failed to write result file", err)
	}

	if err := writeCSVFile(filepath.Join(folder, tradesCSVFileName), &result.Trades); err != nil {
		return err
	}

	if err := writeCSVFile(filepath.Join(folder, equityCSVFileName), &result.EquityCurve); err != nil {
		return err
	}

	return writeTradesParquet(filepath.Join(folder, tradesParquetFileName), result.Trades)
}

func writeCSVFile(path string, rows any) error {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeResultsWrite, err, "failed to create %s", filepath.Base(path))
	}
	defer file.Close()

	if err := gocsv.MarshalFile(rows, file); err != nil {
		return errors.Wrapf(errors.ErrCodeResultsWrite, err, "failed to write %s", filepath.Base(path))
	}
	return nil
}

// writeTradesParquet stages the trade list in a transient in-memory DuckDB
// table and exports it with COPY, the same way market data lands on disk.
func writeTradesParquet(path string, trades []types.Trade) error {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultsWrite, "failed to open staging database", err)
	}
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE trades (
		id TEXT,
		symbol TEXT,
		side TEXT,
		entry_time TIMESTAMP,
		exit_time TIMESTAMP,
		entry_price DOUBLE,
		exit_price DOUBLE,
		quantity DOUBLE,
		gross_pnl DOUBLE,
		fees DOUBLE,
		realized_pnl DOUBLE,
		close_reason TEXT
	)`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultsWrite, "failed to create trades table", err)
	}

	sq := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	for _, trade := range trades {
		insert := sq.
			Insert("trades").
			Columns(
				"id", "symbol", "side", "entry_time", "exit_time",
				"entry_price", "exit_price", "quantity",
				"gross_pnl", "fees", "realized_pnl", "close_reason",
			).
			Values(
				trade.ID, trade.Symbol, string(trade.Side), trade.EntryTime, trade.ExitTime,
				trade.EntryPrice, trade.ExitPrice, trade.Quantity,
				trade.GrossPnL, trade.Fees, trade.RealizedPnL, string(trade.CloseReason),
			).
			RunWith(db)
		if _, err := insert.Exec(); err != nil {
			return errors.Wrapf(errors.ErrCodeResultsWrite, err, "failed to stage trade %s", trade.ID)
		}
	}

	// Squirrel has no COPY support, so the export stays raw SQL.
	if _, err := db.Exec(fmt.Sprintf(`COPY trades TO '%s' (FORMAT PARQUET)`, path)); err != nil {
		return errors.Wrap(errors.ErrCodeResultsWrite, "failed to export trades to parquet", err)
	}
	return nil
}

// ResultEntry pairs a loaded result with the folder it was read from.
type ResultEntry struct {
	Folder string
	Result *types.BacktestResult
}

// ListResults walks resultsFolder for result files and loads each one. Entries
// come back ordered by folder path, so listings are stable run to run.
func ListResults(resultsFolder string) ([]ResultEntry, error) {
	info, err := os.Stat(resultsFolder)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeBacktestNoResultsDir, err, "results folder %s is not accessible", resultsFolder)
	}
	if !info.IsDir() {
		return nil, errors.Newf(errors.ErrCodeBacktestNoResultsDir, "results folder %s is not a directory", resultsFolder)
	}

	var entries []ResultEntry
	walkErr := filepath.WalkDir(resultsFolder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrap(errors.ErrCodeResultsRead, "failed to walk results folder", err)
		}
		if d.IsDir() || d.Name() != resultFileName {
			return nil
		}
		result, err := types.LoadBacktestResult(path)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeResultsRead, err, "failed to load %s", path)
		}
		entries = append(entries, ResultEntry{Folder: filepath.Dir(path), Result: result})
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return entries, nil
}
