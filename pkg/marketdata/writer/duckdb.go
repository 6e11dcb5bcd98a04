package writer

import (
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/quantra-lab/quantra-backtest/internal/types"
	"github.com/quantra-lab/quantra-backtest/pkg/errors"
)

// DuckDBWriter stages bars in an in-memory DuckDB table and exports them to
// a Parquet file on Finalize. The column layout matches what the backtest
// data source reads, so a downloaded file feeds straight into a run.
type DuckDBWriter struct {
	db         *sql.DB
	tx         *sql.Tx
	stmt       *sql.Stmt
	outputPath string
}

// NewDuckDBWriter creates a writer that exports to outputPath.
func NewDuckDBWriter(outputPath string) MarketDataWriter {
	return &DuckDBWriter{
		outputPath: outputPath,
	}
}

// Initialize opens the staging database, creates the bar table, begins a
// transaction and prepares the insert statement reused for every Write.
func (w *DuckDBWriter) Initialize() (err error) {
	w.db, err = sql.Open("duckdb", ":memory:")
	if err != nil {
		return errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to open staging database", err)
	}

	_, err = w.db.Exec(`
		CREATE TABLE IF NOT EXISTS market_data (
			time TIMESTAMP,
			symbol TEXT,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE
		)
	`)
	if err != nil {
		w.db.Close()

		return errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to create staging table", err)
	}

	w.tx, err = w.db.Begin()
	if err != nil {
		w.db.Close()

		return errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to begin transaction", err)
	}

	// Squirrel builds the statement once; the prepared form is what every
	// Write executes.
	insertSQL, _, err := squirrel.
		Insert("market_data").
		Columns("time", "symbol", "open", "high", "low", "close", "volume").
		Values(nil, nil, nil, nil, nil, nil, nil).
		ToSql()
	if err != nil {
		w.tx.Rollback()
		w.db.Close()

		return errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to build insert statement", err)
	}

	w.stmt, err = w.tx.Prepare(insertSQL)
	if err != nil {
		w.tx.Rollback()
		w.db.Close()

		return errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to prepare insert statement", err)
	}

	return nil
}

// Write stages a single bar inside the open transaction.
func (w *DuckDBWriter) Write(bar types.Bar) error {
	if w.stmt == nil {
		return errors.New(errors.ErrCodeMarketDataWriteFailed, "writer is not initialized, call Initialize first")
	}

	_, err := w.stmt.Exec(
		bar.Time,
		bar.Symbol,
		bar.Open,
		bar.High,
		bar.Low,
		bar.Close,
		bar.Volume,
	)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeMarketDataWriteFailed, err, "failed to stage bar %s %s", bar.Symbol, bar.Time)
	}

	return nil
}

// Finalize commits the staged bars and exports them to the Parquet file.
func (w *DuckDBWriter) Finalize() (string, error) {
	if w.tx == nil {
		return "", errors.New(errors.ErrCodeMarketDataWriteFailed, "writer is not initialized or already finalized")
	}

	if err := w.tx.Commit(); err != nil {
		w.tx.Rollback()

		return "", errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to commit staged bars", err)
	}

	w.tx = nil

	// Squirrel has no COPY support, so the export stays raw SQL.
	if _, err := w.db.Exec(fmt.Sprintf(`COPY market_data TO '%s' (FORMAT PARQUET)`, w.outputPath)); err != nil {
		return "", errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to export bars to parquet", err)
	}

	return w.outputPath, nil
}

// Close releases the statement, transaction and database. Bars staged after
// the last Finalize are rolled back.
func (w *DuckDBWriter) Close() error {
	var closeErrs []error

	if w.stmt != nil {
		if err := w.stmt.Close(); err != nil {
			closeErrs = append(closeErrs, err)
		}

		w.stmt = nil
	}

	if w.tx != nil {
		if err := w.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			closeErrs = append(closeErrs, err)
		}

		w.tx = nil
	}

	if w.db != nil {
		if err := w.db.Close(); err != nil {
			closeErrs = append(closeErrs, err)
		}

		w.db = nil
	}

	if len(closeErrs) > 0 {
		return errors.Wrapf(errors.ErrCodeMarketDataWriteFailed, closeErrs[0], "failed to close writer (%d errors)", len(closeErrs))
	}

	return nil
}

// GetOutputPath returns the path Finalize exports to.
func (w *DuckDBWriter) GetOutputPath() string {
	return w.outputPath
}
