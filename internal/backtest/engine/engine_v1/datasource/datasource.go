package datasource

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/quantra-lab/quantra-backtest/internal/types"
)

// DataSource provides historical market data to the backtest engine.
// Implementations must return bars with UTC timestamps; ordering is not
// required since the engine normalizes bars into time steps itself.
type DataSource interface {
	// Initialize points the data source at a market data file.
	// For the DuckDB implementation the path is a parquet file.
	Initialize(path string) error

	// GetBars returns all bars for the given symbols within [start, end].
	// A zero start or end time leaves that side of the range unbounded.
	// An empty symbols slice selects every symbol in the data set.
	GetBars(symbols []string, start time.Time, end time.Time) ([]types.Bar, error)

	// ReadAll iterates over every bar in chronological order,
	// optionally restricted to a time range.
	ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.Bar, error) bool)

	// Count returns the number of bars within the optional time range.
	Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error)

	// Symbols returns the distinct symbols present in the data set.
	Symbols() ([]string, error)

	// Close releases any resources held by the data source.
	Close() error
}
