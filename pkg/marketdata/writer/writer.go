package writer

import (
	"github.com/quantra-lab/quantra-backtest/internal/types"
)

// MarketDataWriter defines the interface for persisting downloaded bars.
type MarketDataWriter interface {
	// Initialize sets up the writer, potentially creating tables or files.
	Initialize() error
	// Write persists a single bar.
	Write(bar types.Bar) error
	// Finalize completes the writing process (e.g., commits transactions,
	// exports files) and returns the path of the produced artifact.
	Finalize() (outputPath string, err error)
	// Close releases any resources held by the writer. Close is safe to
	// call more than once.
	Close() error
	// GetOutputPath returns the configured output file path.
	GetOutputPath() string
}
