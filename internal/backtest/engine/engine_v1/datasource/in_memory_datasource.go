package datasource

import (
	"sort"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/quantra-lab/quantra-backtest/internal/types"
)

// InMemoryDataSource serves bars from memory. It backs tests and generated
// data sets where a parquet file would be overkill, and is safe for the
// concurrent reads a walk-forward analysis performs.
type InMemoryDataSource struct {
	mu   sync.RWMutex
	bars []types.Bar
}

// NewInMemoryDataSource creates an in-memory data source from the given bars.
// The bars are copied and kept sorted by time, then symbol.
func NewInMemoryDataSource(bars []types.Bar) *InMemoryDataSource {
	d := &InMemoryDataSource{}
	d.Append(bars...)

	return d
}

// Append adds bars to the data set, preserving chronological order.
func (d *InMemoryDataSource) Append(bars ...types.Bar) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.bars = append(d.bars, bars...)
	sort.SliceStable(d.bars, func(i, j int) bool {
		if !d.bars[i].Time.Equal(d.bars[j].Time) {
			return d.bars[i].Time.Before(d.bars[j].Time)
		}

		return d.bars[i].Symbol < d.bars[j].Symbol
	})
}

// Initialize implements DataSource. Bars are provided at construction,
// so there is nothing to load.
func (d *InMemoryDataSource) Initialize(path string) error {
	return nil
}

// GetBars implements DataSource.
func (d *InMemoryDataSource) GetBars(symbols []string, start time.Time, end time.Time) ([]types.Bar, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	wanted := make(map[string]bool, len(symbols))
	for _, symbol := range symbols {
		wanted[symbol] = true
	}

	var result []types.Bar

	for _, bar := range d.bars {
		if len(wanted) > 0 && !wanted[bar.Symbol] {
			continue
		}

		if !inRange(bar.Time, start, end) {
			continue
		}

		result = append(result, bar)
	}

	return result, nil
}

// ReadAll implements DataSource.
func (d *InMemoryDataSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.Bar, error) bool) {
	return func(yield func(types.Bar, error) bool) {
		d.mu.RLock()
		snapshot := make([]types.Bar, len(d.bars))
		copy(snapshot, d.bars)
		d.mu.RUnlock()

		for _, bar := range snapshot {
			if start.IsSome() && bar.Time.Before(start.Unwrap()) {
				continue
			}

			if end.IsSome() && bar.Time.After(end.Unwrap()) {
				continue
			}

			if !yield(bar, nil) {
				return
			}
		}
	}
}

// Count implements DataSource.
func (d *InMemoryDataSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	count := 0

	for range d.ReadAll(start, end) {
		count++
	}

	return count, nil
}

// Symbols implements DataSource.
func (d *InMemoryDataSource) Symbols() ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	seen := make(map[string]bool)

	var symbols []string

	for _, bar := range d.bars {
		if !seen[bar.Symbol] {
			seen[bar.Symbol] = true

			symbols = append(symbols, bar.Symbol)
		}
	}

	sort.Strings(symbols)

	return symbols, nil
}

// Close implements DataSource.
func (d *InMemoryDataSource) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.bars = nil

	return nil
}

func inRange(t time.Time, start time.Time, end time.Time) bool {
	if !start.IsZero() && t.Before(start) {
		return false
	}

	if !end.IsZero() && t.After(end) {
		return false
	}

	return true
}
