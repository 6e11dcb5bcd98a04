package engine

import (
	"sort"
	"time"

	"github.com/quantra-lab/quantra-backtest/internal/types"
	"github.com/quantra-lab/quantra-backtest/pkg/errors"
)

// TimeStep is one simulated step: every bar whose timestamp buckets to the same
// interval stamp, at most one per symbol, sorted by symbol.
type TimeStep struct {
	Time time.Time
	Bars []types.Bar
}

// Bar returns the step's bar for the given symbol.
func (s TimeStep) Bar(symbol string) (types.Bar, bool) {
	i := sort.Search(len(s.Bars), func(j int) bool { return s.Bars[j].Symbol >= symbol })
	if i < len(s.Bars) && s.Bars[i].Symbol == symbol {
		return s.Bars[i], true
	}

	return types.Bar{}, false
}

// SortBars orders bars chronologically, breaking timestamp ties by symbol. The
// sort is stable so equal (time, symbol) pairs keep their input order.
func SortBars(bars []types.Bar) {
	sort.SliceStable(bars, func(i, j int) bool {
		if bars[i].Time.Equal(bars[j].Time) {
			return bars[i].Symbol < bars[j].Symbol
		}

		return bars[i].Time.Before(bars[j].Time)
	})
}

// GroupBars buckets an unordered multi-symbol bar slice into ascending time
// steps at the given interval granularity. When a symbol has several bars in
// one bucket the freshest observation represents the bucket. The input slice
// is not modified.
func GroupBars(bars []types.Bar, interval types.Interval) ([]TimeStep, error) {
	if len(bars) == 0 {
		return nil, errors.New(errors.ErrCodeNoHistoricalData, "no bars to group into time steps")
	}

	if !interval.IsValid() {
		return nil, errors.Newf(errors.ErrCodeInvalidInterval, "unknown interval %q", string(interval))
	}

	sorted := make([]types.Bar, len(bars))
	copy(sorted, bars)
	SortBars(sorted)

	// Bucket stamps are monotonic in bar time, so first-seen order is ascending.
	buckets := make(map[int64]map[string]types.Bar)
	order := make([]int64, 0)

	for _, bar := range sorted {
		key := interval.Bucket(bar.Time).UnixNano()

		group, ok := buckets[key]
		if !ok {
			group = make(map[string]types.Bar)
			buckets[key] = group
			order = append(order, key)
		}

		group[bar.Symbol] = bar
	}

	steps := make([]TimeStep, 0, len(order))

	for _, key := range order {
		group := buckets[key]

		symbols := make([]string, 0, len(group))
		for symbol := range group {
			symbols = append(symbols, symbol)
		}

		sort.Strings(symbols)

		stepBars := make([]types.Bar, 0, len(group))
		for _, symbol := range symbols {
			stepBars = append(stepBars, group[symbol])
		}

		steps = append(steps, TimeStep{
			Time: time.Unix(0, key).UTC(),
			Bars: stepBars,
		})
	}

	return steps, nil
}
