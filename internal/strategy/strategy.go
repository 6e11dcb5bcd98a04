package strategy

import (
	"sort"
	"strconv"

	"github.com/quantra-lab/quantra-backtest/internal/types"
	"github.com/quantra-lab/quantra-backtest/pkg/errors"
)

// Kind identifies a built-in signal source.
type Kind string

const (
	// KindMomentum trades rate-of-change breakouts filtered by RSI.
	KindMomentum Kind = "momentum"
	// KindMACrossover trades fast/slow simple moving average crossovers.
	KindMACrossover Kind = "ma_crossover"
	// KindOptionsVolatility trades on the delta of a synthetic at-the-money option
	// priced from trailing realized volatility.
	KindOptionsVolatility Kind = "options_volatility"
)

// AllKinds lists every built-in strategy kind, used for schema generation.
var AllKinds = []any{
	KindMomentum,
	KindMACrossover,
	KindOptionsVolatility,
}

// Config selects a built-in signal source and its parameters.
type Config struct {
	// Kind names the signal source to run.
	Kind Kind `yaml:"kind" json:"kind" jsonschema:"title=Strategy Kind,description=Name of the built-in strategy to run" validate:"required"`
	// Params holds strategy-specific parameters as strings. Unknown keys are
	// ignored; missing keys fall back to the strategy's defaults.
	Params map[string]string `yaml:"params" json:"params" jsonschema:"title=Strategy Parameters,description=Strategy specific parameters as key value pairs"`
}

// SignalSource produces trading signals from bar history. Implementations are
// stateless between runs: every call receives the full history up to and
// including the current time step, in chronological order.
type SignalSource interface {
	// Name returns the stable name of the signal source.
	Name() string
	// GenerateSignals inspects the history and returns the signals for the most
	// recent time step. Returning an empty slice means no action.
	GenerateSignals(history []types.Bar) ([]types.Signal, error)
}

// New builds the signal source named by the configuration.
func New(config Config) (SignalSource, error) {
	switch config.Kind {
	case KindMomentum:
		return newMomentum(config.Params)
	case KindMACrossover:
		return newMACrossover(config.Params)
	case KindOptionsVolatility:
		return newOptionsVolatility(config.Params)
	default:
		return nil, errors.Newf(errors.ErrCodeUnknownStrategy, "unknown strategy kind %q", config.Kind)
	}
}

// symbolSeries splits the history into per-symbol bar series, preserving
// chronological order within each symbol.
func symbolSeries(history []types.Bar) map[string][]types.Bar {
	series := make(map[string][]types.Bar)
	for _, bar := range history {
		series[bar.Symbol] = append(series[bar.Symbol], bar)
	}

	return series
}

// sortedSymbols returns the symbols of the series map in lexical order so
// signal emission order does not depend on map iteration.
func sortedSymbols(series map[string][]types.Bar) []string {
	symbols := make([]string, 0, len(series))
	for symbol := range series {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	return symbols
}

// closes extracts the close price series from a bar series.
func closes(bars []types.Bar) []float64 {
	prices := make([]float64, len(bars))
	for i, bar := range bars {
		prices[i] = bar.Close
	}

	return prices
}

// paramString reads a string parameter, falling back to a default when absent.
func paramString(params map[string]string, key, fallback string) string {
	if raw, ok := params[key]; ok {
		return raw
	}

	return fallback
}

// paramFloat reads a float parameter, falling back to a default when absent.
func paramFloat(params map[string]string, key string, fallback float64) (float64, error) {
	raw, ok := params[key]
	if !ok {
		return fallback, nil
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "strategy parameter %q must be a number, got %q", key, raw)
	}

	return value, nil
}

// paramInt reads an integer parameter, falling back to a default when absent.
func paramInt(params map[string]string, key string, fallback int) (int, error) {
	raw, ok := params[key]
	if !ok {
		return fallback, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "strategy parameter %q must be an integer, got %q", key, raw)
	}

	return value, nil
}
