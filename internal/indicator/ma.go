package indicator

import "github.com/markcheno/go-talib"

// AverageKind selects how a moving average line is computed.
type AverageKind string

const (
	// SimpleAverage weights every point in the period equally.
	SimpleAverage AverageKind = "sma"
	// ExponentialAverage weights recent points more heavily.
	ExponentialAverage AverageKind = "ema"
)

// ParseAverageKind maps a configuration string onto an average kind.
func ParseAverageKind(raw string) (AverageKind, bool) {
	switch AverageKind(raw) {
	case SimpleAverage, ExponentialAverage:
		return AverageKind(raw), true
	default:
		return "", false
	}
}

// Average computes the moving average line of the given kind over values.
// The first period-1 entries are warmup zeros.
func Average(kind AverageKind, values []float64, period int) []float64 {
	if kind == ExponentialAverage {
		return talib.Ema(values, period)
	}

	return talib.Sma(values, period)
}
