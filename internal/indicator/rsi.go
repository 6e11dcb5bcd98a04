package indicator

import "github.com/markcheno/go-talib"

// LastRSI returns the most recent relative strength index value over the
// period. It reports false until the series holds more than period points.
func LastRSI(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) <= period {
		return 0, false
	}

	line := talib.Rsi(values, period)

	return line[len(line)-1], true
}
