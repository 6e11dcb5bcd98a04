package indicator

import "github.com/markcheno/go-talib"

// LastROC returns the most recent rate-of-change value over the period,
// expressed in percent. It reports false until the series holds more than
// period points.
func LastROC(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) <= period {
		return 0, false
	}

	line := talib.Roc(values, period)

	return line[len(line)-1], true
}
