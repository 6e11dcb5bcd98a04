package indicator

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// RealizedVolatility annualizes the standard deviation of log returns over
// the trailing window. It reports false when the series does not cover the
// window or a price inside it is not strictly positive. periodsPerYear scales
// the per-step deviation to an annual figure, 252 for trading days or 365 for
// calendar days.
func RealizedVolatility(prices []float64, window int, periodsPerYear float64) (float64, bool) {
	if window < 2 || len(prices) <= window {
		return 0, false
	}

	tail := prices[len(prices)-window-1:]
	returns := make([]float64, 0, window)

	for i := 1; i < len(tail); i++ {
		if tail[i-1] <= 0 || tail[i] <= 0 {
			return 0, false
		}

		returns = append(returns, math.Log(tail[i]/tail[i-1]))
	}

	sigma := stat.StdDev(returns, nil)
	if math.IsNaN(sigma) {
		return 0, false
	}

	return sigma * math.Sqrt(periodsPerYear), true
}
