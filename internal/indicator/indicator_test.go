package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/suite"
)

type IndicatorTestSuite struct {
	suite.Suite
}

func TestIndicatorSuite(t *testing.T) {
	suite.Run(t, new(IndicatorTestSuite))
}

func (suite *IndicatorTestSuite) TestParseAverageKind() {
	kind, ok := ParseAverageKind("sma")
	suite.True(ok)
	suite.Equal(SimpleAverage, kind)

	kind, ok = ParseAverageKind("ema")
	suite.True(ok)
	suite.Equal(ExponentialAverage, kind)

	_, ok = ParseAverageKind("wma")
	suite.False(ok)
}

func (suite *IndicatorTestSuite) TestSimpleAverageLine() {
	line := Average(SimpleAverage, []float64{1, 2, 3, 4, 5}, 2)

	suite.Require().Len(line, 5)
	suite.Equal(0.0, line[0])
	suite.InDelta(1.5, line[1], 1e-9)
	suite.InDelta(2.5, line[2], 1e-9)
	suite.InDelta(4.5, line[4], 1e-9)
}

func (suite *IndicatorTestSuite) TestExponentialAverageReactsFaster() {
	values := []float64{1, 2, 3, 4, 100}

	ema := Average(ExponentialAverage, values, 2)
	sma := Average(SimpleAverage, values, 2)

	suite.Require().Len(ema, 5)
	suite.Equal(0.0, ema[0])
	// Seeded with the simple average of the first period, then k = 2/(period+1).
	suite.InDelta(1.5, ema[1], 1e-9)
	suite.InDelta(2.5, ema[2], 1e-9)
	suite.InDelta(203.5/3, ema[4], 1e-9)
	suite.Greater(ema[4], sma[4])
}

func (suite *IndicatorTestSuite) TestLastRSI() {
	// Only gains in the window pins RSI at 100.
	value, ok := LastRSI([]float64{100, 102, 104, 106}, 3)
	suite.Require().True(ok)
	suite.InDelta(100, value, 1e-9)

	_, ok = LastRSI([]float64{100, 102, 104}, 3)
	suite.False(ok)

	_, ok = LastRSI([]float64{100, 102, 104, 106}, 0)
	suite.False(ok)
}

func (suite *IndicatorTestSuite) TestLastROC() {
	value, ok := LastROC([]float64{100, 102, 104, 106}, 3)
	suite.Require().True(ok)
	suite.InDelta(6.0, value, 1e-9)

	_, ok = LastROC([]float64{100, 102, 104}, 3)
	suite.False(ok)
}

func (suite *IndicatorTestSuite) TestLastCross() {
	tests := []struct {
		name string
		fast []float64
		slow []float64
		want CrossDirection
	}{
		{name: "up", fast: []float64{1, 3}, slow: []float64{2, 2}, want: CrossUp},
		{name: "up from touch", fast: []float64{2, 3}, slow: []float64{2, 2}, want: CrossUp},
		{name: "down", fast: []float64{3, 1}, slow: []float64{2, 2}, want: CrossDown},
		{name: "no cross above", fast: []float64{3, 3}, slow: []float64{2, 2}, want: CrossNone},
		{name: "no cross below", fast: []float64{1, 1}, slow: []float64{2, 2}, want: CrossNone},
		{name: "too short", fast: []float64{3}, slow: []float64{2}, want: CrossNone},
		{name: "mismatched lengths", fast: []float64{1, 2, 3}, slow: []float64{2, 2}, want: CrossNone},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.Equal(tc.want, LastCross(tc.fast, tc.slow))
		})
	}
}

func (suite *IndicatorTestSuite) TestRealizedVolatility() {
	// Two log returns, 0 and ln 2: the sample deviation is ln2 / sqrt(2).
	value, ok := RealizedVolatility([]float64{100, 100, 200}, 2, 1)
	suite.Require().True(ok)
	suite.InDelta(math.Ln2/math.Sqrt2, value, 1e-9)

	// A flat series is valid but carries zero volatility.
	value, ok = RealizedVolatility([]float64{100, 100, 100, 100}, 3, 252)
	suite.Require().True(ok)
	suite.Equal(0.0, value)

	_, ok = RealizedVolatility([]float64{100, 101}, 2, 252)
	suite.False(ok)

	_, ok = RealizedVolatility([]float64{100, 0, 101, 102}, 3, 252)
	suite.False(ok)

	_, ok = RealizedVolatility([]float64{100, 101, 102}, 1, 252)
	suite.False(ok)
}
