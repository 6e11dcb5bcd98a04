package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/quantra-lab/quantra-backtest/internal/types"
)

// DataGenerator produces synthetic bar series for tests and benchmarks. Prices
// follow geometric Brownian motion, so the series look like real market data
// without being tied to any fixture file.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a generator. Use a fixed seed for reproducible
// series in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures one generated bar series.
type GeneratorConfig struct {
	// Symbol is the instrument symbol the bars carry.
	Symbol string
	// StartTime is the timestamp of the first bar.
	StartTime time.Time
	// Interval is the duration between consecutive bars.
	Interval time.Duration
	// Count is the number of bars to generate.
	Count int
	// InitialPrice is the open of the first bar.
	InitialPrice float64
	// Volatility controls per-bar price movement (0.01 means roughly 1%).
	Volatility float64
	// Trend is the total drift spread across the series, negative for bearish.
	Trend float64
	// VolumeBase is the average volume per bar.
	VolumeBase float64
	// VolumeVariance is the relative variance in volume, 0 to 1.
	VolumeVariance float64
}

// DefaultConfig returns a daily series configuration covering one trading year.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:         "TEST",
		StartTime:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval:       24 * time.Hour,
		Count:          252,
		InitialPrice:   100.0,
		Volatility:     0.01,
		Trend:          0.0,
		VolumeBase:     10000,
		VolumeVariance: 0.3,
	}
}

// Generate creates one bar series from the configuration.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.Bar {
	bars := make([]types.Bar, config.Count)
	currentPrice := config.InitialPrice
	currentTime := config.StartTime

	for i := 0; i < config.Count; i++ {
		open := currentPrice

		// Box-Muller transform for normally distributed returns.
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		priceChange := config.Volatility * z
		drift := config.Trend / float64(config.Count)

		closePrice := open * (1 + priceChange + drift)
		if closePrice <= 0 {
			closePrice = open * 0.99
		}

		highExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)
		lowExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)

		high := math.Max(open, closePrice) + highExtension
		low := math.Min(open, closePrice) - lowExtension
		if low <= 0 {
			low = math.Min(open, closePrice) * 0.99
		}

		volumeVariation := 1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance
		volume := config.VolumeBase * volumeVariation
		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		bars[i] = types.Bar{
			Symbol: config.Symbol,
			Time:   currentTime,
			Open:   roundToDecimals(open, 4),
			High:   roundToDecimals(high, 4),
			Low:    roundToDecimals(low, 4),
			Close:  roundToDecimals(closePrice, 4),
			Volume: roundToDecimals(volume, 2),
		}

		currentPrice = closePrice
		currentTime = currentTime.Add(config.Interval)
	}

	return bars
}

// GenerateMultiSymbol creates one series per symbol, varying the initial price
// and volatility slightly between symbols.
func (g *DataGenerator) GenerateMultiSymbol(symbols []string, baseConfig GeneratorConfig) []types.Bar {
	var allBars []types.Bar

	for _, symbol := range symbols {
		config := baseConfig
		config.Symbol = symbol
		config.InitialPrice = baseConfig.InitialPrice * (0.8 + g.rng.Float64()*0.4)
		config.Volatility = baseConfig.Volatility * (0.8 + g.rng.Float64()*0.4)

		allBars = append(allBars, g.Generate(config)...)
	}

	return allBars
}

// GenerateDaily creates count daily bars for one symbol with the default
// settings and a fixed seed.
func GenerateDaily(symbol string, count int) []types.Bar {
	gen := NewDataGenerator(42)
	config := DefaultConfig()
	config.Symbol = symbol
	config.Count = count

	return gen.Generate(config)
}

// roundToDecimals rounds a float64 to the given number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))

	return math.Round(val*pow) / pow
}
