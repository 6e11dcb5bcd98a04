// Package options prices European options with the Black-Scholes model. The
// volatility strategy uses it to derive tradeable Greeks from realized
// volatility estimates.
package options

import (
	"math"

	"github.com/chobie/go-gaussian"

	"github.com/quantra-lab/quantra-backtest/pkg/errors"
)

// Kind selects the option side being priced.
type Kind string

const (
	Call Kind = "call"
	Put  Kind = "put"
)

// PricingInput carries the Black-Scholes parameters. Rates and volatility are
// annualized; TimeToExpiry is in years.
type PricingInput struct {
	Spot         float64 `json:"spot" yaml:"spot"`
	Strike       float64 `json:"strike" yaml:"strike"`
	RiskFreeRate float64 `json:"risk_free_rate" yaml:"risk_free_rate"`
	Volatility   float64 `json:"volatility" yaml:"volatility"`
	TimeToExpiry float64 `json:"time_to_expiry" yaml:"time_to_expiry"`
	Kind         Kind    `json:"kind" yaml:"kind"`
}

// Greeks is the model output. Theta is per year, vega and rho per whole unit of
// volatility and rate; divide by 100 for the per-percent quotes brokers show.
type Greeks struct {
	Price float64 `json:"price" yaml:"price"`
	Delta float64 `json:"delta" yaml:"delta"`
	Gamma float64 `json:"gamma" yaml:"gamma"`
	Theta float64 `json:"theta" yaml:"theta"`
	Vega  float64 `json:"vega" yaml:"vega"`
	Rho   float64 `json:"rho" yaml:"rho"`
}

const (
	impliedVolMaxIterations = 100
	impliedVolTolerance     = 1e-10
)

func (i PricingInput) validate() error {
	if i.Spot <= 0 {
		return errors.Newf(errors.ErrCodeInvalidParameter, "spot must be positive, got %f", i.Spot)
	}

	if i.Strike <= 0 {
		return errors.Newf(errors.ErrCodeInvalidParameter, "strike must be positive, got %f", i.Strike)
	}

	if i.TimeToExpiry <= 0 {
		return errors.Newf(errors.ErrCodeInvalidParameter, "time to expiry must be positive, got %f", i.TimeToExpiry)
	}

	if i.Kind != Call && i.Kind != Put {
		return errors.Newf(errors.ErrCodeInvalidParameter, "unknown option kind %q", i.Kind)
	}

	return nil
}

func d1(spot, strike, rate, vol, t float64) float64 {
	return (math.Log(spot/strike) + (rate+vol*vol/2)*t) / (vol * math.Sqrt(t))
}

// Price returns the Black-Scholes value and Greeks for the given input.
func Price(input PricingInput) (Greeks, error) {
	if err := input.validate(); err != nil {
		return Greeks{}, err
	}

	if input.Volatility <= 0 {
		return Greeks{}, errors.Newf(errors.ErrCodeInvalidParameter, "volatility must be positive, got %f", input.Volatility)
	}

	norm := gaussian.NewGaussian(0, 1)

	sqrtT := math.Sqrt(input.TimeToExpiry)
	td1 := d1(input.Spot, input.Strike, input.RiskFreeRate, input.Volatility, input.TimeToExpiry)
	td2 := td1 - input.Volatility*sqrtT
	discount := math.Exp(-input.RiskFreeRate * input.TimeToExpiry)
	density := norm.Pdf(td1)

	greeks := Greeks{
		Gamma: density / (input.Spot * input.Volatility * sqrtT),
		Vega:  input.Spot * density * sqrtT,
	}

	decay := -input.Spot * density * input.Volatility / (2 * sqrtT)

	switch input.Kind {
	case Call:
		greeks.Price = input.Spot*norm.Cdf(td1) - input.Strike*discount*norm.Cdf(td2)
		greeks.Delta = norm.Cdf(td1)
		greeks.Theta = decay - input.RiskFreeRate*input.Strike*discount*norm.Cdf(td2)
		greeks.Rho = input.Strike * input.TimeToExpiry * discount * norm.Cdf(td2)
	case Put:
		greeks.Price = input.Strike*discount*norm.Cdf(-td2) - input.Spot*norm.Cdf(-td1)
		greeks.Delta = norm.Cdf(td1) - 1
		greeks.Theta = decay + input.RiskFreeRate*input.Strike*discount*norm.Cdf(-td2)
		greeks.Rho = -input.Strike * input.TimeToExpiry * discount * norm.Cdf(-td2)
	}

	return greeks, nil
}

// ImpliedVolatility inverts the model with Newton-Raphson, seeded by the
// Brenner-Subrahmanyam approximation. The input's Volatility field is ignored.
func ImpliedVolatility(input PricingInput, marketPrice float64) (float64, error) {
	if err := input.validate(); err != nil {
		return 0, err
	}

	if marketPrice <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "market price must be positive, got %f", marketPrice)
	}

	norm := gaussian.NewGaussian(0, 1)
	vol := math.Sqrt(2*math.Pi/input.TimeToExpiry) * marketPrice / input.Spot

	for i := 0; i < impliedVolMaxIterations; i++ {
		input.Volatility = vol

		greeks, err := Price(input)
		if err != nil {
			return 0, err
		}

		diff := greeks.Price - marketPrice
		if math.Abs(diff) < impliedVolTolerance {
			return vol, nil
		}

		td1 := d1(input.Spot, input.Strike, input.RiskFreeRate, vol, input.TimeToExpiry)

		vega := input.Spot * norm.Pdf(td1) * math.Sqrt(input.TimeToExpiry)
		if vega < impliedVolTolerance {
			break
		}

		vol -= diff / vega
		if vol <= 0 {
			break
		}
	}

	return 0, errors.Newf(errors.ErrCodeInvalidParameter, "implied volatility did not converge for price %f", marketPrice)
}
