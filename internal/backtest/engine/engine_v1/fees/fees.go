package fees

import (
	"github.com/quantra-lab/quantra-backtest/internal/types"
	"github.com/quantra-lab/quantra-backtest/pkg/errors"
)

// Quote is an itemized fee estimate for one fill.
type Quote struct {
	// TotalFees is the sum of all breakdown items in account currency.
	TotalFees float64
	// Breakdown itemizes the total by fee component.
	Breakdown map[string]float64
}

type Calculator interface {
	// Quote estimates the fees for filling the given quantity at the given
	// price. Implementations must be pure: same inputs, same quote.
	Quote(price float64, quantity float64, action types.SignalAction) (Quote, error)
}

type FeeModel string

const (
	FeeModelZero       FeeModel = "zero"
	FeeModelPerShare   FeeModel = "per_share"
	FeeModelPercentage FeeModel = "percentage"
)

var AllFeeModels = []any{
	FeeModelZero,
	FeeModelPerShare,
	FeeModelPercentage,
}

// Config selects and parameterizes a fee model. Rate fields are only read by
// the model that uses them.
type Config struct {
	Model FeeModel `json:"model" yaml:"model" validate:"omitempty,oneof=zero per_share percentage"`
	// PerShareRate is the charge per unit for the per_share model.
	PerShareRate float64 `json:"per_share_rate" yaml:"per_share_rate" validate:"gte=0"`
	// Minimum is the per-order fee floor for the per_share model.
	Minimum float64 `json:"minimum" yaml:"minimum" validate:"gte=0"`
	// PercentageRate is the fraction of notional charged by the percentage
	// model, e.g. 0.001 for 10 bps.
	PercentageRate float64 `json:"percentage_rate" yaml:"percentage_rate" validate:"gte=0,lte=1"`
}

func GetCalculator(config Config) Calculator {
	switch config.Model {
	case FeeModelPerShare:
		return NewPerShareCalculator(config.PerShareRate, config.Minimum)
	case FeeModelPercentage:
		return NewPercentageCalculator(config.PercentageRate)
	case FeeModelZero:
		return NewZeroCalculator()
	default:
		return NewZeroCalculator()
	}
}

func validateFill(price float64, quantity float64) error {
	if price < 0 {
		return errors.Newf(errors.ErrCodeFeeQuote, "price must not be negative, got %f", price)
	}

	if quantity < 0 {
		return errors.Newf(errors.ErrCodeFeeQuote, "quantity must not be negative, got %f", quantity)
	}

	return nil
}
