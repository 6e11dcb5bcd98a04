package types

import (
	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/quantra-lab/quantra-backtest/pkg/errors"
)

// SignalAction is the side of a trade signal.
type SignalAction string

const (
	// SignalActionBuy opens a position for the symbol when none is open.
	SignalActionBuy SignalAction = "BUY"
	// SignalActionSell closes the open position for the symbol.
	SignalActionSell SignalAction = "SELL"
)

// Signal is one trading instruction emitted by a strategy for a single time step.
// The simulation loop consumes it once and discards it.
type Signal struct {
	// Symbol is the instrument the signal refers to.
	Symbol string `yaml:"symbol" json:"symbol" validate:"required"`
	// Action is the side of the signal.
	Action SignalAction `yaml:"action" json:"action" validate:"required,oneof=BUY SELL"`
	// Quantity is the suggested quantity; the ledger caps it so a single entry
	// never overdraws available capital.
	Quantity float64 `yaml:"quantity" json:"quantity" validate:"required,gt=0"`
	// Price is the reference price the strategy saw when emitting the signal.
	Price float64 `yaml:"price" json:"price" validate:"required,gt=0"`
	// StopLoss closes the resulting position when the bar range crosses it. Can be None.
	StopLoss optional.Option[float64] `yaml:"stop_loss" json:"stop_loss"`
	// Target closes the resulting position when the bar range crosses it. Can be None.
	Target optional.Option[float64] `yaml:"target" json:"target"`
	// Reason is a short strategy-supplied explanation, used for logging.
	Reason string `yaml:"reason" json:"reason"`
	// Metadata carries free-form strategy values, never interpreted by the engine.
	Metadata map[string]string `yaml:"metadata" json:"metadata"`
}

// Validate validates the Signal struct.
func (s *Signal) Validate() error {
	validate := validator.New()
	if err := validate.Struct(s); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidSignal, "invalid signal", err)
	}

	return nil
}
