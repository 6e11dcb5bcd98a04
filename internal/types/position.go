package types

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// PositionSide is the direction of an open position.
type PositionSide string

const (
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
)

// Position is one open holding in a single instrument. The ledger enforces at
// most one open Position per symbol at any time. A Position is created by a BUY
// signal, mutated only by its closing event, and then moves to the closed-trade
// list as a Trade.
type Position struct {
	// ID uniquely identifies the position and is carried over to the Trade.
	ID string `yaml:"id" json:"id"`
	// Symbol is the instrument held.
	Symbol string       `yaml:"symbol" json:"symbol"`
	Side   PositionSide `yaml:"side" json:"side"`
	// EntryTime is the simulated time the position was opened.
	EntryTime  time.Time `yaml:"entry_time" json:"entry_time"`
	EntryPrice float64   `yaml:"entry_price" json:"entry_price"`
	Quantity   float64   `yaml:"quantity" json:"quantity"`
	// EntryFees is the fee charged when the position was opened.
	EntryFees float64 `yaml:"entry_fees" json:"entry_fees"`
	// StopLoss closes the position when the bar range crosses it. Can be None.
	StopLoss optional.Option[float64] `yaml:"stop_loss" json:"stop_loss"`
	// Target closes the position when the bar range crosses it. Can be None.
	Target optional.Option[float64] `yaml:"target" json:"target"`
}

// GrossPnL is the profit of closing the position at exitPrice, before fees.
// Long positions profit when the price rises, short positions when it falls.
func (p *Position) GrossPnL(exitPrice float64) decimal.Decimal {
	entryDec := decimal.NewFromFloat(p.EntryPrice).Mul(decimal.NewFromFloat(p.Quantity))
	exitDec := decimal.NewFromFloat(exitPrice).Mul(decimal.NewFromFloat(p.Quantity))

	if p.Side == PositionSideShort {
		return entryDec.Sub(exitDec)
	}

	return exitDec.Sub(entryDec)
}

// Notional is the position's value at the given price.
func (p *Position) Notional(price float64) decimal.Decimal {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(p.Quantity))
}
