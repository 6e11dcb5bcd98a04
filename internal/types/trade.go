package types

import (
	"time"
)

// CloseReason records why a position was closed. Exactly one reason tags every
// Trade.
type CloseReason string

const (
	// CloseReasonSignal is a strategy-driven SELL.
	CloseReasonSignal CloseReason = "signal"
	// CloseReasonStopLoss fired because the bar range crossed the stop level.
	CloseReasonStopLoss CloseReason = "stop_loss"
	// CloseReasonTarget fired because the bar range crossed the target level.
	CloseReasonTarget CloseReason = "target"
	// CloseReasonPeriodEnd tags positions force-closed when the simulation
	// period ran out, distinct from any signal-driven exit.
	CloseReasonPeriodEnd CloseReason = "period_end"
)

// Trade is the closed form of a Position. It is immutable once created:
// appended to the result's trade list and never mutated again.
type Trade struct {
	ID     string       `yaml:"id" json:"id" csv:"id"`
	Symbol string       `yaml:"symbol" json:"symbol" csv:"symbol"`
	Side   PositionSide `yaml:"side" json:"side" csv:"side"`
	// EntryTime and ExitTime bound the holding period; ExitTime >= EntryTime always.
	EntryTime  time.Time `yaml:"entry_time" json:"entry_time" csv:"entry_time"`
	ExitTime   time.Time `yaml:"exit_time" json:"exit_time" csv:"exit_time"`
	EntryPrice float64   `yaml:"entry_price" json:"entry_price" csv:"entry_price"`
	ExitPrice  float64   `yaml:"exit_price" json:"exit_price" csv:"exit_price"`
	Quantity   float64   `yaml:"quantity" json:"quantity" csv:"quantity"`
	// GrossPnL is (exit-entry)*quantity for LONG, sign-flipped for SHORT.
	GrossPnL float64 `yaml:"gross_pnl" json:"gross_pnl" csv:"gross_pnl"`
	// Fees is the sum of entry and exit fees.
	Fees float64 `yaml:"fees" json:"fees" csv:"fees"`
	// RealizedPnL is GrossPnL minus Fees under fee-inclusive accounting, or
	// GrossPnL alone under fee-exclusive accounting.
	RealizedPnL float64     `yaml:"realized_pnl" json:"realized_pnl" csv:"realized_pnl"`
	CloseReason CloseReason `yaml:"close_reason" json:"close_reason" csv:"close_reason"`
}

// IsWinning reports whether the trade realized a positive profit.
func (t *Trade) IsWinning() bool {
	return t.RealizedPnL > 0
}

// HoldingTime is the duration the position stayed open.
func (t *Trade) HoldingTime() time.Duration {
	return t.ExitTime.Sub(t.EntryTime)
}
