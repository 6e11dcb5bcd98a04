package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quantra-lab/quantra-backtest/internal/backtest/engine/engine_v1/fees"
	"github.com/quantra-lab/quantra-backtest/internal/logger"
	"github.com/quantra-lab/quantra-backtest/internal/types"
	"github.com/quantra-lab/quantra-backtest/internal/utils"
	"github.com/quantra-lab/quantra-backtest/pkg/errors"
)

// sizingIterations bounds the fee-aware quantity refit loop. It usually
// converges in one or two passes.
const sizingIterations = 10

// PositionLedger tracks cash, open positions and closed trades for one run.
// It enforces the accounting invariants: at most one open position per symbol,
// and no single entry ever overdraws available capital.
type PositionLedger struct {
	log        *logger.Logger
	feeCalc    fees.Calculator
	accounting types.FeeAccounting

	// idSpace namespaces position IDs so identical runs mint identical IDs.
	idSpace uuid.UUID
	idSeq   int

	capital   decimal.Decimal
	totalFees decimal.Decimal
	open      map[string]*types.Position
	closed    []types.Trade
}

// NewPositionLedger creates a ledger holding initialCapital in cash. The
// idSpace seeds deterministic position IDs; runs with the same idSpace and the
// same fill sequence produce identical ledgers.
func NewPositionLedger(
	initialCapital float64,
	feeCalc fees.Calculator,
	accounting types.FeeAccounting,
	idSpace uuid.UUID,
	log *logger.Logger,
) *PositionLedger {
	return &PositionLedger{
		log:        log,
		feeCalc:    feeCalc,
		accounting: accounting,
		idSpace:    idSpace,
		capital:    decimal.NewFromFloat(initialCapital),
		totalFees:  decimal.Zero,
		open:       make(map[string]*types.Position),
		closed:     make([]types.Trade, 0),
	}
}

// Open enters a LONG position for the signal's symbol at the given fill price.
// The entry is skipped, not failed, when a position is already open for the
// symbol or when capital affords no quantity at all. Errors are reserved for
// fee calculator failures.
func (l *PositionLedger) Open(signal types.Signal, price float64, at time.Time) error {
	if price <= 0 {
		return errors.Newf(errors.ErrCodeInvalidOrder, "entry price must be positive, got %f", price)
	}

	if _, exists := l.open[signal.Symbol]; exists {
		l.log.Debug("Skipping entry, position already open",
			zap.String("symbol", signal.Symbol),
		)

		return nil
	}

	available, _ := l.capital.Float64()

	quantity := utils.CalculateExecutableQuantity(signal.Quantity, available, price)
	if quantity <= 0 {
		l.log.Debug("Skipping entry, no affordable quantity",
			zap.String("symbol", signal.Symbol),
			zap.Float64("price", price),
			zap.Float64("available", available),
		)

		return nil
	}

	quantity, quote, cost, err := l.refitQuantity(quantity, price)
	if err != nil {
		return err
	}

	if quantity <= 0 {
		l.log.Debug("Skipping entry, fees exceed available capital",
			zap.String("symbol", signal.Symbol),
			zap.Float64("price", price),
		)

		return nil
	}

	feeDec := decimal.NewFromFloat(quote.TotalFees)

	position := &types.Position{
		ID:         l.nextID(signal.Symbol),
		Symbol:     signal.Symbol,
		Side:       types.PositionSideLong,
		EntryTime:  at,
		EntryPrice: price,
		Quantity:   quantity,
		EntryFees:  quote.TotalFees,
		StopLoss:   signal.StopLoss,
		Target:     signal.Target,
	}

	l.capital = l.capital.Sub(cost)
	l.totalFees = l.totalFees.Add(feeDec)
	l.open[signal.Symbol] = position

	l.log.Debug("Position opened",
		zap.String("symbol", signal.Symbol),
		zap.Float64("price", price),
		zap.Float64("quantity", quantity),
		zap.Float64("entry_fees", quote.TotalFees),
	)

	return nil
}

// refitQuantity shrinks the quantity until notional plus fees fit the ledger's
// capital. Fees grow with quantity, so proportional shrinking converges fast.
// The decimal cost it returns is exactly what Open debits, so the comparison
// and the debit can never disagree.
func (l *PositionLedger) refitQuantity(quantity float64, price float64) (float64, fees.Quote, decimal.Decimal, error) {
	priceDec := decimal.NewFromFloat(price)

	for i := 0; i < sizingIterations; i++ {
		quote, err := l.feeCalc.Quote(price, quantity, types.SignalActionBuy)
		if err != nil {
			return 0, fees.Quote{}, decimal.Zero, err
		}

		cost := priceDec.Mul(decimal.NewFromFloat(quantity)).Add(decimal.NewFromFloat(quote.TotalFees))
		if cost.LessThanOrEqual(l.capital) {
			return quantity, quote, cost, nil
		}

		adjustment, _ := l.capital.Div(cost).Float64()
		quantity = quantity * adjustment
	}

	// Did not converge within sizingIterations: treat as unaffordable.
	return 0, fees.Quote{}, decimal.Zero, nil
}

// Close exits the open position for symbol at exitPrice. A missing position is
// skipped, not failed; the simulation regularly emits SELL signals for symbols
// that never opened.
func (l *PositionLedger) Close(symbol string, exitPrice float64, reason types.CloseReason, at time.Time) error {
	position, exists := l.open[symbol]
	if !exists {
		l.log.Debug("Skipping exit, no open position",
			zap.String("symbol", symbol),
		)

		return nil
	}

	if exitPrice <= 0 {
		return errors.Newf(errors.ErrCodeInvalidOrder, "exit price must be positive, got %f", exitPrice)
	}

	quote, err := l.feeCalc.Quote(exitPrice, position.Quantity, types.SignalActionSell)
	if err != nil {
		return err
	}

	entryFeeDec := decimal.NewFromFloat(position.EntryFees)
	exitFeeDec := decimal.NewFromFloat(quote.TotalFees)
	feesDec := entryFeeDec.Add(exitFeeDec)

	gross := position.GrossPnL(exitPrice)

	realized := gross
	if l.accounting == types.FeeAccountingInclusive {
		realized = gross.Sub(feesDec)
	}

	// Cash back: exit notional for longs, margin plus profit for shorts. The
	// exit fee leaves the account either way.
	var credit decimal.Decimal
	if position.Side == types.PositionSideShort {
		credit = position.Notional(position.EntryPrice).Add(gross).Sub(exitFeeDec)
	} else {
		credit = position.Notional(exitPrice).Sub(exitFeeDec)
	}

	l.capital = l.capital.Add(credit)
	l.totalFees = l.totalFees.Add(exitFeeDec)

	grossF, _ := gross.Float64()
	feesF, _ := feesDec.Float64()
	realizedF, _ := realized.Float64()

	trade := types.Trade{
		ID:          position.ID,
		Symbol:      position.Symbol,
		Side:        position.Side,
		EntryTime:   position.EntryTime,
		ExitTime:    at,
		EntryPrice:  position.EntryPrice,
		ExitPrice:   exitPrice,
		Quantity:    position.Quantity,
		GrossPnL:    grossF,
		Fees:        feesF,
		RealizedPnL: realizedF,
		CloseReason: reason,
	}

	l.closed = append(l.closed, trade)
	delete(l.open, symbol)

	l.log.Debug("Position closed",
		zap.String("symbol", symbol),
		zap.Float64("exit_price", exitPrice),
		zap.Float64("realized_pnl", realizedF),
		zap.String("close_reason", string(reason)),
	)

	return nil
}

// ForceCloseAll closes every open position at the last known price for its
// symbol, falling back to the entry price when the symbol never traded. Every
// close is tagged period_end. Symbols close in lexical order so the resulting
// trade list is deterministic.
func (l *PositionLedger) ForceCloseAll(lastPrices map[string]float64, asOf time.Time) error {
	symbols := make([]string, 0, len(l.open))
	for symbol := range l.open {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	for _, symbol := range symbols {
		price, ok := lastPrices[symbol]
		if !ok || price <= 0 {
			price = l.open[symbol].EntryPrice
		}

		if err := l.Close(symbol, price, types.CloseReasonPeriodEnd, asOf); err != nil {
			return err
		}
	}

	return nil
}

// nextID mints a deterministic position ID from the ledger's ID space and the
// fill sequence number.
func (l *PositionLedger) nextID(symbol string) string {
	id := uuid.NewSHA1(l.idSpace, []byte(fmt.Sprintf("%s-%d", symbol, l.idSeq)))
	l.idSeq++

	return id.String()
}

// Capital is the cash currently available for new entries.
func (l *PositionLedger) Capital() float64 {
	capital, _ := l.capital.Float64()

	return capital
}

// Position returns a copy of the open position for symbol.
func (l *PositionLedger) Position(symbol string) (types.Position, bool) {
	position, exists := l.open[symbol]
	if !exists {
		return types.Position{}, false
	}

	return *position, true
}

// OpenPositions returns copies of every open position, sorted by symbol.
func (l *PositionLedger) OpenPositions() []types.Position {
	symbols := make([]string, 0, len(l.open))
	for symbol := range l.open {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	positions := make([]types.Position, 0, len(symbols))
	for _, symbol := range symbols {
		positions = append(positions, *l.open[symbol])
	}

	return positions
}

// Trades returns the closed trades in close order.
func (l *PositionLedger) Trades() []types.Trade {
	return l.closed
}

// TotalFees is the sum of every entry and exit fee charged so far.
func (l *PositionLedger) TotalFees() float64 {
	total, _ := l.totalFees.Float64()

	return total
}
