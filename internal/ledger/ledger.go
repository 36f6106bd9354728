// Package ledger owns the paper portfolio: the cash balance, position
// aggregates held per market side, and the capped display log of executed
// swaps.
//
// Mutation happens from exactly two call sites — the single-flight trade
// worker (fills) and the synchronous intake path (mark-to-market) — but the
// ledger still guards its state with a mutex so HTTP readers only ever see
// fully-committed snapshots.
//
// All monetary values use shopspring/decimal — never float64 for money.
package ledger

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/trademaxxer/paper-engine/internal/model"
)

// ErrInsufficientFunds is returned when a fill's cost exceeds the cash
// balance. Nothing is mutated; the job becomes a no-op.
var ErrInsufficientFunds = errors.New("ledger: insufficient cash for fill")

// Fill is one committed simulated swap: the cash debit, the position delta,
// and the immutable swap record, applied together.
type Fill struct {
	MarketID  string
	Label     string
	Side      string // "YES" or "NO"
	Contracts decimal.Decimal
	Cost      decimal.Decimal // quote currency, debited from cash
	MarkPrice decimal.Decimal
	Record    model.SwapRecord
}

// positionKey identifies one aggregate. Positions are held per market AND
// per side: a YES stake and a NO stake on the same market value against
// p and 1-p respectively and must never share contracts or cost basis.
type positionKey struct {
	market string
	side   string
}

// Ledger holds process-lifetime portfolio state. No persistence.
type Ledger struct {
	mu        sync.RWMutex
	cash      decimal.Decimal
	positions map[positionKey]*model.Position
	swaps     []model.SwapRecord // newest first, capped at swapCap
	swapCap   int
}

// New creates a ledger seeded with the starting cash balance.
func New(seedCash decimal.Decimal, swapCap int) *Ledger {
	if swapCap <= 0 {
		swapCap = 30
	}
	return &Ledger{
		cash:      seedCash,
		positions: make(map[positionKey]*model.Position),
		swapCap:   swapCap,
	}
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cash
}

// TopUp credits the cash balance by amount and returns the new balance.
// Operational only; never decision-driven.
func (l *Ledger) TopUp(amount decimal.Decimal) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cash = l.cash.Add(amount)
	return l.cash
}

// ApplyFill debits cash, creates or updates the market's position, and
// appends the swap record, all under one lock so no partial update is ever
// visible to readers. Returns ErrInsufficientFunds without mutating anything
// when the cost exceeds the balance.
func (l *Ledger) ApplyFill(f Fill) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if f.Cost.GreaterThan(l.cash) {
		return ErrInsufficientFunds
	}

	l.cash = l.cash.Sub(f.Cost)

	key := positionKey{market: f.MarketID, side: f.Side}
	pos, ok := l.positions[key]
	if !ok {
		pos = &model.Position{MarketID: f.MarketID, Side: f.Side}
		l.positions[key] = pos
	}
	pos.Contracts = pos.Contracts.Add(f.Contracts)
	pos.CostBasis = pos.CostBasis.Add(f.Cost)
	pos.MarkPrice = f.MarkPrice
	pos.Label = f.Label

	// Prepend newest; trim the display log. Accounting above never reads it.
	l.swaps = append([]model.SwapRecord{f.Record}, l.swaps...)
	if len(l.swaps) > l.swapCap {
		l.swaps = l.swaps[:l.swapCap]
	}

	return nil
}

// MarkToMarket updates the stored mark for every position on marketID.
// The mark is the market probability; each side values itself against it.
// No-op when no position exists or the price is unchanged, so repeated
// calls with the same price leave no observable trace.
func (l *Ledger) MarkToMarket(marketID string, price decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, side := range []string{model.ActionYes, model.ActionNo} {
		pos, ok := l.positions[positionKey{market: marketID, side: side}]
		if !ok || pos.MarkPrice.Equal(price) {
			continue
		}
		pos.MarkPrice = price
	}
}

// MarkPrice returns the stored mark for marketID, if a position exists.
// Both sides of a market carry the same mark.
func (l *Ledger) MarkPrice(marketID string) (decimal.Decimal, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, side := range []string{model.ActionYes, model.ActionNo} {
		if pos, ok := l.positions[positionKey{market: marketID, side: side}]; ok {
			return pos.MarkPrice, true
		}
	}
	return decimal.Zero, false
}

// Snapshot returns a read-only portfolio view with positions copied out.
func (l *Ledger) Snapshot() model.PortfolioSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snap := model.PortfolioSnapshot{
		CashUSDC:  l.cash,
		Positions: make([]model.Position, 0, len(l.positions)),
	}

	for _, pos := range l.positions {
		snap.Positions = append(snap.Positions, *pos)
		snap.TotalValue = snap.TotalValue.Add(pos.Value())
		snap.TotalCostBasis = snap.TotalCostBasis.Add(pos.CostBasis)
	}

	snap.UnrealizedPnL = snap.TotalValue.Sub(snap.TotalCostBasis)
	if snap.TotalCostBasis.IsPositive() {
		snap.PnLPct = snap.UnrealizedPnL.
			Div(snap.TotalCostBasis).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}
	return snap
}

// Swaps returns a copy of the capped display log, newest first.
func (l *Ledger) Swaps() []model.SwapRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]model.SwapRecord, len(l.swaps))
	copy(out, l.swaps)
	return out
}
