// Package model defines the core domain types shared across the paper engine.
// All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Decision actions emitted by the agent layer.
const (
	ActionYes  = "YES"
	ActionNo   = "NO"
	ActionSkip = "SKIP"
)

// SideBuy is the only swap side: the paper book only ever buys outcome
// exposure; positions decay by market resolution, never by sell orders.
const SideBuy = "BUY"

// Decision is one agent signal read from the decision stream. The stream is
// append-only: decisions arrive in Sequence order and are never rewritten.
type Decision struct {
	MarketID         string           `json:"market_address"`
	Action           string           `json:"action"` // "YES", "NO", "SKIP"
	TheoreticalPrice *decimal.Decimal `json:"theoretical_price,omitempty"`
	PreviousPrice    *decimal.Decimal `json:"previous_market_price,omitempty"`
	Sequence         int64            `json:"sequence"`
	Confidence       decimal.Decimal  `json:"confidence"`
	Reasoning        string           `json:"reasoning,omitempty"`
	StoryID          string           `json:"story_id,omitempty"`
	AgentLatencyMs   float64          `json:"latency_ms,omitempty"`
}

// MarketSnapshot is the market view captured at intake time. Both the
// mark-to-market update and the eventual fill price use Probability, so a
// decision can never execute against a different price than it was marked at.
type MarketSnapshot struct {
	Address     string          `json:"address"`
	Question    string          `json:"question"`
	Probability decimal.Decimal `json:"probability"`
}

// TradeJob pairs a decision with its intake-time market snapshot.
// Immutable once enqueued.
type TradeJob struct {
	Decision Decision
	Market   MarketSnapshot
}

// Position is the aggregate holding in one market.
// Invariant: Contracts == 0 implies CostBasis == 0.
type Position struct {
	MarketID  string          `json:"market_address"`
	Label     string          `json:"label"`
	Side      string          `json:"side"` // "YES" or "NO"
	Contracts decimal.Decimal `json:"contracts"`
	CostBasis decimal.Decimal `json:"cost_basis"`
	MarkPrice decimal.Decimal `json:"mark_price"` // probability in [0,1]
}

// Value returns the mark-to-market value of the position:
// contracts * markPrice for YES, contracts * (1 - markPrice) for NO.
func (p Position) Value() decimal.Decimal {
	price := p.MarkPrice
	if p.Side == ActionNo {
		price = decimal.NewFromInt(1).Sub(p.MarkPrice)
	}
	return p.Contracts.Mul(price)
}

// SwapRecord is an immutable record of one simulated swap.
// Once created, these are never modified. The display log is capped, but
// accounting (cash, cost basis) never reads it.
type SwapRecord struct {
	ID             string           `json:"id"`
	Side           string           `json:"side"`
	Contracts      decimal.Decimal  `json:"contracts"`
	UnitPrice      decimal.Decimal  `json:"unit_price"`
	CostUSDC       decimal.Decimal  `json:"cost_usdc"`
	ReceivedSOL    decimal.Decimal  `json:"received_sol"`
	Route          []string         `json:"route,omitempty"` // nil when estimated
	PriceImpactPct *decimal.Decimal `json:"price_impact_pct,omitempty"`
	QuoteLatencyMs int64            `json:"quote_latency_ms"`
	MarketLabel    string           `json:"market_label"`
	Timestamp      time.Time        `json:"timestamp"`
}

// PortfolioSnapshot is a read-only view of the ledger, safe to serve while
// executions are in flight.
type PortfolioSnapshot struct {
	CashUSDC       decimal.Decimal `json:"cash_usdc"`
	Positions      []Position      `json:"positions"`
	TotalValue     decimal.Decimal `json:"total_value"`
	TotalCostBasis decimal.Decimal `json:"total_cost_basis"`
	UnrealizedPnL  decimal.Decimal `json:"unrealized_pnl"`
	PnLPct         decimal.Decimal `json:"pnl_pct"`
}

// ValidAction reports whether action is one of YES, NO, SKIP.
func ValidAction(action string) bool {
	return action == ActionYes || action == ActionNo || action == ActionSkip
}
