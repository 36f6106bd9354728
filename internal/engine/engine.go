// Package engine turns one trade job into one simulated swap: it prices the
// fill from the job's intake-time snapshot, asks the quote gateway for a
// route, and commits the result to the ledger. It runs only inside the trade
// queue's single-flight worker, so fills are strictly ordered.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trademaxxer/paper-engine/internal/ledger"
	"github.com/trademaxxer/paper-engine/internal/metrics"
	"github.com/trademaxxer/paper-engine/internal/model"
	"github.com/trademaxxer/paper-engine/internal/quote"
)

// SpotCache supplies the last known spot price for fallback estimates.
// Satisfied by *quote.SpotPoller.
type SpotCache interface {
	Cached() (decimal.Decimal, string)
}

// Broadcaster publishes executed swaps to live observers. May be nil.
type Broadcaster interface {
	BroadcastSwap(model.SwapRecord)
}

// Engine executes trade jobs against the paper ledger.
type Engine struct {
	gateway    quote.Gateway
	spot       SpotCache
	book       *ledger.Ledger
	hub        Broadcaster
	contracts  decimal.Decimal // fixed per-trade size
	inputMint  string
	outputMint string
	timeout    time.Duration
}

// New creates an engine. hub may be nil when broadcasting is not needed.
func New(gw quote.Gateway, spot SpotCache, book *ledger.Ledger, hub Broadcaster,
	contractsPerTrade decimal.Decimal, inputMint, outputMint string, timeout time.Duration) *Engine {
	return &Engine{
		gateway:    gw,
		spot:       spot,
		book:       book,
		hub:        hub,
		contracts:  contractsPerTrade,
		inputMint:  inputMint,
		outputMint: outputMint,
		timeout:    timeout,
	}
}

// Execute runs one job to completion. It returns nil for both executed fills
// and handled no-ops (zero cost, insufficient funds); an error means the job
// failed in a way worth surfacing to the queue's failure accounting.
func (e *Engine) Execute(ctx context.Context, job model.TradeJob) error {
	start := time.Now()

	p := job.Market.Probability
	unitPrice := p
	if job.Decision.Action == model.ActionNo {
		unitPrice = decimal.NewFromInt(1).Sub(p)
	}
	cost := e.contracts.Mul(unitPrice)

	if !cost.IsPositive() {
		slog.Info("skipping zero-cost trade",
			"market", job.Market.Address,
			"action", job.Decision.Action,
			"unit_price", unitPrice.String(),
		)
		return nil
	}

	// Affordability gate before spending a quote call. The ledger re-checks
	// inside the commit, so this is a fast path, not the guarantee.
	if cost.GreaterThan(e.book.Cash()) {
		metrics.InsufficientFunds.Inc()
		slog.Warn("insufficient cash, trade skipped",
			"market", job.Market.Address,
			"cost", cost.String(),
			"cash", e.book.Cash().String(),
		)
		return nil
	}

	record := e.buildRecord(ctx, job, unitPrice, cost)

	err := e.book.ApplyFill(ledger.Fill{
		MarketID:  job.Market.Address,
		Label:     job.Market.Question,
		Side:      job.Decision.Action,
		Contracts: e.contracts,
		Cost:      cost,
		MarkPrice: p,
		Record:    record,
	})
	if errors.Is(err, ledger.ErrInsufficientFunds) {
		metrics.InsufficientFunds.Inc()
		slog.Warn("insufficient cash at commit, trade skipped",
			"market", job.Market.Address,
			"cost", cost.String(),
		)
		return nil
	}
	if err != nil {
		return err
	}

	metrics.SwapsTotal.WithLabelValues(job.Decision.Action).Inc()
	metrics.SwapLatency.WithLabelValues(job.Decision.Action).Observe(time.Since(start).Seconds())

	slog.Info("swap executed",
		"swap_id", record.ID,
		"market", job.Market.Address,
		"action", job.Decision.Action,
		"unit_price", unitPrice.String(),
		"cost_usdc", cost.String(),
		"received_sol", record.ReceivedSOL.String(),
		"routed", record.Route != nil,
		"sequence", job.Decision.Sequence,
	)

	if e.hub != nil {
		e.hub.BroadcastSwap(record)
	}
	return nil
}

// buildRecord obtains a swap quote for cost USDC into SOL, degrading to an
// estimate from the cached spot price when the quote capability fails.
func (e *Engine) buildRecord(ctx context.Context, job model.TradeJob, unitPrice, cost decimal.Decimal) model.SwapRecord {
	record := model.SwapRecord{
		ID:          uuid.New().String(),
		Side:        model.SideBuy,
		Contracts:   e.contracts,
		UnitPrice:   unitPrice,
		CostUSDC:    cost,
		MarketLabel: job.Market.Question,
		Timestamp:   time.Now().UTC(),
	}

	qctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	amountIn := cost.Mul(quote.USDCUnits).IntPart()
	sq, err := e.gateway.SwapQuote(qctx, e.inputMint, e.outputMint, amountIn)
	if err != nil {
		// Degraded fill: estimate output from the cached spot price; the
		// trade still completes, with route and impact unknown.
		metrics.QuoteFallbacks.Inc()
		spot, source := e.spot.Cached()
		if spot.IsPositive() {
			record.ReceivedSOL = cost.Div(spot)
		}
		record.QuoteLatencyMs = 0
		slog.Warn("swap quote unavailable, using spot estimate",
			"market", job.Market.Address,
			"spot_source", source,
			"err", err,
		)
		return record
	}

	record.ReceivedSOL = decimal.NewFromInt(sq.OutAmount).Div(quote.SOLUnits)
	record.Route = sq.Route
	impact := sq.PriceImpactPct
	record.PriceImpactPct = &impact
	record.QuoteLatencyMs = sq.LatencyMs
	return record
}
