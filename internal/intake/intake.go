// Package intake watches the growing decision sequence and dispatches work:
// a synchronous mark-to-market for every decision, a queued trade job for
// every actionable one. Growth is measured by sequence length, never by
// content diffing, so coalesced bursts are processed exactly once each.
package intake

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/trademaxxer/paper-engine/internal/ledger"
	"github.com/trademaxxer/paper-engine/internal/metrics"
	"github.com/trademaxxer/paper-engine/internal/model"
	"github.com/trademaxxer/paper-engine/internal/registry"
)

// ErrInvalidDecision marks a decision dropped for a bad action or missing
// market reference. No state is mutated for such decisions.
var ErrInvalidDecision = errors.New("intake: invalid decision")

// Sink receives trade jobs in arrival order. Satisfied by *queue.Queue.
type Sink interface {
	Enqueue(model.TradeJob)
}

// Intake tracks how much of the decision sequence has been processed.
type Intake struct {
	book *ledger.Ledger
	reg  *registry.Registry
	sink Sink

	mu   sync.Mutex
	seen int // length of the already-processed prefix
}

// New creates an intake starting at the beginning of the stream.
func New(book *ledger.Ledger, reg *registry.Registry, sink Sink) *Intake {
	return &Intake{book: book, reg: reg, sink: sink}
}

// OnStreamGrowth processes the suffix of seq beyond the already-seen prefix,
// oldest first. The lock spans delta computation through dispatch, so
// overlapping growth notifications can never reorder or duplicate items.
func (in *Intake) OnStreamGrowth(seq []model.Decision) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if len(seq) <= in.seen {
		return
	}
	delta := seq[in.seen:]
	in.seen = len(seq)

	for _, d := range delta {
		in.process(d)
	}
}

// Seen returns the processed-prefix length.
func (in *Intake) Seen() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.seen
}

func (in *Intake) process(d model.Decision) {
	if err := validate(d); err != nil {
		metrics.InvalidDecisions.Inc()
		slog.Warn("dropping invalid decision",
			"market", d.MarketID,
			"action", d.Action,
			"sequence", d.Sequence,
			"err", err,
		)
		return
	}

	metrics.DecisionsTotal.WithLabelValues(d.Action).Inc()

	p := in.referencePrice(d)
	in.reg.SetProbability(d.MarketID, p)

	// Cheap synchronous path: runs for every decision, actionable or not,
	// and can never be starved by a slow execution.
	in.book.MarkToMarket(d.MarketID, p)

	if d.Action == model.ActionSkip {
		return
	}

	snap := in.reg.Resolve(d.MarketID)
	snap.Probability = p
	in.sink.Enqueue(model.TradeJob{Decision: d, Market: snap})
}

// referencePrice picks the single authoritative price for this decision:
// the carried theoretical price, else the previous market price, else the
// registry's last observed probability. Clamped to [0,1].
func (in *Intake) referencePrice(d model.Decision) decimal.Decimal {
	var p decimal.Decimal
	switch {
	case d.TheoreticalPrice != nil:
		p = *d.TheoreticalPrice
	case d.PreviousPrice != nil:
		p = *d.PreviousPrice
	default:
		p = in.reg.Resolve(d.MarketID).Probability
	}

	one := decimal.NewFromInt(1)
	if p.IsNegative() {
		return decimal.Zero
	}
	if p.GreaterThan(one) {
		return one
	}
	return p
}

func validate(d model.Decision) error {
	if d.MarketID == "" {
		return ErrInvalidDecision
	}
	if !model.ValidAction(d.Action) {
		return ErrInvalidDecision
	}
	return nil
}
