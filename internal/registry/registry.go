// Package registry holds market metadata: address → question plus the last
// observed probability. Markets are created lazily the first time a decision
// references them, so the engine never rejects an unknown address.
package registry

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/trademaxxer/paper-engine/internal/model"
)

// Registry is an in-memory market table.
type Registry struct {
	mu      sync.RWMutex
	markets map[string]*model.MarketSnapshot
}

// New creates a registry, optionally pre-seeded with known markets.
func New(seed []model.MarketSnapshot) *Registry {
	r := &Registry{markets: make(map[string]*model.MarketSnapshot)}
	for _, m := range seed {
		copy := m
		if copy.Probability.IsZero() {
			copy.Probability = decimal.NewFromFloat(0.5)
		}
		r.markets[m.Address] = &copy
	}
	return r
}

// Resolve returns the snapshot for address, creating a placeholder entry
// (short label, probability 0.5) when the market is unknown.
func (r *Registry) Resolve(address string) model.MarketSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.markets[address]
	if !ok {
		m = &model.MarketSnapshot{
			Address:     address,
			Question:    shortLabel(address),
			Probability: decimal.NewFromFloat(0.5),
		}
		r.markets[address] = m
	}
	return *m
}

// SetProbability records the latest observed probability for address,
// creating the market if needed.
func (r *Registry) SetProbability(address string, p decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.markets[address]
	if !ok {
		m = &model.MarketSnapshot{Address: address, Question: shortLabel(address)}
		r.markets[address] = m
	}
	m.Probability = p
}

// List returns a copy of all known markets.
func (r *Registry) List() []model.MarketSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.MarketSnapshot, 0, len(r.markets))
	for _, m := range r.markets {
		out = append(out, *m)
	}
	return out
}

// shortLabel abbreviates an on-chain address for display.
func shortLabel(address string) string {
	if len(address) <= 12 {
		return address
	}
	return address[:6] + "…" + address[len(address)-4:]
}
