package registry_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/trademaxxer/paper-engine/internal/model"
	"github.com/trademaxxer/paper-engine/internal/registry"
)

func TestResolve_CreatesPlaceholder(t *testing.T) {
	r := registry.New(nil)

	m := r.Resolve("FakeContract1111111111111111111111111111111")
	if m.Question == "" {
		t.Error("placeholder should carry a display label")
	}
	if !m.Probability.Equal(decimal.NewFromFloat(0.5)) {
		t.Errorf("placeholder probability should be 0.5, got %s", m.Probability)
	}

	// Second resolve returns the same entry, not a fresh placeholder.
	r.SetProbability(m.Address, decimal.NewFromFloat(0.8))
	again := r.Resolve(m.Address)
	if !again.Probability.Equal(decimal.NewFromFloat(0.8)) {
		t.Errorf("expected stored probability 0.8, got %s", again.Probability)
	}
}

func TestNew_SeedsMarkets(t *testing.T) {
	r := registry.New([]model.MarketSnapshot{
		{Address: "addr1", Question: "Will it rain?"},
	})

	m := r.Resolve("addr1")
	if m.Question != "Will it rain?" {
		t.Errorf("expected seeded question, got %q", m.Question)
	}
	if len(r.List()) != 1 {
		t.Errorf("expected 1 market, got %d", len(r.List()))
	}
}
