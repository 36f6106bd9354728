package quote_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trademaxxer/paper-engine/internal/quote"
)

// flakyGateway serves a fixed price until failing is set.
type flakyGateway struct {
	mu      sync.Mutex
	price   decimal.Decimal
	failing bool
}

func (g *flakyGateway) SpotPrice(context.Context, string) (decimal.Decimal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failing {
		return decimal.Zero, quote.ErrPriceUnavailable
	}
	return g.price, nil
}

func (g *flakyGateway) SwapQuote(context.Context, string, string, int64) (quote.SwapQuote, error) {
	return quote.SwapQuote{}, quote.ErrQuoteUnavailable
}

func (g *flakyGateway) setFailing(v bool) {
	g.mu.Lock()
	g.failing = v
	g.mu.Unlock()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestSpotPoller_StartsOnFallbackThenGoesLive(t *testing.T) {
	gw := &flakyGateway{price: decimal.NewFromFloat(172.5)}
	p := quote.NewSpotPoller(gw, testMint, 10*time.Millisecond, time.Second, decimal.NewFromInt(150))

	price, source := p.Cached()
	if source != quote.SourceFallback || !price.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected seeded fallback price, got %s (%s)", price, source)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	waitFor(t, func() bool {
		_, s := p.Cached()
		return s == quote.SourceLive
	})
	price, _ = p.Cached()
	if !price.Equal(decimal.NewFromFloat(172.5)) {
		t.Errorf("expected live price 172.5, got %s", price)
	}
}

func TestSpotPoller_FailureKeepsPriceFlipsSource(t *testing.T) {
	gw := &flakyGateway{price: decimal.NewFromFloat(172.5)}
	p := quote.NewSpotPoller(gw, testMint, 10*time.Millisecond, time.Second, decimal.NewFromInt(150))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	waitFor(t, func() bool {
		_, s := p.Cached()
		return s == quote.SourceLive
	})

	gw.setFailing(true)
	waitFor(t, func() bool {
		_, s := p.Cached()
		return s == quote.SourceFallback
	})

	// Previous cached price stays in place while degraded.
	price, _ := p.Cached()
	if !price.Equal(decimal.NewFromFloat(172.5)) {
		t.Errorf("degraded poller must keep last price, got %s", price)
	}
}
