package quote

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trademaxxer/paper-engine/internal/metrics"
)

// Cache source indicators.
const (
	SourceLive     = "live"
	SourceFallback = "fallback"
)

// SpotPoller refreshes the base-asset spot price on a fixed interval,
// independent of trade activity. A failed refresh keeps the previous cached
// price and flips the source indicator to "fallback". The poller starts from
// the configured fallback price so an estimate is always available.
type SpotPoller struct {
	gw       Gateway
	mint     string
	interval time.Duration
	timeout  time.Duration

	mu     sync.RWMutex
	price  decimal.Decimal
	source string
}

// NewSpotPoller creates a poller seeded with the fallback price.
func NewSpotPoller(gw Gateway, mint string, interval, timeout time.Duration, fallback decimal.Decimal) *SpotPoller {
	metrics.SpotPriceUSD.Set(fallback.InexactFloat64())
	return &SpotPoller{
		gw:       gw,
		mint:     mint,
		interval: interval,
		timeout:  timeout,
		price:    fallback,
		source:   SourceFallback,
	}
}

// Run refreshes immediately, then on every interval tick until ctx is done.
// Must be called in its own goroutine; it never blocks trade execution.
func (p *SpotPoller) Run(ctx context.Context) {
	p.refresh(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

func (p *SpotPoller) refresh(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	price, err := p.gw.SpotPrice(cctx, p.mint)
	if err != nil {
		metrics.SpotPollFailures.Inc()
		p.mu.Lock()
		p.source = SourceFallback
		p.mu.Unlock()
		slog.Warn("spot price refresh failed, keeping cached price",
			"mint", p.mint,
			"err", err,
		)
		return
	}

	p.mu.Lock()
	p.price = price
	p.source = SourceLive
	p.mu.Unlock()
	metrics.SpotPriceUSD.Set(price.InexactFloat64())
}

// Cached returns the last known price and its source indicator.
func (p *SpotPoller) Cached() (decimal.Decimal, string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.price, p.source
}
