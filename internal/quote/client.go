// Package quote wraps the two external pricing capabilities — base-asset
// spot price and aggregator swap quotes — behind one Gateway interface.
// Network I/O only; no engine state lives here.
package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

var (
	// ErrPriceUnavailable is returned when the spot-price capability fails.
	// Callers fall back to the last cached price.
	ErrPriceUnavailable = errors.New("quote: spot price unavailable")

	// ErrQuoteUnavailable is returned when the swap-quote capability fails.
	// Callers fall back to an estimate from the cached spot price.
	ErrQuoteUnavailable = errors.New("quote: swap quote unavailable")
)

// Base-unit scales for the two legs of the simulated swap.
var (
	// USDCUnits converts USDC to its 6-decimal base units.
	USDCUnits = decimal.New(1, 6)
	// SOLUnits converts SOL to lamports.
	SOLUnits = decimal.New(1, 9)
)

// SwapQuote is a quote for converting an exact input amount.
type SwapQuote struct {
	OutAmount      int64           // output, base units
	Route          []string        // ordered venue labels
	PriceImpactPct decimal.Decimal
	LatencyMs      int64
}

// Gateway is the uniform interface over both pricing capabilities.
// Both operations are idempotent and safe to retry; the engine does not
// retry automatically.
type Gateway interface {
	SpotPrice(ctx context.Context, mint string) (decimal.Decimal, error)
	SwapQuote(ctx context.Context, inputMint, outputMint string, amount int64) (SwapQuote, error)
}

// Client is the HTTP Gateway implementation against Jupiter-style APIs.
type Client struct {
	http    *http.Client
	spotURL string
	swapURL string
	limiter *rate.Limiter
}

// NewClient creates a Gateway with a bounded per-request timeout and an
// outbound rate limit shared by both capabilities.
func NewClient(spotURL, swapURL string, timeout time.Duration, rps float64, burst int) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		spotURL: spotURL,
		swapURL: swapURL,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

type spotResponse struct {
	Data map[string]struct {
		Price string `json:"price"`
	} `json:"data"`
}

// SpotPrice fetches the current price of mint in quote currency.
func (c *Client) SpotPrice(ctx context.Context, mint string) (decimal.Decimal, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}

	u := c.spotURL + "?ids=" + url.QueryEscape(mint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("%w: status %d", ErrPriceUnavailable, resp.StatusCode)
	}

	var body spotResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}

	entry, ok := body.Data[mint]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no price for %s", ErrPriceUnavailable, mint)
	}
	price, err := decimal.NewFromString(entry.Price)
	if err != nil || !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: malformed price %q", ErrPriceUnavailable, entry.Price)
	}
	return price, nil
}

type swapResponse struct {
	OutAmount      string `json:"outAmount"`
	PriceImpactPct string `json:"priceImpactPct"`
	RoutePlan      []struct {
		SwapInfo struct {
			Label string `json:"label"`
		} `json:"swapInfo"`
	} `json:"routePlan"`
}

// SwapQuote requests a quote for swapping amount base units of inputMint
// into outputMint. Latency is measured client-side.
func (c *Client) SwapQuote(ctx context.Context, inputMint, outputMint string, amount int64) (SwapQuote, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return SwapQuote{}, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}

	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", strconv.FormatInt(amount, 10))
	q.Set("swapMode", "ExactIn")
	u := c.swapURL + "/quote?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return SwapQuote{}, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return SwapQuote{}, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return SwapQuote{}, fmt.Errorf("%w: status %d", ErrQuoteUnavailable, resp.StatusCode)
	}

	var body swapResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return SwapQuote{}, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}

	out, err := strconv.ParseInt(body.OutAmount, 10, 64)
	if err != nil || out <= 0 {
		return SwapQuote{}, fmt.Errorf("%w: malformed outAmount %q", ErrQuoteUnavailable, body.OutAmount)
	}

	impact, err := decimal.NewFromString(body.PriceImpactPct)
	if err != nil {
		impact = decimal.Zero
	}

	// A quote without a route plan yields a nil Route, matching the
	// estimated-fill shape, rather than an empty non-nil slice.
	var route []string
	for _, hop := range body.RoutePlan {
		route = append(route, hop.SwapInfo.Label)
	}

	return SwapQuote{
		OutAmount:      out,
		Route:          route,
		PriceImpactPct: impact,
		LatencyMs:      time.Since(start).Milliseconds(),
	}, nil
}
