package quote_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trademaxxer/paper-engine/internal/quote"
)

const testMint = "So11111111111111111111111111111111111111112"

func newClient(spotURL, swapURL string) *quote.Client {
	return quote.NewClient(spotURL, swapURL, time.Second, 100, 100)
}

func TestSpotPrice_ParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("ids"); got != testMint {
			t.Errorf("unexpected ids param: %s", got)
		}
		w.Write([]byte(`{"data":{"` + testMint + `":{"price":"185.42"}}}`))
	}))
	defer srv.Close()

	c := newClient(srv.URL, srv.URL)
	price, err := c.SpotPrice(context.Background(), testMint)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Equal(decimal.NewFromFloat(185.42)) {
		t.Errorf("expected 185.42, got %s", price)
	}
}

func TestSpotPrice_FailuresMapToPriceUnavailable(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"non-2xx": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		},
		"malformed body": func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"data":`))
		},
		"missing mint": func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"data":{}}`))
		},
		"non-numeric price": func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"data":{"` + testMint + `":{"price":"n/a"}}}`))
		},
	}

	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			c := newClient(srv.URL, srv.URL)
			_, err := c.SpotPrice(context.Background(), testMint)
			if !errors.Is(err, quote.ErrPriceUnavailable) {
				t.Errorf("expected ErrPriceUnavailable, got %v", err)
			}
		})
	}
}

func TestSwapQuote_ParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("amount") != "500000" {
			t.Errorf("unexpected amount: %s", q.Get("amount"))
		}
		if q.Get("swapMode") != "ExactIn" {
			t.Errorf("unexpected swapMode: %s", q.Get("swapMode"))
		}
		w.Write([]byte(`{
			"outAmount": "3300000",
			"priceImpactPct": "0.0125",
			"routePlan": [
				{"swapInfo": {"label": "Orca"}},
				{"swapInfo": {"label": "Raydium"}}
			]
		}`))
	}))
	defer srv.Close()

	c := newClient(srv.URL, srv.URL)
	sq, err := c.SwapQuote(context.Background(), "USDC", testMint, 500000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sq.OutAmount != 3300000 {
		t.Errorf("expected outAmount 3300000, got %d", sq.OutAmount)
	}
	if len(sq.Route) != 2 || sq.Route[0] != "Orca" || sq.Route[1] != "Raydium" {
		t.Errorf("unexpected route: %v", sq.Route)
	}
	if !sq.PriceImpactPct.Equal(decimal.NewFromFloat(0.0125)) {
		t.Errorf("unexpected impact: %s", sq.PriceImpactPct)
	}
	if sq.LatencyMs < 0 {
		t.Errorf("latency must be non-negative, got %d", sq.LatencyMs)
	}
}

func TestSwapQuote_EmptyRoutePlanYieldsNilRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"outAmount":"3300000","priceImpactPct":"0","routePlan":[]}`))
	}))
	defer srv.Close()

	c := newClient(srv.URL, srv.URL)
	sq, err := c.SwapQuote(context.Background(), "USDC", testMint, 500000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sq.Route != nil {
		t.Errorf("route-less quote must have nil Route, got %v", sq.Route)
	}
}

func TestSwapQuote_FailuresMapToQuoteUnavailable(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"non-2xx": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		},
		"malformed outAmount": func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"outAmount":"lots","priceImpactPct":"0","routePlan":[]}`))
		},
	}

	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			c := newClient(srv.URL, srv.URL)
			_, err := c.SwapQuote(context.Background(), "USDC", testMint, 500000)
			if !errors.Is(err, quote.ErrQuoteUnavailable) {
				t.Errorf("expected ErrQuoteUnavailable, got %v", err)
			}
		})
	}
}

func TestSwapQuote_TimeoutIsQuoteUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := quote.NewClient(srv.URL, srv.URL, 20*time.Millisecond, 100, 100)
	_, err := c.SwapQuote(context.Background(), "USDC", testMint, 500000)
	if !errors.Is(err, quote.ErrQuoteUnavailable) {
		t.Errorf("timeout must map to ErrQuoteUnavailable, got %v", err)
	}
}
