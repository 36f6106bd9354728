// Package metrics provides Prometheus instrumentation for the paper engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DecisionsTotal counts decisions consumed from the stream, by action.
	DecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paper_decisions_total",
		Help: "Total decisions consumed from the stream",
	}, []string{"action"})

	// InvalidDecisions counts decisions dropped at intake.
	InvalidDecisions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paper_invalid_decisions_total",
		Help: "Decisions dropped for invalid action or missing market",
	})

	// SwapsTotal counts executed simulated swaps, partitioned by side.
	SwapsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paper_swaps_total",
		Help: "Total simulated swaps executed",
	}, []string{"side"})

	// SwapLatency observes full execution latency per swap.
	SwapLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "paper_swap_latency_seconds",
		Help:    "Swap execution latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"side"})

	// QuoteFallbacks counts swaps completed via the spot-price estimate
	// because the quote capability failed.
	QuoteFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paper_quote_fallbacks_total",
		Help: "Swaps filled from the cached spot price after quote failure",
	})

	// InsufficientFunds counts jobs skipped because cost exceeded cash.
	InsufficientFunds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paper_insufficient_funds_total",
		Help: "Trade jobs skipped because cost exceeded cash balance",
	})

	// TradeFailures counts jobs whose execution returned an error.
	TradeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paper_trade_failures_total",
		Help: "Trade jobs that failed during execution",
	})

	// QueueDepth tracks pending jobs in the trade queue.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "paper_trade_queue_depth",
		Help: "Pending jobs in the trade queue",
	})

	// SpotPriceUSD tracks the cached spot price.
	SpotPriceUSD = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "paper_spot_price_usd",
		Help: "Cached base-asset spot price in quote currency",
	})

	// SpotPollFailures counts failed spot-price refreshes.
	SpotPollFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paper_spot_poll_failures_total",
		Help: "Spot price refresh failures",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "paper_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paper_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "paper_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the raw path for the label; the API surface is small and
		// parameter-free, so cardinality stays bounded.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
