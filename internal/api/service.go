// Package api provides the HTTP read surface over the paper portfolio plus
// the operational top-up endpoint. Presentation layers poll these endpoints;
// they never mutate engine state except through the explicit top-up.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/trademaxxer/paper-engine/internal/ledger"
	"github.com/trademaxxer/paper-engine/internal/quote"
	"github.com/trademaxxer/paper-engine/internal/registry"
)

// QueueStats reports trade-queue occupancy. Satisfied by *queue.Queue.
type QueueStats interface {
	Depth() int
}

// Service bundles the read-only views and the top-up operation.
type Service struct {
	book   *ledger.Ledger
	poller *quote.SpotPoller
	reg    *registry.Registry
	queue  QueueStats
	topUp  decimal.Decimal
}

// NewService creates the HTTP service.
func NewService(book *ledger.Ledger, poller *quote.SpotPoller, reg *registry.Registry, q QueueStats, topUp decimal.Decimal) *Service {
	return &Service{book: book, poller: poller, reg: reg, queue: q, topUp: topUp}
}

// GetPortfolio handles GET /api/v1/portfolio
func (s *Service) GetPortfolio(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.book.Snapshot())
}

// GetSwaps handles GET /api/v1/swaps
// Returns the capped display log, newest first.
func (s *Service) GetSwaps(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.book.Swaps())
}

// GetSpot handles GET /api/v1/spot
func (s *Service) GetSpot(w http.ResponseWriter, _ *http.Request) {
	price, source := s.poller.Cached()
	writeJSON(w, http.StatusOK, map[string]any{
		"price":  price,
		"source": source,
	})
}

// ListMarkets handles GET /api/v1/markets
func (s *Service) ListMarkets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.reg.List())
}

// GetStatus handles GET /api/v1/status
func (s *Service) GetStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"cash_usdc":   s.book.Cash(),
		"queue_depth": s.queue.Depth(),
	})
}

// TopUp handles POST /api/v1/topup
// Credits the fixed configured increment; used for manual testing and demos,
// never decision-driven.
func (s *Service) TopUp(w http.ResponseWriter, _ *http.Request) {
	balance := s.book.TopUp(s.topUp)
	slog.Info("cash top-up",
		"amount", s.topUp.String(),
		"balance", balance.String(),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"credited":  s.topUp,
		"cash_usdc": balance,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
