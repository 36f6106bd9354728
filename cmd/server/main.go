package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"github.com/trademaxxer/paper-engine/internal/api"
	"github.com/trademaxxer/paper-engine/internal/config"
	"github.com/trademaxxer/paper-engine/internal/engine"
	"github.com/trademaxxer/paper-engine/internal/feed"
	"github.com/trademaxxer/paper-engine/internal/intake"
	"github.com/trademaxxer/paper-engine/internal/ledger"
	"github.com/trademaxxer/paper-engine/internal/metrics"
	"github.com/trademaxxer/paper-engine/internal/model"
	"github.com/trademaxxer/paper-engine/internal/queue"
	"github.com/trademaxxer/paper-engine/internal/quote"
	"github.com/trademaxxer/paper-engine/internal/registry"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	configPath := flag.String("config", "config.yaml", "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config load failed", "path", *configPath, "err", err)
		os.Exit(1)
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Quote gateway + spot poller ---
	gateway := quote.NewClient(
		cfg.Quote.SpotURL,
		cfg.Quote.SwapURL,
		cfg.Quote.QuoteTimeout(),
		cfg.Quote.RequestsPerSecond,
		cfg.Quote.Burst,
	)
	poller := quote.NewSpotPoller(
		gateway,
		cfg.Quote.OutputMint,
		cfg.Quote.SpotPollInterval(),
		cfg.Quote.QuoteTimeout(),
		decimal.NewFromFloat(cfg.Quote.FallbackSpotPrice),
	)
	go poller.Run(ctx)

	// --- Portfolio ledger + market registry ---
	book := ledger.New(decimal.NewFromFloat(cfg.Portfolio.SeedCashUSDC), cfg.Portfolio.SwapLogCap)

	seed := make([]model.MarketSnapshot, 0, len(cfg.Markets))
	for _, m := range cfg.Markets {
		seed = append(seed, model.MarketSnapshot{Address: m.Address, Question: m.Question})
	}
	reg := registry.New(seed)

	// --- WebSocket hub ---
	hub := api.NewHub()
	go hub.Run()

	// --- Execution engine + trade queue ---
	exec := engine.New(
		gateway,
		poller,
		book,
		hub,
		decimal.NewFromFloat(cfg.Portfolio.ContractsPerTrade),
		cfg.Quote.InputMint,
		cfg.Quote.OutputMint,
		cfg.Quote.QuoteTimeout(),
	)
	tradeQueue := queue.New(ctx, exec)

	// --- Decision intake + feed subscription ---
	in := intake.New(book, reg, tradeQueue)
	sub := feed.NewSubscriber(
		cfg.Feed.URL,
		time.Duration(cfg.Feed.ReconnectMinMs)*time.Millisecond,
		time.Duration(cfg.Feed.ReconnectMaxMs)*time.Millisecond,
		in.OnStreamGrowth,
	)
	go sub.Run(ctx)

	// --- HTTP router ---
	svc := api.NewService(book, poller, reg, tradeQueue, decimal.NewFromFloat(cfg.Portfolio.TopUpUSDC))

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"paper-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for real-time swap broadcasts.
		r.Get("/ws", hub.HandleWS)

		// Portfolio reads.
		r.Get("/portfolio", svc.GetPortfolio)
		r.Get("/swaps", svc.GetSwaps)
		r.Get("/spot", svc.GetSpot)
		r.Get("/markets", svc.ListMarkets)
		r.Get("/status", svc.GetStatus)

		// Operational.
		r.Post("/topup", svc.TopUp)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("paper-engine listening", "port", cfg.Port, "feed", cfg.Feed.URL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down paper-engine...")
	cancel() // stops poller, feed subscriber, and bounds queued executions

	sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer scancel()
	if err := srv.Shutdown(sctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("paper-engine stopped")
}
