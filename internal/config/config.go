// Package config loads engine configuration from a YAML file with sane
// defaults, so the engine runs out of the box against public endpoints.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Quote configures the external spot-price and swap-quote capabilities.
type Quote struct {
	SpotURL           string  `yaml:"spot_url"`
	SwapURL           string  `yaml:"swap_url"`
	TimeoutMs         int     `yaml:"timeout_ms"`
	SpotPollMs        int     `yaml:"spot_poll_ms"`
	FallbackSpotPrice float64 `yaml:"fallback_spot_price"` // USDC per SOL
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	InputMint         string  `yaml:"input_mint"`  // quote currency (USDC)
	OutputMint        string  `yaml:"output_mint"` // base currency (wSOL)
}

// Portfolio configures the paper book.
type Portfolio struct {
	SeedCashUSDC      float64 `yaml:"seed_cash_usdc"`
	ContractsPerTrade float64 `yaml:"contracts_per_trade"`
	TopUpUSDC         float64 `yaml:"topup_usdc"`
	SwapLogCap        int     `yaml:"swap_log_cap"`
}

// Feed configures the decision stream subscription.
type Feed struct {
	URL            string `yaml:"url"`
	ReconnectMinMs int    `yaml:"reconnect_min_ms"`
	ReconnectMaxMs int    `yaml:"reconnect_max_ms"`
}

// Market seeds the registry with a known market.
type Market struct {
	Address  string `yaml:"address"`
	Question string `yaml:"question"`
}

// Root is the top-level configuration.
type Root struct {
	Port      string    `yaml:"port"`
	Quote     Quote     `yaml:"quote"`
	Portfolio Portfolio `yaml:"portfolio"`
	Feed      Feed      `yaml:"feed"`
	Markets   []Market  `yaml:"markets"`
}

// Default returns the configuration used when no file is present.
func Default() Root {
	return Root{
		Port: "8080",
		Quote: Quote{
			SpotURL:           "https://lite-api.jup.ag/price/v2",
			SwapURL:           "https://lite-api.jup.ag/swap/v1",
			TimeoutMs:         5000,
			SpotPollMs:        10000,
			FallbackSpotPrice: 150,
			RequestsPerSecond: 5,
			Burst:             10,
			InputMint:         "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", // USDC
			OutputMint:        "So11111111111111111111111111111111111111112",  // wSOL
		},
		Portfolio: Portfolio{
			SeedCashUSDC:      20,
			ContractsPerTrade: 1,
			TopUpUSDC:         20,
			SwapLogCap:        30,
		},
		Feed: Feed{
			URL:            "ws://localhost:8765/decisions",
			ReconnectMinMs: 500,
			ReconnectMaxMs: 15000,
		},
	}
}

// Load reads the YAML file at path, applying defaults for zero values.
// A missing file is not an error: defaults are returned.
func Load(path string) (Root, error) {
	c := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return c, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("parse config: %w", err)
	}

	// Zero values from a sparse file fall back to defaults.
	d := Default()
	if c.Port == "" {
		c.Port = d.Port
	}
	if c.Quote.SpotURL == "" {
		c.Quote.SpotURL = d.Quote.SpotURL
	}
	if c.Quote.SwapURL == "" {
		c.Quote.SwapURL = d.Quote.SwapURL
	}
	if c.Quote.TimeoutMs <= 0 {
		c.Quote.TimeoutMs = d.Quote.TimeoutMs
	}
	if c.Quote.SpotPollMs <= 0 {
		c.Quote.SpotPollMs = d.Quote.SpotPollMs
	}
	if c.Quote.FallbackSpotPrice <= 0 {
		c.Quote.FallbackSpotPrice = d.Quote.FallbackSpotPrice
	}
	if c.Quote.RequestsPerSecond <= 0 {
		c.Quote.RequestsPerSecond = d.Quote.RequestsPerSecond
	}
	if c.Quote.Burst <= 0 {
		c.Quote.Burst = d.Quote.Burst
	}
	if c.Quote.InputMint == "" {
		c.Quote.InputMint = d.Quote.InputMint
	}
	if c.Quote.OutputMint == "" {
		c.Quote.OutputMint = d.Quote.OutputMint
	}
	if c.Portfolio.SeedCashUSDC <= 0 {
		c.Portfolio.SeedCashUSDC = d.Portfolio.SeedCashUSDC
	}
	if c.Portfolio.ContractsPerTrade <= 0 {
		c.Portfolio.ContractsPerTrade = d.Portfolio.ContractsPerTrade
	}
	if c.Portfolio.TopUpUSDC <= 0 {
		c.Portfolio.TopUpUSDC = d.Portfolio.TopUpUSDC
	}
	if c.Portfolio.SwapLogCap <= 0 {
		c.Portfolio.SwapLogCap = d.Portfolio.SwapLogCap
	}
	if c.Feed.URL == "" {
		c.Feed.URL = d.Feed.URL
	}
	if c.Feed.ReconnectMinMs <= 0 {
		c.Feed.ReconnectMinMs = d.Feed.ReconnectMinMs
	}
	if c.Feed.ReconnectMaxMs <= 0 {
		c.Feed.ReconnectMaxMs = d.Feed.ReconnectMaxMs
	}

	return c, nil
}

// QuoteTimeout returns the bounded timeout applied to every outbound call.
func (q Quote) QuoteTimeout() time.Duration {
	return time.Duration(q.TimeoutMs) * time.Millisecond
}

// SpotPollInterval returns the spot-price refresh interval.
func (q Quote) SpotPollInterval() time.Duration {
	return time.Duration(q.SpotPollMs) * time.Millisecond
}
