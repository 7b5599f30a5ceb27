// Package config loads engine settings from the environment, with an
// optional .env file for local runs.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/shataken-source/cevict-live-sub025/core"
	"github.com/shataken-source/cevict-live-sub025/pkg/venue"
)

// Config holds everything the daemon needs at startup.
type Config struct {
	DatabaseURL     string // empty selects the in-memory store
	VenueAPIToken   string // empty degrades execution to simulated mode
	VenueBaseURL    string
	VenueStreamURL  string        // websocket quote stream, empty disables it
	Category        string        // venue market category to trade
	PredictionsDir  string        // directory watched for prediction artifacts
	Interval        time.Duration // scheduled-run interval, 0 with -once
	ListenAddr      string        // metrics/status HTTP listener
	SimBalanceCents int64         // starting balance for simulated mode
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		VenueAPIToken:   os.Getenv("VENUE_API_TOKEN"),
		VenueBaseURL:    envOr("VENUE_BASE_URL", venue.DefaultBaseURL),
		VenueStreamURL:  os.Getenv("VENUE_WS_URL"),
		Category:        envOr("MARKET_CATEGORY", "sports"),
		PredictionsDir:  envOr("PREDICTIONS_DIR", "predictions"),
		ListenAddr:      envOr("LISTEN_ADDR", ":9090"),
		SimBalanceCents: 100000,
	}

	interval := envOr("RUN_INTERVAL", "15m")
	d, err := time.ParseDuration(interval)
	if err != nil {
		return nil, &core.ConfigError{Key: "RUN_INTERVAL", Reason: "bad duration " + interval}
	}
	cfg.Interval = d

	if raw := os.Getenv("SIM_BALANCE_CENTS"); raw != "" {
		balance, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || balance <= 0 {
			return nil, &core.ConfigError{Key: "SIM_BALANCE_CENTS", Reason: "must be a positive integer"}
		}
		cfg.SimBalanceCents = balance
	}

	return cfg, nil
}

// VenueCredentials returns the live-trading token, or a ConfigError when it
// is absent. Callers treat the error as the signal to run simulated.
func (c *Config) VenueCredentials() (string, error) {
	if c.VenueAPIToken == "" {
		return "", &core.ConfigError{Key: "VENUE_API_TOKEN", Reason: "not set"}
	}
	return c.VenueAPIToken, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
