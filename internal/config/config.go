package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every environment-driven setting consumed by the service.
type Config struct {
	Addr       string
	PGDSN      string
	JWTSecret  string
	JWTIssuer  string
	TokenTTL   time.Duration
	CORSOrigin string
	Env        string

	RateBurst     int
	RatePerSecond int
	MaxBodyBytes  int64

	// Edge proxy settings (cmd/edge).
	EdgeAddr     string
	EdgeUpstream string
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first (development convenience, never overrides
// variables already set).
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Addr:          getenv("EDUNEXUS_ADDR", ":8080"),
		PGDSN:         getenv("EDUNEXUS_PG_DSN", ""),
		JWTSecret:     getenv("EDUNEXUS_JWT_SECRET", ""),
		JWTIssuer:     getenv("EDUNEXUS_JWT_ISSUER", "edunexus"),
		TokenTTL:      getenvDuration("EDUNEXUS_TOKEN_TTL", 7*24*time.Hour),
		CORSOrigin:    getenv("EDUNEXUS_CORS_ORIGIN", "http://localhost:3000"),
		Env:           getenv("EDUNEXUS_ENV", "development"),
		RateBurst:     getenvInt("EDUNEXUS_RATE_BURST", 50),
		RatePerSecond: getenvInt("EDUNEXUS_RATE_PER_SECOND", 25),
		MaxBodyBytes:  int64(getenvInt("EDUNEXUS_MAX_BODY_BYTES", 1<<20)),
		EdgeAddr:      getenv("EDUNEXUS_EDGE_ADDR", ":8081"),
		EdgeUpstream:  getenv("EDUNEXUS_EDGE_UPSTREAM", "http://localhost:3000"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("EDUNEXUS_JWT_SECRET is required")
	}
	return cfg, nil
}

// Production reports whether the service runs with production hardening
// (secure cookies, strict CORS).
func (c Config) Production() bool {
	return c.Env == "production"
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}
