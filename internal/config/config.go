package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr    string
	GRPCAddr    string
	DatabaseURL string
	AuthSecret  string
	TokenIssuer string
	TokenTTL    time.Duration
	RateBurst   int
	RatePerSec  int
	Version     string
}

func Load() Config {
	return Config{
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		GRPCAddr:    getenv("GRPC_ADDR", ":9090"),
		DatabaseURL: getenv("DATABASE_URL", ""),
		AuthSecret:  getenv("ROLLBOOK_AUTH_SECRET", ""),
		TokenIssuer: getenv("ROLLBOOK_TOKEN_ISSUER", "rollbook"),
		TokenTTL:    getenvDuration("ROLLBOOK_TOKEN_TTL", 30*time.Minute),
		RateBurst:   getenvInt("RATE_BURST", 20),
		RatePerSec:  getenvInt("RATE_PER_SEC", 10),
		Version:     getenv("ROLLBOOK_VERSION", "dev"),
	}
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
