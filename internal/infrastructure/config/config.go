package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries the runtime settings the server needs. Values come from the
// environment; main loads a .env file first so local development works without
// exporting anything.
type Config struct {
	Addr        string
	DatabaseURL string
	RedisURL    string // optional; cache and queue are skipped when empty
	TokenSecret string
	TokenTTL    time.Duration
}

func Load() Config {
	addr := envOrDefault("PORT", "8080")
	ttlHours := envOrDefault("TOKEN_TTL_HOURS", "24")
	ttlParsed, err := strconv.Atoi(ttlHours)
	if err != nil || ttlParsed <= 0 {
		ttlParsed = 24
	}
	return Config{
		Addr:        ":" + addr,
		DatabaseURL: os.Getenv("DB_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		TokenSecret: os.Getenv("TOKEN_SECRET"),
		TokenTTL:    time.Duration(ttlParsed) * time.Hour,
	}
}

func envOrDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
