package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr        string        // listen address
	Origins     []string      // allowed websocket origin patterns
	IdleTimeout time.Duration // evict sessions with no clients after this
	DatabaseURL string        // optional; empty disables match archiving
}

// Load reads .env (if present) and the environment. Every value has a
// workable default so a bare `go run` comes up.
func Load() Config {
	_ = godotenv.Load() // missing .env is fine

	cfg := Config{
		Addr:        getenv("ADDR", ":8080"),
		IdleTimeout: 10 * time.Minute,
		DatabaseURL: os.Getenv("DATABASE_URL"),
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.Origins = strings.Split(origins, ",")
	}
	if d, err := time.ParseDuration(os.Getenv("IDLE_TIMEOUT")); err == nil && d > 0 {
		cfg.IdleTimeout = d
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
