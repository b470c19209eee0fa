package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Port           int
	DatabaseURL    string
	StoreDriver    string
	LogLevel       slog.Level
	RequestTimeout time.Duration
	RedisAddr      string
	KafkaBrokers   []string
	KafkaTopic     string
	ServiceName    string
}

// Load reads the process environment, falling back to a .env file in the
// working directory. Variables already set in the environment win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		StoreDriver:  strings.ToLower(getenv("STORE_DRIVER", DriverPostgres)),
		DatabaseURL:  getenv("DATABASE_URL", ""),
		RedisAddr:    getenv("REDIS_ADDR", ""),
		KafkaBrokers: splitCSV(getenv("KAFKA_BROKERS", "")),
		KafkaTopic:   getenv("KAFKA_TOPIC", "stockflow.events"),
		ServiceName:  getenv("SERVICE_NAME", "stockflow"),
	}

	portRaw := getenv("PORT", "8080")
	port, err := strconv.Atoi(portRaw)
	if err != nil || port <= 0 || port > 65535 {
		return Config{}, fmt.Errorf("invalid PORT: %q", portRaw)
	}
	cfg.Port = port

	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=%s (environment variable or .env)", DriverPostgres)
		}
	case DriverMemory:
	default:
		return Config{}, fmt.Errorf("invalid STORE_DRIVER: %q (want %s or %s)", cfg.StoreDriver, DriverPostgres, DriverMemory)
	}

	levelRaw := getenv("LOG_LEVEL", "info")
	if err := cfg.LogLevel.UnmarshalText([]byte(levelRaw)); err != nil {
		return Config{}, fmt.Errorf("invalid LOG_LEVEL: %q", levelRaw)
	}

	timeoutRaw := getenv("REQUEST_TIMEOUT", "60s")
	timeout, err := time.ParseDuration(timeoutRaw)
	if err != nil || timeout <= 0 {
		return Config{}, fmt.Errorf("invalid REQUEST_TIMEOUT: %q", timeoutRaw)
	}
	cfg.RequestTimeout = timeout

	return cfg, nil
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
