// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Storage
	DatabaseURL  string // PostgreSQL connection string (optional, decision log stays in memory if not set)
	RedisURL     string // Redis connection string (optional, status mirror disabled if not set)
	SnapshotPath string // Agent snapshot file

	// Tracing
	OTLPEndpoint string // OTLP gRPC endpoint (optional, tracing disabled if not set)

	// Security
	RateLimitRPS   int
	MaxRequestSize int64

	// Engine tunables
	HistoryWindow    int           // risk history ring capacity
	VelocitySample   int           // samples used for the velocity slope
	CheckinCooldown  time.Duration // silent_checkin
	RouteCooldown    time.Duration // suggest_route
	EscalateCooldown time.Duration // recommend_escalation
}

const (
	DefaultPort           = "8080"
	DefaultEnv            = "development"
	DefaultLogLevel       = "info"
	DefaultSnapshotPath   = "agent_state.json"
	DefaultRateLimit      = 100
	DefaultMaxRequestSize = 1 << 20 // 1 MiB

	DefaultHistoryWindow  = 20
	DefaultVelocitySample = 5
)

// Load reads configuration from environment variables.
// It loads .env file if present (for local development).
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", DefaultPort),
		Env:              getEnv("ENV", DefaultEnv),
		LogLevel:         getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:      os.Getenv("DATABASE_URL"), // Optional, in-memory decision log if not set
		RedisURL:         os.Getenv("REDIS_URL"),    // Optional
		SnapshotPath:     getEnv("SNAPSHOT_PATH", DefaultSnapshotPath),
		OTLPEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		RateLimitRPS:     int(getEnvInt64("RATE_LIMIT_RPS", DefaultRateLimit)),
		MaxRequestSize:   getEnvInt64("MAX_REQUEST_SIZE", DefaultMaxRequestSize),
		HistoryWindow:    int(getEnvInt64("AGENT_HISTORY_WINDOW", DefaultHistoryWindow)),
		VelocitySample:   int(getEnvInt64("AGENT_VELOCITY_SAMPLE", DefaultVelocitySample)),
		CheckinCooldown:  getEnvDuration("AGENT_CHECKIN_COOLDOWN", 120*time.Second),
		RouteCooldown:    getEnvDuration("AGENT_ROUTE_COOLDOWN", 90*time.Second),
		EscalateCooldown: getEnvDuration("AGENT_ESCALATE_COOLDOWN", 30*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.SnapshotPath == "" {
		return fmt.Errorf("SNAPSHOT_PATH must not be empty")
	}
	if c.HistoryWindow < 2 {
		return fmt.Errorf("AGENT_HISTORY_WINDOW must be at least 2, got %d", c.HistoryWindow)
	}
	if c.VelocitySample < 2 || c.VelocitySample > c.HistoryWindow {
		return fmt.Errorf("AGENT_VELOCITY_SAMPLE must be in [2, AGENT_HISTORY_WINDOW], got %d", c.VelocitySample)
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive, got %d", c.RateLimitRPS)
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
