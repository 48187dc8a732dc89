package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper to set env vars and clean up after
func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old := os.Getenv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if old == "" {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, old)
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultSnapshotPath, cfg.SnapshotPath)
	assert.Equal(t, DefaultHistoryWindow, cfg.HistoryWindow)
	assert.Equal(t, DefaultVelocitySample, cfg.VelocitySample)
	assert.Equal(t, 120*time.Second, cfg.CheckinCooldown)
	assert.Equal(t, 90*time.Second, cfg.RouteCooldown)
	assert.Equal(t, 30*time.Second, cfg.EscalateCooldown)
}

func TestLoad_Overrides(t *testing.T) {
	setEnv(t, "PORT", "9090")
	setEnv(t, "SNAPSHOT_PATH", "/var/lib/sitara/state.json")
	setEnv(t, "AGENT_HISTORY_WINDOW", "40")
	setEnv(t, "AGENT_VELOCITY_SAMPLE", "8")
	setEnv(t, "AGENT_ROUTE_COOLDOWN", "45s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "/var/lib/sitara/state.json", cfg.SnapshotPath)
	assert.Equal(t, 40, cfg.HistoryWindow)
	assert.Equal(t, 8, cfg.VelocitySample)
	assert.Equal(t, 45*time.Second, cfg.RouteCooldown)
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		SnapshotPath:   "state.json",
		HistoryWindow:  20,
		VelocitySample: 5,
		RateLimitRPS:   100,
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid config", func(c *Config) {}, ""},
		{"empty snapshot path", func(c *Config) { c.SnapshotPath = "" }, "SNAPSHOT_PATH"},
		{"tiny history window", func(c *Config) { c.HistoryWindow = 1 }, "AGENT_HISTORY_WINDOW"},
		{"velocity sample too small", func(c *Config) { c.VelocitySample = 1 }, "AGENT_VELOCITY_SAMPLE"},
		{"velocity sample exceeds window", func(c *Config) { c.VelocitySample = 21 }, "AGENT_VELOCITY_SAMPLE"},
		{"zero rate limit", func(c *Config) { c.RateLimitRPS = 0 }, "RATE_LIMIT_RPS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	cfg := &Config{Env: "development"}
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	cfg.Env = "production"
	assert.False(t, cfg.IsDevelopment())
	assert.True(t, cfg.IsProduction())
}

func TestGetEnvHelpers(t *testing.T) {
	setEnv(t, "TEST_VAR", "custom_value")
	setEnv(t, "TEST_INT", "42")
	setEnv(t, "TEST_INVALID", "not_a_number")
	setEnv(t, "TEST_DUR", "90s")

	assert.Equal(t, "custom_value", getEnv("TEST_VAR", "default"))
	assert.Equal(t, "default", getEnv("NONEXISTENT_VAR", "default"))
	assert.Equal(t, int64(42), getEnvInt64("TEST_INT", 0))
	assert.Equal(t, int64(99), getEnvInt64("TEST_INVALID", 99)) // Falls back on parse error
	assert.Equal(t, 90*time.Second, getEnvDuration("TEST_DUR", time.Second))
	assert.Equal(t, time.Second, getEnvDuration("NONEXISTENT_VAR", time.Second))
}
