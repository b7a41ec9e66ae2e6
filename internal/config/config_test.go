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
	assert.Equal(t, DefaultEnv, cfg.Env)
	assert.Equal(t, DefaultRateLimitRPM, cfg.RateLimitRPM)
	assert.Equal(t, DefaultLargeOrder, cfg.LargeOrderThreshold)
	assert.Equal(t, DefaultTrackingLookback, cfg.TrackingLookback)
}

func TestLoad_Overrides(t *testing.T) {
	setEnv(t, "PORT", "9090")
	setEnv(t, "LARGE_ORDER_THRESHOLD", "75000")
	setEnv(t, "TRACKING_LOOKBACK", "30m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 75000.0, cfg.LargeOrderThreshold)
	assert.Equal(t, 30*time.Minute, cfg.TrackingLookback)
}

func TestLoad_APIKeys(t *testing.T) {
	setEnv(t, "API_KEYS", "sk_caller_a, sk_caller_b,,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"sk_caller_a", "sk_caller_b"}, cfg.APIKeys)
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		RateLimitRPM:        60,
		LargeOrderThreshold: 10000,
		TrackingLookback:    time.Hour,
		LogFormat:           "json",
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid config", mutate: func(*Config) {}, wantErr: ""},
		{
			name:    "zero rate limit",
			mutate:  func(c *Config) { c.RateLimitRPM = 0 },
			wantErr: "RATE_LIMIT_RPM",
		},
		{
			name:    "negative large order threshold",
			mutate:  func(c *Config) { c.LargeOrderThreshold = -1 },
			wantErr: "LARGE_ORDER_THRESHOLD",
		},
		{
			name:    "tracking lookback too short",
			mutate:  func(c *Config) { c.TrackingLookback = time.Second },
			wantErr: "TRACKING_LOOKBACK",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.LogFormat = "xml" },
			wantErr: "LOG_FORMAT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
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
	setEnv(t, "TEST_FLOAT", "3.5")
	setEnv(t, "TEST_DUR", "90s")
	setEnv(t, "TEST_INVALID", "not_a_number")

	assert.Equal(t, "custom_value", getEnv("TEST_VAR", "default"))
	assert.Equal(t, "default", getEnv("NONEXISTENT_VAR", "default"))
	assert.Equal(t, 42, getEnvInt("TEST_INT", 0))
	assert.Equal(t, 99, getEnvInt("TEST_INVALID", 99))
	assert.Equal(t, 3.5, getEnvFloat("TEST_FLOAT", 0))
	assert.Equal(t, 90*time.Second, getEnvDuration("TEST_DUR", time.Minute))
	assert.Equal(t, time.Minute, getEnvDuration("NONEXISTENT_VAR", time.Minute))
}
