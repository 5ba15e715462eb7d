package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad_Defaults verifies that default values are used when env vars are missing.
func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("APP_ENV")
	os.Unsetenv("LOG_LEVEL")
	os.Unsetenv("SERVER_PORT")
	os.Unsetenv("PERSIST_INTERVAL_MS")
	os.Unsetenv("MIN_MOVE_DELTA_DEG")

	os.Setenv("REDIS_URL", "redis://localhost:6379")
	defer os.Unsetenv("REDIS_URL")

	cfg, err := Load(".")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, 5000, cfg.Tracking.PersistIntervalMs)
	assert.InDelta(t, 0.00005, cfg.Tracking.MinMoveDeltaDeg, 1e-12)
	assert.Equal(t, 2000, cfg.Tracking.WriteTimeoutMs)
	assert.Equal(t, 200, cfg.Tracking.HistoryCap)
	assert.Equal(t, 20, cfg.Tracking.MaxSubscriptionsPerConn)
	assert.Equal(t, 500, cfg.Tracking.MinSampleGapWarnMs)
}

// TestLoad_EnvVars verifies that environment variables override defaults.
func TestLoad_EnvVars(t *testing.T) {
	os.Setenv("APP_ENV", "production")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("SERVER_PORT", "9090")
	os.Setenv("REDIS_URL", "redis://cache:6379/1")
	os.Setenv("PERSIST_INTERVAL_MS", "10000")
	os.Setenv("MIN_MOVE_DELTA_DEG", "0.0001")
	os.Setenv("HISTORY_CAP", "50")
	defer func() {
		os.Unsetenv("APP_ENV")
		os.Unsetenv("LOG_LEVEL")
		os.Unsetenv("SERVER_PORT")
		os.Unsetenv("REDIS_URL")
		os.Unsetenv("PERSIST_INTERVAL_MS")
		os.Unsetenv("MIN_MOVE_DELTA_DEG")
		os.Unsetenv("HISTORY_CAP")
	}()

	cfg, err := Load(".")
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, "redis://cache:6379/1", cfg.RedisURL)
	assert.Equal(t, 10000, cfg.Tracking.PersistIntervalMs)
	assert.InDelta(t, 0.0001, cfg.Tracking.MinMoveDeltaDeg, 1e-12)
	assert.Equal(t, 50, cfg.Tracking.HistoryCap)
}

// TestLoad_MissingRequired verifies that a missing required variable fails the load.
func TestLoad_MissingRequired(t *testing.T) {
	os.Unsetenv("REDIS_URL")

	cfg, err := Load(".")
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "REDIS_URL")
}
