package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEnvPostgresDSN = "POSTGRES_DSN"
	testPostgresDSN    = "postgres://localhost/test"
)

func TestLoad_MissingRequired(t *testing.T) {
	os.Unsetenv(testEnvPostgresDSN)

	_, err := Load()
	require.Error(t, err, "expected error for missing required env vars")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(testEnvPostgresDSN, testPostgresDSN)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, testPostgresDSN, cfg.PostgresDSN)
	assert.Equal(t, "local", cfg.AppEnv)
	assert.Equal(t, 30, cfg.HeatLookbackDays)
	assert.Equal(t, 30*time.Minute, cfg.RecCacheTTL)
	assert.Equal(t, time.Hour, cfg.HeatTickInterval)
	assert.Equal(t, 24*time.Hour, cfg.RecTickInterval)
}

func TestLoad_InvalidLookback(t *testing.T) {
	t.Setenv(testEnvPostgresDSN, testPostgresDSN)
	t.Setenv("HEAT_LOOKBACK_DAYS", "0")

	_, err := Load()
	require.Error(t, err, "expected validation error for zero lookback")
}
