package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Quota.MonthlyLimit)
	assert.Equal(t, 12, cfg.Analysis.LookbackMonths)
	assert.Equal(t, 10, cfg.Analysis.ExtractionTimeoutSecs)
	assert.Equal(t, "https://api.dataforseo.com/v3", cfg.DataForSEO.BaseURL)
	assert.False(t, cfg.SerpAPI.Enabled)
}

func TestLoad_EnvOverride(t *testing.T) {
	os.Setenv("ADSCOUT_QUOTA_MONTHLY_LIMIT", "25")
	os.Setenv("ADSCOUT_LOG_LEVEL", "debug")
	defer os.Unsetenv("ADSCOUT_QUOTA_MONTHLY_LIMIT")
	defer os.Unsetenv("ADSCOUT_LOG_LEVEL")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Quota.MonthlyLimit)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestInitLogger_BadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "nope", Format: "json"})
	require.Error(t, err)
}

func TestInitLogger_Console(t *testing.T) {
	err := InitLogger(LogConfig{Level: "warn", Format: "console"})
	require.NoError(t, err)
}
