package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(env(nil))

	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, time.Hour, cfg.ExpirySweepInterval)
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"PORT":                  "9090",
		"DB_PATH":               ":memory:",
		"LOG_LEVEL":             "DEBUG",
		"LOG_FORMAT":            "Console",
		"SERVICE_NAME":          "compliance-staging",
		"EXPIRY_SWEEP_INTERVAL": "0",
		"CORS_ORIGINS":          " https://admin.example.org, ,https://app.example.org ",
	}))

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, ":memory:", cfg.DBPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, "compliance-staging", cfg.ServiceName)
	assert.Zero(t, cfg.ExpirySweepInterval, "0 disables the sweeper")
	assert.Equal(t, []string{"https://admin.example.org", "https://app.example.org"}, cfg.CORSOrigins)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{"non-numeric port", map[string]string{"PORT": "http"}},
		{"negative port", map[string]string{"PORT": "-1"}},
		{"bad interval", map[string]string{"EXPIRY_SWEEP_INTERVAL": "hourly"}},
		{"negative interval", map[string]string{"EXPIRY_SWEEP_INTERVAL": "-5m"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(env(tt.vars))
			assert.Error(t, err)
		})
	}
}
