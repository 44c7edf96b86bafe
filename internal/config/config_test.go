package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PROVIDER_MODE", "PROVIDER_URL", "PROVIDER_TIMEOUT", "MOCK_FAILURE_RATE", "NOTIFICATION_EMAIL", "TEAMS_WEBHOOK_URL", "EXPORT_RETENTION"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ProviderMock, cfg.ProviderMode)
	assert.Equal(t, 10*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, 200*time.Millisecond, cfg.MockMinLatency)
	assert.Equal(t, 800*time.Millisecond, cfg.MockMaxLatency)
	assert.InDelta(t, 0.15, cfg.MockFailureRate, 1e-9)
	assert.Equal(t, "emissions", cfg.StorageContainer)
	assert.Equal(t, 30, cfg.ExportRetention)
	assert.False(t, cfg.NotificationsEnabled())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DEBUG", "true")
	t.Setenv("PROVIDER_MODE", "remote")
	t.Setenv("PROVIDER_URL", "http://emissions.internal")
	t.Setenv("PROVIDER_TIMEOUT", "3s")
	t.Setenv("TREND_ALERT_THRESHOLD", "7.5")
	t.Setenv("TEAMS_WEBHOOK_URL", "https://example.webhook.office.com/hook")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.Debug)
	assert.Equal(t, ProviderRemote, cfg.ProviderMode)
	assert.Equal(t, "http://emissions.internal", cfg.ProviderURL)
	assert.Equal(t, 3*time.Second, cfg.ProviderTimeout)
	assert.InDelta(t, 7.5, cfg.TrendAlertThreshold, 1e-9)
	assert.True(t, cfg.NotificationsEnabled())
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			ProviderMode:    ProviderMock,
			ProviderTimeout: time.Second,
			MockMinLatency:  time.Millisecond,
			MockMaxLatency:  2 * time.Millisecond,
			MockFailureRate: 0.15,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "Valid mock config", mutate: func(c *Config) {}},
		{name: "Unknown provider mode", mutate: func(c *Config) { c.ProviderMode = "sql" }, wantErr: "PROVIDER_MODE"},
		{name: "Remote without URL", mutate: func(c *Config) { c.ProviderMode = ProviderRemote }, wantErr: "PROVIDER_URL"},
		{name: "Failure rate out of range", mutate: func(c *Config) { c.MockFailureRate = 1.5 }, wantErr: "MOCK_FAILURE_RATE"},
		{name: "Inverted latency", mutate: func(c *Config) { c.MockMaxLatency = 0 }, wantErr: "MOCK_MAX_LATENCY"},
		{name: "Negative retention", mutate: func(c *Config) { c.ExportRetention = -1 }, wantErr: "EXPORT_RETENTION"},
		{name: "Zero timeout", mutate: func(c *Config) { c.ProviderTimeout = 0 }, wantErr: "PROVIDER_TIMEOUT"},
		{name: "Email without SMTP", mutate: func(c *Config) { c.NotificationEmail = "ops@example.com" }, wantErr: "SMTP"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)

			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetDurationEnv_FallsBackOnGarbage(t *testing.T) {
	t.Setenv("SOME_DURATION", "soon")
	assert.Equal(t, time.Minute, getDurationEnv("SOME_DURATION", time.Minute))
}
