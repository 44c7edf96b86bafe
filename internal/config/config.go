package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	ProviderMock   = "mock"
	ProviderRemote = "remote"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Data provider configuration
	ProviderMode    string // "mock" or "remote"
	ProviderURL     string
	ProviderTimeout time.Duration
	MockMinLatency  time.Duration
	MockMaxLatency  time.Duration
	MockFailureRate float64

	// Schedule configuration (cron expressions)
	RefreshSchedule string
	DigestSchedule  string

	// Alert when the dashboard trend rises above this percentage
	TrendAlertThreshold float64

	// Export destination: Azure Blob Storage when an account is set, else ExportDir
	StorageAccount   string
	StorageContainer string
	ExportDir        string
	ExportRetention  int // newest exports kept after each digest, 0 keeps all

	// Notification configuration
	TeamsWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		ProviderMode:    getEnv("PROVIDER_MODE", ProviderMock),
		ProviderURL:     getEnv("PROVIDER_URL", ""),
		ProviderTimeout: getDurationEnv("PROVIDER_TIMEOUT", 10*time.Second),
		MockMinLatency:  getDurationEnv("MOCK_MIN_LATENCY", 200*time.Millisecond),
		MockMaxLatency:  getDurationEnv("MOCK_MAX_LATENCY", 800*time.Millisecond),
		MockFailureRate: getFloatEnv("MOCK_FAILURE_RATE", 0.15),

		RefreshSchedule: getEnv("REFRESH_SCHEDULE", "*/15 * * * *"),
		DigestSchedule:  getEnv("DIGEST_SCHEDULE", "0 8 * * *"),

		TrendAlertThreshold: getFloatEnv("TREND_ALERT_THRESHOLD", 10),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "emissions"),
		ExportDir:        getEnv("EXPORT_DIR", "exports"),
		ExportRetention:  getIntEnv("EXPORT_RETENTION", 30),

		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// NotificationsEnabled reports whether any notification channel is configured
func (c *Config) NotificationsEnabled() bool {
	return c.TeamsWebhookURL != "" || c.NotificationEmail != ""
}

func (c *Config) validate() error {
	switch c.ProviderMode {
	case ProviderMock:
	case ProviderRemote:
		if c.ProviderURL == "" {
			return fmt.Errorf("PROVIDER_URL is required when PROVIDER_MODE is 'remote'")
		}
	default:
		return fmt.Errorf("PROVIDER_MODE must be 'mock' or 'remote'")
	}

	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be positive")
	}

	if c.MockFailureRate < 0 || c.MockFailureRate > 1 {
		return fmt.Errorf("MOCK_FAILURE_RATE must be between 0 and 1")
	}

	if c.MockMaxLatency < c.MockMinLatency {
		return fmt.Errorf("MOCK_MAX_LATENCY must not be lower than MOCK_MIN_LATENCY")
	}

	if c.ExportRetention < 0 {
		return fmt.Errorf("EXPORT_RETENTION must not be negative")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
