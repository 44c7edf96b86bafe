package provider

import (
	"fmt"

	"github.com/azure/carbon-dashboard/internal/config"
	"github.com/sirupsen/logrus"
)

// remoteReadRetries bounds the backoff retries of remote reads
const remoteReadRetries = 3

// FromConfig builds the provider selected by PROVIDER_MODE
func FromConfig(cfg *config.Config) (Provider, error) {
	switch cfg.ProviderMode {
	case config.ProviderMock:
		logrus.Infof("Using mock provider (latency %v-%v, write failure rate %.2f)",
			cfg.MockMinLatency, cfg.MockMaxLatency, cfg.MockFailureRate)
		return NewMockProvider(DefaultSeed(), MockOptions{
			MinLatency:  cfg.MockMinLatency,
			MaxLatency:  cfg.MockMaxLatency,
			FailureRate: cfg.MockFailureRate,
		}), nil
	case config.ProviderRemote:
		logrus.Infof("Using remote provider at %s", cfg.ProviderURL)
		return NewRemoteProvider(cfg.ProviderURL, cfg.ProviderTimeout, remoteReadRetries), nil
	default:
		return nil, fmt.Errorf("unknown provider mode %q", cfg.ProviderMode)
	}
}
