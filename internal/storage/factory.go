package storage

import (
	"context"

	"github.com/azure/carbon-dashboard/internal/config"
	"github.com/sirupsen/logrus"
)

// FromConfig returns Azure Blob Storage when a storage account is configured, else the local export directory
func FromConfig(ctx context.Context, cfg *config.Config) (StorageInterface, error) {
	if cfg.StorageAccount != "" {
		logrus.Infof("Exports go to Azure Blob Storage %s/%s", cfg.StorageAccount, cfg.StorageContainer)
		return NewAzureStorage(ctx, cfg.StorageAccount, cfg.StorageContainer)
	}
	logrus.Infof("Exports go to local directory %s", cfg.ExportDir)
	return NewFileStorage(cfg.ExportDir)
}
