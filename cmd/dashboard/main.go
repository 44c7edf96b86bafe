package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/azure/carbon-dashboard/internal/api"
	"github.com/azure/carbon-dashboard/internal/config"
	"github.com/azure/carbon-dashboard/internal/export"
	"github.com/azure/carbon-dashboard/internal/loader"
	"github.com/azure/carbon-dashboard/internal/notifications"
	"github.com/azure/carbon-dashboard/internal/posts"
	"github.com/azure/carbon-dashboard/internal/provider"
	"github.com/azure/carbon-dashboard/internal/reporting"
	"github.com/azure/carbon-dashboard/internal/scheduler"
	"github.com/azure/carbon-dashboard/internal/storage"
	"github.com/azure/carbon-dashboard/internal/store"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting carbon emissions dashboard")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dataProvider, err := provider.FromConfig(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize provider: %v", err)
	}

	exportStorage, err := storage.FromConfig(ctx, cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize export storage: %v", err)
	}

	appStore := store.New()
	loadCoordinator := loader.NewCoordinator(dataProvider, appStore, cfg.ProviderTimeout)
	postCoordinator := posts.NewCoordinator(dataProvider, appStore, cfg.ProviderTimeout)

	var notifier notifications.NotificationInterface = notifications.NewService(cfg)
	if !cfg.NotificationsEnabled() {
		logrus.Warn("No notification channel configured, digests and alerts are written to the log only")
		notifier = notifications.NewTerminalService(logrus.StandardLogger().Writer(), "")
	}

	exporter := export.NewExporter(exportStorage)
	reportingService := reporting.NewService(reporting.Options{
		Period:         "daily",
		TrendThreshold: cfg.TrendAlertThreshold,
		KeepExports:    cfg.ExportRetention,
	}, appStore, loadCoordinator, exporter, notifier)

	// Initial load; failures are visible on the dashboard and retried by the scheduler
	if err := reportingService.Refresh(ctx); err != nil {
		logrus.Errorf("Initial dashboard load failed: %v", err)
	}

	schedulerService := scheduler.NewService(scheduler.Options{
		RefreshSchedule: cfg.RefreshSchedule,
		DigestSchedule:  cfg.DigestSchedule,
	}, reportingService)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	apiServer := api.NewServer(dataProvider, appStore, loadCoordinator, postCoordinator, exporter, reportingService)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}
