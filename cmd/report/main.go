package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/azure/carbon-dashboard/internal/config"
	"github.com/azure/carbon-dashboard/internal/export"
	"github.com/azure/carbon-dashboard/internal/loader"
	"github.com/azure/carbon-dashboard/internal/notifications"
	"github.com/azure/carbon-dashboard/internal/provider"
	"github.com/azure/carbon-dashboard/internal/reporting"
	"github.com/azure/carbon-dashboard/internal/storage"
	"github.com/azure/carbon-dashboard/internal/store"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	outDir := flag.String("out", "report_output", "directory for the CSV export and the JSON digest")
	send := flag.Bool("send", false, "also deliver the digest to the configured Teams/e-mail channels")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall time limit")
	flag.Parse()

	fmt.Println("🌍 Carbon Emissions Dashboard - Report Generator")
	fmt.Println("================================================")

	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	dataProvider, err := provider.FromConfig(cfg)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	files, err := storage.NewFileStorage(*outDir)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	var notifier notifications.NotificationInterface = notifications.NewTerminalService(os.Stdout, *outDir)
	if *send {
		if !cfg.NotificationsEnabled() {
			fmt.Println("❌ -send requires TEAMS_WEBHOOK_URL or NOTIFICATION_EMAIL")
			os.Exit(1)
		}
		notifier = notifications.NewService(cfg)
	}

	appStore := store.New()
	service := reporting.NewService(reporting.Options{
		Period:         "on-demand",
		TrendThreshold: cfg.TrendAlertThreshold,
		KeepExports:    cfg.ExportRetention,
	}, appStore, loader.NewCoordinator(dataProvider, appStore, cfg.ProviderTimeout), export.NewExporter(files), notifier)

	fmt.Printf("\n📊 Loading dashboard data (%s provider)...\n", cfg.ProviderMode)
	if err := service.Refresh(ctx); err != nil {
		fmt.Printf("⚠️  Load finished with errors: %v\n", err)
	}

	if err := service.RunDigest(ctx); err != nil {
		fmt.Printf("❌ Error sending digest: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n✅ Report generation completed!")
	fmt.Printf("   • CSV export and JSON digest are in %q\n", *outDir)
	fmt.Println("   • Run 'go run ./cmd/dashboard' to serve the dashboard API")
}
