package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"billdesk/internal/amqp"
	"billdesk/internal/cli"
	"billdesk/internal/log"
	"billdesk/internal/services"
	"billdesk/internal/worker"
)

const (
	pruneInterval   = 6 * time.Hour
	shutdownTimeout = 30 * time.Second
)

// changeConsumer is satisfied by the broker client when one is configured.
type changeConsumer interface {
	ConsumeChanges(ctx context.Context, handler func(context.Context, *amqp.ChangeEvent) error) error
}

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration validation failed: %v\n", err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	logger.Info("Starting billdesk-worker")

	errLog := log.NewStructuredLogger(logger)
	app, err := cli.Bootstrap(context.Background(), cfg, logger)
	if err != nil {
		errLog.LogError(context.Background(), "Bootstrap failed", err, "bootstrap", log.ErrorTypeConfiguration, nil)
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("Cleanup failed", "error", err)
		}
	}()

	var exporter worker.Exporter
	var schedExporter *services.ReportExporter
	if app.Backends.Reports != nil {
		exporter, schedExporter = app.Exporter, app.Exporter
	} else {
		logger.Info("Report export disabled - no EXPORT_BACKEND configured")
	}
	syncWorker := worker.NewSyncWorker(app.Sync, exporter, app.Backends.State)
	scheduler := services.NewScheduler(app.Sync, app.Sweeper, schedExporter, services.SchedulerConfig{
		RefreshInterval:    cfg.RefreshInterval,
		SweepInterval:      cfg.SweepInterval,
		ExportAfterRefresh: schedExporter != nil,
	})

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := scheduler.Stop(ctx); err != nil {
			logger.Warn("Scheduler stop failed", "error", err)
		}
	})

	if err := app.EnsureSession(ctx); err != nil {
		errLog.LogError(ctx, "No backend session", err, "login", log.ErrorTypeAuth, nil)
		os.Exit(1)
	}

	// A failed startup sync is retried by the scheduler.
	if err := syncWorker.StartupSync(ctx); err != nil {
		logger.Error("Startup sync failed", "error", err)
	}
	if err := syncWorker.PruneJournal(ctx, cfg.JournalRetention); err != nil {
		logger.Warn("Startup journal prune failed", "error", err)
	}

	if err := scheduler.Start(ctx); err != nil {
		logger.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}
	app.Caches.Start(ctx, cfg.CacheTTL)
	go syncWorker.PeriodicPrune(ctx, pruneInterval, cfg.JournalRetention)

	if consumer, ok := app.Backends.Events.(changeConsumer); ok {
		go func() {
			if err := consumer.ConsumeChanges(ctx, syncWorker.HandleChange); err != nil && !errors.Is(err, context.Canceled) {
				errLog.LogError(ctx, "Change consumption failed", err, "consume_changes", log.ErrorTypeNetwork, nil)
			}
		}()
	} else {
		logger.Info("Skipping change consumption - no broker configured")
	}

	<-done
	logger.Info("billdesk-worker stopped")
}
