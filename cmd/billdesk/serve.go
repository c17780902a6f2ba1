package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"billdesk/internal/cli"
	httpserver "billdesk/internal/http"
	"billdesk/internal/log"
	"billdesk/internal/services"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Keep the containers synced and serve them over HTTP",
	Long: `serve logs in if needed, loads every collection, then refreshes and sweeps
on the configured intervals while serving the read API:

  GET  /api/dashboard, /api/revenue, /api/clients/rollup, /api/payments/methods
  GET  /api/invoices, /api/clients, /api/payments, /api/products, /api/journal
  POST /api/refresh?entity=invoices|clients|payments|products|all
  GET  /healthz, /readyz, /metrics`,
	Example: `  billdesk serve --refresh-per-minute 10`,
	RunE:    runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("port", "", "Listen port (default: PORT)")
	serveCmd.Flags().Int("refresh-per-minute", 0, "Per-client limit on POST /api/refresh (0 uses the default)")
	serveCmd.Flags().Duration("shutdown-timeout", 30*time.Second, "Time allowed for in-flight work on shutdown")
}

func runServe(cmd *cobra.Command, args []string) error {
	port, _ := cmd.Flags().GetString("port")
	perMinute, _ := cmd.Flags().GetInt("refresh-per-minute")
	timeout, _ := cmd.Flags().GetDuration("shutdown-timeout")
	if port == "" {
		port = appConfig.Port
	}

	return withSession(cmd, func(ctx context.Context, app *cli.App) error {
		logger := app.Logger.WithComponent(log.ComponentHTTP)

		if err := app.Sync.RefreshAll(ctx); err != nil {
			logger.Warn("Initial refresh incomplete", "error", err)
		}

		var exporter *services.ReportExporter
		if app.Backends.Reports != nil {
			exporter = app.Exporter
		}
		scheduler := services.NewScheduler(app.Sync, app.Sweeper, exporter, services.SchedulerConfig{
			RefreshInterval:    app.Config.RefreshInterval,
			SweepInterval:      app.Config.SweepInterval,
			ExportAfterRefresh: exporter != nil,
		})

		server := httpserver.NewServer(":"+port, httpserver.Options{
			Sync:             app.Sync,
			Dashboard:        app.Dashboard,
			Remote:           app.Remote,
			State:            app.Backends.State,
			Formatter:        app.Format,
			RefreshPerMinute: perMinute,
			Logger:           logger,
		})

		runCtx, done := cli.GracefulShutdown(logger, timeout, func(ctx context.Context) {
			if err := server.Shutdown(ctx); err != nil {
				logger.Error("Server shutdown failed", "error", err)
			}
			if err := scheduler.Stop(ctx); err != nil {
				logger.Warn("Scheduler stop failed", "error", err)
			}
		})

		if err := scheduler.Start(runCtx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		app.Caches.Start(runCtx, app.Config.CacheTTL)

		logger.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		<-done
		logger.Info("Server stopped")
		return nil
	})
}
