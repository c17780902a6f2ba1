package main

import (
	"context"
	"fmt"
	"os"

	"billdesk/internal/cli"
	"billdesk/internal/config"
	"billdesk/internal/log"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

// Loaded once by the root pre-run hook.
var (
	appConfig *config.Config
	appLogger *log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "billdesk",
	Short: "Billing administration core: sync, dashboards, overdue sweeps and reports",
	Long: `billdesk keeps typed, in-memory copies of clients, invoices, payments and
products synced from the billing backend and derives financial metrics from them.

Configuration comes from the environment (a .env file is loaded when present):
  API_BASE_URL, API_EMAIL, API_PASSWORD  - billing backend and unattended login
  SESSION_BACKEND, SQLITE_DB_PATH        - where the session token and sync journal live
  EXPORT_BACKEND, GOOGLE_SPREADSHEET_ID  - where dashboard reports are written
  AMQP_URL                               - optional broker for change events`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cli.LoadEnvFile()
		cfg, err := cli.LoadAndValidateConfig()
		if err != nil {
			return err
		}
		appConfig = cfg
		appLogger = cli.SetupLogger(cfg, log.ComponentApp)
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if appLogger != nil {
			appLogger.Error("Command execution failed", "error", err)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// withApp bootstraps the services for one command and releases them after.
func withApp(cmd *cobra.Command, run func(ctx context.Context, app *cli.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := cli.Bootstrap(ctx, appConfig, appLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			appLogger.Warn("Cleanup failed", "error", err)
		}
	}()
	return run(ctx, app)
}

// withSession is withApp plus a usable backend session.
func withSession(cmd *cobra.Command, run func(ctx context.Context, app *cli.App) error) error {
	return withApp(cmd, func(ctx context.Context, app *cli.App) error {
		if err := app.EnsureSession(ctx); err != nil {
			return fmt.Errorf("%w (run 'billdesk login' first)", err)
		}
		return run(ctx, app)
	})
}
