package cli

import (
	"context"
	"fmt"

	"billdesk/internal/api"
	"billdesk/internal/backend"
	"billdesk/internal/cache"
	"billdesk/internal/config"
	"billdesk/internal/core"
	"billdesk/internal/log"
	"billdesk/internal/services"
)

// App is the wired object graph every command runs against.
type App struct {
	Config    *config.Config
	Logger    *log.Logger
	Backends  *backend.BackendResult
	Remote    *api.Client
	Format    *core.Formatter
	Sync      *services.SyncService
	Dashboard *services.DashboardService
	Sweeper   *services.OverdueSweeper
	Exporter  *services.ReportExporter
	Caches    *cache.Manager
}

// Bootstrap opens the configured backends and builds the services on top.
// Close releases everything Bootstrap opened.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	backends, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create backends: %w", err)
	}

	app, err := build(cfg, logger, backends)
	if err != nil {
		_ = backends.Cleanup()
		return nil, err
	}
	return app, nil
}

func build(cfg *config.Config, logger *log.Logger, backends *backend.BackendResult) (*App, error) {
	format, err := core.NewFormatter(cfg.Locale, cfg.Currency)
	if err != nil {
		return nil, err
	}
	schema, err := core.ProductSchemaByName(cfg.ProductSchema)
	if err != nil {
		return nil, err
	}
	checker, err := services.GetOverdueChecker(cfg.SweepPolicy, cfg.SweepGraceDays)
	if err != nil {
		return nil, err
	}

	remote, err := api.New(api.Options{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.APITimeout,
		Tokens:  backends.State,
		Logger:  logger.WithComponent(log.ComponentAPI),
	})
	if err != nil {
		return nil, fmt.Errorf("create api client: %w", err)
	}

	sync := services.NewSyncService(remote, services.SyncOptions{
		Schema:  schema,
		Journal: backends.State,
		Events:  backends.Events,
		Logger:  logger.WithComponent(log.ComponentSync),
	})
	dashboard := services.NewDashboardService(sync, services.DashboardOptions{
		Formatter:  format,
		CacheSize:  cfg.CacheSize,
		CacheTTL:   cfg.CacheTTL,
		RecentDays: cfg.RecentPaymentDays,
		Logger:     logger.WithComponent(log.ComponentDashboard),
	})
	caches := cache.NewManager(logger.WithComponent(log.ComponentCache))
	caches.Register(dashboard.Cache())

	return &App{
		Config:    cfg,
		Logger:    logger,
		Backends:  backends,
		Remote:    remote,
		Format:    format,
		Sync:      sync,
		Dashboard: dashboard,
		Sweeper: services.NewOverdueSweeper(sync, services.SweeperOptions{
			Checker: checker,
			Events:  backends.Events,
			DryRun:  cfg.SweepDryRun,
		}),
		Exporter: services.NewReportExporter(dashboard, backends.Reports),
		Caches:   caches,
	}, nil
}

// EnsureSession logs in with the configured credentials when no usable
// token is stored. Without credentials it returns api.ErrNotAuthenticated.
func (a *App) EnsureSession(ctx context.Context) error {
	if a.Remote.Authenticated(ctx) {
		return nil
	}
	if !a.Config.HasCredentials() {
		return fmt.Errorf("no stored session and no API_EMAIL/API_PASSWORD: %w", api.ErrNotAuthenticated)
	}
	user, err := a.Remote.Login(ctx, api.Credentials{Email: a.Config.APIEmail, Password: a.Config.APIPassword})
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	a.Logger.InfoContext(ctx, "Logged in with configured credentials", "user", user.Email)
	return nil
}

// Close stops the cache manager and releases the backends.
func (a *App) Close() error {
	a.Caches.Stop()
	a.Dashboard.Close()
	if a.Backends == nil || a.Backends.Cleanup == nil {
		return nil
	}
	return a.Backends.Cleanup()
}
