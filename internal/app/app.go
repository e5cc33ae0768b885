package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"lifepulse/internal/api"
	"lifepulse/internal/database"
	"lifepulse/internal/infrastructure/errors"
	"lifepulse/internal/infrastructure/logging"
	"lifepulse/internal/platform"
	"lifepulse/internal/repository"
	"lifepulse/internal/scheduler"
	"lifepulse/internal/server"
	"lifepulse/internal/services"
)

// Options configures the agent. Zero values fall back to the defaults below.
type Options struct {
	Environment  string        // development, production, test
	SpoolDir     string        // directory of the event spool files
	SyncInterval time.Duration // how often the sync pipeline runs
	LookbackDays int           // days per full collection sweep, today inclusive
	StatusAddr   string        // listen address of the status API
}

const (
	defaultSyncInterval = 15 * time.Minute
	defaultLookbackDays = 7
	defaultStatusAddr   = "127.0.0.1:8342"
)

// OptionsFromEnvironment reads agent options from LIFEPULSE_* environment
// variables, leaving defaults in place for anything unset or unparseable
func OptionsFromEnvironment() Options {
	opts := Options{
		Environment:  os.Getenv("LIFEPULSE_ENVIRONMENT"),
		SpoolDir:     os.Getenv("LIFEPULSE_SPOOL_DIR"),
		SyncInterval: defaultSyncInterval,
		LookbackDays: defaultLookbackDays,
		StatusAddr:   defaultStatusAddr,
	}
	if opts.Environment == "" {
		opts.Environment = "production"
	}
	if opts.SpoolDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		opts.SpoolDir = filepath.Join(home, ".lifepulse", "spool")
	}
	if raw := os.Getenv("LIFEPULSE_SYNC_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			opts.SyncInterval = d
		}
	}
	if raw := os.Getenv("LIFEPULSE_LOOKBACK_DAYS"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			opts.LookbackDays = n
		}
	}
	if addr := os.Getenv("LIFEPULSE_STATUS_ADDR"); addr != "" {
		opts.StatusAddr = addr
	}
	return opts
}

// App wires the agent together: database, repositories, API client,
// collection pipeline, upload coordinator, scheduler, and status server
type App struct {
	opts      Options
	dbService database.Service
	history   repository.SyncHistoryRepository
	settings  repository.SettingsRepository
	client    *api.Client
	collector *services.UsageCollector
	uploader  *services.UploadCoordinator
	scheduler *scheduler.Scheduler
	server    *server.Server
	logger    logging.Logger
}

// New builds the agent. The database is connected and migrated here; every
// other component is wired but idle until Run.
func New(opts Options) (*App, error) {
	logger := logging.NewDefaultLogger()
	errors.SetRetryLogger(errors.NewLoggerBridge(logger))

	if opts.SyncInterval <= 0 {
		opts.SyncInterval = defaultSyncInterval
	}
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = defaultLookbackDays
	}
	if opts.StatusAddr == "" {
		opts.StatusAddr = defaultStatusAddr
	}

	config := database.ConfigForEnvironment(opts.Environment)
	dbService := database.NewSQLiteService(logger)
	if err := dbService.Connect(context.Background(), config); err != nil {
		return nil, fmt.Errorf("database connect: %w", err)
	}
	if err := dbService.Migrate(context.Background()); err != nil {
		dbService.Close()
		return nil, fmt.Errorf("database migrate: %w", err)
	}

	history := repository.NewSQLiteSyncHistory(dbService, logger)
	settings := repository.NewSQLiteSettings(dbService, logger)

	client := api.NewClient(settings, nil, logger)
	collector := services.NewUsageCollector(
		platform.NewSpoolEventSource(opts.SpoolDir, logger),
		platform.NewSysfsSensors(),
		logger,
	)
	uploader := services.NewUploadCoordinator(client, history, settings, logger)

	a := &App{
		opts:      opts,
		dbService: dbService,
		history:   history,
		settings:  settings,
		client:    client,
		collector: collector,
		uploader:  uploader,
		logger:    logger,
	}

	a.scheduler = scheduler.New(opts.SyncInterval, a.runSync, logger)
	a.server = server.New(opts.StatusAddr, history, settings, dbService, client,
		a.scheduler.TriggerNow, logger)

	return a, nil
}

// Run starts the scheduler and serves the status API until ctx is cancelled
func (a *App) Run(ctx context.Context) error {
	if err := a.ensureDatabaseHealthy(ctx); err != nil {
		return err
	}

	deviceID, err := a.settings.DeviceID(ctx)
	if err != nil {
		a.logger.Warn("Failed to resolve device ID", "error", err)
	} else {
		a.logger.Info("Agent starting",
			"environment", a.opts.Environment,
			"device_id", deviceID,
			"sync_interval", a.opts.SyncInterval.String(),
			"lookback_days", a.opts.LookbackDays)
	}

	a.scheduler.Start()

	serverErr := make(chan error, 1)
	go func() { serverErr <- a.server.Start() }()

	select {
	case err := <-serverErr:
		a.shutdown(context.Background())
		return err
	case <-ctx.Done():
		a.logger.Info("Shutdown signal received")
		a.shutdown(context.Background())
		return nil
	}
}

// runSync is the scheduled pipeline: collect the lookback window and upload
// the combined batch. Upload failures resolve into the sync history, not into
// errors; only collection problems are logged here.
func (a *App) runSync(ctx context.Context) {
	if !a.client.IsAuthenticated(ctx) {
		a.logger.Warn("Skipping sync, agent is not logged in")
		return
	}

	records, err := a.collector.CollectRange(ctx, time.Now(), a.opts.LookbackDays)
	if err != nil {
		a.logger.Error("Collection failed", "error", err)
		return
	}

	outcome := a.uploader.Upload(ctx, records)
	a.logger.Info("Sync finished",
		"success", outcome.Success,
		"accepted", outcome.SuccessCount,
		"attempted", outcome.Attempted)
}

// ensureDatabaseHealthy verifies the connection, reconnecting once when the
// failure looks transient
func (a *App) ensureDatabaseHealthy(ctx context.Context) error {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := a.dbService.Health(healthCtx)
	if err == nil {
		return nil
	}
	if !errors.IsRetryable(err) {
		return fmt.Errorf("database health check: %w", err)
	}

	a.logger.Warn("Database unhealthy, attempting reconnect", "error", err)

	reconnectCtx, reconnectCancel := context.WithTimeout(ctx, 10*time.Second)
	defer reconnectCancel()

	config := database.ConfigForEnvironment(a.opts.Environment)
	if err := a.dbService.Connect(reconnectCtx, config); err != nil {
		return errors.NewRepositoryErrorWithContext("startup", err,
			errors.ErrCodeConnection,
			map[string]string{"operation": "reconnect", "db_path": config.Path})
	}
	if err := a.dbService.Migrate(reconnectCtx); err != nil {
		return errors.NewRepositoryErrorWithContext("startup", err,
			errors.ErrCodeConnection,
			map[string]string{"operation": "migrate", "db_path": config.Path})
	}
	return nil
}

// shutdown stops components in dependency order: no new syncs, drain the
// status server, then close the database
func (a *App) shutdown(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	a.scheduler.Stop()

	if err := a.server.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
		a.logger.Warn("Status server shutdown failed", "error", err)
	}

	if err := a.closeDatabase(shutdownCtx); err != nil {
		a.logger.Error("Database close failed", "error", err)
	}

	a.logger.Info("Agent stopped")
}

// closeDatabase closes the connection, bounded by the shutdown deadline
func (a *App) closeDatabase(ctx context.Context) error {
	if a.dbService == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- a.dbService.Close() }()

	select {
	case err := <-done:
		if err != nil {
			return errors.NewRepositoryErrorWithContext("shutdown", err,
				errors.ClassifyError(err),
				map[string]string{"operation": "close_connection"})
		}
		return nil
	case <-ctx.Done():
		return errors.NewRepositoryError("shutdown", ctx.Err(), errors.ErrCodeTimeout)
	}
}

// Login authenticates against the dashboard and persists the credentials
func (a *App) Login(ctx context.Context, email, password string) (api.AuthResult, error) {
	return a.client.Login(ctx, email, password)
}

// Logger returns the agent's structured logger
func (a *App) Logger() logging.Logger {
	return a.logger
}
