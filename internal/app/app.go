// Package app wires the scrape orchestration core together: configuration,
// infrastructure, the scheduler, and the ops HTTP surface.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/boatshedhq/scrapecore/internal/config"
	"github.com/boatshedhq/scrapecore/internal/httpserver"
	"github.com/boatshedhq/scrapecore/internal/platform"
	"github.com/boatshedhq/scrapecore/internal/telemetry"
	"github.com/boatshedhq/scrapecore/internal/vault"
	"github.com/boatshedhq/scrapecore/pkg/adapter"
	"github.com/boatshedhq/scrapecore/pkg/cachestore"
	"github.com/boatshedhq/scrapecore/pkg/ledger"
	"github.com/boatshedhq/scrapecore/pkg/revsport"
	"github.com/boatshedhq/scrapecore/pkg/scheduler"
	"github.com/boatshedhq/scrapecore/pkg/synctxn"
	"github.com/boatshedhq/scrapecore/pkg/tenant"
)

// Run validates configuration, connects to infrastructure, starts the
// Tenant Scheduler, and serves the ops HTTP surface until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel, cfg.Debug)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Info("starting scrapecore", "ops_addr", cfg.OpsAddr(), "system_timezone", cfg.SystemTimezone)

	db, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	if err := platform.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("migrations applied")

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = platform.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Error("closing redis", "error", err)
			}
		}()
	} else {
		logger.Info("redis not configured, singleton run gate is process-local only")
	}

	cryptoVault, err := vault.New(cfg.EncryptionKey)
	if err != nil {
		return fmt.Errorf("initializing credential vault: %w", err)
	}

	metricsReg := telemetry.NewMetricsRegistry()

	clubs := tenant.NewRepository(db)
	jobLedger := ledger.New(db, logger, cfg.SlackOpsWebhookURL)
	cache := cachestore.New(db)

	systemTZ, err := time.LoadLocation(cfg.SystemTimezone)
	if err != nil {
		logger.Warn("unknown system timezone, falling back to UTC", "timezone", cfg.SystemTimezone)
		systemTZ = time.UTC
	}

	txn := &synctxn.Transaction{
		Vault:      cryptoVault,
		Store:      cache,
		Ledger:     jobLedger,
		NewAdapter: newRevsportAdapter(cfg, logger),
		DaysAhead:  cfg.DaysAhead,
		Debug:      cfg.Debug,
		Logger:     logger,
	}

	var lock scheduler.DistributedLock
	if rdb != nil {
		lock = scheduler.NewRedisLock(rdb)
	}

	sched := scheduler.New(scheduler.Config{
		SystemTimezone:   systemTZ,
		InterTenantDelay: time.Duration(cfg.InterTenantDelayMs) * time.Millisecond,
		PerTenantTimeout: time.Duration(cfg.PerTenantTimeoutMs) * time.Millisecond,
	}, clubs, txn, lock, logger)

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := sched.Stop(stopCtx); err != nil {
			logger.Error("stopping scheduler", "error", err)
		}
	}()

	srv := httpserver.NewServer(logger, db, rdb, metricsReg)
	httpSrv := &http.Server{Addr: cfg.OpsAddr(), Handler: srv}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ops server listening", "addr", cfg.OpsAddr())
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("ops server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// newRevsportAdapter returns the factory the Sync Transaction uses to build
// one HTTP-Scrape Adapter instance per club run.
func newRevsportAdapter(cfg *config.Config, logger *slog.Logger) synctxn.AdapterFactory {
	return func(club tenant.Club, creds vault.Credentials, loc *time.Location, debug bool) (adapter.DataSourceAdapter, error) {
		return revsport.New(revsport.Config{
			Tenant:          club.Subdomain,
			BaseURL:         club.DataSource.BaseURL,
			Username:        creds.Username,
			Password:        creds.Password,
			Timezone:        loc,
			Debug:           debug,
			BatchSize:       cfg.BatchSize,
			InterBatchDelay: time.Duration(cfg.InterBatchDelayMs) * time.Millisecond,
		}, logger)
	}
}
