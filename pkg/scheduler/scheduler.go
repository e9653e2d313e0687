// Package scheduler is the Tenant Scheduler: a time-of-day-adaptive cron
// that fans out across every active club, strictly serialized, with a
// singleton run gate so overlapping triggers never fan out concurrently.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/boatshedhq/scrapecore/internal/telemetry"
	"github.com/boatshedhq/scrapecore/pkg/synctxn"
	"github.com/boatshedhq/scrapecore/pkg/tenant"
)

// cadenceSpecs are the four overlapping windows evaluated against the
// system timezone, not each club's own timezone.
var cadenceSpecs = []string{
	"*/2 5-8 * * *",        // 05:00-08:59, every 2 minutes
	"*/5 9-16 * * *",       // 09:00-16:59, every 5 minutes
	"*/2 17-20 * * *",      // 17:00-20:59, every 2 minutes
	"*/10 21-23,0-4 * * *", // 21:00-04:59, every 10 minutes
}

// Config tunes the scheduler's fan-out behavior.
type Config struct {
	SystemTimezone   *time.Location
	InterTenantDelay time.Duration
	PerTenantTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.SystemTimezone == nil {
		c.SystemTimezone = time.UTC
	}
	if c.InterTenantDelay <= 0 {
		c.InterTenantDelay = time.Second
	}
	if c.PerTenantTimeout <= 0 {
		c.PerTenantTimeout = 120 * time.Second
	}
	return c
}

// ClubLister supplies the active-club population a fan-out iterates over.
type ClubLister interface {
	ListActiveClubs(ctx context.Context) ([]tenant.Club, error)
}

// Scheduler drives the cron registrations and the serialized fan-out.
type Scheduler struct {
	cfg    Config
	clubs  ClubLister
	txn    *synctxn.Transaction
	gate   *runGate
	cron   *cron.Cron
	logger *slog.Logger

	cancel context.CancelFunc
}

var _ interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	RunAllClubs(ctx context.Context) []synctxn.ClubScrapeResult
	ScrapeClub(ctx context.Context, club tenant.Club) synctxn.ClubScrapeResult
} = (*Scheduler)(nil)

// New builds a Scheduler. lock may be nil, in which case the singleton gate
// is process-local only.
func New(cfg Config, clubs ClubLister, txn *synctxn.Transaction, lock DistributedLock, logger *slog.Logger) *Scheduler {
	cfg = cfg.withDefaults()
	return &Scheduler{
		cfg:    cfg,
		clubs:  clubs,
		txn:    txn,
		gate:   newRunGate(lock),
		logger: logger,
	}
}

// Start registers the four cadence windows and begins dispatching fan-outs
// on the scheduler's own background context. It does not block.
func (s *Scheduler) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	c := cron.New(cron.WithLocation(s.cfg.SystemTimezone))
	for _, spec := range cadenceSpecs {
		if _, err := c.AddFunc(spec, func() {
			s.RunAllClubs(runCtx)
		}); err != nil {
			cancel()
			return fmt.Errorf("scheduler: registering cadence %q: %w", spec, err)
		}
	}
	s.cron = c
	s.cron.Start()
	s.logger.Info("scheduler: started", "timezone", s.cfg.SystemTimezone, "cadences", len(cadenceSpecs))
	return nil
}

// Stop cancels the background context and waits for any in-flight fan-out
// to finish, bounded by the cron library's own stop semantics.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	stopCtx := s.cron.Stop()
	if s.cancel != nil {
		s.cancel()
	}
	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunAllClubs is the singleton-gated fan-out entry point: a cron tick, or a
// manual trigger, that iterates every active club strictly serially. If a
// fan-out is already in progress, the trigger is dropped and counted rather
// than queued.
func (s *Scheduler) RunAllClubs(ctx context.Context) []synctxn.ClubScrapeResult {
	release, acquired, err := s.gate.tryAcquire(ctx)
	if err != nil {
		s.logger.Error("scheduler: acquiring run gate failed", "error", err)
		return nil
	}
	if !acquired {
		s.logger.Debug("scheduler: fan-out already in progress, dropping trigger")
		telemetry.FanoutDropsTotal.Inc()
		return nil
	}
	defer release()

	clubs, err := s.clubs.ListActiveClubs(ctx)
	if err != nil {
		s.logger.Error("scheduler: listing active clubs failed", "error", err)
		return nil
	}

	results := make([]synctxn.ClubScrapeResult, 0, len(clubs))
	for i, club := range clubs {
		results = append(results, s.ScrapeClub(ctx, club))

		if i < len(clubs)-1 {
			select {
			case <-time.After(s.cfg.InterTenantDelay):
			case <-ctx.Done():
				return results
			}
		}
	}
	return results
}

// ScrapeClub runs one club's Sync Transaction under a hard per-tenant
// timeout. On timeout the transaction's own adapter disposal still fires
// (via its defer), and a failed job with a "Timeout" error is the result
// the Sync Transaction already records on a cancelled context.
func (s *Scheduler) ScrapeClub(ctx context.Context, club tenant.Club) synctxn.ClubScrapeResult {
	tenantCtx, cancel := context.WithTimeout(ctx, s.cfg.PerTenantTimeout)
	defer cancel()

	result := s.txn.Run(tenantCtx, club)
	if result.Err != nil {
		s.logger.Warn("scheduler: club sync failed", "club_id", club.ID, "error", result.Err)
	}
	return result
}
