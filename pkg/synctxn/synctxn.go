// Package synctxn implements the Sync Transaction: the orchestration of one
// club's run across the Credential Vault, a data-source adapter, the Cache
// Store, and the Job Ledger.
package synctxn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/boatshedhq/scrapecore/internal/telemetry"
	"github.com/boatshedhq/scrapecore/internal/vault"
	"github.com/boatshedhq/scrapecore/pkg/adapter"
	"github.com/boatshedhq/scrapecore/pkg/cachestore"
	"github.com/boatshedhq/scrapecore/pkg/ledger"
	"github.com/boatshedhq/scrapecore/pkg/tenant"
)

// ClubScrapeResult is the outcome of one tenant's Sync Transaction, the
// type a scheduler fan-out collects across every club in a trigger.
type ClubScrapeResult struct {
	ClubID        uuid.UUID
	ClubName      string
	Success       bool
	BoatsCount    int
	BookingsCount int
	DurationMs    int64
	Err           error
}

// AdapterFactory builds a data-source adapter for one club's run, given its
// decrypted credentials. Concrete binding is to the HTTP-Scrape Adapter; any
// other DataSourceAdapter implementation satisfies the same factory shape.
type AdapterFactory func(club tenant.Club, creds vault.Credentials, loc *time.Location, debug bool) (adapter.DataSourceAdapter, error)

// Transaction composes the components a single club run needs. One
// Transaction instance is shared across every tenant in a fan-out; all
// per-run state lives on the stack of Run.
type Transaction struct {
	Vault      *vault.Vault
	Store      *cachestore.Store
	Ledger     *ledger.Ledger
	NewAdapter AdapterFactory
	DaysAhead  int
	Debug      bool
	Logger     *slog.Logger
}

// Run drives one club's sync: decrypt its credentials, fetch boats and
// bookings through a freshly constructed adapter, persist both into the
// Cache Store, and record exactly one Job Ledger entry regardless of
// outcome. An inactive club is skipped before any of this and leaves no
// ledger entry. It never panics or returns an error itself; every failure
// is captured into the returned ClubScrapeResult.
func (t *Transaction) Run(ctx context.Context, club tenant.Club) ClubScrapeResult {
	runStart := time.Now()
	logger := t.Logger.With("club_id", club.ID, "club_name", club.Name)

	if !club.IsActive() {
		logger.Debug("skipping inactive club")
		return ClubScrapeResult{ClubID: club.ID, ClubName: club.Name, Success: true}
	}

	creds, err := t.Vault.DecryptCredentials(club.DataSource.EncryptedUsername, club.DataSource.EncryptedPassword)
	if err != nil {
		logger.Error("credential decryption failed", "error", err)
		return t.recordAndReturn(ctx, club, runStart, fmt.Errorf("decrypting credentials: %w", err), 0, 0, 0)
	}

	loc, err := time.LoadLocation(club.Timezone)
	if err != nil {
		loc = time.UTC
		logger.Warn("unknown timezone, falling back to UTC", "timezone", club.Timezone)
	}

	ds, err := t.NewAdapter(club, creds, loc, t.Debug)
	if err != nil {
		logger.Error("constructing adapter failed", "error", err)
		return t.recordAndReturn(ctx, club, runStart, fmt.Errorf("constructing adapter: %w", err), 0, 0, 0)
	}
	defer ds.Dispose()

	if err := ds.Initialize(ctx); err != nil {
		logger.Error("adapter initialization failed", "error", err)
		return t.recordAndReturn(ctx, club, runStart, err, 0, 0, 0)
	}

	boats, err := ds.GetBoats(ctx)
	if err != nil {
		logger.Error("fetching boats failed", "error", err)
		return t.recordAndReturn(ctx, club, runStart, err, 0, 0, 0)
	}

	daysAhead := t.DaysAhead
	if daysAhead <= 0 {
		daysAhead = 7
	}
	dateRange := adapter.NewDateRange(time.Now().In(loc), daysAhead)

	bookings, err := ds.GetBookings(ctx, dateRange)
	if err != nil {
		logger.Error("fetching bookings failed", "error", err)
		return t.recordAndReturn(ctx, club, runStart, err, 0, 0, 0)
	}

	if _, err := t.Store.StoreBoats(ctx, club.ID, boats); err != nil {
		logger.Error("storing boats failed", "error", err)
		return t.recordAndReturn(ctx, club, runStart, fmt.Errorf("storing boats: %w", err), 0, 0, 0)
	}

	storeResult, err := t.Store.StoreBookings(ctx, club.ID, dateRange, bookings)
	if err != nil {
		logger.Error("storing bookings failed", "error", err)
		return t.recordAndReturn(ctx, club, runStart, fmt.Errorf("storing bookings: %w", err), 0, 0, 0)
	}
	if len(storeResult.Dropped) > 0 {
		logger.Warn("dropped bookings for unresolved boats", "count", len(storeResult.Dropped))
		telemetry.PartialWarningsTotal.WithLabelValues(club.Subdomain, "unresolved_booking").Add(float64(len(storeResult.Dropped)))
	}

	return t.recordAndReturn(ctx, club, runStart, nil, len(boats), storeResult.Inserted, 0)
}

// timeoutError is the ledger's fixed spelling for a per-tenant timeout,
// regardless of which call inside Run observed the cancelled context.
var timeoutError = errors.New("Timeout")

func (t *Transaction) recordAndReturn(ctx context.Context, club tenant.Club, runStart time.Time, runErr error, boatsCount, bookingsCount, retryCount int) ClubScrapeResult {
	if runErr != nil && (errors.Is(runErr, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		runErr = timeoutError
	}

	// The ledger write must not share the tenant deadline, or a timed-out
	// run could never record its "Timeout" entry.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	completedAt := time.Now()
	result := adapter.SyncResult{
		Success:       runErr == nil,
		BoatsCount:    boatsCount,
		BookingsCount: bookingsCount,
		Err:           runErr,
		DurationMs:    completedAt.Sub(runStart).Milliseconds(),
	}

	entry := ledger.NewJobEntry(club.ID, ledger.JobTypeBookingCalendar, result, completedAt, retryCount)
	if err := t.Ledger.RecordScrapeJob(recordCtx, entry); err != nil {
		t.Logger.Error("recording scrape job failed", "club_id", club.ID, "error", err)
	}

	status := "completed"
	if !result.Success {
		status = "failed"
	}
	telemetry.SyncJobsTotal.WithLabelValues(club.Subdomain, status).Inc()
	telemetry.SyncDuration.WithLabelValues(club.Subdomain).Observe(float64(result.DurationMs) / 1000)
	if result.Success {
		telemetry.BoatsCached.WithLabelValues(club.Subdomain).Set(float64(result.BoatsCount))
		telemetry.BookingsCached.WithLabelValues(club.Subdomain).Set(float64(result.BookingsCount))
	}

	return ClubScrapeResult{
		ClubID:        club.ID,
		ClubName:      club.Name,
		Success:       result.Success,
		BoatsCount:    result.BoatsCount,
		BookingsCount: result.BookingsCount,
		DurationMs:    result.DurationMs,
		Err:           result.Err,
	}
}
