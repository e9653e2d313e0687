// Package ledger is the append-only Job Ledger: one row per Sync
// Transaction invocation, plus the read paths admin status and health
// endpoints use, and an optional Slack ops alert on failed jobs.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goslack "github.com/slack-go/slack"

	"github.com/boatshedhq/scrapecore/pkg/adapter"
)

// JobType enumerates the kind of work a ledger entry records.
type JobType string

const (
	JobTypeBoatMetadata   JobType = "boat_metadata"
	JobTypeBookingCalendar JobType = "booking_calendar"
)

// JobStatus is the terminal outcome of a Sync Transaction.
type JobStatus string

const (
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// JobEntry is one ledger row. StartedAt is backfilled as
// CompletedAt - DurationMs to avoid a second clock read.
type JobEntry struct {
	ClubID       uuid.UUID
	JobType      JobType
	Status       JobStatus
	StartedAt    time.Time
	CompletedAt  time.Time
	ErrorMessage *string
	RetryCount   int
}

// NewJobEntry builds a ledger entry from a sync outcome, backfilling
// StartedAt from the observed duration.
func NewJobEntry(clubID uuid.UUID, jobType JobType, result adapter.SyncResult, completedAt time.Time, retryCount int) JobEntry {
	entry := JobEntry{
		ClubID:      clubID,
		JobType:     jobType,
		CompletedAt: completedAt,
		StartedAt:   completedAt.Add(-time.Duration(result.DurationMs) * time.Millisecond),
		RetryCount:  retryCount,
	}
	if result.Success {
		entry.Status = JobStatusCompleted
	} else {
		entry.Status = JobStatusFailed
		if result.Err != nil {
			msg := result.Err.Error()
			entry.ErrorMessage = &msg
		}
	}
	return entry
}

// Ledger records scrape jobs and serves the read paths admin status and
// club health checks depend on.
type Ledger struct {
	pool       *pgxpool.Pool
	logger     *slog.Logger
	opsWebhook string
}

// New creates a Ledger. opsWebhookURL may be empty, in which case failed
// jobs are logged but no Slack alert is posted.
func New(pool *pgxpool.Pool, logger *slog.Logger, opsWebhookURL string) *Ledger {
	return &Ledger{pool: pool, logger: logger, opsWebhook: opsWebhookURL}
}

// RecordScrapeJob inserts one ledger row. Every invocation of the Sync
// Transaction for an active club produces exactly one call here,
// regardless of outcome.
func (l *Ledger) RecordScrapeJob(ctx context.Context, entry JobEntry) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO scrape_jobs (id, club_id, job_type, status, started_at, completed_at, error_message, retry_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, uuid.New(), entry.ClubID, entry.JobType, entry.Status, entry.StartedAt, entry.CompletedAt, entry.ErrorMessage, entry.RetryCount)
	if err != nil {
		return fmt.Errorf("ledger: inserting scrape job: %w", err)
	}

	if entry.Status == JobStatusFailed {
		l.alertOnFailure(ctx, entry)
	}

	return nil
}

func (l *Ledger) alertOnFailure(ctx context.Context, entry JobEntry) {
	if l.opsWebhook == "" {
		return
	}

	msg := "unknown error"
	if entry.ErrorMessage != nil {
		msg = *entry.ErrorMessage
	}

	payload := &goslack.WebhookMessage{
		Text: fmt.Sprintf(":rotating_light: scrape job failed for club `%s` (%s): %s", entry.ClubID, entry.JobType, msg),
	}

	if err := goslack.PostWebhookContext(ctx, l.opsWebhook, payload); err != nil {
		l.logger.Warn("ledger: failed to post ops alert to slack", "error", err, "club_id", entry.ClubID)
	}
}

// FailedJobSummary is a job-ledger row as surfaced to operators.
type FailedJobSummary struct {
	ClubID       uuid.UUID
	JobType      JobType
	CompletedAt  time.Time
	ErrorMessage *string
}

// GetLastSuccessfulScrape returns the completion time of the most recent
// completed job for a club, or nil if none exists.
func (l *Ledger) GetLastSuccessfulScrape(ctx context.Context, clubID uuid.UUID) (*time.Time, error) {
	var completedAt time.Time
	err := l.pool.QueryRow(ctx, `
		SELECT completed_at FROM scrape_jobs
		WHERE club_id = $1 AND status = 'completed'
		ORDER BY completed_at DESC
		LIMIT 1
	`, clubID).Scan(&completedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("ledger: querying last successful scrape: %w", err)
	}
	return &completedAt, nil
}

// GetRecentJobs returns the last n jobs for a club, most recent first.
func (l *Ledger) GetRecentJobs(ctx context.Context, clubID uuid.UUID, n int) ([]FailedJobSummary, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT club_id, job_type, completed_at, error_message
		FROM scrape_jobs
		WHERE club_id = $1
		ORDER BY completed_at DESC
		LIMIT $2
	`, clubID, n)
	if err != nil {
		return nil, fmt.Errorf("ledger: querying recent jobs: %w", err)
	}
	defer rows.Close()

	return scanJobSummaries(rows)
}

// GetRecentFailedJobs returns the last n failed jobs for a club, most
// recent first.
func (l *Ledger) GetRecentFailedJobs(ctx context.Context, clubID uuid.UUID, n int) ([]FailedJobSummary, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT club_id, job_type, completed_at, error_message
		FROM scrape_jobs
		WHERE club_id = $1 AND status = 'failed'
		ORDER BY completed_at DESC
		LIMIT $2
	`, clubID, n)
	if err != nil {
		return nil, fmt.Errorf("ledger: querying recent failed jobs: %w", err)
	}
	defer rows.Close()

	return scanJobSummaries(rows)
}

// AggregateStats summarizes job outcomes over a trailing window.
type AggregateStats struct {
	TotalJobs     int
	FailedJobs    int
	AvgDurationMs float64
}

// GetAggregateStats24h returns job counts and average duration over the
// trailing 24 hours for a club.
func (l *Ledger) GetAggregateStats24h(ctx context.Context, clubID uuid.UUID) (AggregateStats, error) {
	var stats AggregateStats
	err := l.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COALESCE(AVG(EXTRACT(EPOCH FROM (completed_at - started_at)) * 1000), 0)
		FROM scrape_jobs
		WHERE club_id = $1 AND completed_at >= NOW() - INTERVAL '24 hours'
	`, clubID).Scan(&stats.TotalJobs, &stats.FailedJobs, &stats.AvgDurationMs)
	if err != nil {
		return AggregateStats{}, fmt.Errorf("ledger: querying aggregate stats: %w", err)
	}
	return stats, nil
}

func scanJobSummaries(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]FailedJobSummary, error) {
	var out []FailedJobSummary
	for rows.Next() {
		var s FailedJobSummary
		if err := rows.Scan(&s.ClubID, &s.JobType, &s.CompletedAt, &s.ErrorMessage); err != nil {
			return nil, fmt.Errorf("ledger: scanning job row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
