// Package cachestore writes boat_cache and booking_cache and reads
// scrape_jobs for the last successful scrape time; scrape_jobs rows are
// written by package ledger. It talks to Postgres
// directly over pgx — no generated query layer — following the same
// raw-SQL-over-pgxpool style the rest of the core's persistence uses.
package cachestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/boatshedhq/scrapecore/pkg/adapter"
)

const insertBatchSize = 100

// BoatUpsertWarning records a boat whose upsert could not be applied as-is.
// StoreBoats emits one when a boat's metadata cannot be serialized to JSON;
// that boat is skipped and the rest are still upserted.
type BoatUpsertWarning struct {
	ExternalID string
	Reason     string
}

// StoreBookingsResult reports how many bookings were written and how many
// were dropped because they referenced an unknown boat.
type StoreBookingsResult struct {
	Inserted int
	Dropped  []string
}

// Store is the Cache Store: boat upsert, atomic booking range-replace, and
// the read paths external collaborators use for tenant status.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an existing connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// StoreBoats upserts every boat in boats on the natural key
// (club_id, revsport_boat_id): update on conflict, insert otherwise.
// Metadata is stored as an opaque JSONB blob.
func (s *Store) StoreBoats(ctx context.Context, clubID uuid.UUID, boats []adapter.Boat) ([]BoatUpsertWarning, error) {
	if len(boats) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("cachestore: beginning boat upsert tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var warnings []BoatUpsertWarning

	for _, b := range boats {
		metadata, err := json.Marshal(b.Metadata)
		if err != nil {
			warnings = append(warnings, BoatUpsertWarning{ExternalID: b.ExternalID, Reason: "metadata not serializable"})
			continue
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO boat_cache
				(id, club_id, revsport_boat_id, name, type, category, classification, weight_kg, is_damaged, damaged_reason, metadata, last_scraped_at)
			VALUES
				($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (club_id, revsport_boat_id) DO UPDATE SET
				name = EXCLUDED.name,
				type = EXCLUDED.type,
				category = EXCLUDED.category,
				classification = EXCLUDED.classification,
				weight_kg = EXCLUDED.weight_kg,
				is_damaged = EXCLUDED.is_damaged,
				damaged_reason = EXCLUDED.damaged_reason,
				metadata = EXCLUDED.metadata,
				last_scraped_at = EXCLUDED.last_scraped_at
		`, uuid.New(), clubID, b.ExternalID, b.Name, b.Type, b.Category, b.Classification, b.WeightKg, b.IsDamaged, b.DamagedReason, metadata, now)
		if err != nil {
			return nil, fmt.Errorf("cachestore: upserting boat %s: %w", b.ExternalID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("cachestore: committing boat upsert: %w", err)
	}

	return warnings, nil
}

// StoreBookings performs an atomic range-replace for (clubID, r): deletes
// every booking in the window, resolves external boat ids to internal ones,
// then inserts the incoming bookings that resolve in batches of 100.
// Bookings that don't resolve to a known boat are dropped and reported.
func (s *Store) StoreBookings(ctx context.Context, clubID uuid.UUID, r adapter.DateRange, bookings []adapter.Booking) (StoreBookingsResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return StoreBookingsResult{}, fmt.Errorf("cachestore: beginning range-replace tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM booking_cache
		WHERE club_id = $1 AND booking_date BETWEEN $2 AND $3
	`, clubID, r.Start, r.End); err != nil {
		return StoreBookingsResult{}, fmt.Errorf("cachestore: deleting booking window: %w", err)
	}

	boatIDMap, err := getBoatIDMapTx(ctx, tx, clubID)
	if err != nil {
		return StoreBookingsResult{}, fmt.Errorf("cachestore: resolving boat id map: %w", err)
	}

	resolved, dropped := resolveBookings(bookings, boatIDMap)
	result := StoreBookingsResult{Dropped: dropped}

	for start := 0; start < len(resolved); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(resolved) {
			end = len(resolved)
		}
		if err := insertBookingBatch(ctx, tx, clubID, resolved[start:end]); err != nil {
			return StoreBookingsResult{}, fmt.Errorf("cachestore: inserting booking batch: %w", err)
		}
		result.Inserted += end - start
	}

	if err := tx.Commit(ctx); err != nil {
		return StoreBookingsResult{}, fmt.Errorf("cachestore: committing range-replace: %w", err)
	}

	return result, nil
}

type resolvedBooking struct {
	boatID  uuid.UUID
	booking adapter.Booking
}

// resolveBookings splits incoming bookings into those that resolve to a
// known boat and the external ids of those that don't.
func resolveBookings(bookings []adapter.Booking, boatIDMap map[string]uuid.UUID) ([]resolvedBooking, []string) {
	var resolved []resolvedBooking
	var dropped []string

	for _, b := range bookings {
		internalID, ok := boatIDMap[b.ExternalBoatID]
		if !ok {
			dropped = append(dropped, b.ExternalBoatID)
			continue
		}
		resolved = append(resolved, resolvedBooking{boatID: internalID, booking: b})
	}

	return resolved, dropped
}

func insertBookingBatch(ctx context.Context, tx pgx.Tx, clubID uuid.UUID, batch []resolvedBooking) error {
	rows := make([][]any, 0, len(batch))

	for _, rb := range batch {
		raw, err := json.Marshal(rb.booking.RawRecord)
		if err != nil {
			return fmt.Errorf("marshaling raw record: %w", err)
		}
		rows = append(rows, []any{
			uuid.New(), clubID, rb.boatID, rb.booking.Date, rb.booking.SessionName,
			rb.booking.ExternalID, rb.booking.StartTime, rb.booking.EndTime, rb.booking.MemberName, raw,
		})
	}

	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"booking_cache"},
		[]string{"id", "club_id", "boat_id", "booking_date", "session_name", "external_id", "start_time", "end_time", "member_name", "raw_record"},
		pgx.CopyFromRows(rows),
	)
	return err
}

func getBoatIDMapTx(ctx context.Context, tx pgx.Tx, clubID uuid.UUID) (map[string]uuid.UUID, error) {
	rows, err := tx.Query(ctx, `SELECT revsport_boat_id, id FROM boat_cache WHERE club_id = $1`, clubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]uuid.UUID{}
	for rows.Next() {
		var externalID string
		var id uuid.UUID
		if err := rows.Scan(&externalID, &id); err != nil {
			return nil, err
		}
		out[externalID] = id
	}
	return out, rows.Err()
}

// GetBoatIdMap resolves externalBoatId -> internalBoatId for a club, used
// internally during range replace and exposed for callers that need the
// same resolution outside a transaction.
func (s *Store) GetBoatIdMap(ctx context.Context, clubID uuid.UUID) (map[string]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `SELECT revsport_boat_id, id FROM boat_cache WHERE club_id = $1`, clubID)
	if err != nil {
		return nil, fmt.Errorf("cachestore: querying boat id map: %w", err)
	}
	defer rows.Close()

	out := map[string]uuid.UUID{}
	for rows.Next() {
		var externalID string
		var id uuid.UUID
		if err := rows.Scan(&externalID, &id); err != nil {
			return nil, fmt.Errorf("cachestore: scanning boat id map row: %w", err)
		}
		out[externalID] = id
	}
	return out, rows.Err()
}

// CachedBoat is a boat row as read back from boat_cache.
type CachedBoat struct {
	ID             uuid.UUID
	ExternalID     string
	Name           string
	Type           *string
	Category       string
	Classification *string
	WeightKg       *int
	IsDamaged      bool
	DamagedReason  *string
	LastScrapedAt  time.Time
}

// GetBoatsForTenant returns every cached boat for a club.
func (s *Store) GetBoatsForTenant(ctx context.Context, clubID uuid.UUID) ([]CachedBoat, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, revsport_boat_id, name, type, category, classification, weight_kg, is_damaged, damaged_reason, last_scraped_at
		FROM boat_cache
		WHERE club_id = $1
	`, clubID)
	if err != nil {
		return nil, fmt.Errorf("cachestore: querying boats: %w", err)
	}
	defer rows.Close()

	var out []CachedBoat
	for rows.Next() {
		var b CachedBoat
		if err := rows.Scan(&b.ID, &b.ExternalID, &b.Name, &b.Type, &b.Category, &b.Classification, &b.WeightKg, &b.IsDamaged, &b.DamagedReason, &b.LastScrapedAt); err != nil {
			return nil, fmt.Errorf("cachestore: scanning boat row: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// CachedBooking is a booking row as read back from booking_cache.
type CachedBooking struct {
	ID          uuid.UUID
	BoatID      uuid.UUID
	Date        string
	SessionName *string
	ExternalID  *string
	StartTime   string
	EndTime     string
	MemberName  string
}

// BookingFilter narrows a GetBookings call. Zero-value BoatID means "all boats".
type BookingFilter struct {
	Range  adapter.DateRange
	BoatID *uuid.UUID
}

// GetBookings returns cached bookings for a club matching the filter.
func (s *Store) GetBookings(ctx context.Context, clubID uuid.UUID, f BookingFilter) ([]CachedBooking, error) {
	query := `
		SELECT id, boat_id, booking_date, session_name, external_id, start_time, end_time, member_name
		FROM booking_cache
		WHERE club_id = $1 AND booking_date BETWEEN $2 AND $3
	`
	args := []any{clubID, f.Range.Start, f.Range.End}

	if f.BoatID != nil {
		query += " AND boat_id = $4"
		args = append(args, *f.BoatID)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("cachestore: querying bookings: %w", err)
	}
	defer rows.Close()

	var out []CachedBooking
	for rows.Next() {
		var b CachedBooking
		if err := rows.Scan(&b.ID, &b.BoatID, &b.Date, &b.SessionName, &b.ExternalID, &b.StartTime, &b.EndTime, &b.MemberName); err != nil {
			return nil, fmt.Errorf("cachestore: scanning booking row: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetLastScrapeTime returns the completion time of the most recent
// completed scrape job for a club, or nil if none exists yet.
func (s *Store) GetLastScrapeTime(ctx context.Context, clubID uuid.UUID) (*time.Time, error) {
	var completedAt time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT completed_at FROM scrape_jobs
		WHERE club_id = $1 AND status = 'completed'
		ORDER BY completed_at DESC
		LIMIT 1
	`, clubID).Scan(&completedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("cachestore: querying last scrape time: %w", err)
	}
	return &completedAt, nil
}
