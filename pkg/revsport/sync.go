package revsport

import (
	"context"
	"time"

	"github.com/boatshedhq/scrapecore/pkg/adapter"
)

// Sync is a non-throwing façade over Initialize, GetBoats, and GetBookings,
// Every failure is captured into the returned SyncResult
// instead of propagating.
func (a *Adapter) Sync(ctx context.Context, r adapter.DateRange) adapter.SyncResult {
	start := time.Now()

	result := adapter.SyncResult{Range: r}

	a.mu.Lock()
	ready := a.state == stateReady
	a.mu.Unlock()

	if !ready {
		if err := a.Initialize(ctx); err != nil {
			result.Err = err
			result.DurationMs = time.Since(start).Milliseconds()
			return result
		}
	}

	boats, err := a.GetBoats(ctx)
	if err != nil {
		result.Err = err
		result.DurationMs = time.Since(start).Milliseconds()
		return result
	}

	bookings, err := a.getBookingsForBoats(ctx, boats, r)
	if err != nil {
		result.Err = err
		result.DurationMs = time.Since(start).Milliseconds()
		return result
	}

	result.Success = true
	result.BoatsCount = len(boats)
	result.BookingsCount = len(bookings)
	result.Warnings = a.drainWarnings()
	result.DurationMs = time.Since(start).Milliseconds()
	return result
}
