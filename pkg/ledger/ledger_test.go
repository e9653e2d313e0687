package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/boatshedhq/scrapecore/pkg/adapter"
)

func TestNewJobEntrySuccess(t *testing.T) {
	clubID := uuid.New()
	completedAt := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)

	result := adapter.SyncResult{Success: true, BoatsCount: 3, BookingsCount: 5, DurationMs: 4500}

	entry := NewJobEntry(clubID, JobTypeBookingCalendar, result, completedAt, 0)

	if entry.Status != JobStatusCompleted {
		t.Errorf("Status = %q, want completed", entry.Status)
	}
	if entry.ErrorMessage != nil {
		t.Errorf("ErrorMessage = %v, want nil", entry.ErrorMessage)
	}
	wantStarted := completedAt.Add(-4500 * time.Millisecond)
	if !entry.StartedAt.Equal(wantStarted) {
		t.Errorf("StartedAt = %v, want %v", entry.StartedAt, wantStarted)
	}
}

func TestNewJobEntryFailure(t *testing.T) {
	clubID := uuid.New()
	completedAt := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)

	result := adapter.SyncResult{Success: false, Err: errors.New("authentication failed after multiple retries"), DurationMs: 1200}

	entry := NewJobEntry(clubID, JobTypeBookingCalendar, result, completedAt, 2)

	if entry.Status != JobStatusFailed {
		t.Errorf("Status = %q, want failed", entry.Status)
	}
	if entry.RetryCount != 2 {
		t.Errorf("RetryCount = %d, want 2", entry.RetryCount)
	}
	if entry.ErrorMessage == nil || *entry.ErrorMessage != "authentication failed after multiple retries" {
		t.Errorf("ErrorMessage = %v", entry.ErrorMessage)
	}
}

func TestNewJobEntryFailureWithNilError(t *testing.T) {
	entry := NewJobEntry(uuid.New(), JobTypeBookingCalendar, adapter.SyncResult{Success: false}, time.Now(), 0)
	if entry.Status != JobStatusFailed {
		t.Errorf("Status = %q, want failed", entry.Status)
	}
	if entry.ErrorMessage != nil {
		t.Errorf("ErrorMessage = %v, want nil when SyncResult.Err is nil", entry.ErrorMessage)
	}
}
