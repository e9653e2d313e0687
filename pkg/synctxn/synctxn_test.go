package synctxn

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/boatshedhq/scrapecore/pkg/tenant"
)

// Run's database-backed paths need a live Postgres pool (cachestore.Store and
// ledger.Ledger both wrap *pgxpool.Pool directly) and are exercised by the
// integration suite instead. This file covers the decision logic that does
// not touch the database.
func TestRunSkipsInactiveClub(t *testing.T) {
	tx := &Transaction{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	club := tenant.Club{ID: uuid.New(), Name: "Suspended Rowing Club", Status: tenant.StatusSuspended}

	got := tx.Run(context.Background(), club)

	if !got.Success {
		t.Errorf("Success = false, want true for a skipped inactive club")
	}
	if got.BoatsCount != 0 || got.BookingsCount != 0 {
		t.Errorf("expected zero counts for a skipped club, got %+v", got)
	}
	if got.ClubID != club.ID {
		t.Errorf("ClubID = %v, want %v", got.ClubID, club.ID)
	}
}
