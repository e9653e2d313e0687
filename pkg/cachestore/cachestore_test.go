package cachestore

import (
	"testing"

	"github.com/google/uuid"

	"github.com/boatshedhq/scrapecore/pkg/adapter"
)

// These are unit-level tests of the pure resolution logic; range-replace
// atomicity and upsert behavior against a live table require a database
// and are exercised by the integration suite outside this package.

func TestResolveBookingsDropsUnknownBoats(t *testing.T) {
	knownID := uuid.New()
	boatIDMap := map[string]uuid.UUID{"101": knownID}

	bookings := []adapter.Booking{
		{ExternalBoatID: "101", MemberName: "Alice"},
		{ExternalBoatID: "999", MemberName: "Bob"},
	}

	resolved, dropped := resolveBookings(bookings, boatIDMap)

	if len(resolved) != 1 {
		t.Fatalf("got %d resolved, want 1", len(resolved))
	}
	if resolved[0].boatID != knownID {
		t.Errorf("resolved boatID = %v, want %v", resolved[0].boatID, knownID)
	}
	if len(dropped) != 1 || dropped[0] != "999" {
		t.Errorf("dropped = %v, want [999]", dropped)
	}
}

func TestResolveBookingsAllResolve(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	boatIDMap := map[string]uuid.UUID{"1": a, "2": b}

	bookings := []adapter.Booking{
		{ExternalBoatID: "1"},
		{ExternalBoatID: "2"},
	}

	resolved, dropped := resolveBookings(bookings, boatIDMap)

	if len(resolved) != 2 {
		t.Fatalf("got %d resolved, want 2", len(resolved))
	}
	if len(dropped) != 0 {
		t.Errorf("expected no drops, got %v", dropped)
	}
}

func TestResolveBookingsEmptyInput(t *testing.T) {
	resolved, dropped := resolveBookings(nil, map[string]uuid.UUID{})
	if len(resolved) != 0 || len(dropped) != 0 {
		t.Errorf("expected empty results for empty input, got resolved=%v dropped=%v", resolved, dropped)
	}
}

func TestInsertBatchSizeBoundary(t *testing.T) {
	// The range-replace inserts in batches of insertBatchSize rows; verify
	// the constant matches the documented driver-parameter-limit bound.
	if insertBatchSize != 100 {
		t.Errorf("insertBatchSize = %d, want 100", insertBatchSize)
	}
}
