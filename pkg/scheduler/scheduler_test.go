package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/boatshedhq/scrapecore/pkg/synctxn"
	"github.com/boatshedhq/scrapecore/pkg/tenant"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClubLister struct {
	clubs []tenant.Club
	delay time.Duration
}

func (f *fakeClubLister) ListActiveClubs(ctx context.Context) ([]tenant.Club, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.clubs, nil
}

func newTestScheduler(clubs []tenant.Club, delay time.Duration) *Scheduler {
	return New(
		Config{InterTenantDelay: time.Millisecond},
		&fakeClubLister{clubs: clubs, delay: delay},
		&synctxn.Transaction{Logger: discardLogger()},
		nil,
		discardLogger(),
	)
}

func TestRunAllClubsSkipsInactiveClubsWithoutTouchingStorage(t *testing.T) {
	clubs := []tenant.Club{
		{ID: uuid.New(), Name: "Suspended Club A", Status: tenant.StatusSuspended},
		{ID: uuid.New(), Name: "Suspended Club B", Status: tenant.StatusSuspended},
	}
	s := newTestScheduler(clubs, 0)

	results := s.RunAllClubs(context.Background())

	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	for _, r := range results {
		if !r.Success {
			t.Errorf("club %s: Success = false, want true for an inactive-club skip", r.ClubName)
		}
	}
}

func TestRunAllClubsDropsOverlappingTrigger(t *testing.T) {
	clubs := []tenant.Club{{ID: uuid.New(), Name: "Slow Club", Status: tenant.StatusSuspended}}
	s := newTestScheduler(clubs, 50*time.Millisecond)

	var wg sync.WaitGroup
	results := make([][]synctxn.ClubScrapeResult, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		results[0] = s.RunAllClubs(context.Background())
	}()
	go func() {
		defer wg.Done()
		time.Sleep(10 * time.Millisecond)
		results[1] = s.RunAllClubs(context.Background())
	}()
	wg.Wait()

	oneDropped := (results[0] == nil) != (results[1] == nil)
	if !oneDropped {
		t.Fatalf("expected exactly one of the two overlapping triggers to be dropped, got %v and %v", results[0], results[1])
	}
}

func TestScrapeClubSkipsInactiveClubUnderShortTimeout(t *testing.T) {
	s := newTestScheduler(nil, 0)
	s.cfg.PerTenantTimeout = 10 * time.Millisecond

	club := tenant.Club{ID: uuid.New(), Name: "Timeout Club", Status: tenant.StatusSuspended}

	result := s.ScrapeClub(context.Background(), club)

	if !result.Success {
		t.Errorf("expected an inactive-club skip to still succeed even under a short timeout, got %+v", result)
	}
}
