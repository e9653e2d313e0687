package revsport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/boatshedhq/scrapecore/pkg/adapter"
)

// calendarRecord mirrors the upstream JSON shape returned by the calendar
// retrieval endpoint.
type calendarRecord struct {
	ID            any            `json:"id"`
	Title         string         `json:"title"`
	Start         string         `json:"start"`
	End           string         `json:"end"`
	URL           string         `json:"url,omitempty"`
	ExtendedProps map[string]any `json:"extendedProps,omitempty"`
}

type boatBookingsResult struct {
	externalBoatID string
	bookings       []adapter.Booking
	err            error
}

// GetBookings fetches every boat's calendar in bounded-concurrency batches,
// batches of BatchSize boats in flight together, InterBatchDelay
// between batches.
func (a *Adapter) GetBookings(ctx context.Context, r adapter.DateRange) ([]adapter.Booking, error) {
	boats, err := a.GetBoats(ctx)
	if err != nil {
		return nil, err
	}
	return a.getBookingsForBoats(ctx, boats, r)
}

// getBookingsForBoats fetches calendars for an already-resolved boat list,
// letting Sync avoid refetching the bookings index a second time.
func (a *Adapter) getBookingsForBoats(ctx context.Context, boats []adapter.Boat, r adapter.DateRange) ([]adapter.Booking, error) {
	var all []adapter.Booking

	for batchStart := 0; batchStart < len(boats); batchStart += a.cfg.BatchSize {
		end := batchStart + a.cfg.BatchSize
		if end > len(boats) {
			end = len(boats)
		}
		batch := boats[batchStart:end]

		results := a.fetchBatch(ctx, batch, r)
		for _, res := range results {
			if res.err != nil {
				return nil, fmt.Errorf("boat %s: %w", res.externalBoatID, res.err)
			}
			all = append(all, res.bookings...)
		}

		if end < len(boats) {
			select {
			case <-time.After(a.cfg.InterBatchDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return all, nil
}

func (a *Adapter) fetchBatch(ctx context.Context, batch []adapter.Boat, r adapter.DateRange) []boatBookingsResult {
	results := make([]boatBookingsResult, len(batch))

	var wg sync.WaitGroup
	wg.Add(len(batch))

	for i, boat := range batch {
		go func(i int, boat adapter.Boat) {
			defer wg.Done()
			bookings, err := a.fetchBoatCalendar(ctx, boat.ExternalID, r)
			results[i] = boatBookingsResult{externalBoatID: boat.ExternalID, bookings: bookings, err: err}
		}(i, boat)
	}

	wg.Wait()
	return results
}

func (a *Adapter) fetchBoatCalendar(ctx context.Context, boatExternalID string, r adapter.DateRange) ([]adapter.Booking, error) {
	startISO, err := localISOWithOffset(r.Start, a.cfg.Timezone, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", adapter.ErrParse, err)
	}
	endISO, err := localISOWithOffset(r.End, a.cfg.Timezone, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", adapter.ErrParse, err)
	}

	endpoint := fmt.Sprintf("%s/bookings/retrieve-calendar/%s?start=%s&end=%s",
		a.cfg.BaseURL, boatExternalID, url.QueryEscape(startISO), url.QueryEscape(endISO))

	_, body, err := a.doAuthenticated(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		setBrowserHeaders(req)
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var records []calendarRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("%w: decoding calendar response: %v", adapter.ErrParse, err)
	}

	bookings := make([]adapter.Booking, 0, len(records))
	for _, rec := range records {
		b, ok := parseBookingRecord(boatExternalID, rec)
		if !ok {
			continue
		}
		bookings = append(bookings, b)
	}

	return bookings, nil
}

// parseBookingRecord normalizes one upstream calendar record into a Booking.
func parseBookingRecord(boatExternalID string, rec calendarRecord) (adapter.Booking, bool) {
	if len(rec.Start) < 10 || len(rec.End) < 10 {
		return adapter.Booking{}, false
	}

	date := rec.Start[:10]
	startTime := extractHHMM(rec.Start)
	endTime := extractHHMM(rec.End)
	if startTime == "" || endTime == "" {
		return adapter.Booking{}, false
	}

	var externalID *string
	if rec.ID != nil {
		id := fmt.Sprintf("%v", rec.ID)
		externalID = &id
	}

	memberName := strings.TrimPrefix(rec.Title, "Booked by ")

	raw := map[string]any{
		"id":            rec.ID,
		"title":         rec.Title,
		"start":         rec.Start,
		"end":           rec.End,
		"url":           rec.URL,
		"extendedProps": rec.ExtendedProps,
	}

	return adapter.Booking{
		ExternalBoatID: boatExternalID,
		ExternalID:     externalID,
		Date:           date,
		StartTime:      startTime,
		EndTime:        endTime,
		MemberName:     memberName,
		RawRecord:      raw,
	}, true
}

// extractHHMM returns the HH:MM portion of an ISO-8601 timestamp with
// timezone offset, e.g. "2026-07-30T14:30:00+10:00" -> "14:30".
func extractHHMM(iso string) string {
	idx := strings.IndexByte(iso, 'T')
	if idx == -1 || len(iso) < idx+6 {
		return ""
	}
	return iso[idx+1 : idx+6]
}

// localISOWithOffset renders a YYYY-MM-DD date as an ISO-8601 timestamp
// with tz offset, at start-of-day or end-of-day, in the given location.
func localISOWithOffset(date string, loc *time.Location, endOfDay bool) (string, error) {
	t, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return "", err
	}
	if endOfDay {
		t = t.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
	}
	return t.Format("2006-01-02T15:04:05-07:00"), nil
}
