package revsport

import (
	"testing"
	"time"
)

func TestExtractHHMM(t *testing.T) {
	tests := []struct {
		iso  string
		want string
	}{
		{"2026-07-30T14:30:00+10:00", "14:30"},
		{"2026-07-30T09:05:00Z", "09:05"},
		{"not-a-timestamp", ""},
		{"2026-07-30", ""},
	}

	for _, tt := range tests {
		if got := extractHHMM(tt.iso); got != tt.want {
			t.Errorf("extractHHMM(%q) = %q, want %q", tt.iso, got, tt.want)
		}
	}
}

func TestLocalISOWithOffset(t *testing.T) {
	loc, err := time.LoadLocation("Australia/Sydney")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	start, err := localISOWithOffset("2026-07-30", loc, false)
	if err != nil {
		t.Fatalf("localISOWithOffset() error: %v", err)
	}
	if start[:10] != "2026-07-30" {
		t.Errorf("start date = %q, want 2026-07-30 prefix", start)
	}

	end, err := localISOWithOffset("2026-08-06", loc, true)
	if err != nil {
		t.Fatalf("localISOWithOffset() error: %v", err)
	}
	if end[11:19] != "23:59:59" {
		t.Errorf("end time = %q, want 23:59:59", end[11:19])
	}
}

func TestParseBookingRecord(t *testing.T) {
	rec := calendarRecord{
		ID:    float64(555),
		Title: "Booked by Jane Smith",
		Start: "2026-07-30T14:00:00+10:00",
		End:   "2026-07-30T15:30:00+10:00",
	}

	booking, ok := parseBookingRecord("101", rec)
	if !ok {
		t.Fatalf("expected successful parse")
	}

	if booking.Date != "2026-07-30" {
		t.Errorf("Date = %q", booking.Date)
	}
	if booking.StartTime != "14:00" || booking.EndTime != "15:30" {
		t.Errorf("StartTime/EndTime = %q/%q", booking.StartTime, booking.EndTime)
	}
	if booking.MemberName != "Jane Smith" {
		t.Errorf("MemberName = %q, want Jane Smith", booking.MemberName)
	}
	if booking.ExternalID == nil || *booking.ExternalID != "555" {
		t.Errorf("ExternalID = %v", booking.ExternalID)
	}
}

func TestParseBookingRecordMalformed(t *testing.T) {
	_, ok := parseBookingRecord("101", calendarRecord{Title: "x", Start: "short", End: "short"})
	if ok {
		t.Errorf("expected malformed record to be rejected")
	}
}

