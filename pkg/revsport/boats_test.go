package revsport

import "testing"

func TestParseBoatCards(t *testing.T) {
	html := `
<div class="boat-card">
  <h3>1X RACER "Skipper" (Nugget)</h3>
  <a href="/bookings/calendar/101">Calendar</a>
</div>
<div class="boat-card">
  <h3>Tinnie 2</h3>
  <a href="/bookings/retrieve-calendar/202">Calendar</a>
</div>
<div class="boat-card">
  <h3>4X damaged 85KG</h3>
  <a href="/bookings/calendar/303">Calendar</a>
</div>
<div class="boat-card">
  <h3>No calendar link here</h3>
</div>
<div class="boat-card danger-badge">
  <h3>2-/- 70KG</h3>
  <a href="/bookings/calendar/404">Calendar</a>
</div>
`
	cards, err := parseBoatCards([]byte(html))
	if err != nil {
		t.Fatalf("parseBoatCards() error: %v", err)
	}

	if len(cards) != 5 {
		t.Fatalf("got %d cards, want 5", len(cards))
	}

	if !cards[0].hasCalendar || cards[0].externalID != "101" {
		t.Errorf("card 0: got %+v", cards[0])
	}
	if cards[3].hasCalendar {
		t.Errorf("card 3 should have no calendar link, got %+v", cards[3])
	}
	if !cards[4].hasDanger {
		t.Errorf("card 4 should carry the danger badge")
	}
}

func TestBoatFromCard(t *testing.T) {
	tests := []struct {
		name           string
		title          string
		hasDanger      bool
		wantCategory   string
		wantType       string
		wantClass      string
		wantDamaged    bool
		wantWeight     *int
	}{
		{
			name:         "racing single with nickname",
			title:        `1X RACER "Skipper" (Nugget)`,
			wantCategory: "race",
			wantType:     "1X",
			wantClass:    "R",
		},
		{
			name:         "training quad",
			title:        "4X training squad boat",
			wantCategory: "race",
			wantType:     "4X",
			wantClass:    "T",
		},
		{
			name:         "damaged boat by title",
			title:        "2X damaged hull",
			wantCategory: "race",
			wantType:     "2X",
			wantClass:    "T",
			wantDamaged:  true,
		},
		{
			name:         "damaged boat by badge",
			title:        "4-",
			hasDanger:    true,
			wantCategory: "race",
			wantType:     "4-",
			wantClass:    "T",
			wantDamaged:  true,
		},
		{
			name:         "sweep-capable combined token",
			title:        "2X/- club eight",
			wantCategory: "race",
			wantType:     "2X/-",
			wantClass:    "T",
		},
		{
			name:         "tinnie",
			title:        "Tinnie Work Boat",
			wantCategory: "tinnie",
			wantType:     "",
			wantClass:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := boatCard{externalID: "1", title: tt.title, hasDanger: tt.hasDanger}
			boat := boatFromCard(card)

			if boat.Category != tt.wantCategory {
				t.Errorf("Category = %q, want %q", boat.Category, tt.wantCategory)
			}

			gotType := ""
			if boat.Type != nil {
				gotType = *boat.Type
			}
			if gotType != tt.wantType {
				t.Errorf("Type = %q, want %q", gotType, tt.wantType)
			}

			gotClass := ""
			if boat.Classification != nil {
				gotClass = *boat.Classification
			}
			if gotClass != tt.wantClass {
				t.Errorf("Classification = %q, want %q", gotClass, tt.wantClass)
			}

			if boat.IsDamaged != tt.wantDamaged {
				t.Errorf("IsDamaged = %v, want %v", boat.IsDamaged, tt.wantDamaged)
			}
		})
	}
}

func TestBoatFromCardWeight(t *testing.T) {
	boat := boatFromCard(boatCard{externalID: "1", title: "4X 85KG squad boat"})
	if boat.WeightKg == nil || *boat.WeightKg != 85 {
		t.Errorf("WeightKg = %v, want 85", boat.WeightKg)
	}
}

func TestExtractCalendarID(t *testing.T) {
	tests := []struct {
		href    string
		wantID  string
		wantOK  bool
	}{
		{"/bookings/calendar/101", "101", true},
		{"/bookings/retrieve-calendar/202?foo=bar", "202", true},
		{"/bookings/retrieve-calendar/303/extra", "303", true},
		{"/some/other/path", "", false},
	}

	for _, tt := range tests {
		id, ok := extractCalendarID(tt.href)
		if ok != tt.wantOK || id != tt.wantID {
			t.Errorf("extractCalendarID(%q) = (%q, %v), want (%q, %v)", tt.href, id, ok, tt.wantID, tt.wantOK)
		}
	}
}
