package tenant

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestIsActive(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusActive, true},
		{StatusSuspended, false},
		{Status("unknown"), false},
	}

	for _, tt := range tests {
		c := Club{Status: tt.status}
		if got := c.IsActive(); got != tt.want {
			t.Errorf("Club{Status: %q}.IsActive() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()

	if _, ok := FromContext(ctx); ok {
		t.Fatal("expected no club in empty context")
	}

	club := Club{ID: uuid.New(), Name: "Acme Rowing Club", Subdomain: "acme"}
	ctx = NewContext(ctx, club)

	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected club to be present")
	}
	if got.Subdomain != "acme" {
		t.Errorf("Subdomain = %q, want acme", got.Subdomain)
	}
}
