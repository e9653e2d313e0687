// Package tenant is the read-only view of a club the scrape orchestration
// core schedules against. The core never writes these rows; they are
// provisioned by the collaborating admin flow.
package tenant

import (
	"context"

	"github.com/google/uuid"
)

// Status is a club's lifecycle state. Only Active clubs are scheduled.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// DataSourceConfig is a club's upstream connection detail. The credential
// fields are encrypted blobs; only the Credential Vault may turn them into
// usable values, and only for the duration of one sync.
type DataSourceConfig struct {
	BaseURL           string
	EncryptedUsername string
	EncryptedPassword string
}

// Club is a tenant row as read by the scheduler and Sync Transaction.
// (ID, Subdomain) is unique; writes belong exclusively to the collaborating
// admin flow — this package only reads.
type Club struct {
	ID         uuid.UUID
	Name       string
	Subdomain  string
	Timezone   string
	Status     Status
	DataSource DataSourceConfig
}

// IsActive reports whether the club should be scheduled.
func (c Club) IsActive() bool {
	return c.Status == StatusActive
}

type contextKey string

const clubKey contextKey = "scrapecore_club"

// NewContext attaches a club to ctx for later retrieval with FromContext.
// The Sync Transaction, adapter and cache store do not set or read it; they
// receive the club or its id as explicit parameters.
func NewContext(ctx context.Context, club Club) context.Context {
	return context.WithValue(ctx, clubKey, club)
}

// FromContext extracts the club attached by NewContext. The second return
// value is false if no club is set.
func FromContext(ctx context.Context) (Club, bool) {
	c, ok := ctx.Value(clubKey).(Club)
	return c, ok
}
