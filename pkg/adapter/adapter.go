// Package adapter defines the contract every data-source adapter implements
// and the data types that flow across it: boats, bookings, date ranges, and
// the non-throwing sync result the Sync Transaction consumes.
package adapter

import (
	"context"
	"errors"
	"time"
)

// Error kinds surfaced by adapter operations. Callers classify failures with
// errors.Is against these sentinels; concrete adapters wrap them with
// fmt.Errorf("...: %w", ...) to attach upstream detail.
var (
	// ErrAuth indicates the login protocol failed: missing CSRF token,
	// failed verification, or reauthentication retries exhausted.
	ErrAuth = errors.New("adapter: authentication failed")

	// ErrNetwork indicates a transport-level failure (TCP/TLS/DNS) rather
	// than an application-level rejection. Treated as transient.
	ErrNetwork = errors.New("adapter: network failure")

	// ErrUpstream indicates a non-2xx response other than 401/403.
	ErrUpstream = errors.New("adapter: upstream error")

	// ErrRateLimit indicates a 429 or a cascade of repeated 401/403
	// responses consistent with upstream rate limiting.
	ErrRateLimit = errors.New("adapter: rate limit exceeded")

	// ErrParse indicates the upstream HTML or JSON shape no longer
	// matches what the adapter knows how to read.
	ErrParse = errors.New("adapter: parse error")
)

// Boat is a cached bookable asset as discovered by an adapter.
type Boat struct {
	ExternalID     string
	Name           string
	Type           *string
	Category       string
	Classification *string
	WeightKg       *int
	IsDamaged      bool
	DamagedReason  *string
	Metadata       map[string]any
}

// Booking is a single cached calendar entry for a boat.
type Booking struct {
	ExternalBoatID string
	ExternalID     *string
	Date           string
	StartTime      string
	EndTime        string
	MemberName     string
	SessionName    *string
	RawRecord      map[string]any
}

// DateRange is an inclusive, local-timezone date window no longer than 14
// days, expressed as YYYY-MM-DD strings.
type DateRange struct {
	Start string
	End   string
}

// SyncResult is the non-throwing outcome of Adapter.Sync. Exactly one of
// (Success with counts) or (!Success with Err) is meaningful; Warnings may
// be populated either way.
type SyncResult struct {
	Success       bool
	BoatsCount    int
	BookingsCount int
	Range         DateRange
	DurationMs    int64
	Err           error
	Warnings      []string
}

// Capabilities describes what a concrete adapter implementation supports.
type Capabilities struct {
	Type                 string
	SupportsBookingEntry bool
}

// DataSourceAdapter is the polymorphic contract the Sync Transaction and
// Tenant Scheduler program against. The HTTP-Scrape Adapter is today's only
// implementation; a first-party adapter that owns data natively could
// satisfy the same contract without the scheduler noticing.
type DataSourceAdapter interface {
	// Capabilities reports the adapter's type string and feature flags.
	Capabilities() Capabilities

	// Initialize must be called exactly once before any data call;
	// subsequent calls are idempotent no-ops once Ready. Fails with
	// ErrAuth, ErrUpstream, or ErrNetwork.
	Initialize(ctx context.Context) error

	// GetBoats returns every bookable asset known to the upstream. Fails
	// with ErrUpstream or ErrParse.
	GetBoats(ctx context.Context) ([]Boat, error)

	// GetBookings returns every booking across all boats within range.
	// Fails with ErrUpstream, ErrParse, or ErrRateLimit.
	GetBookings(ctx context.Context, r DateRange) ([]Booking, error)

	// Sync composes Initialize, GetBoats, and GetBookings into a single
	// non-throwing call; all failures are captured into the result.
	Sync(ctx context.Context, r DateRange) SyncResult

	// Dispose releases sockets, cookies, and in-memory session state.
	// Must be safe to call from any state, any number of times.
	Dispose()
}

// NewDateRange builds the inclusive range from start to start plus days
// (days+1 calendar dates), both expressed in the caller's chosen timezone.
func NewDateRange(start time.Time, days int) DateRange {
	end := start.AddDate(0, 0, days)
	return DateRange{
		Start: start.Format("2006-01-02"),
		End:   end.Format("2006-01-02"),
	}
}
