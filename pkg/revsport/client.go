// Package revsport implements the HTTP-Scrape Adapter: a DataSourceAdapter
// against a RevSport-style booking portal that offers no public API. It
// behaves like a polite, well-identified browser session — cookie jar,
// CSRF-aware login, bounded reauthentication, batched concurrent fetches.
package revsport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/singleflight"

	"github.com/boatshedhq/scrapecore/internal/telemetry"
	"github.com/boatshedhq/scrapecore/pkg/adapter"
)

// sessionState is the adapter's lifecycle state.
type sessionState int

const (
	stateNew sessionState = iota
	stateAuthenticating
	stateReady
	stateReauthenticating
	stateDisposed
)

func (s sessionState) String() string {
	switch s {
	case stateNew:
		return "new"
	case stateAuthenticating:
		return "authenticating"
	case stateReady:
		return "ready"
	case stateReauthenticating:
		return "reauthenticating"
	case stateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

const maxReauthRetries = 2

// Config configures a single adapter instance, scoped to one club for the
// lifetime of one sync.
type Config struct {
	// Tenant labels metrics and log lines; it carries no authentication
	// meaning of its own.
	Tenant   string
	BaseURL  string
	Username string
	Password string
	Timezone *time.Location
	Debug    bool

	// BatchSize and delays mirror the scheduler-level config so the
	// adapter can be unit-tested independent of the scheduler.
	BatchSize         int
	InterBatchDelay   time.Duration
	HTTPClientTimeout time.Duration
}

// Adapter is the concrete HTTP-Scrape DataSourceAdapter.
type Adapter struct {
	cfg    Config
	logger *slog.Logger

	hc *http.Client

	mu    sync.Mutex
	state sessionState

	loginGroup singleflight.Group

	warningsMu sync.Mutex
	warnings   []string
}

// recordWarning accumulates a PartialWarning for the current sync; drained
// by Sync into SyncResult.Warnings.
func (a *Adapter) recordWarning(msg string) {
	a.warningsMu.Lock()
	a.warnings = append(a.warnings, msg)
	a.warningsMu.Unlock()
}

// drainWarnings returns and clears the accumulated warnings.
func (a *Adapter) drainWarnings() []string {
	a.warningsMu.Lock()
	defer a.warningsMu.Unlock()
	w := a.warnings
	a.warnings = nil
	return w
}

var _ adapter.DataSourceAdapter = (*Adapter)(nil)

// New builds an adapter instance with its own cookie jar. Nothing is sent
// over the network until Initialize or Sync is called.
func New(cfg Config, logger *slog.Logger) (*Adapter, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if cfg.InterBatchDelay <= 0 {
		cfg.InterBatchDelay = 500 * time.Millisecond
	}
	if cfg.HTTPClientTimeout <= 0 {
		cfg.HTTPClientTimeout = 30 * time.Second
	}
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("revsport: creating cookie jar: %w", err)
	}

	return &Adapter{
		cfg:    cfg,
		logger: logger,
		hc: &http.Client{
			Jar:     jar,
			Timeout: cfg.HTTPClientTimeout,
		},
		state: stateNew,
	}, nil
}

// Capabilities reports that this adapter is read-only (Phase A).
func (a *Adapter) Capabilities() adapter.Capabilities {
	return adapter.Capabilities{Type: "revsport", SupportsBookingEntry: false}
}

// Initialize runs the login protocol exactly once; subsequent calls are a
// no-op once Ready.
func (a *Adapter) Initialize(ctx context.Context) error {
	a.mu.Lock()
	if a.state == stateReady {
		a.mu.Unlock()
		return nil
	}
	if a.state == stateDisposed {
		a.mu.Unlock()
		return fmt.Errorf("%w: adapter is disposed", adapter.ErrAuth)
	}
	a.state = stateAuthenticating
	a.mu.Unlock()

	return a.login(ctx)
}

// login runs the CSRF-aware login protocol under the adapter's singleflight
// group: concurrent callers that discover session invalidation at the same
// time collapse into a single in-flight login POST.
func (a *Adapter) login(ctx context.Context) error {
	_, err, _ := a.loginGroup.Do("login", func() (any, error) {
		return nil, a.doLogin(ctx)
	})
	return err
}

func (a *Adapter) doLogin(ctx context.Context) error {
	a.logger.Debug("revsport: starting login", "base_url", a.cfg.BaseURL)

	token, err := a.fetchCSRFToken(ctx)
	if err != nil {
		a.transitionTo(stateNew)
		return fmt.Errorf("%w: %v", adapter.ErrAuth, err)
	}

	if err := a.postLogin(ctx, token); err != nil {
		a.transitionTo(stateNew)
		return fmt.Errorf("%w: %v", adapter.ErrAuth, err)
	}

	if err := a.verifyLoggedIn(ctx); err != nil {
		a.transitionTo(stateNew)
		return fmt.Errorf("%w: %v", adapter.ErrAuth, err)
	}

	a.transitionTo(stateReady)
	a.logger.Debug("revsport: login succeeded")
	return nil
}

func (a *Adapter) transitionTo(s sessionState) {
	a.mu.Lock()
	if a.state != stateDisposed {
		a.state = s
	}
	a.mu.Unlock()
}

// fetchCSRFToken GETs the login page and extracts the `_token` form field.
func (a *Adapter) fetchCSRFToken(ctx context.Context) (string, error) {
	loginURL := a.cfg.BaseURL + "/login"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loginURL, nil)
	if err != nil {
		return "", err
	}
	setBrowserHeaders(req)

	resp, err := a.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching login page: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading login page: %w", err)
	}

	token, ok := extractCSRFToken(body)
	if !ok {
		return "", fmt.Errorf("no CSRF token found on login page")
	}
	return token, nil
}

// postLogin submits credentials as form-urlencoded with the CSRF token.
func (a *Adapter) postLogin(ctx context.Context, csrfToken string) error {
	loginURL := a.cfg.BaseURL + "/login"

	form := url.Values{}
	form.Set("_token", csrfToken)
	form.Set("username", a.cfg.Username)
	form.Set("password", a.cfg.Password)
	form.Set("remember", "on")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	setBrowserHeaders(req)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", loginURL)
	req.Header.Set("Origin", a.cfg.BaseURL)

	resp, err := a.hc.Do(req)
	if err != nil {
		return fmt.Errorf("posting login: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return nil
}

// verifyLoggedIn GETs a page only reachable when authenticated and checks
// for the absence of login-form markers.
func (a *Adapter) verifyLoggedIn(ctx context.Context) error {
	checkURL := a.cfg.BaseURL + "/bookings"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, checkURL, nil)
	if err != nil {
		return err
	}
	setBrowserHeaders(req)

	resp, err := a.hc.Do(req)
	if err != nil {
		return fmt.Errorf("verifying login: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading verification page: %w", err)
	}

	if looksLikeLoginForm(body) {
		return fmt.Errorf("verification page still shows login form")
	}
	return nil
}

// invalidatedStatus reports whether status is the "session invalidated"
// signal. Any other non-2xx is ErrUpstream, not reauth.
func invalidatedStatus(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

// doAuthenticated performs req, transparently reauthenticating and
// replaying on session invalidation, up to maxReauthRetries times.
func (a *Adapter) doAuthenticated(ctx context.Context, build func() (*http.Request, error)) (*http.Response, []byte, error) {
	for attempt := 0; ; attempt++ {
		req, err := build()
		if err != nil {
			return nil, nil, err
		}

		resp, err := a.hc.Do(req)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", adapter.ErrNetwork, err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: reading response: %v", adapter.ErrNetwork, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, nil, fmt.Errorf("%w: status 429", adapter.ErrRateLimit)
		}

		if !invalidatedStatus(resp.StatusCode) {
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return nil, nil, fmt.Errorf("%w: status %d", adapter.ErrUpstream, resp.StatusCode)
			}
			return resp, body, nil
		}

		if attempt >= maxReauthRetries {
			return nil, nil, fmt.Errorf("%w: authentication failed after multiple retries", adapter.ErrAuth)
		}

		backoff := time.Duration(1<<uint(attempt)) * time.Second
		a.logger.Warn("revsport: session invalidated, reauthenticating",
			"status", resp.StatusCode, "attempt", attempt+1, "backoff", backoff)

		a.transitionTo(stateReauthenticating)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}

		if err := a.login(ctx); err != nil {
			telemetry.ReauthTotal.WithLabelValues(a.cfg.Tenant, "failure").Inc()
			return nil, nil, err
		}
		telemetry.ReauthTotal.WithLabelValues(a.cfg.Tenant, "success").Inc()
	}
}

// Dispose closes idle connections and releases the cookie jar and session
// memory. Safe to call any number of times, from any state.
func (a *Adapter) Dispose() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == stateDisposed {
		return
	}
	a.state = stateDisposed
	a.hc.CloseIdleConnections()
	jar, err := cookiejar.New(nil)
	if err == nil {
		a.hc.Jar = jar
	}
}

func setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; ScrapeCore/1.0)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
}
