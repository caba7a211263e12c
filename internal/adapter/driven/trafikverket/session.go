package trafikverket

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/efredriksson/provvakt/internal/domain/model"
	"github.com/efredriksson/provvakt/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SessionKeeper = (*SessionManager)(nil)

// DefaultBaseURL is the production booking service origin.
const DefaultBaseURL = "https://fp.trafikverket.se"

const (
	getCookiePath = "/Boka/getCookie"

	// DefaultRenewalInterval is how long a renewed session is trusted before
	// the next renewal is due.
	DefaultRenewalInterval = 5 * time.Minute

	// DefaultExpiryWarning is how close to the LoginValid expiry instant a
	// renewal becomes due regardless of the interval.
	DefaultExpiryWarning = 15 * time.Minute

	// renewTimeout bounds a single renewal round-trip.
	renewTimeout = 30 * time.Second

	// loginValidLayout is the timestamp format of the LoginValid cookie.
	loginValidLayout = "2006-01-02 15:04"

	// backgroundErrorBackoff is the defensive sleep after an unexpected
	// failure inside the background renewal loop.
	backgroundErrorBackoff = time.Minute

	// stopWait bounds how long StopBackgroundRenewal waits for the worker.
	stopWait = 2 * time.Second
)

// invalidationMarkers are the textual patterns that indicate the server
// rejected the session. The match is heuristic: a legitimate payload that
// happens to contain one of these substrings is reported as expired too.
var invalidationMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)session.*expired`),
	regexp.MustCompile(`(?i)login.*required`),
	regexp.MustCompile(`(?i)unauthorized`),
	regexp.MustCompile(`(?i)401`),
	regexp.MustCompile(`(?i)403`),
	regexp.MustCompile(`(?i)nullreferenceexception`),
	regexp.MustCompile(`(?i)status.*500`),
}

// hasInvalidationMarkers reports whether the response body matches any of the
// session invalidation patterns.
func hasInvalidationMarkers(body string) bool {
	for _, re := range invalidationMarkers {
		if re.MatchString(body) {
			return true
		}
	}
	return false
}

// CookieSaver persists a credential set to external configuration after a
// successful renewal. config.Config.SaveCookies satisfies it.
type CookieSaver func(model.CredentialSet) error

// SessionManager owns the booking session cookies: it decides when they are
// stale, renews them against the getCookie endpoint, and optionally runs a
// cancellable periodic background renewal task.
//
// One instance per process; construct it in the composition root and pass it
// to every component that needs the session.
type SessionManager struct {
	mu          sync.Mutex // guards cookies and lastRenewal
	cookies     model.CredentialSet
	lastRenewal time.Time

	// renewMu serializes renewal round-trips so at most one is in flight.
	// lastAttempt/lastAttemptErr let a caller that waited on renewMu observe
	// the result of the renewal that completed while it was blocked instead
	// of starting a duplicate round-trip.
	renewMu        sync.Mutex
	lastAttempt    time.Time
	lastAttemptErr error

	renewalInterval time.Duration
	expiryWarning   time.Duration

	httpClient *http.Client
	baseURL    string
	userAgent  string
	save       CookieSaver

	bgMu      sync.Mutex
	bgCancel  context.CancelFunc
	bgDone    chan struct{}
	bgRunning bool
}

// SessionOption customizes a SessionManager.
type SessionOption func(*SessionManager)

// WithBaseURL points the manager at a different origin. Used by tests to
// target an httptest server.
func WithBaseURL(baseURL string) SessionOption {
	return func(s *SessionManager) { s.baseURL = baseURL }
}

// WithHTTPClient replaces the renewal HTTP client.
func WithHTTPClient(c *http.Client) SessionOption {
	return func(s *SessionManager) { s.httpClient = c }
}

// WithRenewalInterval overrides the renewal interval.
func WithRenewalInterval(d time.Duration) SessionOption {
	return func(s *SessionManager) { s.renewalInterval = d }
}

// WithExpiryWarning overrides the expiry warning threshold.
func WithExpiryWarning(d time.Duration) SessionOption {
	return func(s *SessionManager) { s.expiryWarning = d }
}

// NewSessionManager creates a SessionManager seeded with the given cookies.
// save is invoked with the full updated set after each successful renewal;
// pass nil to skip persistence.
func NewSessionManager(cookies model.CredentialSet, userAgent string, save CookieSaver, opts ...SessionOption) *SessionManager {
	s := &SessionManager{
		cookies:         cookies.Clone(),
		renewalInterval: DefaultRenewalInterval,
		expiryWarning:   DefaultExpiryWarning,
		httpClient:      &http.Client{Timeout: renewTimeout},
		baseURL:         DefaultBaseURL,
		userAgent:       userAgent,
		save:            save,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CurrentCookies returns a defensive copy of the live credential set.
func (s *SessionManager) CurrentCookies() model.CredentialSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cookies.Clone()
}

// UpdateCookies merges new pairs into the credential set, new values winning
// on name collision, and stamps the renewal time. Returns false when the
// supplied set is empty.
func (s *SessionManager) UpdateCookies(newCookies model.CredentialSet) bool {
	if len(newCookies) == 0 {
		return false
	}

	s.mu.Lock()
	s.cookies.Merge(newCookies)
	s.lastRenewal = time.Now()
	s.mu.Unlock()

	slog.Info("cookies updated", "count", len(newCookies))
	return true
}

// UpdateCookiesFromRequest reseeds the session from raw browser request text
// pasted by the operator. Returns false when no Cookie header was found.
func (s *SessionManager) UpdateCookiesFromRequest(requestText string) bool {
	return s.UpdateCookies(ExtractCookiesFromRequest(requestText))
}

// UpdateCookiesFromResponse reseeds the session from raw response text.
// Returns false when no Set-Cookie headers were found.
func (s *SessionManager) UpdateCookiesFromResponse(responseText string) bool {
	return s.UpdateCookies(ExtractCookiesFromResponse(responseText))
}

// earliestExpiration returns the parsed LoginValid expiry instant, or the
// zero time when the cookie is absent or malformed.
func (s *SessionManager) earliestExpiration() time.Time {
	s.mu.Lock()
	loginValid, ok := s.cookies[model.LoginValidCredential]
	s.mu.Unlock()
	if !ok {
		return time.Time{}
	}

	t, err := time.ParseInLocation(loginValidLayout, loginValid, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

// IsRenewalDue reports whether a renewal is due: either the renewal interval
// has elapsed since the last successful renewal, or the LoginValid expiry is
// within the warning threshold. Side-effect free.
func (s *SessionManager) IsRenewalDue() bool {
	s.mu.Lock()
	lastRenewal := s.lastRenewal
	s.mu.Unlock()

	if !lastRenewal.IsZero() && time.Since(lastRenewal) > s.renewalInterval {
		return true
	}

	if exp := s.earliestExpiration(); !exp.IsZero() {
		if time.Until(exp) < s.expiryWarning {
			return true
		}
	}

	return false
}

// EnsureFresh renews the session if a renewal is due. Every outbound call
// passes through here before hitting the availability endpoint.
func (s *SessionManager) EnsureFresh(ctx context.Context) error {
	if !s.IsRenewalDue() {
		return nil
	}
	return s.RenewProactively(ctx)
}

// RenewProactively performs one renewal round-trip against the getCookie
// endpoint. Concurrent callers are serialized; a caller that blocked behind
// an in-flight renewal observes that renewal's result instead of issuing a
// duplicate round-trip.
func (s *SessionManager) RenewProactively(ctx context.Context) error {
	entered := time.Now()

	s.renewMu.Lock()
	defer s.renewMu.Unlock()

	if s.lastAttempt.After(entered) {
		return s.lastAttemptErr
	}

	err := s.renew(ctx)
	s.lastAttempt = time.Now()
	s.lastAttemptErr = err
	return err
}

// renew does the actual round-trip. Caller must hold renewMu. On any failure
// the in-memory credential set is left untouched.
func (s *SessionManager) renew(ctx context.Context) error {
	body := []byte(`{"key":"LoginValid"}`)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+getCookiePath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build renewal request: %w", err)
	}

	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("Origin", s.baseURL)
	req.Header.Set("Referer", s.baseURL+"/Boka/")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	req.Header.Set("Cookie", s.CurrentCookies().CookieHeader())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("renewal request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("renewal failed: status %d", resp.StatusCode)
	}

	newCookies := make(model.CredentialSet)
	for _, header := range resp.Header.Values("Set-Cookie") {
		if name, value, ok := parseSetCookieValue(header); ok {
			newCookies[name] = value
		}
	}
	if len(newCookies) == 0 {
		return fmt.Errorf("renewal response carried no cookies")
	}

	s.mu.Lock()
	s.cookies.Merge(newCookies)
	s.lastRenewal = time.Now()
	saved := s.cookies.Clone()
	s.mu.Unlock()

	slog.Info("session renewed", "new_cookies", len(newCookies))

	if s.save != nil {
		if err := s.save(saved); err != nil {
			// Persistence failure does not invalidate the in-memory renewal.
			slog.Warn("failed to persist renewed cookies", "error", err)
		}
	}

	return nil
}

// SessionExpired checks whether the session is expired. When a renewal is
// due it first tries to renew and reports not-expired on success. Otherwise
// it scans the supplied response body for invalidation markers.
func (s *SessionManager) SessionExpired(ctx context.Context, responseBody string) bool {
	if s.IsRenewalDue() {
		return s.RenewProactively(ctx) != nil
	}

	if responseBody != "" && hasInvalidationMarkers(responseBody) {
		return true
	}

	return false
}

// Info returns a diagnostics snapshot of the session state.
func (s *SessionManager) Info() model.SessionInfo {
	s.mu.Lock()
	lastRenewal := s.lastRenewal
	cookieCount := len(s.cookies)
	hasRequired := s.cookies.HasRequired()
	loginValid := s.cookies[model.LoginValidCredential]
	s.mu.Unlock()

	s.bgMu.Lock()
	running := s.bgRunning
	s.bgMu.Unlock()

	return model.SessionInfo{
		LastRenewal:        lastRenewal,
		RenewalInterval:    s.renewalInterval,
		CookieCount:        cookieCount,
		HasRequired:        hasRequired,
		LoginValidUntil:    loginValid,
		EarliestExpiration: s.earliestExpiration(),
		RenewalDue:         s.IsRenewalDue(),
		BackgroundRunning:  running,
	}
}

// StartBackgroundRenewal spawns a worker that checks for due renewals on the
// given cadence. Starting while a worker is already running is a no-op.
func (s *SessionManager) StartBackgroundRenewal(interval time.Duration) {
	s.bgMu.Lock()
	defer s.bgMu.Unlock()

	if s.bgRunning {
		slog.Info("background renewal already running")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.bgCancel = cancel
	s.bgDone = done
	s.bgRunning = true

	go s.backgroundLoop(ctx, interval, done)
	slog.Info("background renewal started", "interval", interval)
}

// StopBackgroundRenewal cancels the worker and waits up to a bounded timeout
// for it to exit. Stopping when no worker is running is a no-op.
func (s *SessionManager) StopBackgroundRenewal() {
	s.bgMu.Lock()
	if !s.bgRunning {
		s.bgMu.Unlock()
		return
	}
	cancel := s.bgCancel
	done := s.bgDone
	s.bgRunning = false
	s.bgMu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(stopWait):
		slog.Warn("background renewal worker did not stop in time")
	}
	slog.Info("background renewal stopped")
}

// backgroundLoop periodically renews the session until the context is
// cancelled. Renewal failures are logged and the loop continues; after a
// failure it backs off before the next tick.
func (s *SessionManager) backgroundLoop(ctx context.Context, interval time.Duration, done chan<- struct{}) {
	defer close(done)

	for {
		if s.IsRenewalDue() {
			if err := s.RenewProactively(ctx); err != nil {
				slog.Error("background renewal failed", "error", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(backgroundErrorBackoff):
				}
			} else {
				slog.Debug("background renewal succeeded")
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}
