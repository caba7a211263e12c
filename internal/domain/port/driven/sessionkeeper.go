package driven

import (
	"context"

	"github.com/efredriksson/provvakt/internal/domain/model"
)

// SessionKeeper defines the driven port for the credential lifecycle: the
// monitor loop and diagnostics surfaces depend on it to inspect and recover
// the booking session without reaching into the HTTP adapter.
type SessionKeeper interface {
	// CurrentCookies returns a defensive copy of the live credential set.
	CurrentCookies() model.CredentialSet

	// IsRenewalDue reports whether a renewal is due, without side effects.
	IsRenewalDue() bool

	// EnsureFresh renews the session if a renewal is due. It returns nil when
	// the session was already fresh or was renewed successfully.
	EnsureFresh(ctx context.Context) error

	// RenewProactively performs exactly one renewal round-trip. Concurrent
	// callers are serialized; a renewal already in flight makes waiting
	// callers observe its outcome instead of starting a duplicate round-trip.
	RenewProactively(ctx context.Context) error

	// UpdateCookiesFromRequest reseeds the session from raw HTTP request text
	// supplied by the operator. Returns false when no Cookie header was found.
	UpdateCookiesFromRequest(requestText string) bool

	// UpdateCookiesFromResponse reseeds the session from raw HTTP response
	// text. Returns false when no Set-Cookie headers were found.
	UpdateCookiesFromResponse(responseText string) bool

	// Info returns a diagnostics snapshot of the session state.
	Info() model.SessionInfo
}
