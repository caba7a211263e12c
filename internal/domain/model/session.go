package model

import "time"

// SessionInfo is a point-in-time diagnostics snapshot of the credential
// lifecycle state, exposed through the CLI and the diagnostics API.
type SessionInfo struct {
	LastRenewal        time.Time // zero when no renewal has succeeded yet
	RenewalInterval    time.Duration
	CookieCount        int
	HasRequired        bool
	LoginValidUntil    string    // raw LoginValid cookie value, "" when absent
	EarliestExpiration time.Time // zero when no expiry could be parsed
	RenewalDue         bool
	BackgroundRunning  bool
}

// TimeUntilExpiration returns the remaining session lifetime as of now, or
// zero when no expiration is known.
func (si SessionInfo) TimeUntilExpiration() time.Duration {
	if si.EarliestExpiration.IsZero() {
		return 0
	}
	return time.Until(si.EarliestExpiration)
}
