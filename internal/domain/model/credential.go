package model

import (
	"maps"
	"sort"
	"strings"
)

// CredentialSet is the bundle of session cookies required to authenticate
// against the booking service, keyed by cookie name.
type CredentialSet map[string]string

// RequiredCredentials are the cookie names a set must carry to be considered
// a complete login session.
var RequiredCredentials = []string{
	"FpsPartnerDeviceIdentifier",
	"LoginValid",
	"FpsExternalIdentity",
	"ASP.NET_SessionId",
}

// LoginValidCredential is the distinguished cookie that encodes the session
// expiry instant in "2006-01-02 15:04" local time.
const LoginValidCredential = "LoginValid"

// Clone returns an independent copy of the set. A nil set clones to an empty,
// non-nil set so callers can mutate the copy safely.
func (c CredentialSet) Clone() CredentialSet {
	out := make(CredentialSet, len(c))
	maps.Copy(out, c)
	return out
}

// Merge copies all pairs from other into the set. Values from other win on
// name collision; existing names absent from other are kept.
func (c CredentialSet) Merge(other CredentialSet) {
	maps.Copy(c, other)
}

// HasRequired reports whether every required credential name is present.
func (c CredentialSet) HasRequired() bool {
	for _, name := range RequiredCredentials {
		if _, ok := c[name]; !ok {
			return false
		}
	}
	return true
}

// CookieHeader renders the set as a single Cookie header value. Names are
// sorted so the output is deterministic.
func (c CredentialSet) CookieHeader() string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+c[name])
	}
	return strings.Join(pairs, "; ")
}
