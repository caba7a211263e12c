// Package trafikverket implements the session lifecycle and polling client
// for the Trafikverket booking service.
package trafikverket

import (
	"regexp"
	"strings"
	"time"

	"github.com/efredriksson/provvakt/internal/domain/model"
)

var (
	cookieHeaderRe    = regexp.MustCompile(`(?i)Cookie:\s*(.+?)(?:\r?\n|$)`)
	setCookieHeaderRe = regexp.MustCompile(`(?i)Set-Cookie:\s*(.+?)(?:\r?\n|$)`)
	expiresAttrRe     = regexp.MustCompile(`(?i)expires=([^;]+)`)
)

// ExtractCookiesFromRequest parses the single combined Cookie header out of
// raw HTTP request text. Unparseable or absent headers yield an empty set,
// never an error.
func ExtractCookiesFromRequest(requestText string) model.CredentialSet {
	cookies := make(model.CredentialSet)

	m := cookieHeaderRe.FindStringSubmatch(requestText)
	if m == nil {
		return cookies
	}

	for _, pair := range strings.Split(m[1], ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		cookies[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}

	return cookies
}

// ExtractCookiesFromResponse parses the repeated Set-Cookie headers out of
// raw HTTP response text, keeping only the name=value part of each header and
// dropping attributes.
func ExtractCookiesFromResponse(responseText string) model.CredentialSet {
	cookies := make(model.CredentialSet)

	for _, m := range setCookieHeaderRe.FindAllStringSubmatch(responseText, -1) {
		nameValue, _, _ := strings.Cut(strings.TrimSpace(m[1]), ";")
		name, value, ok := strings.Cut(nameValue, "=")
		if !ok {
			continue
		}
		cookies[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}

	return cookies
}

// parseSetCookieValue extracts the name and value from a single Set-Cookie
// header value, ignoring attributes after the first semicolon.
func parseSetCookieValue(header string) (name, value string, ok bool) {
	nameValue, _, _ := strings.Cut(header, ";")
	name, value, ok = strings.Cut(nameValue, "=")
	return strings.TrimSpace(name), strings.TrimSpace(value), ok
}

// parseCookieExpiration parses the expires= attribute of a Set-Cookie header
// (format: Fri, 20-Jun-2025 14:48:56 GMT). Returns the zero time when absent
// or unparseable.
func parseCookieExpiration(cookieHeader string) time.Time {
	m := expiresAttrRe.FindStringSubmatch(cookieHeader)
	if m == nil {
		return time.Time{}
	}

	t, err := time.Parse("Mon, 02-Jan-2006 15:04:05 MST", strings.TrimSpace(m[1]))
	if err != nil {
		return time.Time{}
	}
	return t
}
