package trafikverket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExtractCookiesFromRequest(t *testing.T) {
	requestText := "POST /Boka/occasion-bundles HTTP/1.1\r\n" +
		"Host: fp.trafikverket.se\r\n" +
		"Cookie: FpsPartnerDeviceIdentifier=ABC123; LoginValid=2025-06-20 16:48; ASP.NET_SessionId=xyz\r\n" +
		"Content-Type: application/json\r\n"

	cookies := ExtractCookiesFromRequest(requestText)

	assert.Len(t, cookies, 3)
	assert.Equal(t, "ABC123", cookies["FpsPartnerDeviceIdentifier"])
	assert.Equal(t, "2025-06-20 16:48", cookies["LoginValid"])
	assert.Equal(t, "xyz", cookies["ASP.NET_SessionId"])
}

func TestExtractCookiesFromRequest_CaseInsensitiveHeader(t *testing.T) {
	cookies := ExtractCookiesFromRequest("cookie: a=1; b=2")

	assert.Equal(t, "1", cookies["a"])
	assert.Equal(t, "2", cookies["b"])
}

func TestExtractCookiesFromRequest_NoHeader(t *testing.T) {
	cookies := ExtractCookiesFromRequest("GET / HTTP/1.1\r\nHost: example.com\r\n")

	assert.NotNil(t, cookies)
	assert.Empty(t, cookies)
}

func TestExtractCookiesFromRequest_SkipsMalformedPairs(t *testing.T) {
	cookies := ExtractCookiesFromRequest("Cookie: good=1; malformed; also=2")

	assert.Len(t, cookies, 2)
	assert.Equal(t, "1", cookies["good"])
	assert.Equal(t, "2", cookies["also"])
}

func TestExtractCookiesFromResponse(t *testing.T) {
	responseText := "HTTP/1.1 200 OK\r\n" +
		"Set-Cookie: LoginValid=2025-06-20 16:48; path=/; secure\r\n" +
		"Set-Cookie: ASP.NET_SessionId=xyz; path=/; HttpOnly\r\n" +
		"Set-Cookie: FpsExternalIdentity=7B9A; expires=Fri, 20-Jun-2025 14:48:56 GMT; path=/\r\n" +
		"Content-Type: application/json\r\n"

	cookies := ExtractCookiesFromResponse(responseText)

	assert.Len(t, cookies, 3)
	assert.Equal(t, "2025-06-20 16:48", cookies["LoginValid"])
	assert.Equal(t, "xyz", cookies["ASP.NET_SessionId"])
	assert.Equal(t, "7B9A", cookies["FpsExternalIdentity"])
}

func TestExtractCookiesFromResponse_NoHeaders(t *testing.T) {
	cookies := ExtractCookiesFromResponse("HTTP/1.1 200 OK\r\nContent-Length: 0\r\n")

	assert.NotNil(t, cookies)
	assert.Empty(t, cookies)
}

func TestParseSetCookieValue(t *testing.T) {
	name, value, ok := parseSetCookieValue("LoginValid=2025-06-20 16:48; path=/; secure")
	assert.True(t, ok)
	assert.Equal(t, "LoginValid", name)
	assert.Equal(t, "2025-06-20 16:48", value)

	_, _, ok = parseSetCookieValue("no-equals-sign")
	assert.False(t, ok)
}

func TestParseCookieExpiration(t *testing.T) {
	got := parseCookieExpiration("FpsExternalIdentity=7B9A; expires=Fri, 20-Jun-2025 14:48:56 GMT; path=/")
	want := time.Date(2025, 6, 20, 14, 48, 56, 0, time.UTC)
	assert.True(t, got.Equal(want), "got %v, want %v", got, want)

	assert.True(t, parseCookieExpiration("a=1; path=/").IsZero())
	assert.True(t, parseCookieExpiration("a=1; expires=not-a-date").IsZero())
}
