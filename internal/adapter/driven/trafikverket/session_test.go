package trafikverket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efredriksson/provvakt/internal/domain/model"
)

// loginValidAt renders an expiry instant in the LoginValid cookie format.
func loginValidAt(t time.Time) string {
	return t.Local().Format(loginValidLayout)
}

// renewalServer returns an httptest server that answers getCookie with the
// given Set-Cookie headers and counts hits.
func renewalServer(t *testing.T, hits *atomic.Int64, setCookies ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, getCookiePath, r.URL.Path)
		hits.Add(1)
		for _, c := range setCookies {
			w.Header().Add("Set-Cookie", c)
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func TestSessionManager_IsRenewalDue(t *testing.T) {
	t.Run("fresh manager with no cookies is not due", func(t *testing.T) {
		s := NewSessionManager(nil, "", nil)
		assert.False(t, s.IsRenewalDue())
	})

	t.Run("LoginValid expiring within warning threshold is due", func(t *testing.T) {
		s := NewSessionManager(model.CredentialSet{
			model.LoginValidCredential: loginValidAt(time.Now().Add(5 * time.Minute)),
		}, "", nil)
		assert.True(t, s.IsRenewalDue())
	})

	t.Run("LoginValid far from expiry is not due", func(t *testing.T) {
		s := NewSessionManager(model.CredentialSet{
			model.LoginValidCredential: loginValidAt(time.Now().Add(2 * time.Hour)),
		}, "", nil)
		assert.False(t, s.IsRenewalDue())
	})

	t.Run("malformed LoginValid is ignored", func(t *testing.T) {
		s := NewSessionManager(model.CredentialSet{
			model.LoginValidCredential: "not a timestamp",
		}, "", nil)
		assert.False(t, s.IsRenewalDue())
	})

	t.Run("interval elapsed since last renewal is due", func(t *testing.T) {
		var hits atomic.Int64
		srv := renewalServer(t, &hits,
			"LoginValid="+loginValidAt(time.Now().Add(2*time.Hour))+"; path=/")
		defer srv.Close()

		s := NewSessionManager(nil, "", nil,
			WithBaseURL(srv.URL),
			WithRenewalInterval(time.Millisecond),
		)
		require.NoError(t, s.RenewProactively(context.Background()))

		time.Sleep(10 * time.Millisecond)
		assert.True(t, s.IsRenewalDue())
	})
}

func TestSessionManager_RenewMergesAndSaves(t *testing.T) {
	futureLoginValid := loginValidAt(time.Now().Add(2 * time.Hour))

	var hits atomic.Int64
	srv := renewalServer(t, &hits,
		"LoginValid="+futureLoginValid+"; path=/; secure",
		"ASP.NET_SessionId=renewed-session; path=/; HttpOnly",
	)
	defer srv.Close()

	var saved model.CredentialSet
	save := func(c model.CredentialSet) error {
		saved = c
		return nil
	}

	s := NewSessionManager(model.CredentialSet{
		"FpsPartnerDeviceIdentifier": "device",
		model.LoginValidCredential:   loginValidAt(time.Now().Add(time.Minute)),
	}, "test-agent", save, WithBaseURL(srv.URL))

	require.True(t, s.IsRenewalDue())
	require.NoError(t, s.RenewProactively(context.Background()))
	assert.Equal(t, int64(1), hits.Load())

	cookies := s.CurrentCookies()
	assert.Equal(t, futureLoginValid, cookies[model.LoginValidCredential])
	assert.Equal(t, "renewed-session", cookies["ASP.NET_SessionId"])
	// Pre-existing cookies the server did not reissue survive the merge.
	assert.Equal(t, "device", cookies["FpsPartnerDeviceIdentifier"])

	require.NotNil(t, saved)
	assert.Equal(t, cookies, saved)

	assert.False(t, s.IsRenewalDue())

	info := s.Info()
	assert.False(t, info.LastRenewal.IsZero())
	assert.Equal(t, 3, info.CookieCount)
	assert.Equal(t, futureLoginValid, info.LoginValidUntil)
}

func TestSessionManager_RenewFailureLeavesStateUntouched(t *testing.T) {
	t.Run("non-200 status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		before := model.CredentialSet{"ASP.NET_SessionId": "original"}
		s := NewSessionManager(before, "", nil, WithBaseURL(srv.URL))

		err := s.RenewProactively(context.Background())
		require.Error(t, err)
		assert.Equal(t, before, s.CurrentCookies())
		assert.True(t, s.Info().LastRenewal.IsZero())
	})

	t.Run("no cookies in response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		s := NewSessionManager(model.CredentialSet{"a": "1"}, "", nil, WithBaseURL(srv.URL))

		err := s.RenewProactively(context.Background())
		require.Error(t, err)
		assert.Equal(t, model.CredentialSet{"a": "1"}, s.CurrentCookies())
	})
}

func TestSessionManager_ConcurrentRenewalSingleRoundTrip(t *testing.T) {
	futureLoginValid := loginValidAt(time.Now().Add(2 * time.Hour))

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		// Hold the first request long enough for every contender to enter
		// EnsureFresh while the renewal is still in flight.
		time.Sleep(50 * time.Millisecond)
		w.Header().Add("Set-Cookie", "LoginValid="+futureLoginValid+"; path=/")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSessionManager(model.CredentialSet{
		model.LoginValidCredential: loginValidAt(time.Now().Add(time.Minute)),
	}, "", nil, WithBaseURL(srv.URL))

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = s.EnsureFresh(context.Background())
		}()
	}
	wg.Wait()

	// Exactly one renewal round-trip; everyone observed its success.
	assert.Equal(t, int64(1), hits.Load())
	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestSessionManager_SessionExpired(t *testing.T) {
	t.Run("marker scan when renewal not due", func(t *testing.T) {
		s := NewSessionManager(nil, "", nil)

		assert.True(t, s.SessionExpired(context.Background(), `{"status":500,"type":"NullReferenceException"}`))
		assert.True(t, s.SessionExpired(context.Background(), "Your session has expired, login required"))
		assert.False(t, s.SessionExpired(context.Background(), `{"status":200,"data":{"bundles":[]}}`))
		assert.False(t, s.SessionExpired(context.Background(), ""))
	})

	t.Run("renewal due and succeeds reports not expired", func(t *testing.T) {
		var hits atomic.Int64
		srv := renewalServer(t, &hits,
			"LoginValid="+loginValidAt(time.Now().Add(2*time.Hour))+"; path=/")
		defer srv.Close()

		s := NewSessionManager(model.CredentialSet{
			model.LoginValidCredential: loginValidAt(time.Now().Add(time.Minute)),
		}, "", nil, WithBaseURL(srv.URL))

		assert.False(t, s.SessionExpired(context.Background(), "irrelevant"))
		assert.Equal(t, int64(1), hits.Load())
	})

	t.Run("renewal due and fails reports expired", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		s := NewSessionManager(model.CredentialSet{
			model.LoginValidCredential: loginValidAt(time.Now().Add(time.Minute)),
		}, "", nil, WithBaseURL(srv.URL))

		assert.True(t, s.SessionExpired(context.Background(), ""))
	})
}

func TestSessionManager_UpdateCookiesFromTraffic(t *testing.T) {
	s := NewSessionManager(model.CredentialSet{"existing": "kept"}, "", nil)

	assert.False(t, s.UpdateCookiesFromRequest("no header here"))

	require.True(t, s.UpdateCookiesFromRequest("Cookie: ASP.NET_SessionId=abc; LoginValid=2025-06-20 16:48"))
	cookies := s.CurrentCookies()
	assert.Equal(t, "abc", cookies["ASP.NET_SessionId"])
	assert.Equal(t, "kept", cookies["existing"])

	require.True(t, s.UpdateCookiesFromResponse("Set-Cookie: FpsExternalIdentity=7B9A; path=/"))
	assert.Equal(t, "7B9A", s.CurrentCookies()["FpsExternalIdentity"])

	assert.False(t, s.Info().LastRenewal.IsZero())
}

func TestSessionManager_BackgroundRenewal(t *testing.T) {
	futureLoginValid := loginValidAt(time.Now().Add(2 * time.Hour))

	var hits atomic.Int64
	srv := renewalServer(t, &hits, "LoginValid="+futureLoginValid+"; path=/")
	defer srv.Close()

	s := NewSessionManager(model.CredentialSet{
		model.LoginValidCredential: loginValidAt(time.Now().Add(time.Minute)),
	}, "", nil, WithBaseURL(srv.URL))

	s.StartBackgroundRenewal(10 * time.Millisecond)
	// Second start is a no-op.
	s.StartBackgroundRenewal(10 * time.Millisecond)
	assert.True(t, s.Info().BackgroundRunning)

	require.Eventually(t, func() bool {
		return hits.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond, "background worker never renewed")

	s.StopBackgroundRenewal()
	assert.False(t, s.Info().BackgroundRunning)

	// Stop when not running is a no-op.
	s.StopBackgroundRenewal()
}
