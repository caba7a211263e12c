package trafikverket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/efredriksson/provvakt/internal/domain/model"
	"github.com/efredriksson/provvakt/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.BookingClient = (*Client)(nil)

const (
	occasionBundlesPath = "/Boka/occasion-bundles"

	// fetchTimeout bounds a single availability round-trip.
	fetchTimeout = 60 * time.Second

	// requestRate throttles outbound availability requests so a cycle over
	// many locations does not hammer the remote service.
	requestRate = rate.Limit(2)

	// languageID is the fixed languageId selector sent with every query.
	languageID = 4
)

// Client queries the booking service for available exam occasions. Before
// every call it ensures the session is fresh via the SessionManager, and when
// a response signals an invalidated session it attempts exactly one
// renewal-and-retry of the same call.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	sessions   *SessionManager
	limiter    *rate.Limiter
	examType   model.ExamType
	params     queryParams
}

// queryParams is the immutable per-request parameter template. It is cloned
// and specialized per call; the location ID is the only field a polling cycle
// varies across calls.
type queryParams struct {
	SSN            string
	LicenceID      int
	BookingModeID  int
	ExamTypeID     int
	VehicleTypeID  int
	TachographID   int
	OccasionChoice int
	StartingDate   string
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithClientBaseURL points the client at a different origin. Used by tests to
// target an httptest server.
func WithClientBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithClientHTTPClient replaces the availability HTTP client.
func WithClientHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithRequestRate overrides the outbound request throttle.
func WithRequestRate(r rate.Limit) ClientOption {
	return func(c *Client) { c.limiter = rate.NewLimiter(r, 1) }
}

// NewClient creates a booking client for one exam type. ssn is the credential
// subject identity, userAgent is sent on every request, and examType selects
// the examinationTypeId used in both halves of the query bundle.
func NewClient(sessions *SessionManager, ssn, userAgent string, examType model.ExamType, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: fetchTimeout},
		baseURL:    DefaultBaseURL,
		userAgent:  userAgent,
		sessions:   sessions,
		limiter:    rate.NewLimiter(requestRate, 1),
		examType:   examType,
		params: queryParams{
			SSN:            ssn,
			LicenceID:      5,
			BookingModeID:  0,
			ExamTypeID:     examType.SelectorID(),
			VehicleTypeID:  2,
			TachographID:   1,
			OccasionChoice: 1,
			StartingDate:   "1970-01-01T00:00:00.000Z",
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ExamType returns the exam type this client queries.
func (c *Client) ExamType() model.ExamType {
	return c.examType
}

// AvailableSlots returns the full occasion records for one location.
func (c *Client) AvailableSlots(ctx context.Context, locationID int) ([]model.Slot, error) {
	bundles, err := c.fetchBundles(ctx, locationID)
	if err != nil {
		return nil, err
	}

	slots := make([]model.Slot, 0, len(bundles))
	for _, bundle := range bundles {
		if len(bundle.Occasions) == 0 {
			continue
		}
		occ := bundle.Occasions[0]
		slots = append(slots, model.Slot{
			Name:     occ.Name,
			Date:     occ.Date,
			Time:     occ.Time,
			Location: occ.LocationName,
			Cost:     occ.Cost,
			ExamType: c.examType,
		})
	}
	return slots, nil
}

// AvailableDates returns only the date strings for one location.
func (c *Client) AvailableDates(ctx context.Context, locationID int) ([]string, error) {
	bundles, err := c.fetchBundles(ctx, locationID)
	if err != nil {
		return nil, err
	}

	dates := make([]string, 0, len(bundles))
	for _, bundle := range bundles {
		if len(bundle.Occasions) == 0 {
			continue
		}
		dates = append(dates, bundle.Occasions[0].Date)
	}
	return dates, nil
}

// fetchBundles issues the occasion-bundles query for a location and applies
// the failure taxonomy: *driven.StatusError for unexpected transport or
// application status, driven.ErrSessionExpired when the session was
// invalidated and could not be restored.
func (c *Client) fetchBundles(ctx context.Context, locationID int) ([]occasionBundle, error) {
	// Stale cookies may still work, so a failed refresh is a warning only.
	if err := c.sessions.EnsureFresh(ctx); err != nil {
		slog.Warn("failed to refresh session before fetch", "location_id", locationID, "error", err)
	}

	resp, body, err := c.post(ctx, locationID)
	if err != nil {
		return nil, err
	}

	// One renewal-and-retry at most; a permanently broken session must not
	// loop.
	var renewFailed bool
	if c.sessions.SessionExpired(ctx, body) {
		slog.Info("session invalidation detected, renewing", "location_id", locationID)
		if renewErr := c.sessions.RenewProactively(ctx); renewErr != nil {
			renewFailed = true
			slog.Warn("renewal after invalidation failed", "location_id", locationID, "error", renewErr)
		} else {
			resp, body, err = c.post(ctx, locationID)
			if err != nil {
				return nil, err
			}
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &driven.StatusError{Code: resp.StatusCode}
	}

	var parsed occasionBundlesResponse
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		if renewFailed || hasInvalidationMarkers(body) {
			return nil, driven.ErrSessionExpired
		}
		return nil, &driven.StatusError{Code: resp.StatusCode}
	}

	if parsed.Status != http.StatusOK {
		if renewFailed {
			return nil, driven.ErrSessionExpired
		}
		return nil, &driven.StatusError{Code: parsed.Status}
	}

	return parsed.Data.Bundles, nil
}

// post sends one occasion-bundles request and returns the response along with
// its fully read body.
func (c *Client) post(ctx context.Context, locationID int) (*http.Response, string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", fmt.Errorf("rate limiter: %w", err)
	}

	payload, err := json.Marshal(c.buildRequest(locationID))
	if err != nil {
		return nil, "", fmt.Errorf("marshal occasion-bundles request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+occasionBundlesPath, bytes.NewReader(payload))
	if err != nil {
		return nil, "", fmt.Errorf("build occasion-bundles request: %w", err)
	}

	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", c.baseURL)
	req.Header.Set("Referer", c.baseURL+"/Boka/")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Cookie", c.sessions.CurrentCookies().CookieHeader())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("occasion-bundles request for location %d: %w", locationID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read occasion-bundles response for location %d: %w", locationID, err)
	}

	return resp, string(data), nil
}

// buildRequest clones the parameter template and fills in the per-call
// location ID.
func (c *Client) buildRequest(locationID int) occasionBundlesRequest {
	return occasionBundlesRequest{
		BookingSession: bookingSession{
			SocialSecurityNumber:         c.params.SSN,
			LicenceID:                    c.params.LicenceID,
			BookingModeID:                c.params.BookingModeID,
			IgnoreDebt:                   false,
			IgnoreBookingHindrance:       false,
			ExaminationTypeID:            c.params.ExamTypeID,
			ExcludeExaminationCategories: []int{},
			RescheduleTypeID:             0,
			PaymentIsActive:              false,
			SearchedMonths:               0,
		},
		OccasionBundleQuery: occasionBundleQuery{
			StartDate:         c.params.StartingDate,
			SearchedMonths:    0,
			LocationID:        locationID,
			NearbyLocationIDs: []int{},
			LanguageID:        languageID,
			VehicleTypeID:     c.params.VehicleTypeID,
			TachographTypeID:  c.params.TachographID,
			OccasionChoiceID:  c.params.OccasionChoice,
			ExaminationTypeID: c.params.ExamTypeID,
		},
	}
}
