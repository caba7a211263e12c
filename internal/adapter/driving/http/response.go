package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/efredriksson/provvakt/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// SlotResponse is the JSON representation of a stored slot.
type SlotResponse struct {
	Name      string `json:"name"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Location  string `json:"location"`
	Cost      string `json:"cost"`
	ExamType  string `json:"exam_type"`
	CreatedAt string `json:"created_at"`
}

// SessionResponse is the JSON representation of the session diagnostics.
type SessionResponse struct {
	LastRenewal           string  `json:"last_renewal,omitempty"`
	RenewalIntervalSecs   float64 `json:"renewal_interval_seconds"`
	CookieCount           int     `json:"cookie_count"`
	HasRequiredCookies    bool    `json:"has_required_cookies"`
	LoginValidUntil       string  `json:"login_valid_until,omitempty"`
	EarliestExpiration    string  `json:"earliest_expiration,omitempty"`
	MinutesToExpiration   float64 `json:"minutes_until_expiration,omitempty"`
	RenewalDue            bool    `json:"renewal_due"`
	BackgroundRunning     bool    `json:"background_renewal_running"`
}

// UpdateCookiesRequest is the JSON body for the cookie reseed endpoint.
// Exactly one of the fields should be set.
type UpdateCookiesRequest struct {
	RequestText  string `json:"request_text,omitempty"`
	ResponseText string `json:"response_text,omitempty"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toSlotResponse converts a domain Slot to its JSON response representation.
func toSlotResponse(s model.Slot) SlotResponse {
	return SlotResponse{
		Name:      s.Name,
		Date:      s.Date,
		Time:      s.Time,
		Location:  s.Location,
		Cost:      s.Cost,
		ExamType:  string(s.ExamType),
		CreatedAt: s.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// toSessionResponse converts a SessionInfo to its JSON representation.
func toSessionResponse(si model.SessionInfo) SessionResponse {
	resp := SessionResponse{
		RenewalIntervalSecs: si.RenewalInterval.Seconds(),
		CookieCount:         si.CookieCount,
		HasRequiredCookies:  si.HasRequired,
		LoginValidUntil:     si.LoginValidUntil,
		RenewalDue:          si.RenewalDue,
		BackgroundRunning:   si.BackgroundRunning,
	}
	if !si.LastRenewal.IsZero() {
		resp.LastRenewal = si.LastRenewal.UTC().Format(time.RFC3339)
	}
	if !si.EarliestExpiration.IsZero() {
		resp.EarliestExpiration = si.EarliestExpiration.UTC().Format(time.RFC3339)
		resp.MinutesToExpiration = si.TimeUntilExpiration().Minutes()
	}
	return resp
}
