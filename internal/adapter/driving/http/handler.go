// Package httphandler is the HTTP driving adapter serving the diagnostics API.
package httphandler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/efredriksson/provvakt/internal/domain/model"
	"github.com/efredriksson/provvakt/internal/domain/port/driven"
)

// Handler serves the diagnostics REST API: slot queries against the stored
// snapshot plus session introspection and manual renewal.
type Handler struct {
	store    driven.SlotStore
	sessions driven.SessionKeeper
	examType model.ExamType
	logger   *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(store driven.SlotStore, sessions driven.SessionKeeper, examType model.ExamType, logger *slog.Logger) *Handler {
	return &Handler{
		store:    store,
		sessions: sessions,
		examType: examType,
		logger:   logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/slots", h.ListSlots)
	mux.HandleFunc("GET /api/v1/slots/next", h.NextSlot)
	mux.HandleFunc("GET /api/v1/session", h.SessionInfo)
	mux.HandleFunc("POST /api/v1/session/renew", h.RenewSession)
	mux.HandleFunc("POST /api/v1/session/cookies", h.UpdateCookies)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// ListSlots returns the stored slots, optionally filtered by ?from=&to= date
// range or ?location=.
func (h *Handler) ListSlots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	location := q.Get("location")

	var (
		slots []model.Slot
		err   error
	)
	switch {
	case from != "" && to != "":
		slots, err = h.store.SlotsInRange(r.Context(), h.examType, from, to)
	case location != "":
		slots, err = h.store.SlotsAtLocation(r.Context(), h.examType, location)
	default:
		slots, err = h.store.AllSlots(r.Context(), h.examType)
	}
	if err != nil {
		h.logger.Error("list slots failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list slots")
		return
	}

	resp := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		resp = append(resp, toSlotResponse(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

// NextSlot returns the earliest upcoming slot on or after ?as_of= (default
// today), or 404 when none exists.
func (h *Handler) NextSlot(w http.ResponseWriter, r *http.Request) {
	asOf := r.URL.Query().Get("as_of")
	if asOf == "" {
		asOf = time.Now().Format("2006-01-02")
	}

	slot, err := h.store.NextAvailable(r.Context(), h.examType, asOf)
	if err != nil {
		h.logger.Error("next slot lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to look up next slot")
		return
	}
	if slot == nil {
		writeError(w, http.StatusNotFound, "no upcoming slots")
		return
	}

	writeJSON(w, http.StatusOK, toSlotResponse(*slot))
}

// SessionInfo returns the session diagnostics snapshot.
func (h *Handler) SessionInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toSessionResponse(h.sessions.Info()))
}

// RenewSession triggers one manual renewal round-trip.
func (h *Handler) RenewSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.RenewProactively(r.Context()); err != nil {
		h.logger.Error("manual renewal failed", "error", err)
		writeError(w, http.StatusBadGateway, "renewal failed")
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(h.sessions.Info()))
}

// UpdateCookies reseeds the session from raw HTTP request or response text
// pasted by the operator.
func (h *Handler) UpdateCookies(w http.ResponseWriter, r *http.Request) {
	var req UpdateCookiesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var updated bool
	switch {
	case req.RequestText != "":
		updated = h.sessions.UpdateCookiesFromRequest(req.RequestText)
	case req.ResponseText != "":
		updated = h.sessions.UpdateCookiesFromResponse(req.ResponseText)
	default:
		writeError(w, http.StatusBadRequest, "request_text or response_text is required")
		return
	}

	if !updated {
		writeError(w, http.StatusUnprocessableEntity, "no cookies found in supplied text")
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(h.sessions.Info()))
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}
