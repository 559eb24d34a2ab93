// Package api exposes the booking core over a JSON HTTP API. The
// identity provider in front of this service authenticates callers and
// forwards an opaque caller identity; this layer only trusts it.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"slotwise/internal/availability"
	"slotwise/internal/booking"
	"slotwise/internal/models"
	"slotwise/internal/report"
	"slotwise/internal/store"
)

// callerHeader carries the authenticated caller identity set by the
// identity-provider layer in front of this service.
const callerHeader = "X-Auth-Subject"

// WindowResolver resolves availability windows (see availability pkg).
type WindowResolver interface {
	ResolveWindow(ctx context.Context, hostID int64, date time.Time) (*availability.Window, error)
}

// BusyCollector aggregates busy intervals (see busy pkg).
type BusyCollector interface {
	Collect(ctx context.Context, hostID int64, from, to time.Time) ([]models.Interval, error)
}

// Authorizer is the externally configured authorization policy.
type Authorizer interface {
	IsAdmin(callerID string) bool
}

// HTTPServer serves the booking API.
type HTTPServer struct {
	db          *store.DB
	resolver    WindowResolver
	busy        BusyCollector
	bookings    *booking.Service
	exporter    *report.Exporter
	authz       Authorizer
	granularity time.Duration
	log         *zerolog.Logger
}

// NewHTTPServer wires the API surface.
func NewHTTPServer(db *store.DB, resolver WindowResolver, busy BusyCollector, bookings *booking.Service, exporter *report.Exporter, authz Authorizer, granularity time.Duration, log *zerolog.Logger) *HTTPServer {
	return &HTTPServer{
		db:          db,
		resolver:    resolver,
		busy:        busy,
		bookings:    bookings,
		exporter:    exporter,
		authz:       authz,
		granularity: granularity,
		log:         log,
	}
}

// Router builds the request mux.
func (s *HTTPServer) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("POST /api/v1/hosts", s.requireAdmin(s.handleCreateHost))
	mux.HandleFunc("GET /api/v1/hosts/{id}", s.handleGetHost)
	mux.HandleFunc("PATCH /api/v1/hosts/{id}", s.handleUpdateHost)
	mux.HandleFunc("DELETE /api/v1/hosts/{id}", s.requireAdmin(s.handleDeleteHost))

	mux.HandleFunc("GET /api/v1/hosts/{id}/schedule", s.handleGetSchedule)
	mux.HandleFunc("PUT /api/v1/hosts/{id}/schedule", s.handleReplaceSchedule)

	mux.HandleFunc("POST /api/v1/hosts/{id}/booking-types", s.handleCreateBookingType)
	mux.HandleFunc("GET /api/v1/hosts/{id}/booking-types", s.handleListBookingTypes)
	mux.HandleFunc("PATCH /api/v1/hosts/{id}/booking-types/{typeID}", s.handleUpdateBookingType)
	mux.HandleFunc("DELETE /api/v1/hosts/{id}/booking-types/{typeID}", s.handleDeactivateBookingType)

	mux.HandleFunc("GET /api/v1/hosts/{id}/slots", s.handleListSlots)
	mux.HandleFunc("GET /api/v1/hosts/{id}/bookings", s.handleListBookings)
	mux.HandleFunc("GET /api/v1/hosts/{id}/bookings/export", s.handleExportBookings)

	mux.HandleFunc("POST /api/v1/bookings", s.handleCreateBooking)
	mux.HandleFunc("GET /api/v1/bookings/{id}", s.handleGetBooking)
	mux.HandleFunc("POST /api/v1/bookings/{id}/cancel", s.handleCancelBooking)
	mux.HandleFunc("POST /api/v1/bookings/{id}/reschedule", s.handleRescheduleBooking)
	mux.HandleFunc("POST /api/v1/bookings/{id}/complete", s.requireAdmin(s.handleCompleteBooking))

	return mux
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requireAdmin guards privileged endpoints with the configured
// allow-list policy.
func (s *HTTPServer) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := r.Header.Get(callerHeader)
		if caller == "" || !s.authz.IsAdmin(caller) {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps the error taxonomy onto HTTP statuses.
func (s *HTTPServer) writeDomainError(w http.ResponseWriter, err error) {
	var slotErr *models.SlotUnavailableError
	switch {
	case errors.Is(err, models.ErrHostNotFound),
		errors.Is(err, models.ErrBookingNotFound),
		errors.Is(err, models.ErrBookingTypeNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &slotErr):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":  slotErr.Error(),
			"reason": string(slotErr.Reason),
		})
	case errors.Is(err, models.ErrPastTime):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrInvalidState),
		errors.Is(err, models.ErrAlreadyCancelled):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.log.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}
