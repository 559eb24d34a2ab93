package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"slotwise/internal/metrics"
	"slotwise/internal/models"
	"slotwise/internal/store"
)

// CreateBookingRequest is the body for POST /api/v1/bookings.
type CreateBookingRequest struct {
	HostID        int64     `json:"host_id"`
	BookingTypeID int64     `json:"booking_type_id"`
	StartUTC      time.Time `json:"start_utc"`
	ClientName    string    `json:"client_name"`
	ClientEmail   string    `json:"client_email"`
	ClientPhone   string    `json:"client_phone,omitempty"`
	Notes         string    `json:"notes,omitempty"`
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_booking")

	var req CreateBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.HostID <= 0 || req.BookingTypeID <= 0 || req.StartUTC.IsZero() {
		writeError(w, http.StatusBadRequest, "host_id, booking_type_id and start_utc are required")
		return
	}
	if req.ClientName == "" || req.ClientEmail == "" {
		writeError(w, http.StatusBadRequest, "client_name and client_email are required")
		return
	}

	res, err := s.bookings.Create(r.Context(), req.HostID, req.BookingTypeID, req.StartUTC, models.ClientInfo{
		Name:  req.ClientName,
		Email: req.ClientEmail,
		Phone: req.ClientPhone,
		Notes: req.Notes,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.log.Info().
		Str("booking_id", res.Booking.ID).
		Int64("host_id", req.HostID).
		Time("start_utc", res.Booking.StartUTC).
		Int("warnings", len(res.Warnings)).
		Msg("booking created")

	writeJSON(w, http.StatusCreated, res)
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("get_booking")

	b, err := s.db.GetBooking(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("cancel_booking")

	res, err := s.bookings.Cancel(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.log.Info().Str("booking_id", res.Booking.ID).Msg("booking cancelled")
	writeJSON(w, http.StatusOK, res)
}

// RescheduleRequest is the body for POST /api/v1/bookings/{id}/reschedule.
type RescheduleRequest struct {
	NewStartUTC time.Time `json:"new_start_utc"`
}

func (s *HTTPServer) handleRescheduleBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reschedule_booking")

	var req RescheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.NewStartUTC.IsZero() {
		writeError(w, http.StatusBadRequest, "new_start_utc is required")
		return
	}

	res, err := s.bookings.Reschedule(r.Context(), r.PathValue("id"), req.NewStartUTC)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.log.Info().
		Str("booking_id", res.Booking.ID).
		Time("new_start_utc", res.Booking.StartUTC).
		Msg("booking rescheduled")
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleCompleteBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("complete_booking")

	res, err := s.bookings.Complete(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleListBookings lists a host's bookings with optional filters.
// GET /api/v1/hosts/{id}/bookings?status=&from=&to=&limit=
func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("list_bookings")

	hostID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	filter, err := parseBookingFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bookings, err := s.bookings.ListBookings(r.Context(), hostID, filter)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

// handleExportBookings streams the host's booking history as xlsx.
// GET /api/v1/hosts/{id}/bookings/export?from=&to=
func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("export_bookings")

	hostID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	filter, err := parseBookingFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="bookings-%d.xlsx"`, hostID))

	if err := s.exporter.WriteXLSX(r.Context(), w, hostID, filter.From, filter.To); err != nil {
		// Headers may already be gone; log and drop the connection.
		s.log.Error().Err(err).Int64("host_id", hostID).Msg("booking export failed")
	}
}

func parseBookingFilter(r *http.Request) (store.BookingFilter, error) {
	var f store.BookingFilter
	q := r.URL.Query()

	if status := q.Get("status"); status != "" {
		switch status {
		case models.StatusConfirmed, models.StatusCancelled, models.StatusCompleted:
			f.Status = status
		default:
			return f, fmt.Errorf("unknown status %q", status)
		}
	}
	if from := q.Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return f, fmt.Errorf("invalid from: %v", err)
		}
		f.From = t
	}
	if to := q.Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return f, fmt.Errorf("invalid to: %v", err)
		}
		f.To = t
	}
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			return f, fmt.Errorf("invalid limit")
		}
		f.Limit = n
	}
	return f, nil
}

func queryID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}
