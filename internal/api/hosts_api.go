package api

import (
	"net/http"
	"strconv"

	"slotwise/internal/metrics"
	"slotwise/internal/models"
)

// CreateHostRequest is the body for POST /api/v1/hosts.
type CreateHostRequest struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Timezone    string `json:"timezone"`
}

func (s *HTTPServer) handleCreateHost(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_host")

	var req CreateHostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.DisplayName == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "display_name and email are required")
		return
	}

	h := &models.Host{
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Timezone:    req.Timezone,
	}
	if err := s.db.CreateHost(r.Context(), h); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h)
}

func (s *HTTPServer) handleGetHost(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("get_host")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	h, err := s.db.GetHost(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

// UpdateHostRequest is the body for PATCH /api/v1/hosts/{id}. Nil
// fields are left unchanged.
type UpdateHostRequest struct {
	DisplayName       *string `json:"display_name,omitempty"`
	Timezone          *string `json:"timezone,omitempty"`
	CalendarConnected *bool   `json:"calendar_connected,omitempty"`
	CalendarAccount   *string `json:"calendar_account,omitempty"`
	MeetingConnected  *bool   `json:"meeting_connected,omitempty"`
}

func (s *HTTPServer) handleUpdateHost(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("update_host")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateHostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	h, err := s.db.GetHost(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if h.IsDeleted() {
		writeError(w, http.StatusNotFound, models.ErrHostNotFound.Error())
		return
	}

	if req.DisplayName != nil {
		h.DisplayName = *req.DisplayName
	}
	if req.Timezone != nil {
		h.Timezone = *req.Timezone
	}
	if req.CalendarConnected != nil {
		h.CalendarConnected = *req.CalendarConnected
	}
	if req.CalendarAccount != nil {
		h.CalendarAccount = *req.CalendarAccount
	}
	if req.MeetingConnected != nil {
		h.MeetingConnected = *req.MeetingConnected
	}

	if err := s.db.UpdateHost(r.Context(), h); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *HTTPServer) handleDeleteHost(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("delete_host")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.db.SoftDeleteHost(r.Context(), id); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

// ScheduleDay is one weekday entry of a weekly schedule payload.
type ScheduleDay struct {
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Available bool   `json:"available"`
}

// ReplaceScheduleRequest is the body for PUT /api/v1/hosts/{id}/schedule.
type ReplaceScheduleRequest struct {
	Days []ScheduleDay `json:"days"`
}

func (s *HTTPServer) handleReplaceSchedule(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("replace_schedule")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := s.db.GetHost(r.Context(), id); err != nil {
		s.writeDomainError(w, err)
		return
	}

	var req ReplaceScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	rules := make([]models.AvailabilityRule, 0, len(req.Days))
	for _, d := range req.Days {
		rules = append(rules, models.AvailabilityRule{
			HostID:    id,
			DayOfWeek: d.DayOfWeek,
			StartTime: d.StartTime,
			EndTime:   d.EndTime,
			Available: d.Available,
		})
	}

	if err := s.db.ReplaceWeeklyRules(r.Context(), id, rules); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := s.db.ListRules(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": saved})
}

func (s *HTTPServer) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("get_schedule")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := s.db.GetHost(r.Context(), id); err != nil {
		s.writeDomainError(w, err)
		return
	}

	rules, err := s.db.ListRules(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": rules})
}

// BookingTypeRequest is the body for creating booking types.
type BookingTypeRequest struct {
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	Description     string `json:"description,omitempty"`
	PriceCents      int64  `json:"price_cents,omitempty"`
	Active          *bool  `json:"active,omitempty"`
}

func (s *HTTPServer) handleCreateBookingType(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_booking_type")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := s.db.GetHost(r.Context(), id); err != nil {
		s.writeDomainError(w, err)
		return
	}

	var req BookingTypeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" || req.DurationMinutes <= 0 {
		writeError(w, http.StatusBadRequest, "name and positive duration_minutes are required")
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	bt := &models.BookingType{
		HostID:          id,
		Name:            req.Name,
		DurationMinutes: req.DurationMinutes,
		Description:     req.Description,
		PriceCents:      req.PriceCents,
		Active:          active,
	}
	if err := s.db.CreateBookingType(r.Context(), bt); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bt)
}

func (s *HTTPServer) handleListBookingTypes(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("list_booking_types")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	activeOnly := r.URL.Query().Get("active") == "true"

	types, err := s.db.ListBookingTypes(r.Context(), id, activeOnly)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"booking_types": types})
}

// UpdateBookingTypeRequest is the body for PATCHing a booking type.
// Nil fields are left unchanged, so a zero price or an empty
// description can be set explicitly.
type UpdateBookingTypeRequest struct {
	Name            *string `json:"name,omitempty"`
	DurationMinutes *int    `json:"duration_minutes,omitempty"`
	Description     *string `json:"description,omitempty"`
	PriceCents      *int64  `json:"price_cents,omitempty"`
	Active          *bool   `json:"active,omitempty"`
}

func (s *HTTPServer) handleUpdateBookingType(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("update_booking_type")

	hostID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	typeID, ok := pathID(w, r, "typeID")
	if !ok {
		return
	}

	bt, err := s.db.GetBookingType(r.Context(), typeID)
	if err != nil || bt.HostID != hostID {
		writeError(w, http.StatusNotFound, models.ErrBookingTypeNotFound.Error())
		return
	}

	var req UpdateBookingTypeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name != nil {
		if *req.Name == "" {
			writeError(w, http.StatusBadRequest, "name must not be empty")
			return
		}
		bt.Name = *req.Name
	}
	if req.DurationMinutes != nil {
		if *req.DurationMinutes <= 0 {
			writeError(w, http.StatusBadRequest, "duration_minutes must be positive")
			return
		}
		bt.DurationMinutes = *req.DurationMinutes
	}
	if req.Description != nil {
		bt.Description = *req.Description
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 0 {
			writeError(w, http.StatusBadRequest, "price_cents must not be negative")
			return
		}
		bt.PriceCents = *req.PriceCents
	}
	if req.Active != nil {
		bt.Active = *req.Active
	}

	if err := s.db.UpdateBookingType(r.Context(), bt); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bt)
}

func (s *HTTPServer) handleDeactivateBookingType(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("deactivate_booking_type")

	hostID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	typeID, ok := pathID(w, r, "typeID")
	if !ok {
		return
	}
	if err := s.db.DeactivateBookingType(r.Context(), hostID, typeID); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deactivated": true})
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}
