// Package booking owns the lifecycle of booking records: create,
// cancel, reschedule, complete. Every mutation re-validates
// availability at commit time; the slot listing a client saw earlier
// is a hint, this package is the source of truth.
package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"slotwise/internal/availability"
	"slotwise/internal/calendar"
	"slotwise/internal/meeting"
	"slotwise/internal/metrics"
	"slotwise/internal/models"
	"slotwise/internal/slots"
	"slotwise/internal/store"
	"slotwise/internal/timeutil"
)

// Store is the repository surface the mutator needs.
type Store interface {
	GetHost(ctx context.Context, id int64) (*models.Host, error)
	GetBookingType(ctx context.Context, id int64) (*models.BookingType, error)
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	CreateBooking(ctx context.Context, b *models.Booking) error
	UpdateBookingStatus(ctx context.Context, id, status string) error
	UpdateBookingTimes(ctx context.Context, id string, start, end time.Time) error
	SetExternalRefs(ctx context.Context, id, calendarEventID, meetingID, joinURL string) error
	ListBookings(ctx context.Context, hostID int64, f store.BookingFilter) ([]models.Booking, error)
}

// WindowResolver resolves a host's availability window for a date.
type WindowResolver interface {
	ResolveWindow(ctx context.Context, hostID int64, date time.Time) (*availability.Window, error)
}

// BusyCollector aggregates a host's busy intervals for a range.
type BusyCollector interface {
	Collect(ctx context.Context, hostID int64, from, to time.Time) ([]models.Interval, error)
	CollectExcluding(ctx context.Context, hostID int64, from, to time.Time, excludeBookingID string) ([]models.Interval, error)
}

// Result carries the authoritative booking state plus warnings for
// degraded best-effort integrations, so a caller can tell "confirmed
// but the calendar invite failed" from "failed".
type Result struct {
	Booking  *models.Booking `json:"booking"`
	Warnings []string        `json:"warnings,omitempty"`
}

// Service is the booking mutator.
type Service struct {
	store       Store
	resolver    WindowResolver
	busy        BusyCollector
	calendar    calendar.Provider // nil when not configured
	meeting     meeting.Provider  // nil when not configured
	granularity time.Duration
	logger      *zerolog.Logger
	now         func() time.Time
}

// NewService creates a booking service. calendar and meeting providers
// may be nil; the corresponding best-effort steps are then skipped.
func NewService(st Store, resolver WindowResolver, busy BusyCollector, cal calendar.Provider, meet meeting.Provider, granularity time.Duration, logger *zerolog.Logger) *Service {
	if granularity <= 0 {
		granularity = slots.DefaultGranularity
	}
	return &Service{
		store:       st,
		resolver:    resolver,
		busy:        busy,
		calendar:    cal,
		meeting:     meet,
		granularity: granularity,
		logger:      logger,
		now:         time.Now,
	}
}

// Create books the requested slot for a host. The slot must be
// currently offerable under a fresh availability recomputation.
func (s *Service) Create(ctx context.Context, hostID, bookingTypeID int64, startUTC time.Time, client models.ClientInfo) (*Result, error) {
	host, err := s.store.GetHost(ctx, hostID)
	if err != nil {
		return nil, err
	}
	if host.IsDeleted() {
		return nil, models.ErrHostNotFound
	}

	bt, err := s.store.GetBookingType(ctx, bookingTypeID)
	if err != nil {
		return nil, err
	}
	if !bt.Active || bt.HostID != hostID {
		return nil, models.ErrBookingTypeNotFound
	}

	startUTC = startUTC.UTC()
	if !startUTC.After(s.now()) {
		return nil, models.ErrPastTime
	}

	endUTC := startUTC.Add(bt.Duration())
	if err := s.requireOfferable(ctx, host, startUTC, endUTC, ""); err != nil {
		metrics.IncBookingCreated("rejected")
		return nil, err
	}

	b := &models.Booking{
		HostID:        hostID,
		BookingTypeID: bookingTypeID,
		ClientName:    client.Name,
		ClientEmail:   client.Email,
		ClientPhone:   client.Phone,
		StartUTC:      startUTC,
		EndUTC:        endUTC,
		Notes:         client.Notes,
	}
	if err := s.store.CreateBooking(ctx, b); err != nil {
		metrics.IncBookingCreated("conflict")
		return nil, err
	}
	metrics.IncBookingCreated("created")

	// Local state is committed; everything below is best-effort and
	// only ever adds warnings.
	res := &Result{Booking: b}
	s.syncExternalCreate(ctx, host, bt, b, res)
	return res, nil
}

// Cancel transitions a booking to cancelled and best-effort removes
// its calendar event and meeting.
func (s *Service) Cancel(ctx context.Context, bookingID string) (*Result, error) {
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := guardTransition(b, models.StatusCancelled); err != nil {
		return nil, err
	}

	if err := s.store.UpdateBookingStatus(ctx, bookingID, models.StatusCancelled); err != nil {
		return nil, err
	}
	b.Status = models.StatusCancelled
	metrics.IncBookingCancelled()

	res := &Result{Booking: b}
	if b.CalendarEventID != "" && s.calendar != nil {
		host, err := s.store.GetHost(ctx, b.HostID)
		if err == nil {
			if err := s.calendar.DeleteEvent(ctx, host.CalendarAccount, b.CalendarEventID); err != nil {
				s.addWarning(res, b.ID, "delete calendar event", err)
			}
		}
	}
	if b.MeetingID != "" && s.meeting != nil {
		if err := s.meeting.DeleteMeeting(ctx, b.MeetingID); err != nil {
			s.addWarning(res, b.ID, "delete meeting", err)
		}
	}
	return res, nil
}

// Reschedule atomically replaces a booking's interval, preserving its
// duration, after a fresh availability recomputation that ignores the
// booking's own current interval.
func (s *Service) Reschedule(ctx context.Context, bookingID string, newStartUTC time.Time) (*Result, error) {
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := guardTransition(b, models.StatusConfirmed); err != nil {
		return nil, err
	}

	newStartUTC = newStartUTC.UTC()
	if !newStartUTC.After(s.now()) {
		return nil, models.ErrPastTime
	}

	host, err := s.store.GetHost(ctx, b.HostID)
	if err != nil {
		return nil, err
	}

	duration := b.EndUTC.Sub(b.StartUTC)
	newEndUTC := newStartUTC.Add(duration)
	if err := s.requireOfferable(ctx, host, newStartUTC, newEndUTC, b.ID); err != nil {
		metrics.IncBookingRescheduled("rejected")
		return nil, err
	}

	if err := s.store.UpdateBookingTimes(ctx, bookingID, newStartUTC, newEndUTC); err != nil {
		metrics.IncBookingRescheduled("conflict")
		return nil, err
	}
	b.StartUTC = newStartUTC
	b.EndUTC = newEndUTC
	metrics.IncBookingRescheduled("rescheduled")

	res := &Result{Booking: b}
	if b.CalendarEventID != "" && s.calendar != nil {
		ev := calendar.EventDetails{
			Summary:       eventSummary(b),
			Start:         newStartUTC,
			End:           newEndUTC,
			AttendeeEmail: b.ClientEmail,
		}
		if err := s.calendar.UpdateEvent(ctx, host.CalendarAccount, b.CalendarEventID, ev); err != nil {
			s.addWarning(res, b.ID, "update calendar event", err)
		}
	}
	return res, nil
}

// Complete transitions a booking to completed. The trigger (elapsed
// time) lives outside this core; the transition guard does not.
func (s *Service) Complete(ctx context.Context, bookingID string) (*Result, error) {
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := guardTransition(b, models.StatusCompleted); err != nil {
		return nil, err
	}

	if err := s.store.UpdateBookingStatus(ctx, bookingID, models.StatusCompleted); err != nil {
		return nil, err
	}
	b.Status = models.StatusCompleted
	return &Result{Booking: b}, nil
}

// ListBookings returns a host's bookings ordered by start time.
func (s *Service) ListBookings(ctx context.Context, hostID int64, f store.BookingFilter) ([]models.Booking, error) {
	if _, err := s.store.GetHost(ctx, hostID); err != nil {
		return nil, err
	}
	return s.store.ListBookings(ctx, hostID, f)
}

// requireOfferable re-runs the resolver, aggregator and slot filter
// for the requested interval. excludeBookingID keeps a reschedule from
// conflicting with its own current interval.
func (s *Service) requireOfferable(ctx context.Context, host *models.Host, startUTC, endUTC time.Time, excludeBookingID string) error {
	loc, _ := timeutil.LoadZone(host.Timezone)
	localDate := timeutil.StartOfDay(startUTC, loc)

	win, err := s.resolver.ResolveWindow(ctx, host.ID, localDate)
	if err != nil {
		return err
	}
	if win == nil {
		return &models.SlotUnavailableError{Reason: models.ReasonOutsideHours}
	}

	// Inside the window, slot-end inclusive, and on the slot grid.
	if startUTC.Before(win.Start) || endUTC.After(win.End) {
		return &models.SlotUnavailableError{Reason: models.ReasonOutsideHours}
	}
	if startUTC.Sub(win.Start)%s.granularity != 0 {
		return &models.SlotUnavailableError{Reason: models.ReasonOutsideHours}
	}

	var busyIntervals []models.Interval
	if excludeBookingID != "" {
		busyIntervals, err = s.busy.CollectExcluding(ctx, host.ID, win.Start, win.End, excludeBookingID)
	} else {
		busyIntervals, err = s.busy.Collect(ctx, host.ID, win.Start, win.End)
	}
	if err != nil {
		return err
	}

	requested := models.Interval{Start: startUTC, End: endUTC}
	for _, iv := range busyIntervals {
		if requested.Overlaps(iv) {
			return &models.SlotUnavailableError{Reason: models.ReasonAlreadyBooked}
		}
	}
	return nil
}

// syncExternalCreate runs the post-commit best-effort steps for a new
// booking: calendar event, meeting, and persisting their references.
func (s *Service) syncExternalCreate(ctx context.Context, host *models.Host, bt *models.BookingType, b *models.Booking, res *Result) {
	if host.CalendarConnected && s.calendar != nil {
		ev := calendar.EventDetails{
			Summary:       eventSummary(b),
			Description:   bt.Name,
			Start:         b.StartUTC,
			End:           b.EndUTC,
			AttendeeEmail: b.ClientEmail,
		}
		eventID, err := s.calendar.CreateEvent(ctx, host.CalendarAccount, ev)
		if err != nil {
			s.addWarning(res, b.ID, "create calendar event", err)
		} else {
			b.CalendarEventID = eventID
		}
	}

	if host.MeetingConnected && s.meeting != nil {
		m, err := s.meeting.CreateMeeting(ctx, meeting.Details{
			Topic:     eventSummary(b),
			Start:     b.StartUTC,
			Duration:  b.EndUTC.Sub(b.StartUTC),
			HostEmail: host.Email,
		})
		if err != nil {
			s.addWarning(res, b.ID, "create meeting", err)
		} else {
			b.MeetingID = m.ID
			b.MeetingJoinURL = m.JoinURL
		}
	}

	if b.CalendarEventID != "" || b.MeetingID != "" {
		if err := s.store.SetExternalRefs(ctx, b.ID, b.CalendarEventID, b.MeetingID, b.MeetingJoinURL); err != nil {
			s.addWarning(res, b.ID, "persist external references", err)
		}
	}
}

func (s *Service) addWarning(res *Result, bookingID, action string, err error) {
	s.logger.Warn().Err(err).Str("booking_id", bookingID).Msgf("best-effort %s failed", action)
	res.Warnings = append(res.Warnings, fmt.Sprintf("%s failed: %v", action, err))
}

func eventSummary(b *models.Booking) string {
	return fmt.Sprintf("Appointment with %s", b.ClientName)
}
