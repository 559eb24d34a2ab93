package booking

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"slotwise/internal/availability"
	"slotwise/internal/calendar"
	"slotwise/internal/meeting"
	"slotwise/internal/models"
	"slotwise/internal/store"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetHost(ctx context.Context, id int64) (*models.Host, error) {
	args := m.Called(ctx, id)
	if h := args.Get(0); h != nil {
		return h.(*models.Host), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) GetBookingType(ctx context.Context, id int64) (*models.BookingType, error) {
	args := m.Called(ctx, id)
	if bt := args.Get(0); bt != nil {
		return bt.(*models.BookingType), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if b := args.Get(0); b != nil {
		return b.(*models.Booking), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) CreateBooking(ctx context.Context, b *models.Booking) error {
	args := m.Called(ctx, b)
	if args.Error(0) == nil && b.ID == "" {
		b.ID = "test-booking-id"
		b.Status = models.StatusConfirmed
	}
	return args.Error(0)
}

func (m *mockStore) UpdateBookingStatus(ctx context.Context, id, status string) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *mockStore) UpdateBookingTimes(ctx context.Context, id string, start, end time.Time) error {
	return m.Called(ctx, id, start, end).Error(0)
}

func (m *mockStore) SetExternalRefs(ctx context.Context, id, calendarEventID, meetingID, joinURL string) error {
	return m.Called(ctx, id, calendarEventID, meetingID, joinURL).Error(0)
}

func (m *mockStore) ListBookings(ctx context.Context, hostID int64, f store.BookingFilter) ([]models.Booking, error) {
	args := m.Called(ctx, hostID, f)
	if bs := args.Get(0); bs != nil {
		return bs.([]models.Booking), args.Error(1)
	}
	return nil, args.Error(1)
}

// stubResolver returns the same window for every date.
type stubResolver struct {
	window *availability.Window
	err    error
}

func (s *stubResolver) ResolveWindow(ctx context.Context, hostID int64, date time.Time) (*availability.Window, error) {
	return s.window, s.err
}

type stubBusy struct {
	intervals []models.Interval
	excluded  string
}

func (s *stubBusy) Collect(ctx context.Context, hostID int64, from, to time.Time) ([]models.Interval, error) {
	return s.intervals, nil
}

func (s *stubBusy) CollectExcluding(ctx context.Context, hostID int64, from, to time.Time, excludeBookingID string) ([]models.Interval, error) {
	s.excluded = excludeBookingID
	return s.intervals, nil
}

type stubCalendar struct {
	createErr error
	updateErr error
	deleteErr error
	deleted   []string
}

func (s *stubCalendar) GetBusy(ctx context.Context, account string, from, to time.Time) ([]models.Interval, error) {
	return nil, nil
}

func (s *stubCalendar) CreateEvent(ctx context.Context, account string, ev calendar.EventDetails) (string, error) {
	if s.createErr != nil {
		return "", s.createErr
	}
	return "ev-1", nil
}

func (s *stubCalendar) UpdateEvent(ctx context.Context, account, eventID string, ev calendar.EventDetails) error {
	return s.updateErr
}

func (s *stubCalendar) DeleteEvent(ctx context.Context, account, eventID string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, eventID)
	return nil
}

type stubMeeting struct {
	createErr error
	deleted   []string
}

func (s *stubMeeting) CreateMeeting(ctx context.Context, d meeting.Details) (*meeting.Meeting, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &meeting.Meeting{ID: "m-1", JoinURL: "https://meet.example.com/m-1"}, nil
}

func (s *stubMeeting) DeleteMeeting(ctx context.Context, meetingID string) error {
	s.deleted = append(s.deleted, meetingID)
	return nil
}

var (
	testNow   = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	winStart  = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	winEnd    = time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC)
	slotStart = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
)

func activeHost() *models.Host {
	return &models.Host{
		ID:          1,
		DisplayName: "Dr. Rivera",
		Email:       "rivera@example.com",
		Timezone:    "UTC",
		Status:      models.HostStatusActive,
	}
}

func activeType() *models.BookingType {
	return &models.BookingType{
		ID:              7,
		HostID:          1,
		Name:            "Intro call",
		DurationMinutes: 30,
		Active:          true,
	}
}

func client() models.ClientInfo {
	return models.ClientInfo{Name: "Alex Kim", Email: "alex@example.com"}
}

func newTestService(st Store, busy BusyCollector, cal calendar.Provider, meet meeting.Provider) *Service {
	logger := zerolog.New(io.Discard)
	resolver := &stubResolver{window: &availability.Window{Start: winStart, End: winEnd, Loc: time.UTC}}
	s := NewService(st, resolver, busy, cal, meet, 0, &logger)
	s.now = func() time.Time { return testNow }
	return s
}

func TestCreateBooksOfferableSlot(t *testing.T) {
	st := new(mockStore)
	st.On("GetHost", mock.Anything, int64(1)).Return(activeHost(), nil)
	st.On("GetBookingType", mock.Anything, int64(7)).Return(activeType(), nil)
	st.On("CreateBooking", mock.Anything, mock.AnythingOfType("*models.Booking")).Return(nil)

	svc := newTestService(st, &stubBusy{}, nil, nil)
	res, err := svc.Create(context.Background(), 1, 7, slotStart, client())
	require.NoError(t, err)

	assert.Equal(t, models.StatusConfirmed, res.Booking.Status)
	assert.Equal(t, slotStart, res.Booking.StartUTC)
	assert.Equal(t, slotStart.Add(30*time.Minute), res.Booking.EndUTC)
	assert.Empty(t, res.Warnings)
	st.AssertExpectations(t)
}

func TestCreateRejectsPastStart(t *testing.T) {
	st := new(mockStore)
	st.On("GetHost", mock.Anything, int64(1)).Return(activeHost(), nil)
	st.On("GetBookingType", mock.Anything, int64(7)).Return(activeType(), nil)

	svc := newTestService(st, &stubBusy{}, nil, nil)
	_, err := svc.Create(context.Background(), 1, 7, testNow.Add(-time.Hour), client())
	assert.ErrorIs(t, err, models.ErrPastTime)

	// A start equal to now is also not bookable.
	_, err = svc.Create(context.Background(), 1, 7, testNow, client())
	assert.ErrorIs(t, err, models.ErrPastTime)
	st.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}

func TestCreateRejectsDeletedHost(t *testing.T) {
	st := new(mockStore)
	host := activeHost()
	host.Status = models.HostStatusDeleted
	st.On("GetHost", mock.Anything, int64(1)).Return(host, nil)

	svc := newTestService(st, &stubBusy{}, nil, nil)
	_, err := svc.Create(context.Background(), 1, 7, slotStart, client())
	assert.ErrorIs(t, err, models.ErrHostNotFound)
}

func TestCreateRejectsInactiveType(t *testing.T) {
	st := new(mockStore)
	bt := activeType()
	bt.Active = false
	st.On("GetHost", mock.Anything, int64(1)).Return(activeHost(), nil)
	st.On("GetBookingType", mock.Anything, int64(7)).Return(bt, nil)

	svc := newTestService(st, &stubBusy{}, nil, nil)
	_, err := svc.Create(context.Background(), 1, 7, slotStart, client())
	assert.ErrorIs(t, err, models.ErrBookingTypeNotFound)
}

func TestCreateRejectsForeignType(t *testing.T) {
	st := new(mockStore)
	bt := activeType()
	bt.HostID = 99
	st.On("GetHost", mock.Anything, int64(1)).Return(activeHost(), nil)
	st.On("GetBookingType", mock.Anything, int64(7)).Return(bt, nil)

	svc := newTestService(st, &stubBusy{}, nil, nil)
	_, err := svc.Create(context.Background(), 1, 7, slotStart, client())
	assert.ErrorIs(t, err, models.ErrBookingTypeNotFound)
}

func TestCreateRejectsOutsideWindow(t *testing.T) {
	st := new(mockStore)
	st.On("GetHost", mock.Anything, int64(1)).Return(activeHost(), nil)
	st.On("GetBookingType", mock.Anything, int64(7)).Return(activeType(), nil)

	svc := newTestService(st, &stubBusy{}, nil, nil)

	// 16:45 + 30m runs past the 17:00 window end.
	_, err := svc.Create(context.Background(), 1, 7, winEnd.Add(-15*time.Minute), client())
	var unavailable *models.SlotUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, models.ReasonOutsideHours, unavailable.Reason)

	// 16:30 + 30m ends exactly at the window end: allowed.
	st2 := new(mockStore)
	st2.On("GetHost", mock.Anything, int64(1)).Return(activeHost(), nil)
	st2.On("GetBookingType", mock.Anything, int64(7)).Return(activeType(), nil)
	st2.On("CreateBooking", mock.Anything, mock.Anything).Return(nil)
	svc2 := newTestService(st2, &stubBusy{}, nil, nil)
	_, err = svc2.Create(context.Background(), 1, 7, winEnd.Add(-30*time.Minute), client())
	assert.NoError(t, err)
}

func TestCreateRejectsOffGridStart(t *testing.T) {
	st := new(mockStore)
	st.On("GetHost", mock.Anything, int64(1)).Return(activeHost(), nil)
	st.On("GetBookingType", mock.Anything, int64(7)).Return(activeType(), nil)

	svc := newTestService(st, &stubBusy{}, nil, nil)
	_, err := svc.Create(context.Background(), 1, 7, slotStart.Add(7*time.Minute), client())

	var unavailable *models.SlotUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, models.ReasonOutsideHours, unavailable.Reason)
}

func TestCreateRejectsBusyOverlap(t *testing.T) {
	st := new(mockStore)
	st.On("GetHost", mock.Anything, int64(1)).Return(activeHost(), nil)
	st.On("GetBookingType", mock.Anything, int64(7)).Return(activeType(), nil)

	busy := &stubBusy{intervals: []models.Interval{
		{Start: slotStart.Add(15 * time.Minute), End: slotStart.Add(45 * time.Minute)},
	}}
	svc := newTestService(st, busy, nil, nil)
	_, err := svc.Create(context.Background(), 1, 7, slotStart, client())

	var unavailable *models.SlotUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, models.ReasonAlreadyBooked, unavailable.Reason)
}

func TestCreateNoAvailabilityThatDay(t *testing.T) {
	st := new(mockStore)
	st.On("GetHost", mock.Anything, int64(1)).Return(activeHost(), nil)
	st.On("GetBookingType", mock.Anything, int64(7)).Return(activeType(), nil)

	logger := zerolog.New(io.Discard)
	svc := NewService(st, &stubResolver{window: nil}, &stubBusy{}, nil, nil, 0, &logger)
	svc.now = func() time.Time { return testNow }

	_, err := svc.Create(context.Background(), 1, 7, slotStart, client())
	var unavailable *models.SlotUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, models.ReasonOutsideHours, unavailable.Reason)
}

func TestCreateSyncsExternalProviders(t *testing.T) {
	st := new(mockStore)
	host := activeHost()
	host.CalendarConnected = true
	host.CalendarAccount = "rivera@example.com"
	host.MeetingConnected = true
	st.On("GetHost", mock.Anything, int64(1)).Return(host, nil)
	st.On("GetBookingType", mock.Anything, int64(7)).Return(activeType(), nil)
	st.On("CreateBooking", mock.Anything, mock.Anything).Return(nil)
	st.On("SetExternalRefs", mock.Anything, "test-booking-id", "ev-1", "m-1", "https://meet.example.com/m-1").Return(nil)

	svc := newTestService(st, &stubBusy{}, &stubCalendar{}, &stubMeeting{})
	res, err := svc.Create(context.Background(), 1, 7, slotStart, client())
	require.NoError(t, err)

	assert.Equal(t, "ev-1", res.Booking.CalendarEventID)
	assert.Equal(t, "m-1", res.Booking.MeetingID)
	assert.Empty(t, res.Warnings)
	st.AssertExpectations(t)
}

func TestCreateProviderFailureIsWarningOnly(t *testing.T) {
	st := new(mockStore)
	host := activeHost()
	host.CalendarConnected = true
	host.CalendarAccount = "rivera@example.com"
	host.MeetingConnected = true
	st.On("GetHost", mock.Anything, int64(1)).Return(host, nil)
	st.On("GetBookingType", mock.Anything, int64(7)).Return(activeType(), nil)
	st.On("CreateBooking", mock.Anything, mock.Anything).Return(nil)
	st.On("SetExternalRefs", mock.Anything, "test-booking-id", "", "m-1", "https://meet.example.com/m-1").Return(nil)

	cal := &stubCalendar{createErr: errors.New("calendar quota exceeded")}
	svc := newTestService(st, &stubBusy{}, cal, &stubMeeting{})
	res, err := svc.Create(context.Background(), 1, 7, slotStart, client())

	require.NoError(t, err, "provider failure must not fail the booking")
	assert.Equal(t, models.StatusConfirmed, res.Booking.Status)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "create calendar event failed")
}

func TestCancel(t *testing.T) {
	st := new(mockStore)
	b := &models.Booking{
		ID:              "b1",
		HostID:          1,
		Status:          models.StatusConfirmed,
		CalendarEventID: "ev-1",
		MeetingID:       "m-1",
	}
	st.On("GetBooking", mock.Anything, "b1").Return(b, nil)
	st.On("UpdateBookingStatus", mock.Anything, "b1", models.StatusCancelled).Return(nil)
	st.On("GetHost", mock.Anything, int64(1)).Return(activeHost(), nil)

	cal := &stubCalendar{}
	meet := &stubMeeting{}
	svc := newTestService(st, &stubBusy{}, cal, meet)

	res, err := svc.Cancel(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, res.Booking.Status)
	assert.Equal(t, []string{"ev-1"}, cal.deleted)
	assert.Equal(t, []string{"m-1"}, meet.deleted)
	st.AssertExpectations(t)
}

func TestCancelAlreadyCancelled(t *testing.T) {
	st := new(mockStore)
	st.On("GetBooking", mock.Anything, "b1").Return(&models.Booking{ID: "b1", Status: models.StatusCancelled}, nil)

	svc := newTestService(st, &stubBusy{}, nil, nil)
	_, err := svc.Cancel(context.Background(), "b1")
	assert.ErrorIs(t, err, models.ErrAlreadyCancelled)
	st.AssertNotCalled(t, "UpdateBookingStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelCompletedBooking(t *testing.T) {
	st := new(mockStore)
	st.On("GetBooking", mock.Anything, "b1").Return(&models.Booking{ID: "b1", Status: models.StatusCompleted}, nil)

	svc := newTestService(st, &stubBusy{}, nil, nil)
	_, err := svc.Cancel(context.Background(), "b1")
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestCancelProviderFailureIsWarningOnly(t *testing.T) {
	st := new(mockStore)
	b := &models.Booking{ID: "b1", HostID: 1, Status: models.StatusConfirmed, CalendarEventID: "ev-1"}
	st.On("GetBooking", mock.Anything, "b1").Return(b, nil)
	st.On("UpdateBookingStatus", mock.Anything, "b1", models.StatusCancelled).Return(nil)
	st.On("GetHost", mock.Anything, int64(1)).Return(activeHost(), nil)

	cal := &stubCalendar{deleteErr: errors.New("event gone")}
	svc := newTestService(st, &stubBusy{}, cal, nil)

	res, err := svc.Cancel(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, res.Booking.Status)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "delete calendar event failed")
}

func TestReschedule(t *testing.T) {
	st := new(mockStore)
	b := &models.Booking{
		ID:       "b1",
		HostID:   1,
		Status:   models.StatusConfirmed,
		StartUTC: slotStart,
		EndUTC:   slotStart.Add(30 * time.Minute),
	}
	newStart := slotStart.Add(2 * time.Hour)
	st.On("GetBooking", mock.Anything, "b1").Return(b, nil)
	st.On("GetHost", mock.Anything, int64(1)).Return(activeHost(), nil)
	st.On("UpdateBookingTimes", mock.Anything, "b1", newStart, newStart.Add(30*time.Minute)).Return(nil)

	busy := &stubBusy{}
	svc := newTestService(st, busy, nil, nil)

	res, err := svc.Reschedule(context.Background(), "b1", newStart)
	require.NoError(t, err)
	assert.Equal(t, newStart, res.Booking.StartUTC)
	assert.Equal(t, newStart.Add(30*time.Minute), res.Booking.EndUTC, "duration preserved")
	assert.Equal(t, "b1", busy.excluded, "own interval must be ignored")
	st.AssertExpectations(t)
}

func TestRescheduleCancelledBooking(t *testing.T) {
	st := new(mockStore)
	st.On("GetBooking", mock.Anything, "b1").Return(&models.Booking{ID: "b1", Status: models.StatusCancelled}, nil)

	svc := newTestService(st, &stubBusy{}, nil, nil)
	_, err := svc.Reschedule(context.Background(), "b1", slotStart.Add(2*time.Hour))
	assert.ErrorIs(t, err, models.ErrInvalidState)
	st.AssertNotCalled(t, "UpdateBookingTimes", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReschedulePastStart(t *testing.T) {
	st := new(mockStore)
	b := &models.Booking{ID: "b1", HostID: 1, Status: models.StatusConfirmed, StartUTC: slotStart, EndUTC: slotStart.Add(30 * time.Minute)}
	st.On("GetBooking", mock.Anything, "b1").Return(b, nil)

	svc := newTestService(st, &stubBusy{}, nil, nil)
	_, err := svc.Reschedule(context.Background(), "b1", testNow.Add(-time.Minute))
	assert.ErrorIs(t, err, models.ErrPastTime)
}

func TestRescheduleUpdatesCalendarEvent(t *testing.T) {
	st := new(mockStore)
	b := &models.Booking{
		ID:              "b1",
		HostID:          1,
		Status:          models.StatusConfirmed,
		StartUTC:        slotStart,
		EndUTC:          slotStart.Add(30 * time.Minute),
		CalendarEventID: "ev-1",
	}
	newStart := slotStart.Add(time.Hour)
	st.On("GetBooking", mock.Anything, "b1").Return(b, nil)
	st.On("GetHost", mock.Anything, int64(1)).Return(activeHost(), nil)
	st.On("UpdateBookingTimes", mock.Anything, "b1", newStart, newStart.Add(30*time.Minute)).Return(nil)

	cal := &stubCalendar{updateErr: errors.New("stale event")}
	svc := newTestService(st, &stubBusy{}, cal, nil)

	res, err := svc.Reschedule(context.Background(), "b1", newStart)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "update calendar event failed")
}

func TestComplete(t *testing.T) {
	st := new(mockStore)
	st.On("GetBooking", mock.Anything, "b1").Return(&models.Booking{ID: "b1", Status: models.StatusConfirmed}, nil)
	st.On("UpdateBookingStatus", mock.Anything, "b1", models.StatusCompleted).Return(nil)

	svc := newTestService(st, &stubBusy{}, nil, nil)
	res, err := svc.Complete(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, res.Booking.Status)
}

func TestCompleteCancelledBooking(t *testing.T) {
	st := new(mockStore)
	st.On("GetBooking", mock.Anything, "b1").Return(&models.Booking{ID: "b1", Status: models.StatusCancelled}, nil)

	svc := newTestService(st, &stubBusy{}, nil, nil)
	_, err := svc.Complete(context.Background(), "b1")
	assert.ErrorIs(t, err, models.ErrInvalidState)
}
