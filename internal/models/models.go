package models

import (
	"sort"
	"time"
)

// Host statuses. Hosts are never hard-deleted; deletion is a status
// transition so bookings keep a valid host reference.
const (
	HostStatusActive  = "active"
	HostStatusDeleted = "deleted"
)

// Booking statuses.
const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// Host is the service provider whose calendar is being booked.
type Host struct {
	ID                int64     `json:"id"`
	DisplayName       string    `json:"display_name"`
	Email             string    `json:"email"`
	Timezone          string    `json:"timezone"` // IANA zone name
	Status            string    `json:"status"`   // active, deleted
	CalendarConnected bool      `json:"calendar_connected"`
	CalendarAccount   string    `json:"calendar_account,omitempty"`
	MeetingConnected  bool      `json:"meeting_connected"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// IsDeleted reports whether the host has been soft-deleted.
func (h *Host) IsDeleted() bool {
	return h.Status == HostStatusDeleted
}

// BookingType is a bookable service definition owned by a host.
type BookingType struct {
	ID              int64     `json:"id"`
	HostID          int64     `json:"host_id"`
	Name            string    `json:"name"`
	DurationMinutes int       `json:"duration_minutes"`
	Description     string    `json:"description,omitempty"`
	PriceCents      int64     `json:"price_cents,omitempty"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Duration returns the appointment length.
func (bt *BookingType) Duration() time.Duration {
	return time.Duration(bt.DurationMinutes) * time.Minute
}

// AvailabilityRule is one weekday of a host's recurring weekly
// schedule. At most one rule exists per (host, day_of_week).
type AvailabilityRule struct {
	ID        int64     `json:"id"`
	HostID    int64     `json:"host_id"`
	DayOfWeek int       `json:"day_of_week"` // 0 = Sunday .. 6 = Saturday
	StartTime string    `json:"start_time"`  // "09:00" local wall clock
	EndTime   string    `json:"end_time"`    // "17:00" local wall clock
	Available bool      `json:"available"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClientInfo identifies the person booking the appointment.
type ClientInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Notes string `json:"notes,omitempty"`
}

// Booking is a confirmed (or formerly confirmed) appointment.
// Start/End are UTC instants; they change only via reschedule.
type Booking struct {
	ID              string    `json:"id"`
	HostID          int64     `json:"host_id"`
	BookingTypeID   int64     `json:"booking_type_id"`
	ClientName      string    `json:"client_name"`
	ClientEmail     string    `json:"client_email"`
	ClientPhone     string    `json:"client_phone,omitempty"`
	StartUTC        time.Time `json:"start_utc"`
	EndUTC          time.Time `json:"end_utc"`
	Status          string    `json:"status"`
	Notes           string    `json:"notes,omitempty"`
	CalendarEventID string    `json:"calendar_event_id,omitempty"`
	MeetingID       string    `json:"meeting_id,omitempty"`
	MeetingJoinURL  string    `json:"meeting_join_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IsTerminal reports whether no further transition is allowed.
func (b *Booking) IsTerminal() bool {
	return b.Status == StatusCancelled || b.Status == StatusCompleted
}

// Interval returns the booking's occupied time range.
func (b *Booking) Interval() Interval {
	return Interval{Start: b.StartUTC, End: b.EndUTC}
}

// Interval is a half-open [Start, End) UTC time range.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether two half-open intervals conflict.
// [a,b) and [c,d) conflict iff a < d && c < b; touching endpoints
// are not conflicts.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// IsZero reports whether the interval is unset.
func (iv Interval) IsZero() bool {
	return iv.Start.IsZero() && iv.End.IsZero()
}

// MergeIntervals sorts intervals by start and coalesces overlapping or
// touching ranges into a minimal non-overlapping set.
func MergeIntervals(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}

	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &merged[len(merged)-1]
		// Touching intervals coalesce too: [9,10) + [10,11) = [9,11).
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}
