package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for missing or terminal entities.
var (
	ErrHostNotFound        = errors.New("host not found")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrBookingTypeNotFound = errors.New("booking type not found")
	ErrPastTime            = errors.New("requested time is in the past")
	ErrInvalidState        = errors.New("no transition allowed from terminal state")
	ErrAlreadyCancelled    = errors.New("booking is already cancelled")
)

// UnavailableReason distinguishes why a requested slot was rejected.
type UnavailableReason string

const (
	ReasonAlreadyBooked UnavailableReason = "already_booked"
	ReasonOutsideHours  UnavailableReason = "outside_hours"
)

// SlotUnavailableError means the requested interval failed the live
// availability re-check at commit time.
type SlotUnavailableError struct {
	Reason UnavailableReason
}

func (e *SlotUnavailableError) Error() string {
	switch e.Reason {
	case ReasonAlreadyBooked:
		return "slot unavailable: already booked"
	case ReasonOutsideHours:
		return "slot unavailable: outside available hours"
	}
	return "slot unavailable"
}

// ProviderError wraps a failed external calendar/meeting call. It is
// always non-fatal for the booking's own state; callers downgrade it
// to a warning.
type ProviderError struct {
	Provider string // "google_calendar", "zoom"
	Op       string // "create_event", "freebusy", ...
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
