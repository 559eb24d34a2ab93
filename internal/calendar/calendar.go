// Package calendar integrates with an external calendar provider.
// All calls are best-effort from the booking core's point of view:
// read failures mean "no additional busy time", write failures are
// reported as warnings, never as booking failures.
package calendar

import (
	"context"
	"time"

	"slotwise/internal/models"
)

// EventDetails describe a calendar event to create or update.
type EventDetails struct {
	Summary       string
	Description   string
	Start         time.Time
	End           time.Time
	AttendeeEmail string
}

// Provider is the external calendar contract consumed by the busy
// aggregator and the booking mutator.
type Provider interface {
	GetBusy(ctx context.Context, account string, from, to time.Time) ([]models.Interval, error)
	CreateEvent(ctx context.Context, account string, ev EventDetails) (eventID string, err error)
	UpdateEvent(ctx context.Context, account, eventID string, ev EventDetails) error
	DeleteEvent(ctx context.Context, account, eventID string) error
}
