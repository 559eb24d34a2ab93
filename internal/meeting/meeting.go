// Package meeting integrates with an external meeting provider.
// Meeting creation is best-effort: a failed call never blocks or
// reverses the booking it was created for.
package meeting

import (
	"context"
	"time"
)

// Details describe a meeting to create.
type Details struct {
	Topic     string
	Start     time.Time
	Duration  time.Duration
	HostEmail string
}

// Meeting is a created meeting reference.
type Meeting struct {
	ID      string
	JoinURL string
}

// Provider is the external meeting contract consumed by the booking
// mutator.
type Provider interface {
	CreateMeeting(ctx context.Context, d Details) (*Meeting, error)
	DeleteMeeting(ctx context.Context, meetingID string) error
}
