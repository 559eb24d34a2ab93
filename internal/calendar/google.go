package calendar

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"slotwise/internal/metrics"
	"slotwise/internal/models"
)

// GoogleConfig holds the OAuth2 client credentials and the offline
// refresh token obtained by the (out of scope) connection flow.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	// RequestsPerSecond caps outbound calls; 0 uses a conservative
	// default below Google's per-user quota.
	RequestsPerSecond float64
}

// Google implements Provider against the Google Calendar API.
type Google struct {
	svc     *calendar.Service
	limiter *rate.Limiter
}

// NewGoogle builds a rate-limited Google Calendar provider.
func NewGoogle(ctx context.Context, cfg GoogleConfig) (*Google, error) {
	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.google.com/o/oauth2/auth",
			TokenURL: "https://oauth2.googleapis.com/token",
		},
		Scopes: []string{calendar.CalendarEventsScope, calendar.CalendarReadonlyScope},
	}
	ts := oc.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})

	svc, err := calendar.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}

	return &Google{
		svc:     svc,
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
	}, nil
}

// GetBusy queries FreeBusy for the account's primary calendar.
func (g *Google) GetBusy(ctx context.Context, account string, from, to time.Time) ([]models.Interval, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req := &calendar.FreeBusyRequest{
		TimeMin: from.UTC().Format(time.RFC3339),
		TimeMax: to.UTC().Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: account}},
	}
	resp, err := g.svc.Freebusy.Query(req).Context(ctx).Do()
	if err != nil {
		metrics.IncProviderFailure("google_calendar", "freebusy")
		return nil, &models.ProviderError{Provider: "google_calendar", Op: "freebusy", Err: err}
	}

	cal, ok := resp.Calendars[account]
	if !ok {
		return nil, nil
	}

	var out []models.Interval
	for _, b := range cal.Busy {
		start, err := time.Parse(time.RFC3339, b.Start)
		if err != nil {
			continue
		}
		end, err := time.Parse(time.RFC3339, b.End)
		if err != nil {
			continue
		}
		out = append(out, models.Interval{Start: start.UTC(), End: end.UTC()})
	}
	return out, nil
}

// CreateEvent inserts an event on the account's calendar.
func (g *Google) CreateEvent(ctx context.Context, account string, ev EventDetails) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}

	created, err := g.svc.Events.Insert(account, toGoogleEvent(ev)).Context(ctx).Do()
	if err != nil {
		metrics.IncProviderFailure("google_calendar", "create_event")
		return "", &models.ProviderError{Provider: "google_calendar", Op: "create_event", Err: err}
	}
	return created.Id, nil
}

// UpdateEvent patches an existing event's details.
func (g *Google) UpdateEvent(ctx context.Context, account, eventID string, ev EventDetails) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}

	if _, err := g.svc.Events.Patch(account, eventID, toGoogleEvent(ev)).Context(ctx).Do(); err != nil {
		metrics.IncProviderFailure("google_calendar", "update_event")
		return &models.ProviderError{Provider: "google_calendar", Op: "update_event", Err: err}
	}
	return nil
}

// DeleteEvent removes an event.
func (g *Google) DeleteEvent(ctx context.Context, account, eventID string) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}

	if err := g.svc.Events.Delete(account, eventID).Context(ctx).Do(); err != nil {
		metrics.IncProviderFailure("google_calendar", "delete_event")
		return &models.ProviderError{Provider: "google_calendar", Op: "delete_event", Err: err}
	}
	return nil
}

func toGoogleEvent(ev EventDetails) *calendar.Event {
	event := &calendar.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       &calendar.EventDateTime{DateTime: ev.Start.UTC().Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: ev.End.UTC().Format(time.RFC3339)},
	}
	if ev.AttendeeEmail != "" {
		event.Attendees = []*calendar.EventAttendee{{Email: ev.AttendeeEmail}}
	}
	return event
}
