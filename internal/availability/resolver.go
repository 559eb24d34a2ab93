// Package availability resolves a host's recurring weekly schedule
// into the bookable window for a concrete calendar date.
package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"slotwise/internal/models"
	"slotwise/internal/timeutil"
)

// Store is the subset of the repository the resolver reads.
type Store interface {
	GetHost(ctx context.Context, id int64) (*models.Host, error)
	GetRuleForDay(ctx context.Context, hostID int64, dayOfWeek int) (*models.AvailabilityRule, error)
}

// Window is the availability window for one calendar date. Start and
// End are zoned instants of the host's local wall-clock times; compare
// them directly against UTC instants.
type Window struct {
	Start time.Time
	End   time.Time
	Loc   *time.Location
}

// Resolver computes per-date availability windows.
type Resolver struct {
	store  Store
	logger *zerolog.Logger
}

// NewResolver creates a resolver.
func NewResolver(store Store, logger *zerolog.Logger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

// ResolveWindow returns the window applicable to date's weekday, or
// nil when the host has no availability that day. date is a plain
// calendar date: its own year, month and day select the weekday and
// the window's wall-clock bounds in the host's zone, regardless of
// the zone the date value happens to carry.
// Returns models.ErrHostNotFound for missing or deleted hosts.
func (r *Resolver) ResolveWindow(ctx context.Context, hostID int64, date time.Time) (*Window, error) {
	host, err := r.store.GetHost(ctx, hostID)
	if err != nil {
		return nil, err
	}
	if host.IsDeleted() {
		return nil, models.ErrHostNotFound
	}

	loc := r.HostLocation(host)
	weekday := int(timeutil.Weekday(date))

	rule, err := r.store.GetRuleForDay(ctx, hostID, weekday)
	if err != nil {
		return nil, err
	}
	if rule == nil || !rule.Available {
		return nil, nil
	}

	start, err := timeutil.AtWallClock(date, rule.StartTime, loc)
	if err != nil {
		return nil, fmt.Errorf("rule start time: %w", err)
	}
	end, err := timeutil.AtWallClock(date, rule.EndTime, loc)
	if err != nil {
		return nil, fmt.Errorf("rule end time: %w", err)
	}
	if !start.Before(end) {
		// Guarded at save time; a bad row yields no slots rather than
		// a negative window.
		return nil, nil
	}

	return &Window{Start: start, End: end, Loc: loc}, nil
}

// HostLocation loads the host's zone, falling back per policy when the
// stored name does not resolve.
func (r *Resolver) HostLocation(host *models.Host) *time.Location {
	loc, ok := timeutil.LoadZone(host.Timezone)
	if !ok && host.Timezone != "" {
		r.logger.Warn().
			Int64("host_id", host.ID).
			Str("timezone", host.Timezone).
			Str("fallback", timeutil.FallbackZone).
			Msg("unresolvable host timezone, using fallback")
	}
	return loc
}
