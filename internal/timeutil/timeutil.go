// Package timeutil centralizes wall-clock and time-zone arithmetic.
// Every other package converts between a host's local time and UTC
// through these helpers instead of re-deriving zone math locally.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FallbackZone is used when a host's configured time zone cannot be
// resolved. This is an explicit policy, not an error path: an
// unresolvable zone must not make the host unbookable.
const FallbackZone = "America/Chicago"

// LoadZone resolves an IANA zone name, falling back to FallbackZone
// for empty or unknown names. The bool result reports whether the
// requested name resolved.
func LoadZone(name string) (*time.Location, bool) {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc, true
		}
	}
	loc, err := time.LoadLocation(FallbackZone)
	if err != nil {
		// tzdata is bundled on every supported platform; UTC keeps
		// the caller functional if it somehow is not.
		return time.UTC, false
	}
	return loc, false
}

// ParseHHMM parses a "HH:MM" wall-clock string.
func ParseHHMM(s string) (hour, minute int, err error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("invalid time format: %q", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}

// ValidHHMM reports whether s is a parseable "HH:MM" string.
func ValidHHMM(s string) bool {
	_, _, err := ParseHHMM(s)
	return err == nil
}

// AtWallClock returns the instant at the given "HH:MM" wall-clock time
// in loc on date's calendar day. date is read as a plain date: its own
// year, month and day, never reinterpreted in another zone. DST
// transitions follow time.Date normalization.
func AtWallClock(date time.Time, hhmm string, loc *time.Location) (time.Time, error) {
	hour, minute, err := ParseHHMM(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, loc), nil
}

// Weekday returns the day of week of date's own calendar day. Like
// AtWallClock it reads date as a plain date, so a "2026-09-13" parsed
// at UTC midnight stays Sunday for a host west of UTC instead of
// sliding back to Saturday. Callers holding an instant convert it to
// the relevant zone's day first (see StartOfDay).
func Weekday(date time.Time) time.Weekday {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Weekday()
}

// StartOfDay returns midnight of date's calendar day in loc.
func StartOfDay(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// ParseDate parses a "YYYY-MM-DD" calendar date. The result carries no
// meaningful time component; pair it with a zone before comparing.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q; expected YYYY-MM-DD", s)
	}
	return t, nil
}

// FormatDate renders t's calendar day in loc as "YYYY-MM-DD".
func FormatDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}
