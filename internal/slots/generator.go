// Package slots enumerates offerable appointment start instants inside
// an availability window.
package slots

import (
	"time"

	"slotwise/internal/availability"
	"slotwise/internal/models"
)

// DefaultGranularity is the step between candidate slot starts.
const DefaultGranularity = 15 * time.Minute

// Params describe one slot enumeration.
type Params struct {
	Window      *availability.Window
	Duration    time.Duration
	Busy        []models.Interval
	Now         time.Time
	Granularity time.Duration // DefaultGranularity when zero
}

// Sequence is a finite, restartable enumeration of slot starts.
// Next returns successive UTC instants; Restart rewinds to the first
// candidate. Two sequences built from identical params yield identical
// slots.
type Sequence struct {
	params Params
	cursor time.Time
}

// New builds a sequence for the given params. A nil window, a
// duration longer than the window, or nothing surviving the filters
// all produce an empty sequence; none of these are errors.
func New(p Params) *Sequence {
	if p.Granularity <= 0 {
		p.Granularity = DefaultGranularity
	}
	s := &Sequence{params: p}
	s.Restart()
	return s
}

// Restart rewinds the sequence to the first candidate.
func (s *Sequence) Restart() {
	if s.params.Window != nil {
		s.cursor = s.params.Window.Start
	}
}

// Next returns the next offerable slot start in UTC, or false when the
// sequence is exhausted.
func (s *Sequence) Next() (time.Time, bool) {
	win := s.params.Window
	if win == nil || s.params.Duration <= 0 {
		return time.Time{}, false
	}

	for ; !s.cursor.Add(s.params.Duration).After(win.End); s.cursor = s.cursor.Add(s.params.Granularity) {
		candidate := models.Interval{Start: s.cursor, End: s.cursor.Add(s.params.Duration)}

		if !candidate.Start.After(s.params.Now) {
			continue
		}
		if overlapsAny(candidate, s.params.Busy) {
			continue
		}

		s.cursor = s.cursor.Add(s.params.Granularity)
		return candidate.Start.UTC(), true
	}
	return time.Time{}, false
}

// All materializes the remaining slots from the current position.
func (s *Sequence) All() []time.Time {
	var out []time.Time
	for t, ok := s.Next(); ok; t, ok = s.Next() {
		out = append(out, t)
	}
	return out
}

// Generate is the one-shot form: every offerable slot start for the
// params, in order.
func Generate(p Params) []time.Time {
	return New(p).All()
}

func overlapsAny(candidate models.Interval, busy []models.Interval) bool {
	for _, iv := range busy {
		if candidate.Overlaps(iv) {
			return true
		}
	}
	return false
}
