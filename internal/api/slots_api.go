package api

import (
	"context"
	"net/http"
	"time"

	"slotwise/internal/metrics"
	"slotwise/internal/models"
	"slotwise/internal/slots"
	"slotwise/internal/timeutil"
)

// maxSlotRangeDays caps the date-range listing; a month is the widest
// view a booking page shows.
const maxSlotRangeDays = 31

// SlotResponse is one offerable slot.
type SlotResponse struct {
	StartUTC time.Time `json:"start_utc"`
	EndUTC   time.Time `json:"end_utc"`
}

// DaySlots holds one date's offerable slots in a range listing.
type DaySlots struct {
	Date  string         `json:"date"`
	Slots []SlotResponse `json:"slots"`
}

// handleListSlots returns offerable slots for a host and booking type,
// for a single date (?date=YYYY-MM-DD) or per day over an inclusive
// date range (?from=&to=).
// GET /api/v1/hosts/{id}/slots?booking_type_id=N
func (s *HTTPServer) handleListSlots(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("list_slots")

	hostID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	typeID, ok := queryID(w, r, "booking_type_id")
	if !ok {
		return
	}
	bt, err := s.db.GetBookingType(r.Context(), typeID)
	if err != nil || bt.HostID != hostID || !bt.Active {
		writeError(w, http.StatusNotFound, "booking type not found")
		return
	}

	q := r.URL.Query()
	if q.Get("date") != "" {
		date, err := timeutil.ParseDate(q.Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		daySlots, err := s.slotsForDate(r.Context(), hostID, bt, date)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"date":  q.Get("date"),
			"slots": daySlots,
		})
		return
	}

	if q.Get("from") == "" || q.Get("to") == "" {
		writeError(w, http.StatusBadRequest, "date or from/to is required")
		return
	}
	from, err := timeutil.ParseDate(q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := timeutil.ParseDate(q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to must not precede from")
		return
	}
	if to.Sub(from) >= maxSlotRangeDays*24*time.Hour {
		writeError(w, http.StatusBadRequest, "date range too wide")
		return
	}

	days := make([]DaySlots, 0)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		daySlots, err := s.slotsForDate(r.Context(), hostID, bt, d)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		days = append(days, DaySlots{Date: d.Format("2006-01-02"), Slots: daySlots})
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": days})
}

// slotsForDate resolves, aggregates and enumerates one date's slots.
func (s *HTTPServer) slotsForDate(ctx context.Context, hostID int64, bt *models.BookingType, date time.Time) ([]SlotResponse, error) {
	metrics.IncSlotRequest()

	win, err := s.resolver.ResolveWindow(ctx, hostID, date)
	if err != nil {
		return nil, err
	}

	out := []SlotResponse{}
	if win == nil {
		return out, nil
	}

	busyIntervals, err := s.busy.Collect(ctx, hostID, win.Start, win.End)
	if err != nil {
		return nil, err
	}

	starts := slots.Generate(slots.Params{
		Window:      win,
		Duration:    bt.Duration(),
		Busy:        busyIntervals,
		Now:         time.Now(),
		Granularity: s.granularity,
	})
	for _, t := range starts {
		out = append(out, SlotResponse{StartUTC: t, EndUTC: t.Add(bt.Duration())})
	}
	return out, nil
}
