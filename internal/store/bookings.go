package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"slotwise/internal/models"
)

const bookingColumns = `id, host_id, booking_type_id, client_name, client_email, client_phone,
	start_utc, end_utc, status, notes, calendar_event_id, meeting_id, meeting_join_url,
	created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(
		&b.ID, &b.HostID, &b.BookingTypeID, &b.ClientName, &b.ClientEmail, &b.ClientPhone,
		&b.StartUTC, &b.EndUTC, &b.Status, &b.Notes, &b.CalendarEventID, &b.MeetingID, &b.MeetingJoinURL,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.StartUTC = b.StartUTC.UTC()
	b.EndUTC = b.EndUTC.UTC()
	return &b, nil
}

// GetBooking returns a booking by id.
func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	b, err := scanBooking(db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", id, err)
	}
	return b, nil
}

// ListConfirmedInRange returns confirmed bookings whose [start,end)
// interval intersects [from, to).
func (db *DB) ListConfirmedInRange(ctx context.Context, hostID int64, from, to time.Time) ([]models.Booking, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE host_id = ? AND status = 'confirmed' AND start_utc < ? AND end_utc > ?
		ORDER BY start_utc`,
		hostID, to.UTC(), from.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list confirmed bookings: %w", err)
	}
	defer rows.Close()
	return collectBookings(rows)
}

// BookingFilter narrows ListBookings results.
type BookingFilter struct {
	Status string
	From   time.Time
	To     time.Time
	Limit  int
}

// ListBookings returns a host's bookings ordered by start time.
func (db *DB) ListBookings(ctx context.Context, hostID int64, f BookingFilter) ([]models.Booking, error) {
	var (
		conds = []string{"host_id = ?"}
		args  = []any{hostID}
	)
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if !f.From.IsZero() {
		conds = append(conds, "start_utc >= ?")
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		conds = append(conds, "start_utc < ?")
		args = append(args, f.To.UTC())
	}

	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY start_utc`
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()
	return collectBookings(rows)
}

func collectBookings(rows *sql.Rows) ([]models.Booking, error) {
	var out []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// CreateBooking inserts a confirmed booking inside an immediate
// transaction that re-checks for overlapping confirmed bookings. The
// transaction plus the partial unique index on (host_id, start_utc)
// make concurrent creates for the same interval lose deterministically.
func (db *DB) CreateBooking(ctx context.Context, b *models.Booking) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create booking: %w", err)
	}
	defer tx.Rollback()

	conflict, err := overlapExists(ctx, tx, b.HostID, b.StartUTC, b.EndUTC, "")
	if err != nil {
		return err
	}
	if conflict {
		return &models.SlotUnavailableError{Reason: models.ReasonAlreadyBooked}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO bookings (id, host_id, booking_type_id, client_name, client_email, client_phone,
			start_utc, end_utc, status, notes, calendar_event_id, meeting_id, meeting_join_url,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.HostID, b.BookingTypeID, b.ClientName, b.ClientEmail, b.ClientPhone,
		b.StartUTC.UTC(), b.EndUTC.UTC(), models.StatusConfirmed, b.Notes,
		b.CalendarEventID, b.MeetingID, b.MeetingJoinURL, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &models.SlotUnavailableError{Reason: models.ReasonAlreadyBooked}
		}
		return fmt.Errorf("insert booking: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit booking: %w", err)
	}
	b.Status = models.StatusConfirmed
	b.CreatedAt = now
	b.UpdatedAt = now
	return nil
}

// UpdateBookingTimes atomically replaces a booking's interval
// (reschedule), re-checking overlap against every other confirmed
// booking inside the same transaction.
func (db *DB) UpdateBookingTimes(ctx context.Context, id string, start, end time.Time) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reschedule: %w", err)
	}
	defer tx.Rollback()

	var hostID int64
	err = tx.QueryRowContext(ctx, `SELECT host_id FROM bookings WHERE id = ?`, id).Scan(&hostID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrBookingNotFound
	}
	if err != nil {
		return fmt.Errorf("load booking %s: %w", id, err)
	}

	conflict, err := overlapExists(ctx, tx, hostID, start, end, id)
	if err != nil {
		return err
	}
	if conflict {
		return &models.SlotUnavailableError{Reason: models.ReasonAlreadyBooked}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET start_utc = ?, end_utc = ?, updated_at = ? WHERE id = ? AND status = 'confirmed'`,
		start.UTC(), end.UTC(), time.Now().UTC(), id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &models.SlotUnavailableError{Reason: models.ReasonAlreadyBooked}
		}
		return fmt.Errorf("reschedule booking %s: %w", id, err)
	}
	if err := requireRow(res, models.ErrBookingNotFound); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateBookingStatus transitions a booking's status.
func (db *DB) UpdateBookingStatus(ctx context.Context, id, status string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update booking %s status: %w", id, err)
	}
	return requireRow(res, models.ErrBookingNotFound)
}

// SetExternalRefs records the calendar event / meeting created for a
// booking after the booking itself committed.
func (db *DB) SetExternalRefs(ctx context.Context, id, calendarEventID, meetingID, joinURL string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE bookings SET calendar_event_id = ?, meeting_id = ?, meeting_join_url = ?, updated_at = ?
		WHERE id = ?`,
		calendarEventID, meetingID, joinURL, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("set external refs for %s: %w", id, err)
	}
	return nil
}

func overlapExists(ctx context.Context, tx *sql.Tx, hostID int64, start, end time.Time, excludeID string) (bool, error) {
	var count int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bookings
		WHERE host_id = ? AND status = 'confirmed' AND id != ?
		  AND start_utc < ? AND end_utc > ?`,
		hostID, excludeID, end.UTC(), start.UTC(),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("overlap check: %w", err)
	}
	return count > 0, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}
