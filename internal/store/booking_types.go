package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"slotwise/internal/models"
)

// CreateBookingType inserts a new service definition for a host.
func (db *DB) CreateBookingType(ctx context.Context, bt *models.BookingType) error {
	if bt.DurationMinutes <= 0 {
		return fmt.Errorf("duration_minutes must be positive")
	}
	now := time.Now().UTC()
	res, err := db.ExecContext(ctx, `
		INSERT INTO booking_types (host_id, name, duration_minutes, description, price_cents, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		bt.HostID, bt.Name, bt.DurationMinutes, bt.Description, bt.PriceCents, bt.Active, now, now,
	)
	if err != nil {
		return fmt.Errorf("create booking type: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create booking type id: %w", err)
	}
	bt.ID = id
	bt.CreatedAt = now
	bt.UpdatedAt = now
	return nil
}

// GetBookingType returns a booking type by id.
func (db *DB) GetBookingType(ctx context.Context, id int64) (*models.BookingType, error) {
	var bt models.BookingType
	err := db.QueryRowContext(ctx, `
		SELECT id, host_id, name, duration_minutes, description, price_cents, active, created_at, updated_at
		FROM booking_types WHERE id = ?`, id,
	).Scan(
		&bt.ID, &bt.HostID, &bt.Name, &bt.DurationMinutes, &bt.Description,
		&bt.PriceCents, &bt.Active, &bt.CreatedAt, &bt.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrBookingTypeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking type %d: %w", id, err)
	}
	return &bt, nil
}

// ListBookingTypes returns a host's booking types, active first.
func (db *DB) ListBookingTypes(ctx context.Context, hostID int64, activeOnly bool) ([]models.BookingType, error) {
	q := `SELECT id, host_id, name, duration_minutes, description, price_cents, active, created_at, updated_at
	      FROM booking_types WHERE host_id = ?`
	if activeOnly {
		q += ` AND active = 1`
	}
	q += ` ORDER BY active DESC, name`

	rows, err := db.QueryContext(ctx, q, hostID)
	if err != nil {
		return nil, fmt.Errorf("list booking types: %w", err)
	}
	defer rows.Close()

	var out []models.BookingType
	for rows.Next() {
		var bt models.BookingType
		if err := rows.Scan(
			&bt.ID, &bt.HostID, &bt.Name, &bt.DurationMinutes, &bt.Description,
			&bt.PriceCents, &bt.Active, &bt.CreatedAt, &bt.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, bt)
	}
	return out, rows.Err()
}

// UpdateBookingType updates a service definition.
func (db *DB) UpdateBookingType(ctx context.Context, bt *models.BookingType) error {
	if bt.DurationMinutes <= 0 {
		return fmt.Errorf("duration_minutes must be positive")
	}
	res, err := db.ExecContext(ctx, `
		UPDATE booking_types
		SET name = ?, duration_minutes = ?, description = ?, price_cents = ?, active = ?, updated_at = ?
		WHERE id = ? AND host_id = ?`,
		bt.Name, bt.DurationMinutes, bt.Description, bt.PriceCents, bt.Active,
		time.Now().UTC(), bt.ID, bt.HostID,
	)
	if err != nil {
		return fmt.Errorf("update booking type %d: %w", bt.ID, err)
	}
	return requireRow(res, models.ErrBookingTypeNotFound)
}

// DeactivateBookingType hides a booking type from new bookings.
// Existing bookings keep referencing it.
func (db *DB) DeactivateBookingType(ctx context.Context, hostID, id int64) error {
	res, err := db.ExecContext(ctx,
		`UPDATE booking_types SET active = 0, updated_at = ? WHERE id = ? AND host_id = ?`,
		time.Now().UTC(), id, hostID,
	)
	if err != nil {
		return fmt.Errorf("deactivate booking type %d: %w", id, err)
	}
	return requireRow(res, models.ErrBookingTypeNotFound)
}
