package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"slotwise/internal/models"
)

// CreateHost inserts a new active host.
func (db *DB) CreateHost(ctx context.Context, h *models.Host) error {
	now := time.Now().UTC()
	if h.Status == "" {
		h.Status = models.HostStatusActive
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO hosts (display_name, email, timezone, status,
			calendar_connected, calendar_account, meeting_connected, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.DisplayName, h.Email, h.Timezone, h.Status,
		h.CalendarConnected, h.CalendarAccount, h.MeetingConnected, now, now,
	)
	if err != nil {
		return fmt.Errorf("create host: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create host id: %w", err)
	}
	h.ID = id
	h.CreatedAt = now
	h.UpdatedAt = now
	return nil
}

// GetHost returns a host by id, including soft-deleted ones; callers
// that must not see deleted hosts check Status themselves.
func (db *DB) GetHost(ctx context.Context, id int64) (*models.Host, error) {
	var h models.Host
	err := db.QueryRowContext(ctx, `
		SELECT id, display_name, email, timezone, status,
		       calendar_connected, calendar_account, meeting_connected, created_at, updated_at
		FROM hosts WHERE id = ?`, id,
	).Scan(
		&h.ID, &h.DisplayName, &h.Email, &h.Timezone, &h.Status,
		&h.CalendarConnected, &h.CalendarAccount, &h.MeetingConnected, &h.CreatedAt, &h.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrHostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get host %d: %w", id, err)
	}
	return &h, nil
}

// GetHostByEmail returns a host by email.
func (db *DB) GetHostByEmail(ctx context.Context, email string) (*models.Host, error) {
	var h models.Host
	err := db.QueryRowContext(ctx, `
		SELECT id, display_name, email, timezone, status,
		       calendar_connected, calendar_account, meeting_connected, created_at, updated_at
		FROM hosts WHERE email = ?`, email,
	).Scan(
		&h.ID, &h.DisplayName, &h.Email, &h.Timezone, &h.Status,
		&h.CalendarConnected, &h.CalendarAccount, &h.MeetingConnected, &h.CreatedAt, &h.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrHostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get host by email: %w", err)
	}
	return &h, nil
}

// UpdateHost updates mutable host settings.
func (db *DB) UpdateHost(ctx context.Context, h *models.Host) error {
	res, err := db.ExecContext(ctx, `
		UPDATE hosts SET display_name = ?, timezone = ?,
			calendar_connected = ?, calendar_account = ?, meeting_connected = ?, updated_at = ?
		WHERE id = ?`,
		h.DisplayName, h.Timezone,
		h.CalendarConnected, h.CalendarAccount, h.MeetingConnected, time.Now().UTC(), h.ID,
	)
	if err != nil {
		return fmt.Errorf("update host %d: %w", h.ID, err)
	}
	return requireRow(res, models.ErrHostNotFound)
}

// SoftDeleteHost transitions a host to the deleted status. The row is
// kept so bookings retain a valid reference.
func (db *DB) SoftDeleteHost(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx,
		`UPDATE hosts SET status = ?, updated_at = ? WHERE id = ?`,
		models.HostStatusDeleted, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("delete host %d: %w", id, err)
	}
	return requireRow(res, models.ErrHostNotFound)
}

func requireRow(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}
