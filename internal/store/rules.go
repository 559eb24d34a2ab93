package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"slotwise/internal/models"
	"slotwise/internal/timeutil"
)

// GetRuleForDay returns the availability rule for a weekday, or
// sql.ErrNoRows wrapped as a nil rule when none exists.
func (db *DB) GetRuleForDay(ctx context.Context, hostID int64, dayOfWeek int) (*models.AvailabilityRule, error) {
	var r models.AvailabilityRule
	err := db.QueryRowContext(ctx, `
		SELECT id, host_id, day_of_week, start_time, end_time, available, created_at, updated_at
		FROM availability_rules
		WHERE host_id = ? AND day_of_week = ?
		LIMIT 1`,
		hostID, dayOfWeek,
	).Scan(&r.ID, &r.HostID, &r.DayOfWeek, &r.StartTime, &r.EndTime, &r.Available, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rule host %d day %d: %w", hostID, dayOfWeek, err)
	}
	return &r, nil
}

// ListRules returns all of a host's weekly rules ordered by weekday.
func (db *DB) ListRules(ctx context.Context, hostID int64) ([]models.AvailabilityRule, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, host_id, day_of_week, start_time, end_time, available, created_at, updated_at
		FROM availability_rules WHERE host_id = ? ORDER BY day_of_week`,
		hostID,
	)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var out []models.AvailabilityRule
	for rows.Next() {
		var r models.AvailabilityRule
		if err := rows.Scan(&r.ID, &r.HostID, &r.DayOfWeek, &r.StartTime, &r.EndTime, &r.Available, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReplaceWeeklyRules replaces a host's whole weekly schedule in one
// transaction (delete-then-insert, the save semantics of the weekly
// schedule editor).
func (db *DB) ReplaceWeeklyRules(ctx context.Context, hostID int64, rules []models.AvailabilityRule) error {
	if err := validateRules(rules); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace rules: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM availability_rules WHERE host_id = ?`, hostID); err != nil {
		return fmt.Errorf("clear rules: %w", err)
	}

	now := time.Now().UTC()
	for _, r := range rules {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO availability_rules (host_id, day_of_week, start_time, end_time, available, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			hostID, r.DayOfWeek, r.StartTime, r.EndTime, r.Available, now, now,
		); err != nil {
			return fmt.Errorf("insert rule day %d: %w", r.DayOfWeek, err)
		}
	}

	return tx.Commit()
}

func validateRules(rules []models.AvailabilityRule) error {
	seen := map[int]bool{}
	for _, r := range rules {
		if r.DayOfWeek < 0 || r.DayOfWeek > 6 {
			return fmt.Errorf("day_of_week %d out of range", r.DayOfWeek)
		}
		if seen[r.DayOfWeek] {
			return fmt.Errorf("duplicate rule for day %d", r.DayOfWeek)
		}
		seen[r.DayOfWeek] = true

		if !r.Available {
			continue
		}
		sh, sm, err := timeutil.ParseHHMM(r.StartTime)
		if err != nil {
			return fmt.Errorf("invalid start_time on day %d: %w", r.DayOfWeek, err)
		}
		eh, em, err := timeutil.ParseHHMM(r.EndTime)
		if err != nil {
			return fmt.Errorf("invalid end_time on day %d: %w", r.DayOfWeek, err)
		}
		if sh*60+sm >= eh*60+em {
			return fmt.Errorf("start_time must be before end_time on day %d", r.DayOfWeek)
		}
	}
	return nil
}
