package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bookline/internal/models"
)

func (db *DB) CreateActivity(ctx context.Context, activity *models.Activity) error {
	query := `INSERT INTO activities (provider_id, title, description, duration_minutes, price, max_participants, status, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	if activity.Status == "" {
		activity.Status = models.ActivityDraft
	}
	result, err := db.ExecContext(ctx, query,
		activity.ProviderID,
		activity.Title,
		activity.Description,
		activity.DurationMinutes,
		activity.Price,
		activity.MaxParticipants,
		activity.Status,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	activity.ID = id
	activity.CreatedAt = now
	activity.UpdatedAt = now
	return nil
}

func (db *DB) GetActivity(ctx context.Context, id int64) (*models.Activity, error) {
	return getActivity(ctx, db.DB, id)
}

func getActivity(ctx context.Context, q querier, id int64) (*models.Activity, error) {
	var a models.Activity
	query := `SELECT id, provider_id, title, description, duration_minutes, price, max_participants, status, created_at, updated_at
              FROM activities WHERE id = ?`
	err := q.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.ProviderID, &a.Title, &a.Description, &a.DurationMinutes,
		&a.Price, &a.MaxParticipants, &a.Status, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("activity %d not found: %w", id, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	return &a, nil
}

// DeleteActivity removes an activity only when it has no bookings in a
// non-cancelled state.
func (db *DB) DeleteActivity(ctx context.Context, id int64) error {
	var count int
	query := `SELECT COUNT(*) FROM bookings WHERE activity_id = ? AND status != ?`
	if err := db.QueryRowContext(ctx, query, id, models.BookingCancelled).Scan(&count); err != nil {
		return fmt.Errorf("failed to count activity bookings: %w", err)
	}
	if count > 0 {
		return ErrActivityHasBookings
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM availability WHERE activity_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete availability: %w", err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM activities WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete activity: %w", err)
	}
	return nil
}

// GetAvailability returns the activity's availability overrides, or the
// default record when none is stored.
func (db *DB) GetAvailability(ctx context.Context, activityID int64) (*models.Availability, error) {
	var (
		a           models.Availability
		hoursJSON   string
		blockedJSON string
	)
	query := `SELECT activity_id, operating_hours, buffer_time_minutes, advance_booking_days, blocked_dates, updated_at
              FROM availability WHERE activity_id = ?`
	err := db.QueryRowContext(ctx, query, activityID).Scan(
		&a.ActivityID, &hoursJSON, &a.BufferTimeMinutes, &a.AdvanceBookingDays, &blockedJSON, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultAvailability(activityID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get availability: %w", err)
	}

	if err := json.Unmarshal([]byte(hoursJSON), &a.OperatingHours); err != nil {
		return nil, fmt.Errorf("failed to parse operating hours: %w", err)
	}
	if err := json.Unmarshal([]byte(blockedJSON), &a.BlockedDates); err != nil {
		return nil, fmt.Errorf("failed to parse blocked dates: %w", err)
	}
	return &a, nil
}

func (db *DB) UpsertAvailability(ctx context.Context, availability *models.Availability) error {
	hoursJSON, err := json.Marshal(availability.OperatingHours)
	if err != nil {
		return fmt.Errorf("failed to marshal operating hours: %w", err)
	}
	blockedJSON, err := json.Marshal(availability.BlockedDates)
	if err != nil {
		return fmt.Errorf("failed to marshal blocked dates: %w", err)
	}

	query := `INSERT INTO availability (activity_id, operating_hours, buffer_time_minutes, advance_booking_days, blocked_dates, updated_at)
              VALUES (?, ?, ?, ?, ?, ?)
              ON CONFLICT(activity_id) DO UPDATE SET
                  operating_hours = excluded.operating_hours,
                  buffer_time_minutes = excluded.buffer_time_minutes,
                  advance_booking_days = excluded.advance_booking_days,
                  blocked_dates = excluded.blocked_dates,
                  updated_at = excluded.updated_at`
	now := time.Now()
	_, err = db.ExecContext(ctx, query,
		availability.ActivityID,
		string(hoursJSON),
		availability.BufferTimeMinutes,
		availability.AdvanceBookingDays,
		string(blockedJSON),
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert availability: %w", err)
	}
	availability.UpdatedAt = now
	return nil
}
