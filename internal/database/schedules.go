package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bookline/internal/domain"
	"bookline/internal/models"
)

func (db *DB) CreateSchedule(ctx context.Context, schedule *models.Schedule) error {
	query := `INSERT INTO schedules (activity_id, start_time, duration_minutes, max_participants, price, created_at)
              VALUES (?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		schedule.ActivityID,
		schedule.StartTime,
		schedule.DurationMinutes,
		schedule.MaxParticipants,
		schedule.Price,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create schedule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	schedule.ID = id
	schedule.CreatedAt = now
	return nil
}

func (db *DB) GetSchedule(ctx context.Context, id int64) (*models.Schedule, error) {
	return getSchedule(ctx, db.DB, id)
}

func getSchedule(ctx context.Context, q querier, id int64) (*models.Schedule, error) {
	var s models.Schedule
	query := `SELECT id, activity_id, start_time, duration_minutes, max_participants, price, created_at
              FROM schedules WHERE id = ?`
	err := q.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.ActivityID, &s.StartTime, &s.DurationMinutes, &s.MaxParticipants, &s.Price, &s.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Reject(domain.CodeScheduleNotFound, "schedule not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return &s, nil
}

// DeleteSchedule removes a schedule only when it has no bookings at all;
// schedules are immutable once booked.
func (db *DB) DeleteSchedule(ctx context.Context, id int64) error {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE schedule_id = ?`, id).Scan(&count); err != nil {
		return fmt.Errorf("failed to count schedule bookings: %w", err)
	}
	if count > 0 {
		return ErrScheduleHasBookings
	}

	result, err := db.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.Reject(domain.CodeScheduleNotFound, "schedule not found")
	}
	return nil
}

// CreateSchedulesBulk inserts generated schedules, silently skipping exact
// duplicates on (activity_id, start_time), and returns the created count.
func (db *DB) CreateSchedulesBulk(ctx context.Context, drafts []domain.ScheduleDraft) (int, error) {
	if len(drafts) == 0 {
		return 0, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO schedules
        (activity_id, start_time, duration_minutes, max_participants, created_at)
        VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare bulk insert: %w", err)
	}
	defer stmt.Close()

	created := 0
	now := time.Now()
	for _, d := range drafts {
		result, err := stmt.ExecContext(ctx, d.ActivityID, d.StartTime, d.DurationMinutes, d.MaxParticipants, now)
		if err != nil {
			return 0, fmt.Errorf("failed to insert schedule: %w", err)
		}
		if rows, _ := result.RowsAffected(); rows > 0 {
			created++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit bulk insert: %w", err)
	}
	return created, nil
}

// GetSchedulesByDay returns an activity's schedules starting within the
// given calendar day, earliest first.
func (db *DB) GetSchedulesByDay(ctx context.Context, activityID int64, day time.Time) ([]*models.Schedule, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	query := `SELECT id, activity_id, start_time, duration_minutes, max_participants, price, created_at
              FROM schedules
              WHERE activity_id = ? AND start_time >= ? AND start_time < ?
              ORDER BY start_time ASC`
	rows, err := db.QueryContext(ctx, query, activityID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*models.Schedule
	for rows.Next() {
		s := &models.Schedule{}
		if err := rows.Scan(&s.ID, &s.ActivityID, &s.StartTime, &s.DurationMinutes, &s.MaxParticipants, &s.Price, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}
