package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bookline/internal/models"
)

var ErrNotificationNotFound = errors.New("notification not found")

func (db *DB) CreateNotification(ctx context.Context, n *models.Notification) error {
	query := `INSERT INTO notifications (user_id, type, title, message, created_at)
              VALUES (?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query, n.UserID, n.Type, n.Title, n.Message, now)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	n.ID = id
	n.CreatedAt = now
	return nil
}

func (db *DB) GetNotification(ctx context.Context, id int64) (*models.Notification, error) {
	var n models.Notification
	query := `SELECT id, user_id, type, title, message, read_at, created_at
              FROM notifications WHERE id = ?`
	err := db.QueryRowContext(ctx, query, id).Scan(
		&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.ReadAt, &n.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return &n, nil
}

// CountRecentNotifications supports alert cooldowns: how many notifications
// of this type the user received since the given time.
func (db *DB) CountRecentNotifications(ctx context.Context, userID int64, notifyType string, since time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = ? AND type = ? AND created_at >= ?`
	if err := db.QueryRowContext(ctx, query, userID, notifyType, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

func (db *DB) EnqueueNotifyTask(ctx context.Context, task *models.NotifyTask) error {
	query := `INSERT INTO notify_queue (notification_id, recipient, status, created_at)
              VALUES (?, ?, ?, ?)`
	now := time.Now()
	if task.Status == "" {
		task.Status = models.TaskPending
	}
	result, err := db.ExecContext(ctx, query, task.NotificationID, task.Recipient, task.Status, now)
	if err != nil {
		return fmt.Errorf("failed to enqueue notify task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	task.ID = id
	task.CreatedAt = now
	return nil
}

// PendingNotifyTasks returns tasks ready for delivery: pending status and
// either never retried or past their backoff deadline.
func (db *DB) PendingNotifyTasks(ctx context.Context, limit int) ([]*models.NotifyTask, error) {
	query := `SELECT id, notification_id, recipient, status, retry_count, last_error, created_at, processed_at, next_retry_at
              FROM notify_queue
              WHERE status = ? AND (next_retry_at IS NULL OR next_retry_at <= ?)
              ORDER BY created_at ASC
              LIMIT ?`
	rows, err := db.QueryContext(ctx, query, models.TaskPending, time.Now(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.NotifyTask
	for rows.Next() {
		t := &models.NotifyTask{}
		err := rows.Scan(
			&t.ID, &t.NotificationID, &t.Recipient, &t.Status, &t.RetryCount,
			&t.LastError, &t.CreatedAt, &t.ProcessedAt, &t.NextRetryAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notify task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// UpdateNotifyTaskStatus records a delivery attempt. Failed attempts bump
// retry_count and set the next retry time; completed ones stamp processed_at.
func (db *DB) UpdateNotifyTaskStatus(ctx context.Context, id int64, status string, errMsg string, nextRetryAt *time.Time) error {
	var err error
	switch status {
	case models.TaskCompleted:
		_, err = db.ExecContext(ctx,
			`UPDATE notify_queue SET status = ?, processed_at = ?, last_error = NULL WHERE id = ?`,
			status, time.Now(), id,
		)
	case models.TaskPending:
		_, err = db.ExecContext(ctx,
			`UPDATE notify_queue SET status = ?, retry_count = retry_count + 1, last_error = ?, next_retry_at = ? WHERE id = ?`,
			status, errMsg, nextRetryAt, id,
		)
	default:
		_, err = db.ExecContext(ctx,
			`UPDATE notify_queue SET status = ?, processed_at = ?, last_error = ? WHERE id = ?`,
			status, time.Now(), errMsg, id,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to update notify task: %w", err)
	}
	return nil
}
