package database

import (
	"context"
	"testing"
	"time"

	"bookline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedNotification(t *testing.T, db *DB, userID int64) *models.Notification {
	t.Helper()
	n := &models.Notification{
		UserID:  userID,
		Type:    models.NotifyBookingConfirmed,
		Title:   "Booking Confirmed",
		Message: "See you there",
	}
	require.NoError(t, db.CreateNotification(context.Background(), n))
	return n
}

func TestNotifyQueue_Lifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	n := seedNotification(t, db, 7)

	task := &models.NotifyTask{NotificationID: n.ID, Recipient: "jo@example.com"}
	require.NoError(t, db.EnqueueNotifyTask(ctx, task))
	assert.Equal(t, models.TaskPending, task.Status)

	pending, err := db.PendingNotifyTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, task.ID, pending[0].ID)
	assert.Equal(t, "jo@example.com", pending[0].Recipient)

	require.NoError(t, db.UpdateNotifyTaskStatus(ctx, task.ID, models.TaskCompleted, "", nil))

	pending, err = db.PendingNotifyTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestNotifyQueue_RetryBackoff(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	n := seedNotification(t, db, 7)

	task := &models.NotifyTask{NotificationID: n.ID, Recipient: "jo@example.com"}
	require.NoError(t, db.EnqueueNotifyTask(ctx, task))

	// A retry scheduled in the future hides the task from the poller.
	future := time.Now().Add(time.Hour)
	require.NoError(t, db.UpdateNotifyTaskStatus(ctx, task.ID, models.TaskPending, "smtp timeout", &future))

	pending, err := db.PendingNotifyTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// Once the deadline passes it reappears with the attempt recorded.
	past := time.Now().Add(-time.Minute)
	require.NoError(t, db.UpdateNotifyTaskStatus(ctx, task.ID, models.TaskPending, "smtp timeout", &past))

	pending, err = db.PendingNotifyTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].RetryCount)
	require.NotNil(t, pending[0].LastError)
	assert.Equal(t, "smtp timeout", *pending[0].LastError)
}

func TestNotifyQueue_FailedTerminal(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	n := seedNotification(t, db, 7)

	task := &models.NotifyTask{NotificationID: n.ID, Recipient: "jo@example.com"}
	require.NoError(t, db.EnqueueNotifyTask(ctx, task))
	require.NoError(t, db.UpdateNotifyTaskStatus(ctx, task.ID, models.TaskFailed, "mailbox does not exist", nil))

	pending, err := db.PendingNotifyTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPendingNotifyTasks_LimitAndOrder(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	n := seedNotification(t, db, 7)

	var first int64
	for i := 0; i < 5; i++ {
		task := &models.NotifyTask{NotificationID: n.ID, Recipient: "jo@example.com"}
		require.NoError(t, db.EnqueueNotifyTask(ctx, task))
		if i == 0 {
			first = task.ID
		}
	}

	pending, err := db.PendingNotifyTasks(ctx, 2)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first, pending[0].ID, "oldest first")
}

func TestCountRecentNotifications(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	seedNotification(t, db, 7)
	seedNotification(t, db, 7)
	seedNotification(t, db, 8)

	count, err := db.CountRecentNotifications(ctx, 7, models.NotifyBookingConfirmed, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = db.CountRecentNotifications(ctx, 7, models.NotifyUsageAlert, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = db.CountRecentNotifications(ctx, 7, models.NotifyBookingConfirmed, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Zero(t, count, "nothing created after a future cutoff")
}

func TestGetNotification_NotFound(t *testing.T) {
	db := setupTestDB(t)
	_, err := db.GetNotification(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotificationNotFound)
}
