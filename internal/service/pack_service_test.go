package service

import (
	"context"
	"testing"
	"time"

	"bookline/internal/database"
	"bookline/internal/domain"
	"bookline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackService_CreatePack_Validation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, activity, _ := seedBookable(t, db, 10)
	svc := NewPackService(db, db, &testLogger)

	var verr *domain.ValidationError

	err := svc.CreatePack(ctx, &models.Pack{ActivityID: activity.ID, Sessions: 0, ValidityDays: 30})
	assert.ErrorAs(t, err, &verr)

	err = svc.CreatePack(ctx, &models.Pack{ActivityID: activity.ID, Sessions: 5, ValidityDays: 0})
	assert.ErrorAs(t, err, &verr)

	err = svc.CreatePack(ctx, &models.Pack{ActivityID: 9999, Sessions: 5, ValidityDays: 30})
	assert.Error(t, err, "pack must belong to an existing activity")

	assert.NoError(t, svc.CreatePack(ctx, &models.Pack{
		ActivityID: activity.ID, Title: "5 Pack", Sessions: 5, ValidityDays: 30, Price: 400,
	}))
}

func TestPackService_Status(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, activity, schedule := seedBookable(t, db, 20)
	svc := NewPackService(db, db, &testLogger)

	pack := &models.Pack{
		ActivityID: activity.ID, Title: "3 Pack", Sessions: 3, ValidityDays: 30, Price: 300,
	}
	require.NoError(t, db.CreatePack(ctx, pack))

	// Untouched pack: full balance, no window yet.
	status, err := svc.Status(ctx, pack.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, 3, status.Remaining)
	assert.Zero(t, status.SessionsUsed)
	assert.Nil(t, status.ValidUntil)
	assert.False(t, status.Expired)

	req := &domain.BookingRequest{
		ScheduleID: schedule.ID, CustomerID: 100, Participants: 1,
		Date: schedule.StartTime, PackID: &pack.ID,
	}
	first, _, err := db.CreateBooking(ctx, req)
	require.NoError(t, err)
	_, _, err = db.CreateBooking(ctx, req)
	require.NoError(t, err)

	status, err = svc.Status(ctx, pack.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, status.SessionsUsed)
	assert.Equal(t, 1, status.Remaining)
	require.NotNil(t, status.ValidUntil)
	assert.False(t, status.Expired)
	assert.WithinDuration(t, first.CreatedAt.AddDate(0, 0, 30), *status.ValidUntil, 2*time.Second)

	// Another customer sees an untouched pack.
	status, err = svc.Status(ctx, pack.ID, 200)
	require.NoError(t, err)
	assert.Equal(t, 3, status.Remaining)
}

func TestPackService_Status_Expired(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, activity, schedule := seedBookable(t, db, 20)
	svc := NewPackService(db, db, &testLogger)

	pack := &models.Pack{
		ActivityID: activity.ID, Title: "Pack", Sessions: 5, ValidityDays: 30, Price: 500,
	}
	require.NoError(t, db.CreatePack(ctx, pack))

	req := &domain.BookingRequest{
		ScheduleID: schedule.ID, CustomerID: 100, Participants: 1,
		Date: schedule.StartTime, PackID: &pack.ID,
	}
	booking, _, err := db.CreateBooking(ctx, req)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `UPDATE bookings SET created_at = ? WHERE id = ?`,
		time.Now().AddDate(0, 0, -31), booking.ID)
	require.NoError(t, err)

	status, err := svc.Status(ctx, pack.ID, 100)
	require.NoError(t, err)
	assert.True(t, status.Expired)
	assert.Equal(t, 4, status.Remaining)
}

func TestPackService_GetPack_NotFound(t *testing.T) {
	db := newTestDB(t)
	svc := NewPackService(db, db, &testLogger)

	_, err := svc.GetPack(context.Background(), 999)
	assert.ErrorIs(t, err, database.ErrPackNotFound)
}
