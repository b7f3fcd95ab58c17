package service

import (
	"context"
	"testing"

	"bookline/internal/domain"
	"bookline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityService_CreateActivity_Validation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	provider, _, _ := seedBookable(t, db, 10)
	svc := NewActivityService(db, &testLogger)

	var verr *domain.ValidationError

	err := svc.CreateActivity(ctx, &models.Activity{ProviderID: provider.ID, DurationMinutes: 60, MaxParticipants: 10})
	assert.ErrorAs(t, err, &verr, "missing title")

	err = svc.CreateActivity(ctx, &models.Activity{ProviderID: provider.ID, Title: "X", MaxParticipants: 10})
	assert.ErrorAs(t, err, &verr, "missing duration")

	err = svc.CreateActivity(ctx, &models.Activity{ProviderID: provider.ID, Title: "X", DurationMinutes: 60})
	assert.ErrorAs(t, err, &verr, "missing capacity")

	err = svc.CreateActivity(ctx, &models.Activity{
		ProviderID: provider.ID, Title: "X", DurationMinutes: 60, MaxParticipants: 10, Price: -1,
	})
	assert.ErrorAs(t, err, &verr, "negative price")

	assert.NoError(t, svc.CreateActivity(ctx, &models.Activity{
		ProviderID: provider.ID, Title: "Pottery Class", DurationMinutes: 120, MaxParticipants: 8, Price: 350,
	}))
}

func TestActivityService_UpdateAvailability(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, activity, _ := seedBookable(t, db, 10)
	svc := NewActivityService(db, &testLogger)

	availability := &models.Availability{
		ActivityID: activity.ID,
		OperatingHours: []models.OperatingWindow{
			{Weekday: 1, Open: "09:00", Close: "17:00"},
		},
		BufferTimeMinutes:  30,
		AdvanceBookingDays: 14,
	}
	require.NoError(t, svc.UpdateAvailability(ctx, availability))

	stored, err := svc.GetAvailability(ctx, activity.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, stored.BufferTimeMinutes)
	assert.Equal(t, 14, stored.AdvanceBookingDays)
	require.Len(t, stored.OperatingHours, 1)
	assert.Equal(t, "09:00", stored.OperatingHours[0].Open)
}

func TestActivityService_UpdateAvailability_Validation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, activity, _ := seedBookable(t, db, 10)
	svc := NewActivityService(db, &testLogger)

	var verr *domain.ValidationError

	err := svc.UpdateAvailability(ctx, &models.Availability{
		ActivityID: activity.ID, BufferTimeMinutes: -1, AdvanceBookingDays: 14,
	})
	assert.ErrorAs(t, err, &verr)

	err = svc.UpdateAvailability(ctx, &models.Availability{
		ActivityID: activity.ID, AdvanceBookingDays: 0,
	})
	assert.ErrorAs(t, err, &verr)

	err = svc.UpdateAvailability(ctx, &models.Availability{
		ActivityID: activity.ID, AdvanceBookingDays: 14,
		OperatingHours: []models.OperatingWindow{{Weekday: 9, Open: "09:00", Close: "17:00"}},
	})
	assert.ErrorAs(t, err, &verr)

	err = svc.UpdateAvailability(ctx, &models.Availability{
		ActivityID: activity.ID, AdvanceBookingDays: 14,
		OperatingHours: []models.OperatingWindow{{Weekday: 1, Open: "17:00", Close: "09:00"}},
	})
	assert.ErrorAs(t, err, &verr, "closing before opening")

	err = svc.UpdateAvailability(ctx, &models.Availability{
		ActivityID: 9999, AdvanceBookingDays: 14,
	})
	assert.Error(t, err, "unknown activity")
}

func TestActivityService_GetAvailability_DefaultRecord(t *testing.T) {
	db := newTestDB(t)
	_, activity, _ := seedBookable(t, db, 10)
	svc := NewActivityService(db, &testLogger)

	availability, err := svc.GetAvailability(context.Background(), activity.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultBufferTimeMinutes, availability.BufferTimeMinutes)
	assert.Equal(t, models.DefaultAdvanceBookingDays, availability.AdvanceBookingDays)
	assert.Empty(t, availability.BlockedDates)
}
