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

func newSubscriptionService(db *database.DB) *SubscriptionService {
	notifier := NewNotificationService(db, &testLogger)
	return NewSubscriptionService(db, notifier, domain.TierLimits{
		models.TierBasic:        50,
		models.TierProfessional: 200,
	}, 7, &testLogger)
}

func TestSubscriptionService_CreateProvider(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := newSubscriptionService(db)

	provider := &models.Provider{Name: "Surf School", Email: "surf@example.com"}
	require.NoError(t, svc.CreateProvider(ctx, provider))
	assert.Equal(t, models.TierBasic, provider.SubscriptionTier)

	var verr *domain.ValidationError
	err := svc.CreateProvider(ctx, &models.Provider{Name: "No Email"})
	assert.ErrorAs(t, err, &verr)

	err = svc.CreateProvider(ctx, &models.Provider{
		Name: "Bad Tier", Email: "x@example.com", SubscriptionTier: "PLATINUM",
	})
	assert.ErrorAs(t, err, &verr)
}

func TestSubscriptionService_CheckGate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := newSubscriptionService(db)

	provider := &models.Provider{
		Name: "Surf School", Email: "surf@example.com",
		StripeAccountID: "acct_1",
	}
	require.NoError(t, db.CreateProvider(ctx, provider))

	assert.NoError(t, svc.CheckGate(ctx, provider.ID))

	require.NoError(t, db.SetSubscriptionStatus(ctx, provider.ID, models.SubscriptionSuspended))
	err := svc.CheckGate(ctx, provider.ID)
	var rej *domain.Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, domain.CodeSubscriptionInactive, rej.Code)
}

func TestSubscriptionService_UsageSummary(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := newSubscriptionService(db)

	basic := &models.Provider{
		Name: "Basic", Email: "b@example.com", MonthlyBookings: 25,
	}
	require.NoError(t, db.CreateProvider(ctx, basic))

	usage, err := svc.UsageSummary(ctx, basic.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, usage.Used)
	assert.Equal(t, 50, usage.Ceiling)
	assert.InDelta(t, 0.5, usage.Percent, 0.001)
	assert.False(t, usage.Unbounded)

	enterprise := &models.Provider{
		Name: "Big", Email: "e@example.com",
		SubscriptionTier: models.TierEnterprise, MonthlyBookings: 10000,
	}
	require.NoError(t, db.CreateProvider(ctx, enterprise))

	usage, err = svc.UsageSummary(ctx, enterprise.ID)
	require.NoError(t, err)
	assert.True(t, usage.Unbounded)
	assert.Zero(t, usage.Ceiling)
}

func TestSubscriptionService_TrackUsage_AlertWithCooldown(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := newSubscriptionService(db)

	provider := &models.Provider{
		Name: "Busy", Email: "busy@example.com", MonthlyBookings: 45,
	}
	require.NoError(t, db.CreateProvider(ctx, provider))

	svc.TrackUsage(ctx, provider.ID)
	svc.TrackUsage(ctx, provider.ID)

	since := time.Now().Add(-time.Minute)
	alerts, err := db.CountRecentNotifications(ctx, provider.ID, models.NotifyUsageAlert, since)
	require.NoError(t, err)
	assert.Equal(t, 1, alerts, "the cooldown suppresses the repeat alert")
}

func TestSubscriptionService_TrackUsage_BelowThresholdSilent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := newSubscriptionService(db)

	provider := &models.Provider{
		Name: "Quiet", Email: "quiet@example.com", MonthlyBookings: 10,
	}
	require.NoError(t, db.CreateProvider(ctx, provider))

	svc.TrackUsage(ctx, provider.ID)

	alerts, err := db.CountRecentNotifications(ctx, provider.ID, models.NotifyUsageAlert, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Zero(t, alerts)
}

func TestSubscriptionService_SweepLapsed(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := newSubscriptionService(db)
	now := time.Now()

	// Ended three days ago: still inside the 7-day grace window.
	recent := &models.Provider{
		Name: "Recent", Email: "r@example.com",
		SubscriptionEnds: now.AddDate(0, 0, -3),
	}
	require.NoError(t, db.CreateProvider(ctx, recent))

	// Ended two weeks ago: past grace, straight to PAST_DUE.
	old := &models.Provider{
		Name: "Old", Email: "o@example.com",
		SubscriptionEnds: now.AddDate(0, 0, -14),
	}
	require.NoError(t, db.CreateProvider(ctx, old))

	// Paid up: untouched.
	current := &models.Provider{
		Name: "Current", Email: "c@example.com",
		SubscriptionEnds: now.AddDate(0, 1, 0),
	}
	require.NoError(t, db.CreateProvider(ctx, current))

	changed, err := svc.SweepLapsed(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, changed)

	p, err := db.GetProvider(ctx, recent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionGracePeriod, p.SubscriptionStatus)

	p, err = db.GetProvider(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionPastDue, p.SubscriptionStatus)

	p, err = db.GetProvider(ctx, current.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionActive, p.SubscriptionStatus)

	// A second sweep moves nothing until the grace window runs out.
	changed, err = svc.SweepLapsed(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, changed)

	// Past the grace window the GRACE_PERIOD provider is demoted.
	changed, err = svc.SweepLapsed(ctx, now.AddDate(0, 0, 8))
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	p, err = db.GetProvider(ctx, recent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionPastDue, p.SubscriptionStatus)
}

func TestSubscriptionService_ActivateAndLink(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := newSubscriptionService(db)

	provider := &models.Provider{
		Name: "New", Email: "n@example.com",
		SubscriptionStatus: models.SubscriptionPastDue,
	}
	require.NoError(t, db.CreateProvider(ctx, provider))

	require.NoError(t, svc.Activate(ctx, provider.ID))
	p, err := db.GetProvider(ctx, provider.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionActive, p.SubscriptionStatus)
	assert.False(t, p.SubscriptionEnds.IsZero())

	var verr *domain.ValidationError
	err = svc.LinkProcessor(ctx, provider.ID, models.ProcessorStripe, "")
	assert.ErrorAs(t, err, &verr)

	require.NoError(t, svc.LinkProcessor(ctx, provider.ID, models.ProcessorStripe, "acct_9"))
	p, err = db.GetProvider(ctx, provider.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProcessorStripe, p.Processor().Kind)
}
