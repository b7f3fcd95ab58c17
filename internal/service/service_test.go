package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"bookline/internal/database"
	"bookline/internal/domain"
	"bookline/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var testLogger = zerolog.Nop()

func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "service.db"), &testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	db.SetTierLimits(domain.TierLimits{
		models.TierBasic:        50,
		models.TierProfessional: 200,
	})
	return db
}

// seedBookable creates a provider ready to take bookings, one activity and
// one schedule starting tomorrow.
func seedBookable(t *testing.T, db *database.DB, capacity int) (*models.Provider, *models.Activity, *models.Schedule) {
	t.Helper()
	ctx := context.Background()

	provider := &models.Provider{
		Name:            "Test Provider",
		Email:           "provider@example.com",
		StripeAccountID: "acct_test",
	}
	require.NoError(t, db.CreateProvider(ctx, provider))

	activity := &models.Activity{
		ProviderID:      provider.ID,
		Title:           "Sunset Kayak Tour",
		DurationMinutes: 90,
		Price:           250,
		MaxParticipants: capacity,
		Status:          models.ActivityActive,
	}
	require.NoError(t, db.CreateActivity(ctx, activity))

	schedule := &models.Schedule{
		ActivityID:      activity.ID,
		StartTime:       time.Now().AddDate(0, 0, 1).Truncate(time.Hour),
		DurationMinutes: 90,
	}
	require.NoError(t, db.CreateSchedule(ctx, schedule))

	return provider, activity, schedule
}

// stubPayments satisfies domain.PaymentClient without talking to a processor.
type stubPayments struct{}

func (stubPayments) CreatePaymentRequest(p *models.Payment, itemName, email string) *domain.PaymentRequest {
	return &domain.PaymentRequest{
		URL: "https://processor.test/process",
		Fields: map[string]string{
			"m_payment_id":  p.ID,
			"item_name":     itemName,
			"email_address": email,
		},
	}
}

func newBookingService(db *database.DB, maxAdvanceDays int) *BookingService {
	notifier := NewNotificationService(db, &testLogger)
	return NewBookingService(db, db, db, db, stubPayments{}, notifier, nil, maxAdvanceDays, &testLogger)
}
