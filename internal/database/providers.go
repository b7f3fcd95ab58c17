package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bookline/internal/models"
)

var ErrProviderNotFound = errors.New("provider not found")

func (db *DB) CreateProvider(ctx context.Context, provider *models.Provider) error {
	if provider.SubscriptionTier == "" {
		provider.SubscriptionTier = models.TierBasic
	}
	if provider.SubscriptionStatus == "" {
		provider.SubscriptionStatus = models.SubscriptionActive
	}

	query := `INSERT INTO providers
        (name, email, subscription_tier, subscription_status, subscription_ends,
         monthly_bookings, stripe_account_id, lemon_squeezy_store_id, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		provider.Name,
		provider.Email,
		provider.SubscriptionTier,
		provider.SubscriptionStatus,
		nullableTime(provider.SubscriptionEnds),
		provider.MonthlyBookings,
		provider.StripeAccountID,
		provider.LemonSqueezyStoreID,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	provider.ID = id
	provider.CreatedAt = now
	provider.UpdatedAt = now
	return nil
}

func (db *DB) GetProvider(ctx context.Context, id int64) (*models.Provider, error) {
	return getProvider(ctx, db.DB, id)
}

func getProvider(ctx context.Context, q querier, id int64) (*models.Provider, error) {
	var (
		p    models.Provider
		ends sql.NullTime
	)
	query := `SELECT id, name, email, subscription_tier, subscription_status, subscription_ends,
                     monthly_bookings, stripe_account_id, lemon_squeezy_store_id, created_at, updated_at
              FROM providers WHERE id = ?`
	err := q.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Email, &p.SubscriptionTier, &p.SubscriptionStatus, &ends,
		&p.MonthlyBookings, &p.StripeAccountID, &p.LemonSqueezyStoreID, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProviderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}
	p.SubscriptionEnds = ends.Time
	return &p, nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// ActivateSubscription moves a provider to ACTIVE with a new period end.
func (db *DB) ActivateSubscription(ctx context.Context, providerID int64, ends time.Time) error {
	result, err := db.ExecContext(ctx,
		`UPDATE providers SET subscription_status = ?, subscription_ends = ?, updated_at = ? WHERE id = ?`,
		models.SubscriptionActive, ends, time.Now(), providerID,
	)
	if err != nil {
		return fmt.Errorf("failed to activate subscription: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrProviderNotFound
	}
	return nil
}

func (db *DB) SetSubscriptionStatus(ctx context.Context, providerID int64, status string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE providers SET subscription_status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now(), providerID,
	)
	if err != nil {
		return fmt.Errorf("failed to set subscription status: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrProviderNotFound
	}
	return nil
}

// SetProcessorAccount links a payout processor and clears the other one, so
// a provider is always linked to at most one processor.
func (db *DB) SetProcessorAccount(ctx context.Context, providerID int64, processor models.Processor) error {
	var query string
	switch processor.Kind {
	case models.ProcessorStripe:
		query = `UPDATE providers SET stripe_account_id = ?, lemon_squeezy_store_id = '', updated_at = ? WHERE id = ?`
	case models.ProcessorLemonSqueezy:
		query = `UPDATE providers SET lemon_squeezy_store_id = ?, stripe_account_id = '', updated_at = ? WHERE id = ?`
	default:
		return fmt.Errorf("unknown processor kind %q", processor.Kind)
	}

	result, err := db.ExecContext(ctx, query, processor.AccountID, time.Now(), providerID)
	if err != nil {
		return fmt.Errorf("failed to set processor account: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrProviderNotFound
	}
	return nil
}

func (db *DB) MonthlyBookingCount(ctx context.Context, providerID int64) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT monthly_bookings FROM providers WHERE id = ?`, providerID).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrProviderNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get monthly booking count: %w", err)
	}
	return count, nil
}

// IncrementMonthlyBookings bumps the tier usage counter. Called once per
// settled booking, never per attempt.
func (db *DB) IncrementMonthlyBookings(ctx context.Context, providerID int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE providers SET monthly_bookings = monthly_bookings + 1, updated_at = ? WHERE id = ?`,
		time.Now(), providerID,
	)
	if err != nil {
		return fmt.Errorf("failed to increment monthly bookings: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrProviderNotFound
	}
	return nil
}

func (db *DB) ResetMonthlyBookings(ctx context.Context, providerID int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE providers SET monthly_bookings = 0, updated_at = ? WHERE id = ?`,
		time.Now(), providerID,
	)
	if err != nil {
		return fmt.Errorf("failed to reset monthly bookings: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrProviderNotFound
	}
	return nil
}

// ResetAllMonthlyBookings zeroes every provider's usage counter at the start
// of a billing cycle.
func (db *DB) ResetAllMonthlyBookings(ctx context.Context) (int64, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE providers SET monthly_bookings = 0, updated_at = ?`, time.Now(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reset monthly bookings: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows, nil
}

// LapsedProviders lists providers whose paid period ended before asOf and
// who are still in a status the billing sweep can demote.
func (db *DB) LapsedProviders(ctx context.Context, asOf time.Time) ([]*models.Provider, error) {
	query := `SELECT id, name, email, subscription_tier, subscription_status, subscription_ends,
                     monthly_bookings, stripe_account_id, lemon_squeezy_store_id, created_at, updated_at
              FROM providers
              WHERE subscription_status IN (?, ?) AND subscription_ends IS NOT NULL AND subscription_ends < ?`
	rows, err := db.QueryContext(ctx, query, models.SubscriptionActive, models.SubscriptionGracePeriod, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to get lapsed providers: %w", err)
	}
	defer rows.Close()

	var providers []*models.Provider
	for rows.Next() {
		var (
			p    models.Provider
			ends sql.NullTime
		)
		err := rows.Scan(
			&p.ID, &p.Name, &p.Email, &p.SubscriptionTier, &p.SubscriptionStatus, &ends,
			&p.MonthlyBookings, &p.StripeAccountID, &p.LemonSqueezyStoreID, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan provider: %w", err)
		}
		p.SubscriptionEnds = ends.Time
		providers = append(providers, &p)
	}
	return providers, rows.Err()
}
