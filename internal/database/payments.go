package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bookline/internal/models"
)

var ErrPaymentNotFound = errors.New("payment not found")

func (db *DB) CreatePayment(ctx context.Context, payment *models.Payment) error {
	query := `INSERT INTO payments (id, user_id, booking_id, type, amount, description, status, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	if payment.Status == "" {
		payment.Status = models.PaymentPending
	}
	_, err := db.ExecContext(ctx, query,
		payment.ID,
		payment.UserID,
		payment.BookingID,
		payment.Type,
		payment.Amount,
		payment.Description,
		payment.Status,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	payment.CreatedAt = now
	payment.UpdatedAt = now
	return nil
}

func (db *DB) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	var p models.Payment
	query := `SELECT id, user_id, booking_id, type, amount, description, status, created_at, updated_at
              FROM payments WHERE id = ?`
	err := db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.UserID, &p.BookingID, &p.Type, &p.Amount, &p.Description, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &p, nil
}

// MarkPaid moves a payment from PENDING to PAID and reports whether the
// transition happened. A false result with a nil error means the record was
// already settled, which is how duplicate callbacks become no-ops.
func (db *DB) MarkPaid(ctx context.Context, id string) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE payments SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		models.PaymentPaid, time.Now(), id, models.PaymentPending,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark payment paid: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		// Distinguish "already settled" from "no such payment".
		if _, err := db.GetPayment(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// MarkFailed moves a payment from PENDING to FAILED and reports whether the
// transition happened. A settled payment is never downgraded, so a failure
// callback arriving after settlement is a no-op.
func (db *DB) MarkFailed(ctx context.Context, id string) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE payments SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		models.PaymentFailed, time.Now(), id, models.PaymentPending,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark payment failed: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		if _, err := db.GetPayment(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}
