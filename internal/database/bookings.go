package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bookline/internal/domain"
	"bookline/internal/models"

	"github.com/google/uuid"
)

// CreateBooking runs the whole booking sequence inside one immediate
// transaction: usage gate, pack consumption, capacity check, booking insert
// and payment insert. Nothing is persisted when any step rejects.
func (db *DB) CreateBooking(ctx context.Context, req *domain.BookingRequest) (*models.Booking, *models.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, db.lockTimeout)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, mapLockErr(err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	schedule, err := getSchedule(ctx, tx, req.ScheduleID)
	if err != nil {
		return nil, nil, err
	}
	activity, err := getActivity(ctx, tx, schedule.ActivityID)
	if err != nil {
		return nil, nil, err
	}
	provider, err := getProvider(ctx, tx, activity.ProviderID)
	if err != nil {
		return nil, nil, err
	}

	// Provider-level gate first; no per-schedule work for a blocked provider.
	if err := domain.CheckProviderSubscription(provider, db.tierLimits); err != nil {
		return nil, nil, err
	}

	totalPrice := schedule.EffectivePrice(activity)
	if req.PackID != nil {
		pack, err := getPack(ctx, tx, *req.PackID)
		if err != nil {
			return nil, nil, err
		}
		prior, err := getPackBookings(ctx, tx, pack.ID, req.CustomerID)
		if err != nil {
			return nil, nil, err
		}
		if err := domain.CheckPack(pack, prior, time.Now()); err != nil {
			return nil, nil, err
		}
		// Pack bookings are always priced at the pack's fixed price.
		totalPrice = pack.Price
	}

	active, err := getActiveBookings(ctx, tx, schedule.ID)
	if err != nil {
		return nil, nil, err
	}
	if _, err := domain.CheckCapacity(schedule, activity, provider, active, req.Participants); err != nil {
		return nil, nil, err
	}

	now := time.Now()
	paymentID := uuid.NewString()

	booking := &models.Booking{
		ScheduleID:      schedule.ID,
		ActivityID:      activity.ID,
		CustomerID:      req.CustomerID,
		Participants:    req.Participants,
		Date:            req.Date,
		Status:          models.BookingPending,
		PaymentStatus:   models.PaymentPending,
		TotalPrice:      totalPrice,
		PackID:          req.PackID,
		SpecialRequests: req.SpecialRequests,
		ContactName:     req.ContactName,
		ContactEmail:    req.ContactEmail,
		ContactPhone:    req.ContactPhone,
		PaymentID:       paymentID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	result, err := tx.ExecContext(ctx, `INSERT INTO bookings
        (schedule_id, activity_id, customer_id, participants, date, status, payment_status,
         total_price, pack_id, special_requests, contact_name, contact_email, contact_phone,
         payment_id, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		booking.ScheduleID, booking.ActivityID, booking.CustomerID, booking.Participants,
		booking.Date, booking.Status, booking.PaymentStatus, booking.TotalPrice,
		booking.PackID, booking.SpecialRequests, booking.ContactName, booking.ContactEmail,
		booking.ContactPhone, booking.PaymentID, now, now,
	)
	if err != nil {
		return nil, nil, mapLockErr(fmt.Errorf("failed to insert booking: %w", err))
	}
	bookingID, err := result.LastInsertId()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get last insert id: %w", err)
	}
	booking.ID = bookingID

	payment := &models.Payment{
		ID:          paymentID,
		UserID:      req.CustomerID,
		BookingID:   &bookingID,
		Type:        models.PaymentTypeBooking,
		Amount:      totalPrice,
		Description: fmt.Sprintf("Booking for %s", activity.Title),
		Status:      models.PaymentPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO payments
        (id, user_id, booking_id, type, amount, description, status, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID, payment.UserID, payment.BookingID, payment.Type, payment.Amount,
		payment.Description, payment.Status, now, now,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to insert payment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, mapLockErr(fmt.Errorf("failed to commit booking: %w", err))
	}
	return booking, payment, nil
}

// CheckAvailability computes remaining capacity for a schedule without
// creating anything. The booking path re-runs the same checks inside its
// transaction; this read-only variant serves "spots left" displays. Each
// schedule is a single dated instance, so capacity needs no date argument.
func (db *DB) CheckAvailability(ctx context.Context, scheduleID int64, participants int) (*models.AvailabilityResult, error) {
	schedule, err := getSchedule(ctx, db.DB, scheduleID)
	if err != nil {
		return nil, err
	}
	activity, err := getActivity(ctx, db.DB, schedule.ActivityID)
	if err != nil {
		return nil, err
	}
	provider, err := getProvider(ctx, db.DB, activity.ProviderID)
	if err != nil {
		return nil, err
	}
	active, err := getActiveBookings(ctx, db.DB, schedule.ID)
	if err != nil {
		return nil, err
	}

	booked := 0
	for _, b := range active {
		booked += b.Participants
	}

	available, err := domain.CheckCapacity(schedule, activity, provider, active, participants)
	result := &models.AvailabilityResult{
		ScheduleID:     schedule.ID,
		AvailableSpots: available,
		Booked:         booked,
	}
	if err != nil {
		return result, err
	}
	return result, nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return getBooking(ctx, db.DB, id)
}

func getBooking(ctx context.Context, q querier, id int64) (*models.Booking, error) {
	var b models.Booking
	query := `SELECT id, schedule_id, activity_id, customer_id, participants, date, status,
                     payment_status, total_price, pack_id, special_requests, contact_name,
                     contact_email, contact_phone, payment_id, created_at, updated_at
              FROM bookings WHERE id = ?`
	err := q.QueryRowContext(ctx, query, id).Scan(
		&b.ID, &b.ScheduleID, &b.ActivityID, &b.CustomerID, &b.Participants, &b.Date,
		&b.Status, &b.PaymentStatus, &b.TotalPrice, &b.PackID, &b.SpecialRequests,
		&b.ContactName, &b.ContactEmail, &b.ContactPhone, &b.PaymentID, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Reject(domain.CodeBookingNotFound, "booking not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &b, nil
}

// GetBookingByPaymentID resolves the booking a settlement callback refers to.
func (db *DB) GetBookingByPaymentID(ctx context.Context, paymentID string) (*models.Booking, error) {
	var id int64
	err := db.QueryRowContext(ctx, `SELECT id FROM bookings WHERE payment_id = ?`, paymentID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Reject(domain.CodeBookingNotFound, "booking not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up booking by payment: %w", err)
	}
	return db.GetBooking(ctx, id)
}

// CancelBooking sets the booking CANCELLED, which immediately frees its
// capacity since cancelled bookings are excluded from the capacity sum.
func (db *DB) CancelBooking(ctx context.Context, id int64) (*models.Booking, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?`,
		models.BookingCancelled, time.Now(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel booking: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return nil, domain.Reject(domain.CodeBookingNotFound, "booking not found")
	}
	return db.GetBooking(ctx, id)
}

// ConfirmBookingPaid marks a booking CONFIRMED/PAID after settlement.
func (db *DB) ConfirmBookingPaid(ctx context.Context, bookingID int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE bookings SET status = ?, payment_status = ?, updated_at = ? WHERE id = ?`,
		models.BookingConfirmed, models.PaymentPaid, time.Now(), bookingID,
	)
	if err != nil {
		return fmt.Errorf("failed to confirm booking: %w", err)
	}
	return nil
}

// FailBookingPayment records a failed payment; the booking status itself is
// left for the customer or provider to resolve explicitly.
func (db *DB) FailBookingPayment(ctx context.Context, bookingID int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE bookings SET payment_status = ?, updated_at = ? WHERE id = ?`,
		models.PaymentFailed, time.Now(), bookingID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark booking payment failed: %w", err)
	}
	return nil
}

func getActiveBookings(ctx context.Context, q querier, scheduleID int64) ([]*models.Booking, error) {
	query := `SELECT id, schedule_id, activity_id, customer_id, participants, date, status,
                     payment_status, total_price, pack_id, special_requests, contact_name,
                     contact_email, contact_phone, payment_id, created_at, updated_at
              FROM bookings WHERE schedule_id = ? AND status IN (?, ?)`
	rows, err := q.QueryContext(ctx, query, scheduleID, models.BookingPending, models.BookingConfirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to get active bookings: %w", err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

func getPackBookings(ctx context.Context, q querier, packID, customerID int64) ([]*models.Booking, error) {
	query := `SELECT id, schedule_id, activity_id, customer_id, participants, date, status,
                     payment_status, total_price, pack_id, special_requests, contact_name,
                     contact_email, contact_phone, payment_id, created_at, updated_at
              FROM bookings
              WHERE pack_id = ? AND customer_id = ? AND status != ?
              ORDER BY created_at ASC, id ASC`
	rows, err := q.QueryContext(ctx, query, packID, customerID, models.BookingCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to get pack bookings: %w", err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

// GetPackBookings returns the customer's non-cancelled bookings against a
// pack, oldest first.
func (db *DB) GetPackBookings(ctx context.Context, packID, customerID int64) ([]*models.Booking, error) {
	return getPackBookings(ctx, db.DB, packID, customerID)
}

func scanBookings(rows *sql.Rows) ([]*models.Booking, error) {
	var bookings []*models.Booking
	for rows.Next() {
		b := &models.Booking{}
		err := rows.Scan(
			&b.ID, &b.ScheduleID, &b.ActivityID, &b.CustomerID, &b.Participants, &b.Date,
			&b.Status, &b.PaymentStatus, &b.TotalPrice, &b.PackID, &b.SpecialRequests,
			&b.ContactName, &b.ContactEmail, &b.ContactPhone, &b.PaymentID, &b.CreatedAt, &b.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
