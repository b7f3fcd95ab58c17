package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"bookline/internal/domain"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

var (
	// ErrConcurrentModification signals an optimistic-version conflict.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrActivityHasBookings blocks deletion of an activity with bookings in
	// a non-cancelled state.
	ErrActivityHasBookings = errors.New("activity has active bookings")

	// ErrScheduleHasBookings blocks deletion of a booked schedule.
	ErrScheduleHasBookings = errors.New("schedule has existing bookings")
)

type DB struct {
	*sql.DB
	logger      *zerolog.Logger
	tierLimits  domain.TierLimits
	lockTimeout time.Duration
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// _txlock=immediate makes write transactions take the write lock at BEGIN,
	// which serializes the capacity check and insert on the booking path.
	dsn := fmt.Sprintf(
		"file:%s?_busy_timeout=%d&_journal_mode=WAL&_foreign_keys=on&_txlock=immediate",
		path, int(defaultLockTimeout/time.Millisecond),
	)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return &DB{
		DB:          db,
		logger:      logger,
		tierLimits:  domain.TierLimits{},
		lockTimeout: defaultLockTimeout,
	}, nil
}

const defaultLockTimeout = 5 * time.Second

// SetTierLimits injects the subscription ceiling table used by the usage
// gate inside the booking transaction.
func (db *DB) SetTierLimits(limits domain.TierLimits) {
	db.tierLimits = limits
}

// SetLockTimeout bounds how long a booking transaction may wait for the
// schedule's write lock before surfacing CAPACITY_CHECK_TIMEOUT.
func (db *DB) SetLockTimeout(d time.Duration) {
	if d > 0 {
		db.lockTimeout = d
	}
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS providers (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            email TEXT NOT NULL,
            subscription_tier TEXT NOT NULL DEFAULT 'BASIC',
            subscription_status TEXT NOT NULL DEFAULT 'ACTIVE',
            subscription_ends DATETIME,
            monthly_bookings INTEGER NOT NULL DEFAULT 0,
            stripe_account_id TEXT NOT NULL DEFAULT '',
            lemon_squeezy_store_id TEXT NOT NULL DEFAULT '',
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS activities (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            provider_id INTEGER NOT NULL REFERENCES providers(id),
            title TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            duration_minutes INTEGER NOT NULL,
            price REAL NOT NULL,
            max_participants INTEGER NOT NULL,
            status TEXT NOT NULL DEFAULT 'DRAFT',
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS schedules (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            activity_id INTEGER NOT NULL REFERENCES activities(id),
            start_time DATETIME NOT NULL,
            duration_minutes INTEGER NOT NULL,
            max_participants INTEGER,
            price REAL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            UNIQUE(activity_id, start_time)
        )`,
		`CREATE TABLE IF NOT EXISTS availability (
            activity_id INTEGER PRIMARY KEY REFERENCES activities(id),
            operating_hours TEXT NOT NULL DEFAULT '[]',
            buffer_time_minutes INTEGER NOT NULL DEFAULT 15,
            advance_booking_days INTEGER NOT NULL DEFAULT 30,
            blocked_dates TEXT NOT NULL DEFAULT '[]',
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS packs (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            activity_id INTEGER NOT NULL REFERENCES activities(id),
            title TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            sessions INTEGER NOT NULL,
            validity_days INTEGER NOT NULL,
            price REAL NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS bookings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            schedule_id INTEGER NOT NULL REFERENCES schedules(id),
            activity_id INTEGER NOT NULL REFERENCES activities(id),
            customer_id INTEGER NOT NULL,
            participants INTEGER NOT NULL,
            date DATETIME NOT NULL,
            status TEXT NOT NULL DEFAULT 'PENDING',
            payment_status TEXT NOT NULL DEFAULT 'PENDING',
            total_price REAL NOT NULL,
            pack_id INTEGER REFERENCES packs(id),
            special_requests TEXT NOT NULL DEFAULT '',
            contact_name TEXT NOT NULL DEFAULT '',
            contact_email TEXT NOT NULL DEFAULT '',
            contact_phone TEXT NOT NULL DEFAULT '',
            payment_id TEXT NOT NULL DEFAULT '',
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS payments (
            id TEXT PRIMARY KEY,
            user_id INTEGER NOT NULL,
            booking_id INTEGER REFERENCES bookings(id),
            type TEXT NOT NULL,
            amount REAL NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'PENDING',
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS notifications (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id INTEGER NOT NULL,
            type TEXT NOT NULL,
            title TEXT NOT NULL,
            message TEXT NOT NULL,
            read_at DATETIME,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS notify_queue (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            notification_id INTEGER NOT NULL REFERENCES notifications(id),
            recipient TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            retry_count INTEGER NOT NULL DEFAULT 0,
            last_error TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            processed_at DATETIME,
            next_retry_at DATETIME
        )`,

		`CREATE INDEX IF NOT EXISTS idx_schedules_activity_id ON schedules(activity_id)`,
		`CREATE INDEX IF NOT EXISTS idx_schedules_start_time ON schedules(start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_schedule_id ON bookings(schedule_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_pack_id ON bookings(pack_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_customer_id ON bookings(customer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_booking_id ON payments(booking_id)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON notifications(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_notify_queue_status ON notify_queue(status)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx so row loaders can run
// standalone or inside the booking transaction.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// mapLockErr converts lock-wait failures into the retryable
// CAPACITY_CHECK_TIMEOUT rejection; other errors pass through.
func mapLockErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.Reject(domain.CodeCapacityCheckTimeout, "timed out waiting for schedule lock")
	}
	var serr sqlite3.Error
	if errors.As(err, &serr) && (serr.Code == sqlite3.ErrBusy || serr.Code == sqlite3.ErrLocked) {
		return domain.Reject(domain.CodeCapacityCheckTimeout, "timed out waiting for schedule lock")
	}
	return err
}

func (db *DB) Close() error {
	return db.DB.Close()
}
