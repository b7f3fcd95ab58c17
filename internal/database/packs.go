package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bookline/internal/models"
)

var ErrPackNotFound = errors.New("pack not found")

func (db *DB) CreatePack(ctx context.Context, pack *models.Pack) error {
	query := `INSERT INTO packs (activity_id, title, description, sessions, validity_days, price, created_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		pack.ActivityID,
		pack.Title,
		pack.Description,
		pack.Sessions,
		pack.ValidityDays,
		pack.Price,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create pack: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	pack.ID = id
	pack.CreatedAt = now
	return nil
}

func (db *DB) GetPack(ctx context.Context, id int64) (*models.Pack, error) {
	return getPack(ctx, db.DB, id)
}

func getPack(ctx context.Context, q querier, id int64) (*models.Pack, error) {
	var p models.Pack
	query := `SELECT id, activity_id, title, description, sessions, validity_days, price, created_at
              FROM packs WHERE id = ?`
	err := q.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.ActivityID, &p.Title, &p.Description, &p.Sessions, &p.ValidityDays, &p.Price, &p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pack: %w", err)
	}
	return &p, nil
}

func (db *DB) GetActivityPacks(ctx context.Context, activityID int64) ([]*models.Pack, error) {
	query := `SELECT id, activity_id, title, description, sessions, validity_days, price, created_at
              FROM packs WHERE activity_id = ? ORDER BY id ASC`
	rows, err := db.QueryContext(ctx, query, activityID)
	if err != nil {
		return nil, fmt.Errorf("failed to get activity packs: %w", err)
	}
	defer rows.Close()

	var packs []*models.Pack
	for rows.Next() {
		p := &models.Pack{}
		if err := rows.Scan(&p.ID, &p.ActivityID, &p.Title, &p.Description, &p.Sessions, &p.ValidityDays, &p.Price, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pack: %w", err)
		}
		packs = append(packs, p)
	}
	return packs, rows.Err()
}

// DeletePack removes a pack definition. Existing bookings keep their pack_id
// reference for history, so packs with consumed sessions cannot be removed.
func (db *DB) DeletePack(ctx context.Context, id int64) error {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE pack_id = ?`, id).Scan(&count); err != nil {
		return fmt.Errorf("failed to count pack bookings: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("pack %d has bookings and cannot be deleted", id)
	}

	result, err := db.ExecContext(ctx, `DELETE FROM packs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pack: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrPackNotFound
	}
	return nil
}
