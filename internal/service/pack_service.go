package service

import (
	"context"
	"time"

	"bookline/internal/domain"
	"bookline/internal/models"

	"github.com/rs/zerolog"
)

type PackService struct {
	packs      domain.PackRepository
	activities domain.ActivityRepository
	logger     *zerolog.Logger
}

func NewPackService(packs domain.PackRepository, activities domain.ActivityRepository, logger *zerolog.Logger) *PackService {
	return &PackService{
		packs:      packs,
		activities: activities,
		logger:     logger,
	}
}

func (s *PackService) CreatePack(ctx context.Context, pack *models.Pack) error {
	if pack.Sessions < 1 {
		return domain.Invalid("pack must include at least one session")
	}
	if pack.ValidityDays < 1 {
		return domain.Invalid("pack validity must be at least one day")
	}
	if _, err := s.activities.GetActivity(ctx, pack.ActivityID); err != nil {
		return err
	}
	return s.packs.CreatePack(ctx, pack)
}

func (s *PackService) GetPack(ctx context.Context, id int64) (*models.Pack, error) {
	return s.packs.GetPack(ctx, id)
}

func (s *PackService) GetActivityPacks(ctx context.Context, activityID int64) ([]*models.Pack, error) {
	return s.packs.GetActivityPacks(ctx, activityID)
}

func (s *PackService) DeletePack(ctx context.Context, id int64) error {
	return s.packs.DeletePack(ctx, id)
}

// PackStatus is a customer's consumption state against one pack.
type PackStatus struct {
	PackID       int64      `json:"pack_id"`
	Sessions     int        `json:"sessions"`
	SessionsUsed int        `json:"sessions_used"`
	Remaining    int        `json:"remaining"`
	ValidUntil   *time.Time `json:"valid_until,omitempty"`
	Expired      bool       `json:"expired"`
}

// Status reports how many sessions a customer has left on a pack. The
// validity window opens when the first booking is created, not when the pack
// is bought.
func (s *PackService) Status(ctx context.Context, packID, customerID int64) (*PackStatus, error) {
	pack, err := s.packs.GetPack(ctx, packID)
	if err != nil {
		return nil, err
	}
	bookings, err := s.packs.GetPackBookings(ctx, packID, customerID)
	if err != nil {
		return nil, err
	}

	status := &PackStatus{
		PackID:       pack.ID,
		Sessions:     pack.Sessions,
		SessionsUsed: len(bookings),
		Remaining:    pack.Sessions - len(bookings),
	}
	if status.Remaining < 0 {
		status.Remaining = 0
	}
	if len(bookings) > 0 {
		validUntil := bookings[0].CreatedAt.AddDate(0, 0, pack.ValidityDays)
		status.ValidUntil = &validUntil
		status.Expired = time.Now().After(validUntil)
	}
	return status, nil
}
