package service

import (
	"context"
	"time"

	"bookline/internal/domain"
	"bookline/internal/models"

	"github.com/rs/zerolog"
)

type ActivityService struct {
	activities domain.ActivityRepository
	logger     *zerolog.Logger
}

func NewActivityService(activities domain.ActivityRepository, logger *zerolog.Logger) *ActivityService {
	return &ActivityService{activities: activities, logger: logger}
}

func (s *ActivityService) CreateActivity(ctx context.Context, activity *models.Activity) error {
	if activity.Title == "" {
		return domain.Invalid("activity title is required")
	}
	if activity.DurationMinutes < 1 {
		return domain.Invalid("activity duration must be positive")
	}
	if activity.MaxParticipants < 1 {
		return domain.Invalid("activity capacity must be at least 1")
	}
	if activity.Price < 0 {
		return domain.Invalid("activity price cannot be negative")
	}
	return s.activities.CreateActivity(ctx, activity)
}

func (s *ActivityService) GetActivity(ctx context.Context, id int64) (*models.Activity, error) {
	return s.activities.GetActivity(ctx, id)
}

func (s *ActivityService) DeleteActivity(ctx context.Context, id int64) error {
	return s.activities.DeleteActivity(ctx, id)
}

func (s *ActivityService) GetAvailability(ctx context.Context, activityID int64) (*models.Availability, error) {
	return s.activities.GetAvailability(ctx, activityID)
}

// UpdateAvailability validates and stores the activity's scheduling
// constraints. Buffer time is stored configuration; the generator and the
// booking path consume blocked dates and the advance limit.
func (s *ActivityService) UpdateAvailability(ctx context.Context, availability *models.Availability) error {
	if _, err := s.activities.GetActivity(ctx, availability.ActivityID); err != nil {
		return err
	}
	if availability.BufferTimeMinutes < 0 {
		return domain.Invalid("buffer time cannot be negative")
	}
	if availability.AdvanceBookingDays < 1 {
		return domain.Invalid("advance booking limit must be at least one day")
	}
	for _, w := range availability.OperatingHours {
		if w.Weekday < 0 || w.Weekday > 6 {
			return domain.Invalid("invalid weekday %d in operating hours", w.Weekday)
		}
		open, err := time.Parse("15:04", w.Open)
		if err != nil {
			return domain.Invalid("invalid opening time %q: %v", w.Open, err)
		}
		close, err := time.Parse("15:04", w.Close)
		if err != nil {
			return domain.Invalid("invalid closing time %q: %v", w.Close, err)
		}
		if !close.After(open) {
			return domain.Invalid("closing time %s must be after opening time %s", w.Close, w.Open)
		}
	}
	return s.activities.UpsertAvailability(ctx, availability)
}
