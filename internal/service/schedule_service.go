package service

import (
	"context"
	"time"

	"bookline/internal/domain"
	"bookline/internal/metrics"
	"bookline/internal/models"

	"github.com/rs/zerolog"
)

type ScheduleService struct {
	schedules  domain.ScheduleRepository
	activities domain.ActivityRepository
	logger     *zerolog.Logger
}

func NewScheduleService(schedules domain.ScheduleRepository, activities domain.ActivityRepository, logger *zerolog.Logger) *ScheduleService {
	return &ScheduleService{
		schedules:  schedules,
		activities: activities,
		logger:     logger,
	}
}

// GenerateParams describes one recurring generation run.
type GenerateParams struct {
	ActivityID int64             `json:"activity_id"`
	StartDate  time.Time         `json:"start_date"`
	EndDate    time.Time         `json:"end_date"`
	Weekdays   []int             `json:"weekdays"` // 0 = Sunday
	Slots      []models.TimeSlot `json:"time_slots"`
}

// GenerateSchedules expands a recurring pattern into concrete schedules and
// bulk-inserts them, skipping blocked dates, past start times and exact
// duplicates. Returns the number of schedules actually created.
func (s *ScheduleService) GenerateSchedules(ctx context.Context, params GenerateParams) (int, error) {
	activity, err := s.activities.GetActivity(ctx, params.ActivityID)
	if err != nil {
		return 0, err
	}
	availability, err := s.activities.GetAvailability(ctx, params.ActivityID)
	if err != nil {
		return 0, err
	}

	drafts, err := buildOccurrences(activity, params, availability.BlockedDates, time.Now())
	if err != nil {
		return 0, err
	}

	created, err := s.schedules.CreateSchedulesBulk(ctx, drafts)
	if err != nil {
		return 0, err
	}

	metrics.AddSchedulesGenerated(created)
	s.logger.Info().
		Int64("activity_id", params.ActivityID).
		Int("candidates", len(drafts)).
		Int("created", created).
		Msg("schedules generated")
	return created, nil
}

// buildOccurrences is the pure expansion step: every day in [StartDate,
// EndDate] matching the weekday filter and not blocked, crossed with every
// time slot, keeping only start times strictly in the future.
func buildOccurrences(activity *models.Activity, params GenerateParams, blockedDates []time.Time, now time.Time) ([]domain.ScheduleDraft, error) {
	if params.EndDate.Before(params.StartDate) {
		return nil, domain.Invalid("end date %s is before start date %s",
			params.EndDate.Format("2006-01-02"), params.StartDate.Format("2006-01-02"))
	}
	if len(params.Slots) == 0 {
		return nil, domain.Invalid("at least one time slot is required")
	}

	weekdays := make(map[time.Weekday]bool, len(params.Weekdays))
	for _, d := range params.Weekdays {
		if d < 0 || d > 6 {
			return nil, domain.Invalid("invalid weekday %d", d)
		}
		weekdays[time.Weekday(d)] = true
	}

	blocked := make(map[string]bool, len(blockedDates))
	for _, d := range blockedDates {
		blocked[d.Format("2006-01-02")] = true
	}

	var drafts []domain.ScheduleDraft
	start := dayOf(params.StartDate)
	end := dayOf(params.EndDate)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if len(weekdays) > 0 && !weekdays[day.Weekday()] {
			continue
		}
		if blocked[day.Format("2006-01-02")] {
			continue
		}

		for _, slot := range params.Slots {
			clock, err := time.Parse("15:04", slot.StartTime)
			if err != nil {
				return nil, domain.Invalid("invalid slot start time %q: %v", slot.StartTime, err)
			}
			startTime := time.Date(day.Year(), day.Month(), day.Day(),
				clock.Hour(), clock.Minute(), 0, 0, day.Location())

			if !startTime.After(now) {
				continue
			}

			duration := slot.DurationMinutes
			if duration <= 0 {
				duration = activity.DurationMinutes
			}
			maxParticipants := slot.MaxParticipants
			if maxParticipants <= 0 {
				maxParticipants = activity.MaxParticipants
			}

			drafts = append(drafts, domain.ScheduleDraft{
				ActivityID:      activity.ID,
				StartTime:       startTime,
				DurationMinutes: duration,
				MaxParticipants: maxParticipants,
			})
		}
	}
	return drafts, nil
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func (s *ScheduleService) CreateSchedule(ctx context.Context, schedule *models.Schedule) error {
	if _, err := s.activities.GetActivity(ctx, schedule.ActivityID); err != nil {
		return err
	}
	return s.schedules.CreateSchedule(ctx, schedule)
}

func (s *ScheduleService) GetSchedule(ctx context.Context, id int64) (*models.Schedule, error) {
	return s.schedules.GetSchedule(ctx, id)
}

// SchedulesForDay lists an activity's schedules on one calendar day.
func (s *ScheduleService) SchedulesForDay(ctx context.Context, activityID int64, day time.Time) ([]*models.Schedule, error) {
	if _, err := s.activities.GetActivity(ctx, activityID); err != nil {
		return nil, err
	}
	return s.schedules.GetSchedulesByDay(ctx, activityID, day)
}

func (s *ScheduleService) DeleteSchedule(ctx context.Context, id int64) error {
	return s.schedules.DeleteSchedule(ctx, id)
}
