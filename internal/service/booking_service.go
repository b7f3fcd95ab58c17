package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookline/internal/domain"
	"bookline/internal/events"
	"bookline/internal/metrics"
	"bookline/internal/models"

	"github.com/rs/zerolog"
)

// BookingService orchestrates booking creation and cancellation. The atomic
// part of the sequence lives in the repository; this layer does date
// validation, payment request construction, events and notifications.
type BookingService struct {
	bookings       domain.BookingRepository
	schedules      domain.ScheduleRepository
	activities     domain.ActivityRepository
	providers      domain.ProviderRepository
	payments       domain.PaymentClient
	notifier       *NotificationService
	eventBus       domain.EventPublisher
	maxAdvanceDays int
	logger         *zerolog.Logger
}

func NewBookingService(
	bookings domain.BookingRepository,
	schedules domain.ScheduleRepository,
	activities domain.ActivityRepository,
	providers domain.ProviderRepository,
	payments domain.PaymentClient,
	notifier *NotificationService,
	eventBus domain.EventPublisher,
	maxAdvanceDays int,
	logger *zerolog.Logger,
) *BookingService {
	if maxAdvanceDays <= 0 {
		maxAdvanceDays = 365
	}
	return &BookingService{
		bookings:       bookings,
		schedules:      schedules,
		activities:     activities,
		providers:      providers,
		payments:       payments,
		notifier:       notifier,
		eventBus:       eventBus,
		maxAdvanceDays: maxAdvanceDays,
		logger:         logger,
	}
}

// CreateBooking validates the requested date, runs the atomic creation and
// returns the pending booking together with the processor checkout request
// the customer is redirected to.
func (s *BookingService) CreateBooking(ctx context.Context, req *domain.BookingRequest) (*models.Booking, *domain.PaymentRequest, error) {
	if req.Participants < 1 {
		return nil, nil, domain.Invalid("participants must be at least 1")
	}

	schedule, err := s.schedules.GetSchedule(ctx, req.ScheduleID)
	if err != nil {
		return nil, nil, s.reject(err)
	}
	availability, err := s.activities.GetAvailability(ctx, schedule.ActivityID)
	if err != nil {
		return nil, nil, err
	}

	if req.Date.IsZero() {
		req.Date = schedule.StartTime
	}
	advanceDays := availability.AdvanceBookingDays
	if advanceDays <= 0 || advanceDays > s.maxAdvanceDays {
		advanceDays = s.maxAdvanceDays
	}
	if err := domain.CheckBookingDate(schedule, req.Date, advanceDays, time.Now()); err != nil {
		return nil, nil, s.reject(err)
	}

	booking, payment, err := s.bookings.CreateBooking(ctx, req)
	if err != nil {
		return nil, nil, s.reject(err)
	}
	metrics.IncBookingCreated()

	activity, err := s.activities.GetActivity(ctx, booking.ActivityID)
	if err != nil {
		return nil, nil, err
	}
	payReq := s.payments.CreatePaymentRequest(payment, activity.Title, req.ContactEmail)

	s.publishEvent(events.EventBookingCreated, booking, "customer", req.CustomerID)
	s.logger.Info().
		Int64("booking_id", booking.ID).
		Int64("schedule_id", booking.ScheduleID).
		Int("participants", booking.Participants).
		Float64("total_price", booking.TotalPrice).
		Msg("booking created")

	return booking, payReq, nil
}

// CancelBooking cancels a booking on behalf of its customer or the provider
// owning the activity. Cancellation frees the schedule's capacity at once.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, actorID int64, actorRole string) (*models.Booking, error) {
	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	activity, err := s.activities.GetActivity(ctx, booking.ActivityID)
	if err != nil {
		return nil, err
	}

	switch actorRole {
	case "customer":
		if booking.CustomerID != actorID {
			return nil, domain.Reject(domain.CodeUnauthorized, "booking belongs to another customer")
		}
	case "provider":
		if activity.ProviderID != actorID {
			return nil, domain.Reject(domain.CodeUnauthorized, "activity belongs to another provider")
		}
	default:
		return nil, domain.Reject(domain.CodeUnauthorized, "unknown actor role %q", actorRole)
	}

	if booking.Status == models.BookingCancelled {
		return booking, nil
	}

	cancelled, err := s.bookings.CancelBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	s.publishEvent(events.EventBookingCancelled, cancelled, actorRole, actorID)

	message := fmt.Sprintf("Booking #%d for %s on %s has been cancelled",
		cancelled.ID, activity.Title, cancelled.Date.Format("2006-01-02 15:04"))
	s.notifier.Notify(ctx, cancelled.CustomerID, cancelled.ContactEmail,
		models.NotifyBookingCancelled, "Booking Cancelled", message)
	if provider, perr := s.providers.GetProvider(ctx, activity.ProviderID); perr == nil {
		s.notifier.Notify(ctx, provider.ID, provider.Email,
			models.NotifyBookingCancelled, "Booking Cancelled", message)
	}

	s.logger.Info().
		Int64("booking_id", cancelled.ID).
		Str("cancelled_by", actorRole).
		Msg("booking cancelled")
	return cancelled, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.bookings.GetBooking(ctx, id)
}

// CheckAvailability reports remaining spots for a schedule. A capacity
// rejection still carries the availability result for the caller to display.
func (s *BookingService) CheckAvailability(ctx context.Context, scheduleID int64, participants int) (*models.AvailabilityResult, error) {
	return s.bookings.CheckAvailability(ctx, scheduleID, participants)
}

// reject counts policy rejections in metrics and passes the error through.
func (s *BookingService) reject(err error) error {
	var rej *domain.Rejection
	if errors.As(err, &rej) {
		metrics.IncBookingRejected(string(rej.Code))
	}
	return err
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, changedBy string, changedByID int64) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:    booking.ID,
		ScheduleID:   booking.ScheduleID,
		ActivityID:   booking.ActivityID,
		CustomerID:   booking.CustomerID,
		Participants: booking.Participants,
		Status:       booking.Status,
		Date:         booking.Date,
		TotalPrice:   booking.TotalPrice,
		ChangedBy:    changedBy,
		ChangedByID:  changedByID,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}
