package service

import (
	"context"
	"fmt"
	"time"

	"bookline/internal/domain"
	"bookline/internal/events"
	"bookline/internal/metrics"
	"bookline/internal/models"

	"github.com/rs/zerolog"
)

// Processor callback statuses.
const (
	CallbackComplete  = "COMPLETE"
	CallbackFailed    = "FAILED"
	CallbackCancelled = "CANCELLED"
)

// SettlementService applies asynchronous payment callbacks. Every step is
// idempotent: the processed store absorbs duplicate deliveries cheaply, and
// the conditional PENDING -> PAID transition guarantees that side effects
// like the monthly usage increment run at most once even when the store has
// failed over.
type SettlementService struct {
	payments     domain.PaymentRepository
	bookings     domain.BookingRepository
	activities   domain.ActivityRepository
	providers    domain.ProviderRepository
	subscription *SubscriptionService
	processed    domain.ProcessedStore
	notifier     *NotificationService
	eventBus     domain.EventPublisher
	logger       *zerolog.Logger
}

func NewSettlementService(
	payments domain.PaymentRepository,
	bookings domain.BookingRepository,
	activities domain.ActivityRepository,
	providers domain.ProviderRepository,
	subscription *SubscriptionService,
	processed domain.ProcessedStore,
	notifier *NotificationService,
	eventBus domain.EventPublisher,
	logger *zerolog.Logger,
) *SettlementService {
	return &SettlementService{
		payments:     payments,
		bookings:     bookings,
		activities:   activities,
		providers:    providers,
		subscription: subscription,
		processed:    processed,
		notifier:     notifier,
		eventBus:     eventBus,
		logger:       logger,
	}
}

// HandleCallback processes one validated processor notification. Unknown
// statuses are logged and acknowledged so the processor stops redelivering.
func (s *SettlementService) HandleCallback(ctx context.Context, fields map[string]string) error {
	paymentID := fields["m_payment_id"]
	status := fields["payment_status"]
	if paymentID == "" {
		return fmt.Errorf("callback is missing m_payment_id")
	}

	first, err := s.processed.MarkProcessed(ctx,
		fmt.Sprintf("settlement:%s:%s", paymentID, status),
		models.ProcessedCallbackTTL*time.Second)
	if err != nil {
		s.logger.Error().Err(err).Str("payment_id", paymentID).Msg("processed store error")
	} else if !first {
		s.logger.Info().Str("payment_id", paymentID).Str("status", status).Msg("duplicate callback ignored")
		return nil
	}

	switch status {
	case CallbackComplete:
		return s.settle(ctx, paymentID)
	case CallbackFailed, CallbackCancelled:
		return s.fail(ctx, paymentID)
	default:
		s.logger.Warn().Str("payment_id", paymentID).Str("status", status).Msg("unknown callback status")
		return nil
	}
}

func (s *SettlementService) settle(ctx context.Context, paymentID string) error {
	transitioned, err := s.payments.MarkPaid(ctx, paymentID)
	if err != nil {
		return err
	}
	if !transitioned {
		// Already settled by an earlier delivery.
		s.logger.Info().Str("payment_id", paymentID).Msg("payment already settled")
		return nil
	}

	payment, err := s.payments.GetPayment(ctx, paymentID)
	if err != nil {
		return err
	}
	metrics.IncSettlement("complete")
	s.publishPaymentEvent(events.EventPaymentSettled, payment)

	if payment.Type == models.PaymentTypeSubscription {
		return s.settleSubscription(ctx, payment)
	}
	return s.settleBooking(ctx, payment)
}

func (s *SettlementService) settleBooking(ctx context.Context, payment *models.Payment) error {
	booking, err := s.bookings.GetBookingByPaymentID(ctx, payment.ID)
	if err != nil {
		return err
	}
	if err := s.bookings.ConfirmBookingPaid(ctx, booking.ID); err != nil {
		return err
	}

	activity, err := s.activities.GetActivity(ctx, booking.ActivityID)
	if err != nil {
		return err
	}
	// The usage counter moves on settlement, not on attempt, and the
	// conditional transition above makes this run exactly once per payment.
	if err := s.providers.IncrementMonthlyBookings(ctx, activity.ProviderID); err != nil {
		s.logger.Error().Err(err).Int64("provider_id", activity.ProviderID).Msg("usage increment error")
	}
	s.subscription.TrackUsage(ctx, activity.ProviderID)

	s.notifier.Notify(ctx, booking.CustomerID, booking.ContactEmail,
		models.NotifyBookingConfirmed, "Booking Confirmed",
		fmt.Sprintf("Your booking for %s on %s is confirmed",
			activity.Title, booking.Date.Format("2006-01-02 15:04")))
	if provider, perr := s.providers.GetProvider(ctx, activity.ProviderID); perr == nil {
		s.notifier.Notify(ctx, provider.ID, provider.Email,
			models.NotifyPaymentReceived, "Payment Received",
			fmt.Sprintf("Payment of %.2f received for %s", payment.Amount, activity.Title))
	}

	if s.eventBus != nil {
		payload := events.BookingEventPayload{
			BookingID:    booking.ID,
			ScheduleID:   booking.ScheduleID,
			ActivityID:   booking.ActivityID,
			CustomerID:   booking.CustomerID,
			Participants: booking.Participants,
			Status:       models.BookingConfirmed,
			Date:         booking.Date,
			TotalPrice:   booking.TotalPrice,
			ChangedBy:    "settlement",
		}
		_ = s.eventBus.PublishJSON(events.EventBookingConfirmed, payload)
	}

	s.logger.Info().
		Str("payment_id", payment.ID).
		Int64("booking_id", booking.ID).
		Msg("booking settled")
	return nil
}

func (s *SettlementService) settleSubscription(ctx context.Context, payment *models.Payment) error {
	if err := s.subscription.Activate(ctx, payment.UserID); err != nil {
		return err
	}

	if provider, err := s.providers.GetProvider(ctx, payment.UserID); err == nil {
		s.notifier.Notify(ctx, provider.ID, provider.Email,
			models.NotifyPaymentReceived, "Subscription Payment Successful",
			fmt.Sprintf("Your subscription payment of %.2f has been processed", payment.Amount))
	}
	s.subscription.TrackUsage(ctx, payment.UserID)

	s.logger.Info().
		Str("payment_id", payment.ID).
		Int64("provider_id", payment.UserID).
		Msg("subscription settled")
	return nil
}

func (s *SettlementService) fail(ctx context.Context, paymentID string) error {
	transitioned, err := s.payments.MarkFailed(ctx, paymentID)
	if err != nil {
		return err
	}
	if !transitioned {
		// Already settled or already failed; a late failure callback must
		// not touch the booking.
		s.logger.Info().Str("payment_id", paymentID).Msg("payment already resolved, failure ignored")
		return nil
	}
	payment, err := s.payments.GetPayment(ctx, paymentID)
	if err != nil {
		return err
	}
	metrics.IncSettlement("failed")
	s.publishPaymentEvent(events.EventPaymentFailed, payment)

	if payment.Type == models.PaymentTypeBooking && payment.BookingID != nil {
		if err := s.bookings.FailBookingPayment(ctx, *payment.BookingID); err != nil {
			s.logger.Error().Err(err).Int64("booking_id", *payment.BookingID).Msg("fail booking payment error")
		}
	}

	recipient := ""
	if booking, berr := s.bookings.GetBookingByPaymentID(ctx, paymentID); berr == nil {
		recipient = booking.ContactEmail
	} else if provider, perr := s.providers.GetProvider(ctx, payment.UserID); perr == nil {
		recipient = provider.Email
	}
	s.notifier.Notify(ctx, payment.UserID, recipient,
		models.NotifyPaymentFailed, "Payment Failed",
		fmt.Sprintf("Your payment of %.2f for %s has failed", payment.Amount, payment.Description))

	s.logger.Info().Str("payment_id", paymentID).Msg("payment failed")
	return nil
}

func (s *SettlementService) publishPaymentEvent(eventType string, payment *models.Payment) {
	if s.eventBus == nil {
		return
	}
	payload := events.PaymentEventPayload{
		PaymentID: payment.ID,
		UserID:    payment.UserID,
		BookingID: payment.BookingID,
		Type:      payment.Type,
		Amount:    payment.Amount,
		Status:    payment.Status,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("payment_id", payment.ID).Msg("publish event error")
	}
}
