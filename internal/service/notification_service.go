package service

import (
	"context"
	"time"

	"bookline/internal/domain"
	"bookline/internal/models"

	"github.com/rs/zerolog"
)

// NotificationService creates in-app notifications and queues their email
// delivery for the notification worker.
type NotificationService struct {
	repo   domain.NotificationRepository
	logger *zerolog.Logger
}

func NewNotificationService(repo domain.NotificationRepository, logger *zerolog.Logger) *NotificationService {
	return &NotificationService{repo: repo, logger: logger}
}

// Notify stores the notification and, when a recipient address is known,
// enqueues an email delivery task. Delivery failures never propagate to the
// caller; the booking path must not fail because of notifications.
func (s *NotificationService) Notify(ctx context.Context, userID int64, recipient, notifyType, title, message string) {
	n := &models.Notification{
		UserID:  userID,
		Type:    notifyType,
		Title:   title,
		Message: message,
	}
	if err := s.repo.CreateNotification(ctx, n); err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Str("type", notifyType).Msg("create notification error")
		return
	}

	if recipient == "" {
		return
	}
	task := &models.NotifyTask{
		NotificationID: n.ID,
		Recipient:      recipient,
	}
	if err := s.repo.EnqueueNotifyTask(ctx, task); err != nil {
		s.logger.Error().Err(err).Int64("notification_id", n.ID).Msg("enqueue notify task error")
	}
}

// NotifyWithCooldown suppresses the notification when the user already
// received one of the same type within the cooldown window. Returns whether
// the notification was sent.
func (s *NotificationService) NotifyWithCooldown(ctx context.Context, userID int64, recipient, notifyType, title, message string, cooldown time.Duration) bool {
	count, err := s.repo.CountRecentNotifications(ctx, userID, notifyType, time.Now().Add(-cooldown))
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Str("type", notifyType).Msg("cooldown check error")
		return false
	}
	if count > 0 {
		return false
	}
	s.Notify(ctx, userID, recipient, notifyType, title, message)
	return true
}
