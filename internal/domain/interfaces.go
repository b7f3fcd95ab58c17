package domain

import (
	"context"
	"time"

	"bookline/internal/models"
)

// BookingRequest is the orchestrator's input for an atomic booking creation.
type BookingRequest struct {
	ScheduleID      int64
	CustomerID      int64
	Participants    int
	Date            time.Time
	PackID          *int64
	SpecialRequests string
	ContactName     string
	ContactEmail    string
	ContactPhone    string
}

// ScheduleDraft is one generated schedule awaiting bulk insertion.
type ScheduleDraft struct {
	ActivityID      int64
	StartTime       time.Time
	DurationMinutes int
	MaxParticipants int
}

// ActivityRepository reads and writes activities and their availability
// overrides.
type ActivityRepository interface {
	CreateActivity(ctx context.Context, activity *models.Activity) error
	GetActivity(ctx context.Context, id int64) (*models.Activity, error)
	DeleteActivity(ctx context.Context, id int64) error
	GetAvailability(ctx context.Context, activityID int64) (*models.Availability, error)
	UpsertAvailability(ctx context.Context, availability *models.Availability) error
}

// ScheduleRepository reads and writes schedules.
type ScheduleRepository interface {
	CreateSchedule(ctx context.Context, schedule *models.Schedule) error
	GetSchedule(ctx context.Context, id int64) (*models.Schedule, error)
	GetSchedulesByDay(ctx context.Context, activityID int64, day time.Time) ([]*models.Schedule, error)
	DeleteSchedule(ctx context.Context, id int64) error
	CreateSchedulesBulk(ctx context.Context, drafts []ScheduleDraft) (int, error)
}

// BookingRepository covers the booking path. CreateBooking runs the full
// validation sequence and the insert inside one serializable transaction.
type BookingRepository interface {
	CreateBooking(ctx context.Context, req *BookingRequest) (*models.Booking, *models.Payment, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetBookingByPaymentID(ctx context.Context, paymentID string) (*models.Booking, error)
	CancelBooking(ctx context.Context, id int64) (*models.Booking, error)
	CheckAvailability(ctx context.Context, scheduleID int64, participants int) (*models.AvailabilityResult, error)
	ConfirmBookingPaid(ctx context.Context, bookingID int64) error
	FailBookingPayment(ctx context.Context, bookingID int64) error
}

// PackRepository reads and writes session packs.
type PackRepository interface {
	CreatePack(ctx context.Context, pack *models.Pack) error
	GetPack(ctx context.Context, id int64) (*models.Pack, error)
	GetActivityPacks(ctx context.Context, activityID int64) ([]*models.Pack, error)
	DeletePack(ctx context.Context, id int64) error
	GetPackBookings(ctx context.Context, packID, customerID int64) ([]*models.Booking, error)
}

// ProviderRepository reads and writes providers and their subscriptions.
type ProviderRepository interface {
	CreateProvider(ctx context.Context, provider *models.Provider) error
	GetProvider(ctx context.Context, id int64) (*models.Provider, error)
	ActivateSubscription(ctx context.Context, providerID int64, ends time.Time) error
	SetSubscriptionStatus(ctx context.Context, providerID int64, status string) error
	SetProcessorAccount(ctx context.Context, providerID int64, processor models.Processor) error
	MonthlyBookingCount(ctx context.Context, providerID int64) (int, error)
	IncrementMonthlyBookings(ctx context.Context, providerID int64) error
	ResetMonthlyBookings(ctx context.Context, providerID int64) error
	LapsedProviders(ctx context.Context, asOf time.Time) ([]*models.Provider, error)
}

// PaymentRepository reads and writes payment records. Both transitions are
// conditional on the record still being PENDING and report whether they
// happened, which is what makes duplicate or late callbacks no-ops.
type PaymentRepository interface {
	GetPayment(ctx context.Context, id string) (*models.Payment, error)
	MarkPaid(ctx context.Context, id string) (bool, error)
	MarkFailed(ctx context.Context, id string) (bool, error)
}

// NotificationRepository persists in-app notifications and the delivery
// queue consumed by the notification worker.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	CountRecentNotifications(ctx context.Context, userID int64, notifyType string, since time.Time) (int, error)
	EnqueueNotifyTask(ctx context.Context, task *models.NotifyTask) error
	PendingNotifyTasks(ctx context.Context, limit int) ([]*models.NotifyTask, error)
	UpdateNotifyTaskStatus(ctx context.Context, id int64, status string, errMsg string, nextRetryAt *time.Time) error
	GetNotification(ctx context.Context, id int64) (*models.Notification, error)
}

// ProcessedStore deduplicates asynchronous payment callbacks and rate-limits
// the webhook endpoint.
type ProcessedStore interface {
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// EventPublisher fans domain events out to in-process subscribers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// EmailSender delivers a rendered notification. Implementations talk to the
// actual mail infrastructure; the engine never does.
type EmailSender interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// PaymentRequest is the redirectable checkout descriptor handed to the
// external processor client.
type PaymentRequest struct {
	URL    string            `json:"url"`
	Fields map[string]string `json:"fields"`
}

// PaymentClient constructs processor checkout requests from a payment record.
type PaymentClient interface {
	CreatePaymentRequest(payment *models.Payment, itemName, email string) *PaymentRequest
}
