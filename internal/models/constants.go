package models

// Booking statuses. Transitions are driven by the settlement handler or
// explicit cancellation only.
const (
	BookingPending   = "PENDING"
	BookingConfirmed = "CONFIRMED"
	BookingCancelled = "CANCELLED"
	BookingFailed    = "FAILED"
)

// Payment statuses.
const (
	PaymentPending = "PENDING"
	PaymentPaid    = "PAID"
	PaymentFailed  = "FAILED"
)

// Payment types.
const (
	PaymentTypeBooking      = "BOOKING"
	PaymentTypeSubscription = "SUBSCRIPTION"
)

// Subscription statuses.
const (
	SubscriptionActive      = "ACTIVE"
	SubscriptionPastDue     = "PAST_DUE"
	SubscriptionCancelled   = "CANCELLED"
	SubscriptionSuspended   = "SUSPENDED"
	SubscriptionGracePeriod = "GRACE_PERIOD"
)

// Subscription tiers, ordered.
const (
	TierBasic        = "BASIC"
	TierProfessional = "PROFESSIONAL"
	TierEnterprise   = "ENTERPRISE"
)

// Activity lifecycle.
const (
	ActivityDraft  = "DRAFT"
	ActivityActive = "ACTIVE"
)

// Notification types.
const (
	NotifyBookingConfirmed = "BOOKING_CONFIRMED"
	NotifyBookingCancelled = "BOOKING_CANCELLED"
	NotifyPaymentReceived  = "PAYMENT_RECEIVED"
	NotifyPaymentFailed    = "PAYMENT_FAILED"
	NotifyUsageAlert       = "USAGE_ALERT"
)

// Notify queue task statuses, matching the lowercase convention used for
// internal queue rows.
const (
	TaskPending   = "pending"
	TaskCompleted = "completed"
	TaskFailed    = "failed"
)

const (
	// DefaultBufferTimeMinutes applies when an activity has no availability record.
	DefaultBufferTimeMinutes = 15

	// DefaultAdvanceBookingDays applies when an activity has no availability record.
	DefaultAdvanceBookingDays = 30

	// DefaultLockTimeoutSeconds bounds how long a booking transaction may wait
	// for the schedule's write lock.
	DefaultLockTimeoutSeconds = 5

	// ProcessedCallbackTTL is how long settled payment callback IDs are kept
	// for duplicate-delivery detection, in seconds.
	ProcessedCallbackTTL = 7 * 24 * 60 * 60

	// UsageAlertCooldownHours prevents repeat usage alerts for a provider.
	UsageAlertCooldownHours = 24
)
