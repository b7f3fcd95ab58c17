package models

import "time"

// Activity is a bookable offering owned by exactly one provider.
type Activity struct {
	ID              int64     `json:"id"`
	ProviderID      int64     `json:"provider_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	DurationMinutes int       `json:"duration_minutes"`
	Price           float64   `json:"price"`
	MaxParticipants int       `json:"max_participants"`
	Status          string    `json:"status"` // DRAFT, ACTIVE
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Schedule is one concrete bookable instance of an Activity. MaxParticipants
// and Price are per-instance overrides; nil means "use the activity's value".
type Schedule struct {
	ID              int64     `json:"id"`
	ActivityID      int64     `json:"activity_id"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	MaxParticipants *int      `json:"max_participants,omitempty"`
	Price           *float64  `json:"price,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// EffectiveMaxParticipants returns the schedule override when present, else
// the parent activity's capacity.
func (s *Schedule) EffectiveMaxParticipants(activity *Activity) int {
	if s.MaxParticipants != nil {
		return *s.MaxParticipants
	}
	return activity.MaxParticipants
}

// EffectivePrice returns the schedule override when present, else the parent
// activity's base price.
func (s *Schedule) EffectivePrice(activity *Activity) float64 {
	if s.Price != nil {
		return *s.Price
	}
	return activity.Price
}

// TimeSlot describes one time-of-day slot for recurring schedule generation.
type TimeSlot struct {
	StartTime       string `json:"start_time" yaml:"start_time"` // "15:04"
	DurationMinutes int    `json:"duration_minutes" yaml:"duration_minutes"`
	MaxParticipants int    `json:"max_participants" yaml:"max_participants"`
}

// OperatingWindow is a per-weekday opening window in an availability record.
type OperatingWindow struct {
	Weekday int    `json:"weekday"` // 0 = Sunday
	Open    string `json:"open"`    // "15:04"
	Close   string `json:"close"`
}

// Availability holds per-activity scheduling overrides. Absence of a record
// means "no restriction"; callers get DefaultAvailability instead.
type Availability struct {
	ActivityID         int64             `json:"activity_id"`
	OperatingHours     []OperatingWindow `json:"operating_hours"`
	BufferTimeMinutes  int               `json:"buffer_time_minutes"`
	AdvanceBookingDays int               `json:"advance_booking_days"`
	BlockedDates       []time.Time       `json:"blocked_dates"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// DefaultAvailability is returned when an activity has no stored record.
func DefaultAvailability(activityID int64) *Availability {
	return &Availability{
		ActivityID:         activityID,
		OperatingHours:     []OperatingWindow{},
		BufferTimeMinutes:  DefaultBufferTimeMinutes,
		AdvanceBookingDays: DefaultAdvanceBookingDays,
		BlockedDates:       []time.Time{},
	}
}

// Booking is a reservation against a Schedule.
type Booking struct {
	ID              int64     `json:"id"`
	ScheduleID      int64     `json:"schedule_id"`
	ActivityID      int64     `json:"activity_id"`
	CustomerID      int64     `json:"customer_id"`
	Participants    int       `json:"participants"`
	Date            time.Time `json:"date"`
	Status          string    `json:"status"`
	PaymentStatus   string    `json:"payment_status"`
	TotalPrice      float64   `json:"total_price"`
	PackID          *int64    `json:"pack_id,omitempty"`
	SpecialRequests string    `json:"special_requests,omitempty"`
	ContactName     string    `json:"contact_name"`
	ContactEmail    string    `json:"contact_email"`
	ContactPhone    string    `json:"contact_phone,omitempty"`
	PaymentID       string    `json:"payment_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Active reports whether the booking counts against schedule capacity.
func (b *Booking) Active() bool {
	return b.Status == BookingPending || b.Status == BookingConfirmed
}

// Pack entitles a customer to Sessions bookings of an activity within
// ValidityDays from the creation of the pack's first booking.
type Pack struct {
	ID           int64     `json:"id"`
	ActivityID   int64     `json:"activity_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Sessions     int       `json:"sessions"`
	ValidityDays int       `json:"validity_days"`
	Price        float64   `json:"price"`
	CreatedAt    time.Time `json:"created_at"`
}

// ProcessorKind identifies which payout processor a provider has linked.
type ProcessorKind string

const (
	ProcessorStripe       ProcessorKind = "stripe"
	ProcessorLemonSqueezy ProcessorKind = "lemonsqueezy"
	ProcessorUnconfigured ProcessorKind = "unconfigured"
)

// Processor is the resolved payout account of a provider: a tagged variant
// instead of inspecting optional account fields at every call site.
type Processor struct {
	Kind      ProcessorKind
	AccountID string
}

// Configured reports whether the provider can receive payouts.
func (p Processor) Configured() bool {
	return p.Kind != ProcessorUnconfigured
}

// Provider is an activity owner with a subscription.
type Provider struct {
	ID                  int64     `json:"id"`
	Name                string    `json:"name"`
	Email               string    `json:"email"`
	SubscriptionTier    string    `json:"subscription_tier"`
	SubscriptionStatus  string    `json:"subscription_status"`
	SubscriptionEnds    time.Time `json:"subscription_ends"`
	MonthlyBookings     int       `json:"monthly_bookings"`
	StripeAccountID     string    `json:"stripe_account_id,omitempty"`
	LemonSqueezyStoreID string    `json:"lemon_squeezy_store_id,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Processor resolves the provider's payout account once. Stripe wins when
// both fields are somehow populated; linking flows clear the other field.
func (p *Provider) Processor() Processor {
	switch {
	case p.StripeAccountID != "":
		return Processor{Kind: ProcessorStripe, AccountID: p.StripeAccountID}
	case p.LemonSqueezyStoreID != "":
		return Processor{Kind: ProcessorLemonSqueezy, AccountID: p.LemonSqueezyStoreID}
	default:
		return Processor{Kind: ProcessorUnconfigured}
	}
}

// Payment is the settlement record handed to the external processor.
// ID doubles as the processor's merchant reference.
type Payment struct {
	ID          string    `json:"id"`
	UserID      int64     `json:"user_id"`
	BookingID   *int64    `json:"booking_id,omitempty"`
	Type        string    `json:"type"` // BOOKING, SUBSCRIPTION
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Notification is an in-app message for a user.
type Notification struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// AvailabilityResult is the validator's answer for one schedule.
type AvailabilityResult struct {
	ScheduleID     int64 `json:"schedule_id"`
	AvailableSpots int   `json:"available_spots"`
	Booked         int   `json:"booked"`
}

// NotifyTask is a queued notification delivery job.
type NotifyTask struct {
	ID             int64      `json:"id"`
	NotificationID int64      `json:"notification_id"`
	Recipient      string     `json:"recipient"`
	Status         string     `json:"status"`
	RetryCount     int        `json:"retry_count"`
	LastError      *string    `json:"last_error"`
	CreatedAt      time.Time  `json:"created_at"`
	ProcessedAt    *time.Time `json:"processed_at"`
	NextRetryAt    *time.Time `json:"next_retry_at"`
}
