package domain

import "fmt"

// RejectionCode is the machine-readable reason a booking operation refused.
type RejectionCode string

const (
	CodeProviderInactive       RejectionCode = "PROVIDER_INACTIVE"
	CodeInvalidDate            RejectionCode = "INVALID_DATE"
	CodeInsufficientCapacity   RejectionCode = "INSUFFICIENT_CAPACITY"
	CodePackExhausted          RejectionCode = "PACK_EXHAUSTED"
	CodePackExpired            RejectionCode = "PACK_EXPIRED"
	CodeSubscriptionInactive   RejectionCode = "SUBSCRIPTION_INACTIVE"
	CodeBookingLimitReached    RejectionCode = "BOOKING_LIMIT_REACHED"
	CodePaymentSetupIncomplete RejectionCode = "PAYMENT_SETUP_INCOMPLETE"
	CodeScheduleNotFound       RejectionCode = "SCHEDULE_NOT_FOUND"
	CodeBookingNotFound        RejectionCode = "BOOKING_NOT_FOUND"
	CodeUnauthorized           RejectionCode = "UNAUTHORIZED"
	CodeCapacityCheckTimeout   RejectionCode = "CAPACITY_CHECK_TIMEOUT"
)

// Rejection is a business refusal, as opposed to an infrastructure failure.
// Rejections must never be retried automatically; CAPACITY_CHECK_TIMEOUT is
// the one code callers may treat as retryable.
type Rejection struct {
	Code           RejectionCode `json:"code"`
	Message        string        `json:"message"`
	AvailableSpots int           `json:"available_spots,omitempty"`
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Code, r.Message)
}

// Retryable reports whether the caller may retry the operation.
func (r *Rejection) Retryable() bool {
	return r.Code == CodeCapacityCheckTimeout
}

// Reject builds a rejection with a formatted message.
func Reject(code RejectionCode, format string, args ...any) *Rejection {
	return &Rejection{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ValidationError marks malformed input, as opposed to a policy rejection.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Invalid builds a validation error with a formatted message.
func Invalid(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// RejectCapacity builds an INSUFFICIENT_CAPACITY rejection reporting how many
// spots remain.
func RejectCapacity(available int) *Rejection {
	return &Rejection{
		Code:           CodeInsufficientCapacity,
		Message:        fmt.Sprintf("only %d spots available", available),
		AvailableSpots: available,
	}
}
