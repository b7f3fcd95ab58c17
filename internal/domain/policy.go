package domain

import (
	"time"

	"bookline/internal/models"
)

// TierLimits maps a subscription tier to its monthly booking ceiling.
// A zero ceiling means unbounded (ENTERPRISE).
type TierLimits map[string]int

// CeilingFor returns the monthly booking ceiling for a tier and whether the
// tier is bounded at all.
func (t TierLimits) CeilingFor(tier string) (int, bool) {
	limit, ok := t[tier]
	if !ok || limit <= 0 {
		return 0, false
	}
	return limit, true
}

// CheckProviderSubscription runs the usage gate against a loaded provider
// row: subscription status, monthly booking ceiling, payout-account linkage,
// in that order.
func CheckProviderSubscription(p *models.Provider, limits TierLimits) error {
	if p.SubscriptionStatus != models.SubscriptionActive {
		return Reject(CodeSubscriptionInactive, "provider subscription inactive")
	}
	if ceiling, bounded := limits.CeilingFor(p.SubscriptionTier); bounded && p.MonthlyBookings >= ceiling {
		return Reject(CodeBookingLimitReached, "monthly booking limit reached")
	}
	if !p.Processor().Configured() {
		return Reject(CodePaymentSetupIncomplete, "provider payment setup incomplete")
	}
	return nil
}

// CheckPack validates pack consumption against the customer's prior
// non-cancelled bookings, ordered by creation time ascending. The validity
// window is anchored at the first booking's creation time, not the pack's.
func CheckPack(pack *models.Pack, priorBookings []*models.Booking, now time.Time) error {
	if len(priorBookings) >= pack.Sessions {
		return Reject(CodePackExhausted, "all sessions in this pack have been used")
	}
	if len(priorBookings) > 0 {
		validUntil := priorBookings[0].CreatedAt.AddDate(0, 0, pack.ValidityDays)
		if now.After(validUntil) {
			return Reject(CodePackExpired, "pack has expired")
		}
	}
	return nil
}

// CheckCapacity validates a booking request against a schedule loaded with
// its activity, owning provider, and the schedule's active bookings. Returns
// the available spot count on success.
func CheckCapacity(
	schedule *models.Schedule,
	activity *models.Activity,
	provider *models.Provider,
	activeBookings []*models.Booking,
	participants int,
) (int, error) {
	if provider.SubscriptionStatus != models.SubscriptionActive {
		return 0, Reject(CodeProviderInactive, "this activity is currently unavailable")
	}

	booked := 0
	for _, b := range activeBookings {
		booked += b.Participants
	}

	available := schedule.EffectiveMaxParticipants(activity) - booked
	if participants > available {
		if available < 0 {
			available = 0
		}
		return available, RejectCapacity(available)
	}
	return available, nil
}

// CheckBookingDate rejects dates in the past or beyond the activity's
// advance-booking limit. The schedule's own start time is the canonical date
// for single-instance schedules; an explicit mismatch at day granularity is
// an INVALID_DATE.
func CheckBookingDate(schedule *models.Schedule, requested time.Time, advanceDays int, now time.Time) error {
	if requested.Before(now.AddDate(0, 0, -1)) {
		return Reject(CodeInvalidDate, "selected date is in the past")
	}
	if advanceDays > 0 && requested.After(now.AddDate(0, 0, advanceDays)) {
		return Reject(CodeInvalidDate, "selected date is beyond the advance booking limit")
	}
	if !sameDay(requested, schedule.StartTime) {
		return Reject(CodeInvalidDate, "selected date does not match the schedule")
	}
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
