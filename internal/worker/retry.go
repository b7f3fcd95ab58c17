package worker

import "time"

// RetryPolicy controls the backoff applied to failed notification
// deliveries.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryPolicy is the delivery queue's default: five attempts,
// doubling from two seconds, capped at one minute.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    5,
		InitialDelay:  2 * time.Second,
		MaxDelay:      time.Minute,
		BackoffFactor: 2,
	}
}

// withDefaults fills unset fields from the default policy.
func (r RetryPolicy) withDefaults() RetryPolicy {
	def := DefaultRetryPolicy()
	if r.MaxRetries <= 0 {
		r.MaxRetries = def.MaxRetries
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = def.InitialDelay
	}
	if r.MaxDelay <= 0 {
		r.MaxDelay = def.MaxDelay
	}
	if r.BackoffFactor <= 0 {
		r.BackoffFactor = def.BackoffFactor
	}
	return r
}

// Exhausted reports whether a delivery that has now failed attempt times is
// out of retries.
func (r RetryPolicy) Exhausted(attempt int) bool {
	return attempt >= r.withDefaults().MaxRetries
}

// NextDelay returns the backoff before retrying after the given attempt
// (1-based), growing by BackoffFactor from InitialDelay up to MaxDelay.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	p := r.withDefaults()
	delay := p.InitialDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * p.BackoffFactor)
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}
