package pipeline

import (
	"time"
)

// RetryPolicy controls per-stage retry behavior. Exponential backoff is the
// single policy: delay = InitialDelay * BackoffMultiplier^(attempt-1), capped
// at MaxDelay.
type RetryPolicy struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// DefaultRetryPolicy gives each stage three attempts with a one second base
// delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       3,
		InitialDelay:      time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// Delay returns the backoff before the given attempt number (1-based). The
// first attempt has no delay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	d := float64(p.InitialDelay)
	for i := 2; i < attempt; i++ {
		d *= p.BackoffMultiplier
	}
	delay := time.Duration(d)
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}
