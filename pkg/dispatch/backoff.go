package dispatch

import (
	"math"
	"time"
)

// RetryPolicy bounds retries of a throttled or transiently failing call.
type RetryPolicy struct {
	// MaxAttempts caps the total number of calls. 0 means unlimited.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Jitter in [0,1] spreads each delay by +/- that fraction.
	Jitter float64
}

// DefaultThrottlePolicy is used for SendCommand throttling.
func DefaultThrottlePolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 10,
		BaseDelay:   250 * time.Millisecond,
		MaxDelay:    8 * time.Second,
		Jitter:      0.2,
	}
}

// DefaultHandoffPolicy is used for transient Invoke failures.
func DefaultHandoffPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Jitter:      0.2,
	}
}

// Exhausted reports whether no call may follow the given attempt.
func (p RetryPolicy) Exhausted(attempt int) bool {
	return p.MaxAttempts > 0 && attempt >= p.MaxAttempts
}

// Delay returns the wait before retrying after the given attempt (1-based):
// base * 2^(attempt-1), jittered, capped at MaxDelay and floored at 10ms.
// rnd must return values in [0,1).
func (p RetryPolicy) Delay(attempt int, rnd func() float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	base := p.BaseDelay
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = time.Minute
	}

	delay := float64(base) * math.Pow(2, float64(attempt-1))
	if delay > float64(maxDelay) {
		delay = float64(maxDelay)
	}

	jitter := p.Jitter
	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}
	if jitter > 0 && rnd != nil {
		delay *= 1.0 + (rnd()*2-1)*jitter
	}

	d := time.Duration(delay)
	if d > maxDelay {
		d = maxDelay
	}
	if d < 10*time.Millisecond {
		d = 10 * time.Millisecond
	}
	return d
}
