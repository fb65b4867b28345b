// Package backoff computes reconnect delays for the realtime client.
//
// The policy is a pure function of the attempt number, so it can be unit
// tested without a live connection and shared between the connection manager
// and anything that wants to predict the next delay.
package backoff

import "time"

const (
	// DefaultBase is the delay before the first reconnect attempt.
	DefaultBase = 1 * time.Second
	// DefaultCap bounds the exponential growth of the delay.
	DefaultCap = 30 * time.Second
)

// Policy describes an exponential backoff schedule: the delay for attempt n
// (counted from 1) is Base * 2^(n-1), capped at Cap.
type Policy struct {
	// Base is the delay for the first attempt. Zero means DefaultBase.
	Base time.Duration

	// Cap is the maximum delay. Zero means DefaultCap.
	Cap time.Duration

	// MaxAttempts stops retrying once this many attempts have been made.
	// Zero means retry forever with the delay capped at Cap.
	MaxAttempts int

	// Jitter, when non-nil, is applied to the computed delay. It is nil by
	// default so that the schedule is deterministic; production deployments
	// that fan many clients onto one backend can inject randomization here.
	Jitter func(time.Duration) time.Duration
}

// Default returns a Policy with DefaultBase and DefaultCap, unlimited
// attempts and no jitter.
func Default() Policy {
	return Policy{Base: DefaultBase, Cap: DefaultCap}
}

// NextDelay returns the delay to wait before the given reconnect attempt and
// whether the attempt should be made at all. Attempts are counted from 1;
// values below 1 are treated as 1. The returned delay is always positive
// when the second return value is true.
func (p Policy) NextDelay(attempt int) (time.Duration, bool) {
	if p.MaxAttempts > 0 && attempt > p.MaxAttempts {
		return 0, false
	}

	if attempt < 1 {
		attempt = 1
	}

	base := p.Base
	if base <= 0 {
		base = DefaultBase
	}
	cap := p.Cap
	if cap <= 0 {
		cap = DefaultCap
	}

	// Doubling in a loop rather than via math.Pow keeps the arithmetic in
	// the time.Duration domain and cannot overflow: growth stops at cap.
	delay := base
	for i := 1; i < attempt && delay < cap; i++ {
		delay *= 2
	}
	if delay > cap {
		delay = cap
	}

	if p.Jitter != nil {
		delay = p.Jitter(delay)
		if delay <= 0 {
			delay = base
		}
	}

	return delay, true
}
