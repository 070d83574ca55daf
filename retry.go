package omnifetch

import (
	"time"

	"github.com/PauloJuniorVitrine/omnifetch/internal/backoff"
)

// RetryPolicy decides whether a failed attempt is re-executed and after what
// delay. attempt counts transport attempts already made, so it is 1 after
// the first failure. Implementations never see HTTP-level successes.
type RetryPolicy interface {
	ShouldRetry(err error, attempt int) (time.Duration, bool)
}

// FixedDelayPolicy retries transport failures after a constant delay until
// maxAttempts total attempts have been made. It is the default policy.
type FixedDelayPolicy struct {
	maxAttempts int
	delay       time.Duration
}

// NewFixedDelayPolicy creates a policy allowing maxAttempts total transport
// attempts with a fixed delay between them.
func NewFixedDelayPolicy(maxAttempts int, delay time.Duration) *FixedDelayPolicy {
	return &FixedDelayPolicy{maxAttempts: maxAttempts, delay: delay}
}

// ShouldRetry implements RetryPolicy. Only transport failures qualify: HTTP
// errors, including 5xx, and expired sessions are final.
func (p *FixedDelayPolicy) ShouldRetry(err error, attempt int) (time.Duration, bool) {
	if attempt >= p.maxAttempts {
		return 0, false
	}
	if !IsRetryable(err) {
		return 0, false
	}
	return p.delay, true
}

// BackoffPolicy retries transport failures with exponentially growing
// jittered delays. It keeps the default policy's retry scope and changes
// only the wait between attempts.
type BackoffPolicy struct {
	maxAttempts int
	initial     time.Duration
	max         time.Duration
	multiplier  float64
	jitter      float64
	strategy    backoff.Strategy
}

// NewBackoffPolicy creates an exponential-jitter retry policy.
func NewBackoffPolicy(maxAttempts int, initial, max time.Duration, multiplier, jitter float64) *BackoffPolicy {
	return &BackoffPolicy{
		maxAttempts: maxAttempts,
		initial:     initial,
		max:         max,
		multiplier:  multiplier,
		jitter:      jitter,
		strategy:    backoff.ExponentialJitter{},
	}
}

// ShouldRetry implements RetryPolicy.
func (p *BackoffPolicy) ShouldRetry(err error, attempt int) (time.Duration, bool) {
	if attempt >= p.maxAttempts {
		return 0, false
	}
	if !IsRetryable(err) {
		return 0, false
	}
	return p.strategy.Delay(attempt, p.initial, p.max, p.multiplier, p.jitter), true
}
