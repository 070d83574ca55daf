// Package backoff provides delay calculation strategies for retry policies.
package backoff

import (
	"math/rand"
	"time"
)

// Strategy computes the wait before a retry. attempt counts completed
// transport attempts, so the first retry is calculated with attempt=1.
type Strategy interface {
	Delay(attempt int, initial, max time.Duration, multiplier, jitter float64) time.Duration
}

// Fixed waits the initial delay between every attempt. It backs the default
// retry policy.
type Fixed struct{}

// Delay implements Strategy. max, multiplier and jitter are ignored.
func (Fixed) Delay(_ int, initial, _ time.Duration, _, _ float64) time.Duration {
	return initial
}

// ExponentialJitter grows the delay geometrically and adds uniform jitter,
// capped at max.
type ExponentialJitter struct{}

// Delay implements Strategy.
func (ExponentialJitter) Delay(attempt int, initial, max time.Duration, multiplier, jitter float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	// Large exponents overflow time.Duration.
	if attempt > 30 {
		attempt = 30
	}

	d := time.Duration(float64(initial) * Pow(multiplier, attempt-1))
	if d < 0 || d > max {
		d = max
	}

	jitter = clampJitter(jitter)
	if jitter > 0 {
		amount := time.Duration(float64(d) * jitter * rand.Float64())
		if d+amount > max {
			d = max
		} else {
			d += amount
		}
	}
	return d
}

func clampJitter(jitter float64) float64 {
	if jitter < 0 {
		return 0
	}
	if jitter > 1 {
		return 1
	}
	return jitter
}

// Pow computes base^exponent by repeated multiplication, avoiding math.Pow
// on the retry path.
func Pow(base float64, exponent int) float64 {
	result := 1.0
	for i := 0; i < exponent; i++ {
		result *= base
	}
	return result
}
