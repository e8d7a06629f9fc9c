package scheduler

import (
	"math"
	"math/rand"
	"time"
)

// retryPolicy defines the backoff applied to failed materialization tasks
type retryPolicy struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries.
	MaxDelay time.Duration

	// Multiplier is the backoff multiplier applied after each retry.
	Multiplier float64

	// Jitter is a random factor (0-1) applied to the delay.
	Jitter float64
}

// defaultRetryPolicy returns the policy used by the materialization queue.
// 5 attempts, 1 second initial delay, 1 minute max, 2x multiplier, 20% jitter.
func defaultRetryPolicy() retryPolicy {
	return retryPolicy{
		MaxAttempts:  5,
		InitialDelay: 1 * time.Second,
		MaxDelay:     time.Minute,
		Multiplier:   2.0,
		Jitter:       0.2,
	}
}

// NextDelay calculates the delay for the given attempt. Attempt is 1-indexed
// (attempt 1 is the first retry, after the initial try).
func (p retryPolicy) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	multiplier := math.Pow(p.Multiplier, float64(attempt-1))
	delay := time.Duration(float64(p.InitialDelay) * multiplier)

	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	if p.Jitter > 0 {
		jitterFactor := 1 - p.Jitter + 2*p.Jitter*rand.Float64()
		delay = time.Duration(float64(delay) * jitterFactor)
	}

	return delay
}
