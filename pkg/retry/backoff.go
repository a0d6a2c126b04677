package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy defines the interface for different backoff strategies.
// Attempt numbers are zero-indexed: the delay before the first retry is
// NextDelay(0).
type BackoffStrategy interface {
	// NextDelay returns the delay to wait after the given failed attempt
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff implements exponential backoff with additive jitter.
// The base delay doubles with every attempt; a uniform random jitter drawn
// from [JitterMin, JitterMax] is added on top to avoid thundering herd.
type ExponentialBackoff struct {
	// BaseDelay is the delay for attempt 0
	BaseDelay time.Duration
	// MaxDelay caps the computed base delay
	MaxDelay time.Duration
	// Multiplier is the factor by which delay increases
	Multiplier float64
	// JitterMin and JitterMax bound the additive uniform jitter
	JitterMin time.Duration
	JitterMax time.Duration
}

// DefaultExponentialBackoff returns the backoff used by the download
// pipeline: 2^attempt seconds plus uniform jitter between 0.1s and 1.0s.
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:  1 * time.Second,
		MaxDelay:   60 * time.Second,
		Multiplier: 2.0,
		JitterMin:  100 * time.Millisecond,
		JitterMax:  1 * time.Second,
	}
}

// BaseFor returns the deterministic portion of the delay for an attempt,
// without jitter
func (eb *ExponentialBackoff) BaseFor(attempt int) time.Duration {
	if attempt < 0 {
		return 0
	}

	delay := float64(eb.BaseDelay) * math.Pow(eb.Multiplier, float64(attempt))
	if eb.MaxDelay > 0 && delay > float64(eb.MaxDelay) {
		delay = float64(eb.MaxDelay)
	}

	return time.Duration(delay)
}

// NextDelay calculates the next delay with exponential backoff and jitter
func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	delay := eb.BaseFor(attempt)

	if eb.JitterMax > eb.JitterMin {
		jitter := eb.JitterMin + time.Duration(rand.Int63n(int64(eb.JitterMax-eb.JitterMin)))
		delay += jitter
	} else if eb.JitterMin > 0 {
		delay += eb.JitterMin
	}

	return delay
}

// ConstantBackoff implements constant delay backoff
type ConstantBackoff struct {
	Delay time.Duration
}

// NextDelay returns a constant delay
func (cb *ConstantBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		return 0
	}
	return cb.Delay
}

// Wait waits for the specified duration or until context is cancelled
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
