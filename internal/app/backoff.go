package app

import (
	"context"
	"math/rand"
	"time"
)

// Default retry configuration values.
const (
	DefaultMaxAttempts       = 3
	DefaultBackoffBase       = 1 * time.Second
	DefaultBackoffMultiplier = 2.0
	DefaultBackoffMax        = 30 * time.Second
	DefaultBackoffJitter     = 0.2
)

// RetryPolicy bounds how often and how patiently a batch is retried.
type RetryPolicy struct {
	// MaxAttempts counts every attempt, the first one included
	MaxAttempts int

	// Base is the delay before the second attempt
	Base time.Duration

	// Multiplier grows the delay after each failed attempt
	Multiplier float64

	// Max caps a single delay
	Max time.Duration

	// Jitter is the +/- fraction applied to each delay (0.2 = ±20%)
	Jitter float64
}

// DefaultRetryPolicy returns a RetryPolicy with the default values.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		Base:        DefaultBackoffBase,
		Multiplier:  DefaultBackoffMultiplier,
		Max:         DefaultBackoffMax,
		Jitter:      DefaultBackoffJitter,
	}
}

// backoff implements exponential backoff with jitter.
type backoff struct {
	policy  RetryPolicy
	current time.Duration
	rnd     func() float64
}

// newBackoff creates a backoff positioned before the first retry.
func newBackoff(policy RetryPolicy) *backoff {
	if policy.Multiplier < 1 {
		policy.Multiplier = 1
	}
	current := policy.Base
	if policy.Max > 0 && current > policy.Max {
		current = policy.Max
	}
	return &backoff{
		policy:  policy,
		current: current,
		rnd:     rand.Float64,
	}
}

// Next returns the delay before the next attempt and increases it.
func (b *backoff) Next() time.Duration {
	d := b.current
	if b.policy.Jitter > 0 {
		jitter := float64(d) * b.policy.Jitter * (b.rnd()*2 - 1)
		d = time.Duration(float64(d) + jitter)
	}
	if d < 0 {
		d = 0
	}

	// Increase for next time
	b.current = time.Duration(float64(b.current) * b.policy.Multiplier)
	if b.policy.Max > 0 && b.current > b.policy.Max {
		b.current = b.policy.Max
	}
	return d
}

// sleep waits for d. It returns nil early once hurry is closed and returns
// ctx.Err() if ctx ends first.
func sleep(ctx context.Context, hurry <-chan struct{}, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-hurry:
		return nil
	case <-t.C:
		return nil
	}
}
