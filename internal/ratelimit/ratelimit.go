// Package ratelimit provides a wrapper around golang.org/x/time/rate.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter wraps rate.Limiter with convenience methods.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a new rate limiter.
// attemptsPerMinute specifies how many events are allowed per minute.
func New(attemptsPerMinute int) *Limiter {
	// Convert attempts per minute to rate per second
	rps := float64(attemptsPerMinute) / 60.0
	burst := attemptsPerMinute / 10 // Allow burst of 10% of rate limit
	if burst < 1 {
		burst = 1
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// NewWithBurst creates a new rate limiter with explicit burst.
func NewWithBurst(attemptsPerSecond float64, burst int) *Limiter {
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(attemptsPerSecond), burst),
	}
}

// Wait blocks until a token is available or the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Allow reports whether an event may happen now.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Tokens returns the current number of available tokens.
func (l *Limiter) Tokens() float64 {
	return l.limiter.Tokens()
}

// SetLimit updates the rate limit.
func (l *Limiter) SetLimit(attemptsPerMinute int) {
	rps := float64(attemptsPerMinute) / 60.0
	l.limiter.SetLimit(rate.Limit(rps))
}

// SetBurst updates the burst limit.
func (l *Limiter) SetBurst(burst int) {
	l.limiter.SetBurst(burst)
}
