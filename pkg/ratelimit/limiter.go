// Package ratelimit paces queries so the search engine sees a polite,
// human-ish request rate. Waits are context-aware: a cancelled context
// ends the wait within one poll interval.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// pollInterval bounds how long a cancelled wait can linger.
const pollInterval = 100 * time.Millisecond

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow checks if a request is allowed under the current rate limit
	Allow() bool
	// WaitContext blocks until the rate limit allows another request or
	// the context is cancelled
	WaitContext(ctx context.Context) error
	// Reset resets the rate limiter state
	Reset()
}

// TokenBucket implements a token bucket rate limiter
type TokenBucket struct {
	capacity     int           // Maximum number of tokens
	tokens       int           // Current number of tokens
	refillPeriod time.Duration // Period after which bucket is refilled
	lastRefill   time.Time     // Last time the bucket was refilled
	mu           sync.Mutex
}

// NewTokenBucket creates a new token bucket rate limiter
func NewTokenBucket(capacity int, refillPeriod time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity:     capacity,
		tokens:       capacity,
		refillPeriod: refillPeriod,
		lastRefill:   time.Now(),
	}
}

// Allow checks if a request can proceed
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}

	return false
}

// WaitContext blocks until a token is available or ctx is cancelled.
// The wait checks for cancellation every 100ms so a kill-switch trigger
// never has to sit out a full refill period.
func (tb *TokenBucket) WaitContext(ctx context.Context) error {
	for !tb.Allow() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	return nil
}

// Reset resets the token bucket to full capacity
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.lastRefill = time.Now()
}

// refill adds tokens based on elapsed time
func (tb *TokenBucket) refill() {
	now := time.Now()
	if now.Sub(tb.lastRefill) >= tb.refillPeriod {
		tb.tokens = tb.capacity
		tb.lastRefill = now
	}
}
