// Package ratelimit implements the per-user fixed-window request
// limiter checked ahead of quota, so bursts never burn daily allowance.
//
// Windows are fixed one-minute buckets aligned to the wall clock
// (floor(now, window)), not sliding windows from the first request.
// State is process-local and lost on restart; the quota ledger, not the
// limiter, is the durable control.
package ratelimit

import (
	"log/slog"
	"sync"
	"time"

	"github.com/moodmate/moodgate/internal/clock"
)

// Limiter tracks request counts per user within the current bucket.
// The per-window limit is supplied by the caller on every check because
// it depends on the user's plan.
type Limiter struct {
	window time.Duration
	clock  clock.Clock
	logger *slog.Logger

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	start time.Time
	count int
}

// New creates a limiter with the given window. Analysis admission uses
// a one-minute window.
func New(window time.Duration, clk clock.Clock, logger *slog.Logger) *Limiter {
	l := &Limiter{
		window:  window,
		clock:   clk,
		logger:  logger,
		buckets: make(map[string]*bucket),
	}

	// Start cleanup goroutine
	go l.cleanup()

	return l
}

// Allow checks and counts a request for userID against limit within the
// current bucket. Denials return the time until the bucket boundary,
// suitable for a Retry-After hint. Independent of quota accounting.
func (l *Limiter) Allow(userID string, limit int) (bool, time.Duration) {
	now := l.clock.Now()
	start := now.Truncate(l.window)
	boundary := start.Add(l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	b, exists := l.buckets[userID]
	if !exists || !b.start.Equal(start) {
		// First request in this bucket
		if limit < 1 {
			return false, boundary.Sub(now)
		}
		l.buckets[userID] = &bucket{start: start, count: 1}
		return true, 0
	}

	if b.count < limit {
		b.count++
		return true, 0
	}

	return false, boundary.Sub(now)
}

// Reset clears the bucket for a user. Used by tests.
func (l *Limiter) Reset(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, userID)
}

// cleanup periodically removes expired buckets to prevent memory leaks.
func (l *Limiter) cleanup() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for range ticker.C {
		now := l.clock.Now()
		l.mu.Lock()
		for key, b := range l.buckets {
			if !now.Before(b.start.Add(l.window)) {
				delete(l.buckets, key)
			}
		}
		l.mu.Unlock()
	}
}
