// Package ratelimit implements fixed-window rate limiting keyed by an opaque
// string. Key construction is the caller's responsibility (for example
// "login:203.0.113.10"); the limiter has no knowledge of what a key means.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Result is the outcome of a single rate limit check.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// CounterStore holds the per-key window counters. Incr atomically applies the
// fixed-window transition for one key: within the current window it increments
// the counter; once the window has elapsed it resets to a fresh window with
// count 1. Implementations must serialize access per key so that a counter is
// never lost or double-reset under concurrent callers.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int, windowStart time.Time, err error)
}

// Limiter evaluates fixed-window limits against a CounterStore.
//
// The limiter fails open: when the backing store errors, the call is allowed
// and the failure is logged. Availability of the gated feature takes priority
// over strict throttling; this is a deliberate trade-off, not an oversight,
// and it is the mirror image of the gate's fail-closed identity checks.
type Limiter struct {
	store  CounterStore
	logger *zap.Logger
}

// NewLimiter creates a Limiter backed by the given store.
func NewLimiter(store CounterStore, logger *zap.Logger) *Limiter {
	return &Limiter{store: store, logger: logger}
}

// Allow records one call against key and reports whether it fits within limit
// calls per window. The counter keeps incrementing past the limit, so denied
// calls inside a window never reset the window early.
func (l *Limiter) Allow(ctx context.Context, key string, limit int, window time.Duration) Result {
	count, windowStart, err := l.store.Incr(ctx, key, window)
	if err != nil {
		l.logger.Warn("rate limit store failure, failing open",
			zap.String("key", key),
			zap.Error(err))
		return Result{Allowed: true, Remaining: limit}
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	if count > limit {
		retry := window - time.Since(windowStart)
		if retry < 0 {
			retry = 0
		}
		return Result{Allowed: false, Remaining: remaining, RetryAfter: retry}
	}
	return Result{Allowed: true, Remaining: remaining}
}

type counter struct {
	count       int
	windowStart time.Time
}

// MemoryStore is an in-process CounterStore for single-instance deployments.
// A single mutex serializes the read-increment-compare sequence across keys;
// it never errors.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*counter
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counters: make(map[string]*counter),
		now:      time.Now,
	}
}

// Incr implements CounterStore.
func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c, ok := s.counters[key]
	if !ok || now.Sub(c.windowStart) >= window {
		c = &counter{count: 1, windowStart: now}
		s.counters[key] = c
		return c.count, c.windowStart, nil
	}
	c.count++
	return c.count, c.windowStart, nil
}

// Sweep drops counters whose window started before the cutoff. Call it
// periodically to keep long-lived processes from accumulating dead keys.
func (s *MemoryStore) Sweep(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, c := range s.counters {
		if c.windowStart.Before(cutoff) {
			delete(s.counters, key)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep every interval until ctx is cancelled, dropping
// counters idle for longer than retention.
func (s *MemoryStore) StartSweeper(ctx context.Context, interval, retention time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := s.Sweep(time.Now().Add(-retention))
			if removed > 0 {
				logger.Debug("swept stale rate limit counters", zap.Int("removed", removed))
			}
		case <-ctx.Done():
			return
		}
	}
}
