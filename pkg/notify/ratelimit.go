package notify

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RateLimitStore is the counter backend for the fixed-window limiter.
// Increment bumps the counter for key, starting a new window of the given
// length when none is active, and returns the post-increment count plus the
// moment the window resets.
type RateLimitStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int, resetAt time.Time, err error)
	Reset(ctx context.Context, key string) error
}

// RateLimitResult describes the outcome of a rate-limit check.
type RateLimitResult struct {
	Limit     int       // Maximum notifications per window
	Remaining int       // Remaining budget in the current window
	ResetAt   time.Time // When the current window resets
}

// RetryAfter returns how long to wait before the next attempt may succeed.
// Zero when budget remains.
func (r *RateLimitResult) RetryAfter() time.Duration {
	if r.Remaining > 0 {
		return 0
	}
	return time.Until(r.ResetAt)
}

// RateLimiter enforces a fixed-window cap on notifications created per user.
// The window is approximate: bursts straddling a window boundary can briefly
// exceed the cap, a known and accepted imprecision of fixed windows.
type RateLimiter struct {
	store  RateLimitStore
	limit  int
	window time.Duration
}

// NewRateLimiter creates a limiter allowing limit events per window per key.
func NewRateLimiter(store RateLimitStore, limit int, window time.Duration) (*RateLimiter, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: rate limit store is required", ErrInvalidConfig)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: rate limit must be positive, got %d", ErrInvalidConfig, limit)
	}
	if window <= 0 {
		return nil, fmt.Errorf("%w: rate limit window must be positive, got %v", ErrInvalidConfig, window)
	}
	return &RateLimiter{store: store, limit: limit, window: window}, nil
}

// Allow consumes one unit of the user's budget. Returns ErrRateLimited when
// the window's cap is already reached; the returned result carries the reset
// time either way.
func (l *RateLimiter) Allow(ctx context.Context, userID string) (*RateLimitResult, error) {
	count, resetAt, err := l.store.Increment(ctx, userID, l.window)
	if err != nil {
		return nil, err
	}

	result := &RateLimitResult{
		Limit:     l.limit,
		Remaining: max(l.limit-count, 0),
		ResetAt:   resetAt,
	}
	if count > l.limit {
		return result, fmt.Errorf("%w: user %s exceeded %d per %v", ErrRateLimited, userID, l.limit, l.window)
	}
	return result, nil
}

// Reset clears the user's current window.
func (l *RateLimiter) Reset(ctx context.Context, userID string) error {
	return l.store.Reset(ctx, userID)
}

type rateWindow struct {
	count   int
	resetAt time.Time
}

// MemoryRateLimitStore is the in-process counter backend. One counter and
// reset timestamp per key, guarded by a mutex since creates can race between
// request handlers and the scheduler loop.
type MemoryRateLimitStore struct {
	windows map[string]*rateWindow
	mu      sync.Mutex

	// now is swappable for deterministic window tests.
	now func() time.Time
}

// NewMemoryRateLimitStore creates an empty in-memory counter store.
func NewMemoryRateLimitStore() *MemoryRateLimitStore {
	return &MemoryRateLimitStore{
		windows: make(map[string]*rateWindow),
		now:     time.Now,
	}
}

func (s *MemoryRateLimitStore) Increment(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &rateWindow{resetAt: now.Add(window)}
		s.windows[key] = w
	}

	w.count++
	return w.count, w.resetAt, nil
}

func (s *MemoryRateLimitStore) Reset(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
	return nil
}
