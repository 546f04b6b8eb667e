package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Default policy values.
const (
	DefaultRequestsPerWindow = 5
	DefaultWindow            = 60 * time.Second
	DefaultCapacity          = 500
)

// Counter is the per-client state for the current window.
type Counter struct {
	Identifier string
	Count      int
	ExpiresAt  time.Time
}

// Expired reports whether the counter no longer belongs to a live window.
func (c *Counter) Expired(now time.Time) bool {
	if c == nil {
		return true
	}
	return !now.Before(c.ExpiresAt)
}

// Store holds counters and performs the compare-and-increment step atomically.
type Store interface {
	// Take admits one request for identifier when its live count is below
	// limit. The returned counter reflects the state after the decision.
	Take(ctx context.Context, identifier string, limit int, ttl time.Duration, now time.Time) (*Counter, bool, error)
	// Peek returns the live counter without touching recency or counts.
	Peek(ctx context.Context, identifier string, now time.Time) (*Counter, error)
	// Len returns the number of entries currently held.
	Len() int
}

// ExceededError is returned when a client has used its quota for the window.
type ExceededError struct {
	Identifier string
	Limit      int
	Window     time.Duration
	ResetAt    time.Time
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s: %d requests per window, resets at %s",
		e.Identifier, e.Limit, e.ResetAt.UTC().Format(time.RFC3339))
}

// Observer receives limiter decisions. Implementations must be safe for
// concurrent use.
type Observer interface {
	Decision(identifier string, admitted bool)
	StoreError(identifier string, err error)
}

// Limiter applies a fixed-window request limit per client identifier.
type Limiter struct {
	Store    Store
	Limit    int
	Window   time.Duration
	Clock    func() time.Time
	Observer Observer
}

// NewLimiter builds a limiter over store with the given policy.
func NewLimiter(store Store, limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = DefaultRequestsPerWindow
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{Store: store, Limit: limit, Window: window}
}

// Check consumes one unit of quota for identifier. It returns an
// *ExceededError when the client is over its limit. Store failures admit the
// request and are reported to the observer.
func (l *Limiter) Check(ctx context.Context, identifier string) error {
	if l == nil || l.Store == nil {
		return nil
	}

	now := l.now()
	_, admitted, err := l.Store.Take(ctx, identifier, l.Limit, l.Window, now)
	if err != nil {
		if l.Observer != nil {
			l.Observer.StoreError(identifier, err)
		}
		return nil
	}

	if l.Observer != nil {
		l.Observer.Decision(identifier, admitted)
	}
	if admitted {
		return nil
	}

	return &ExceededError{
		Identifier: identifier,
		Limit:      l.Limit,
		Window:     l.Window,
		ResetAt:    now.Add(l.Window),
	}
}

// Peek returns the live counter for identifier, or nil when there is none.
func (l *Limiter) Peek(ctx context.Context, identifier string) (*Counter, error) {
	if l == nil || l.Store == nil {
		return nil, nil
	}
	return l.Store.Peek(ctx, identifier, l.now())
}

func (l *Limiter) now() time.Time {
	if l != nil && l.Clock != nil {
		return l.Clock()
	}
	return time.Now().UTC()
}
