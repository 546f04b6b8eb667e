package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/simplelru"
)

// MemoryStore keeps counters in a bounded LRU. When full, inserting a new
// identifier evicts the least recently used entry.
type MemoryStore struct {
	mu      sync.Mutex
	lru     *simplelru.LRU
	onEvict func(identifier string)
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithEvictionHook registers a callback invoked for each capacity eviction.
// The callback runs with the store lock held and must not call back into the
// store.
func WithEvictionHook(fn func(identifier string)) MemoryOption {
	return func(s *MemoryStore) {
		s.onEvict = fn
	}
}

// NewMemoryStore creates a store holding at most capacity counters.
func NewMemoryStore(capacity int, opts ...MemoryOption) (*MemoryStore, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("ratelimit: capacity must be positive, got %d", capacity)
	}

	store := &MemoryStore{}
	for _, opt := range opts {
		opt(store)
	}

	cache, err := simplelru.NewLRU(capacity, func(key, _ interface{}) {
		if store.onEvict == nil {
			return
		}
		if id, ok := key.(string); ok {
			store.onEvict(id)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("ratelimit: create lru: %w", err)
	}
	store.lru = cache
	return store, nil
}

// Take implements Store.
func (s *MemoryStore) Take(_ context.Context, identifier string, limit int, ttl time.Duration, now time.Time) (*Counter, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var counter *Counter
	if raw, ok := s.lru.Get(identifier); ok {
		if existing, ok := raw.(*Counter); ok && !existing.Expired(now) {
			counter = existing
		}
	}

	if counter != nil && counter.Count >= limit {
		snapshot := *counter
		return &snapshot, false, nil
	}

	if counter == nil {
		counter = &Counter{Identifier: identifier, ExpiresAt: now.Add(ttl)}
		s.lru.Add(identifier, counter)
	}
	counter.Count++

	snapshot := *counter
	return &snapshot, true, nil
}

// Peek implements Store.
func (s *MemoryStore) Peek(_ context.Context, identifier string, now time.Time) (*Counter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.lru.Peek(identifier)
	if !ok {
		return nil, nil
	}
	counter, ok := raw.(*Counter)
	if !ok || counter.Expired(now) {
		return nil, nil
	}
	snapshot := *counter
	return &snapshot, nil
}

// Len implements Store.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}
