package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix namespaces limiter keys in a shared Redis.
const DefaultRedisKeyPrefix = "picolens:rl"

// takeScript performs the fixed-window compare-and-increment in one round trip.
// The expiry is set when the key is created, or when a key has lost its TTL,
// so the window is never extended and never left open-ended.
var takeScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local ttl_ms = tonumber(ARGV[2])

local count = tonumber(redis.call('GET', key)) or 0
if count > 0 and redis.call('PTTL', key) == -1 then
    redis.call('PEXPIRE', key, ttl_ms)
end
if count >= limit then
    return {0, count, redis.call('PTTL', key)}
end

count = redis.call('INCR', key)
if count == 1 or redis.call('PTTL', key) == -1 then
    redis.call('PEXPIRE', key, ttl_ms)
end

return {1, count, redis.call('PTTL', key)}
`)

// RedisStore keeps counters in Redis so several replicas share one quota.
// Capacity is bounded by key expiry instead of LRU eviction.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient, keyPrefix string) *RedisStore {
	keyPrefix = strings.TrimSpace(keyPrefix)
	if keyPrefix == "" {
		keyPrefix = DefaultRedisKeyPrefix
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisStore) key(identifier string) string {
	return s.keyPrefix + ":" + identifier
}

// Take implements Store.
func (s *RedisStore) Take(ctx context.Context, identifier string, limit int, ttl time.Duration, now time.Time) (*Counter, bool, error) {
	if s == nil || s.client == nil {
		return nil, false, errors.New("ratelimit: redis store not configured")
	}

	values, err := takeScript.Run(ctx, s.client, []string{s.key(identifier)}, limit, ttl.Milliseconds()).Int64Slice()
	if err != nil {
		return nil, false, fmt.Errorf("ratelimit: redis take: %w", err)
	}
	if len(values) != 3 {
		return nil, false, fmt.Errorf("ratelimit: unexpected redis reply length %d", len(values))
	}

	counter := &Counter{
		Identifier: identifier,
		Count:      int(values[1]),
		ExpiresAt:  expiryFromPTTL(now, values[2], ttl),
	}
	return counter, values[0] == 1, nil
}

// Peek implements Store.
func (s *RedisStore) Peek(ctx context.Context, identifier string, now time.Time) (*Counter, error) {
	if s == nil || s.client == nil {
		return nil, errors.New("ratelimit: redis store not configured")
	}

	key := s.key(identifier)
	count, err := s.client.Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ratelimit: redis get: %w", err)
	}

	pttl, err := s.client.PTTL(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("ratelimit: redis pttl: %w", err)
	}
	if pttl <= 0 {
		return nil, nil
	}

	return &Counter{Identifier: identifier, Count: count, ExpiresAt: now.Add(pttl)}, nil
}

// Len implements Store. Redis counters are not enumerated; -1 means unknown.
func (s *RedisStore) Len() int {
	return -1
}

// Ping verifies connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return errors.New("ratelimit: redis store not configured")
	}
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func expiryFromPTTL(now time.Time, pttlMs int64, ttl time.Duration) time.Time {
	if pttlMs <= 0 {
		return now.Add(ttl)
	}
	return now.Add(time.Duration(pttlMs) * time.Millisecond)
}
