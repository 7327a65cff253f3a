package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimitStore is a Redis-backed counter backend, for deployments
// running more than one engine instance. Keys live under a fixed prefix and
// expire with the window, so idle users cost nothing.
//
// The expiry is attached after the first increment of a window; a crash in
// between leaves a counter without TTL, which the next Increment repairs.
// Cross-instance precision remains approximate, consistent with the
// fixed-window design.
type RedisRateLimitStore struct {
	client *redis.Client
	prefix string
}

// NewRedisRateLimitStore creates a counter store on the given Redis client.
func NewRedisRateLimitStore(client *redis.Client) (*RedisRateLimitStore, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: redis client is required", ErrInvalidConfig)
	}
	return &RedisRateLimitStore{
		client: client,
		prefix: "notify:ratelimit:",
	}, nil
}

func (s *RedisRateLimitStore) Increment(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	redisKey := s.prefix + key

	count, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis increment: %w", err)
	}

	if count == 1 {
		if err := s.client.PExpire(ctx, redisKey, window).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("redis expire: %w", err)
		}
		return int(count), time.Now().Add(window), nil
	}

	ttl, err := s.client.PTTL(ctx, redisKey).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis ttl: %w", err)
	}
	if ttl < 0 {
		// Counter lost its TTL (crash between INCR and PEXPIRE); restart the window.
		if err := s.client.PExpire(ctx, redisKey, window).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("redis expire: %w", err)
		}
		ttl = window
	}

	return int(count), time.Now().Add(ttl), nil
}

func (s *RedisRateLimitStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}
