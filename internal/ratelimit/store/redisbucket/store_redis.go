// Package redisbucket provides the Redis-backed rate limit store for
// multi-instance deployments.
package redisbucket

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"provena/internal/ratelimit"
)

// Store implements ratelimit.BucketStore with a fixed window counter per key.
// Fixed windows permit a burst at the boundary; acceptable for an admin and
// query surface where the limit is a backstop, not a fairness guarantee.
type Store struct {
	client *redis.Client
	prefix string
}

func New(client *redis.Client) *Store {
	return &Store{client: client, prefix: "ratelimit:"}
}

func (s *Store) Allow(ctx context.Context, key string, limit int, window time.Duration) (*ratelimit.Result, error) {
	redisKey := s.prefix + key

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, window)
	ttl := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("ratelimit incr %q: %w", key, err)
	}

	count := int(incr.Val())
	resetAt := time.Now().Add(ttl.Val())

	if count > limit {
		return &ratelimit.Result{
			Allowed:   false,
			Remaining: 0,
			ResetAt:   resetAt,
			Limit:     limit,
		}, nil
	}
	return &ratelimit.Result{
		Allowed:   true,
		Remaining: limit - count,
		ResetAt:   resetAt,
		Limit:     limit,
	}, nil
}

func (s *Store) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("ratelimit reset %q: %w", key, err)
	}
	return nil
}
