// Package ratelimit throttles login attempts per account email, either in
// Redis (shared between server instances) or in process memory.
package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter reports whether one more attempt for key is allowed right now.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// New returns a Redis-backed limiter when client is non-nil and an
// in-memory one otherwise. It returns nil when limit is zero, which
// disables throttling.
func New(limit int, window time.Duration, client *redis.Client) Limiter {
	if limit <= 0 {
		return nil
	}
	if client != nil {
		return NewRedisLimiter(client, limit, window)
	}
	return NewMemoryLimiter(limit, window)
}
