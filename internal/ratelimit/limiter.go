package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a Redis-backed fixed-window rate limiter.
type Limiter struct {
	client *redis.Client
}

func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{client: client}
}

func requestKey(purpose, identity string) string {
	return fmt.Sprintf("ratelimit:%s:%s", purpose, identity)
}

// Allow records a request for the identity and reports whether it stays
// within limit requests per window.
func (l *Limiter) Allow(ctx context.Context, purpose, identity string, limit int, window time.Duration) (bool, error) {
	key := requestKey(purpose, identity)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to count requests: %w", err)
	}

	// First hit in the window opens it.
	if count == 1 {
		if err := l.client.Expire(ctx, key, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set window expiry: %w", err)
		}
	}

	return count <= int64(limit), nil
}
