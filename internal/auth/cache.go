package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"contacts-api/internal/user"
)

// Cached user snapshots expire 900 seconds after being set; there is no
// sliding renewal.
const userCacheTTL = 900 * time.Second

var ErrCacheMiss = errors.New("user not cached")

// SessionCache is a short-TTL cache in front of the user store, used only
// for current-user resolution.
type SessionCache interface {
	Get(ctx context.Context, email string) (*user.User, error)
	Set(ctx context.Context, email string, u *user.User) error
	Invalidate(ctx context.Context, email string) error
}

// userCacheKey generates the cache key for a user snapshot
func userCacheKey(email string) string {
	return fmt.Sprintf("user:%s", email)
}

// RedisSessionCache stores JSON-serialized user snapshots in Redis
type RedisSessionCache struct {
	client *redis.Client
}

func NewRedisSessionCache(client *redis.Client) *RedisSessionCache {
	return &RedisSessionCache{client: client}
}

func (c *RedisSessionCache) Get(ctx context.Context, email string) (*user.User, error) {
	data, err := c.client.Get(ctx, userCacheKey(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached user: %w", err)
	}

	u := new(user.User)
	if err := json.Unmarshal(data, u); err != nil {
		return nil, fmt.Errorf("failed to decode cached user: %w", err)
	}

	return u, nil
}

func (c *RedisSessionCache) Set(ctx context.Context, email string, u *user.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to encode user for cache: %w", err)
	}

	if err := c.client.Set(ctx, userCacheKey(email), data, userCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache user: %w", err)
	}

	return nil
}

func (c *RedisSessionCache) Invalidate(ctx context.Context, email string) error {
	if err := c.client.Del(ctx, userCacheKey(email)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached user: %w", err)
	}

	return nil
}
