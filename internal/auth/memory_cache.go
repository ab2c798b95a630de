package auth

import (
	"context"
	"sync"
	"time"

	"contacts-api/internal/user"
)

type memoryCacheEntry struct {
	user      user.User
	expiresAt time.Time
}

// MemorySessionCache is a process-local SessionCache with the same 900-second
// expiry semantics as the Redis adapter. Entries are evicted lazily on Get.
type MemorySessionCache struct {
	mu      sync.Mutex
	entries map[string]memoryCacheEntry
	now     func() time.Time
}

func NewMemorySessionCache() *MemorySessionCache {
	return &MemorySessionCache{
		entries: make(map[string]memoryCacheEntry),
		now:     time.Now,
	}
}

func (c *MemorySessionCache) Get(ctx context.Context, email string) (*user.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[userCacheKey(email)]
	if !ok {
		return nil, ErrCacheMiss
	}

	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, userCacheKey(email))
		return nil, ErrCacheMiss
	}

	snapshot := entry.user
	return &snapshot, nil
}

func (c *MemorySessionCache) Set(ctx context.Context, email string, u *user.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[userCacheKey(email)] = memoryCacheEntry{
		user:      *u,
		expiresAt: c.now().Add(userCacheTTL),
	}

	return nil
}

func (c *MemorySessionCache) Invalidate(ctx context.Context, email string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, userCacheKey(email))
	return nil
}
