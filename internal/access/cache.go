package access

import (
	"context"
	"sync"
	"time"
)

// CacheTTL is the fixed validity window for verification results.
const CacheTTL = 5 * time.Minute

// CacheStats summarises the current cache content.
type CacheStats struct {
	Size      int      `json:"size"`
	Addresses []string `json:"addresses"`
}

// Cache stores verification results keyed by sender address. Entries expire
// after their TTL; an expired entry is treated as absent and purged before
// reuse. Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, address string) (Result, bool)
	Set(ctx context.Context, address string, result Result, ttl time.Duration)
	Clear(ctx context.Context)
	Stats(ctx context.Context) CacheStats
}

type cacheEntry struct {
	result    Result
	expiresAt time.Time
}

// MemoryCache keeps entries in a single map guarded by a mutex.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]cacheEntry), now: time.Now}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, address string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[address]
	if !ok {
		return Result{}, false
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, address)
		return Result{}, false
	}
	return entry.result, true
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, address string, result Result, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[address] = cacheEntry{result: result, expiresAt: c.now().Add(ttl)}
}

// Clear implements Cache.
func (c *MemoryCache) Clear(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Stats implements Cache. Expired entries are purged first so the numbers
// reflect only live entries.
func (c *MemoryCache) Stats(_ context.Context) CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	addresses := make([]string, 0, len(c.entries))
	for address, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, address)
			continue
		}
		addresses = append(addresses, address)
	}
	return CacheStats{Size: len(addresses), Addresses: addresses}
}
