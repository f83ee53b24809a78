package memory

import (
	"context"
	"sync"
	"time"
)

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// ReportCache is an in-memory string cache with per-key expiry.
type ReportCache struct {
	mu   sync.Mutex
	now  func() time.Time
	data map[string]cacheEntry
}

// NewReportCache constructs a cache.
func NewReportCache() *ReportCache {
	return &ReportCache{now: time.Now, data: make(map[string]cacheEntry)}
}

// Get returns the value for key if present and not expired.
func (c *ReportCache) Get(ctx context.Context, key string) (string, bool, error) {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.data[key]
	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		delete(c.data, key)
		return "", false, nil
	}
	return entry.value, true, nil
}

// Set stores value for ttl. A non-positive ttl never expires.
func (c *ReportCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	_ = ctx
	entry := cacheEntry{value: value}
	c.mu.Lock()
	defer c.mu.Unlock()
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.data[key] = entry
	return nil
}
