package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ReportCache stores report fingerprints in Redis.
type ReportCache struct {
	client goredis.UniversalClient
}

// NewReportCache connects to addr.
func NewReportCache(addr string) *ReportCache {
	rdb := goredis.NewClient(&goredis.Options{
		Addr: addr,
	})
	return &ReportCache{client: rdb}
}

// NewReportCacheWithClient wraps an existing client.
func NewReportCacheWithClient(client goredis.UniversalClient) *ReportCache {
	return &ReportCache{client: client}
}

// Ping checks the connection.
func (c *ReportCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Get returns the cached value. A missing key is not an error.
func (c *ReportCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Set stores value for ttl. A zero ttl keeps the key without expiry.
func (c *ReportCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// Close releases the client.
func (c *ReportCache) Close() error {
	return c.client.Close()
}
