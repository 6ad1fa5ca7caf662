package cache

import (
	"context"
	"encoding/json"
	"path"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache implements Service in process on top of go-cache. Values are
// kept as JSON so callers get a private copy on every Get.
type MemoryCache struct {
	c *gocache.Cache
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		DefaultTTL:      5 * time.Minute,
		CleanupInterval: time.Minute,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return &MemoryCache{c: gocache.New(cfg.DefaultTTL, cfg.CleanupInterval)}
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if expiration <= 0 {
		expiration = gocache.DefaultExpiration
	}
	mc.c.Set(key, data, expiration)
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	v, ok := mc.c.Get(key)
	if !ok {
		return ErrCacheMiss
	}
	return json.Unmarshal(v.([]byte), dest)
}

// DeleteByPattern removes keys matching a glob pattern (path.Match syntax,
// close enough to Redis MATCH for the "prefix:*" patterns used here).
func (mc *MemoryCache) DeleteByPattern(_ context.Context, pattern string) error {
	for key := range mc.c.Items() {
		if ok, _ := path.Match(pattern, key); ok {
			mc.c.Delete(key)
		}
	}
	return nil
}

// Len returns the number of unexpired entries.
func (mc *MemoryCache) Len() int {
	return mc.c.ItemCount()
}

// Close drops all entries.
func (mc *MemoryCache) Close() error {
	mc.c.Flush()
	return nil
}
