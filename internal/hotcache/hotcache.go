// Package hotcache is the process-wide rendition byte-blob cache (spec §4.3).
// It wraps patrickmn/go-cache — the same library the teacher repo used for
// caching resolved file paths — generalized here to hold the encoded
// rendition bytes themselves, bounded by a per-entry size limit.
package hotcache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is a concurrency-safe, size-bounded rendition byte-blob cache.
// go-cache's internal map is already guarded by its own RWMutex, so Cache
// adds no locking of its own.
type Cache struct {
	c       *gocache.Cache
	maxSize int
}

// New builds a Cache whose Put silently drops any blob whose length is not
// strictly smaller than maxSize (invariant I4). expiration is the default
// per-entry TTL; 0 means entries never expire on their own and are only
// evicted by Delete or process restart — rendition bytes never go stale
// once published under a key, so a generous TTL (or none) is appropriate.
func New(maxSize int, expiration, cleanupInterval time.Duration) *Cache {
	return &Cache{
		c:       gocache.New(expiration, cleanupInterval),
		maxSize: maxSize,
	}
}

// Get returns the cached blob for key, if present.
func (c *Cache) Get(key string) ([]byte, bool) {
	v, ok := c.c.Get(key)
	if !ok {
		return nil, false
	}
	blob, ok := v.([]byte)
	if !ok {
		return nil, false
	}
	return blob, true
}

// Put inserts blob under key. It is a no-op if len(blob) >= maxSize, per I4.
func (c *Cache) Put(key string, blob []byte) {
	if c.maxSize > 0 && len(blob) >= c.maxSize {
		return
	}
	c.c.Set(key, blob, gocache.DefaultExpiration)
}

// Delete evicts key. Used on CacheCorruption to fall through to disk.
func (c *Cache) Delete(key string) {
	c.c.Delete(key)
}

// Exists reports whether key is present without copying its value.
func (c *Cache) Exists(key string) bool {
	_, ok := c.c.Get(key)
	return ok
}
