package files

import (
	"sync"
	"time"
)

// DefaultThumbTTL is how long a fetched thumbnail stays usable.
const DefaultThumbTTL = 24 * time.Hour

type thumbKey struct {
	sourceURL string
	size      int
}

type thumbEntry struct {
	data    []byte
	expires time.Time
}

// ThumbCache caches fetched thumbnails keyed by (source URL, pixel size) so
// repeated views of the same image skip the proxy round trip. Entries expire
// after a TTL and are dropped by Cleanup sweeps.
type ThumbCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[thumbKey]thumbEntry
	now     func() time.Time
}

func NewThumbCache(ttl time.Duration) *ThumbCache {
	if ttl <= 0 {
		ttl = DefaultThumbTTL
	}
	return &ThumbCache{
		ttl:     ttl,
		entries: make(map[thumbKey]thumbEntry),
		now:     time.Now,
	}
}

// Get returns the cached thumbnail, or nil when missing or expired.
func (c *ThumbCache) Get(sourceURL string, size int) []byte {
	key := thumbKey{sourceURL, size}
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().After(e.expires) {
		return nil
	}
	return e.data
}

// Put stores a thumbnail after a successful fetch.
func (c *ThumbCache) Put(sourceURL string, size int, data []byte) {
	c.mu.Lock()
	c.entries[thumbKey{sourceURL, size}] = thumbEntry{
		data:    data,
		expires: c.now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// GetOrFetch returns the cached thumbnail or runs fetch and caches the
// result. Uses double-checked locking so concurrent misses for the same key
// collapse into one fetch.
func (c *ThumbCache) GetOrFetch(sourceURL string, size int, fetch func() ([]byte, error)) ([]byte, error) {
	if data := c.Get(sourceURL, size); data != nil {
		return data, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := thumbKey{sourceURL, size}
	if e, ok := c.entries[key]; ok && !c.now().After(e.expires) {
		return e.data, nil
	}

	data, err := fetch()
	if err != nil {
		return nil, err
	}
	c.entries[key] = thumbEntry{data: data, expires: c.now().Add(c.ttl)}
	return data, nil
}

// Cleanup drops expired entries and reports how many were removed.
func (c *ThumbCache) Cleanup() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Len reports the number of live entries, expired ones included until the
// next Cleanup.
func (c *ThumbCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
