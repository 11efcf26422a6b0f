package archive

import "sync"

// AvailabilityCache memoizes wayback availability lookups by original URL,
// storing the closest snapshot URL (or "" for a confirmed miss) as a plain
// string. Adapted from the teacher's robots/cache.MemoryCache: same
// RWMutex-guarded map, generalised from a robots.txt-decision cache to an
// archive-availability cache.
type AvailabilityCache struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewAvailabilityCache returns an empty, ready-to-use cache.
func NewAvailabilityCache() *AvailabilityCache {
	return &AvailabilityCache{data: make(map[string]string)}
}

// Get retrieves the memoized snapshot URL for key, if present.
func (c *AvailabilityCache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, exists := c.data[key]
	return value, exists
}

// Put records the snapshot URL (or "" for a miss) found for key.
func (c *AvailabilityCache) Put(key string, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

// Clear removes all entries. Primarily useful for testing.
func (c *AvailabilityCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]string)
}

// Size returns the number of entries. Primarily useful for testing.
func (c *AvailabilityCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
