package engine

import (
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// resultCache is a key→result store with a single-flight computation
// guarantee: at most one computation runs per key, concurrent callers
// for the same key wait on the first computation's result. Entries
// are written once and never updated in place; a parameter change
// produces a new key, never an in-place edit.
type resultCache struct {
	group singleflight.Group

	mu      sync.RWMutex
	entries map[string]any
}

func newResultCache() *resultCache {
	return &resultCache{entries: make(map[string]any)}
}

// do returns the cached result for key, computing it via fn exactly
// once if absent. Failed computations are not cached: re-invocation
// with corrected inputs always gets a fresh run.
func (c *resultCache) do(key string, fn func() (any, error)) (any, error) {
	c.mu.RLock()
	v, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Re-check under the group: a concurrent caller may have
		// populated the entry between our read and Do.
		c.mu.RLock()
		v, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			return v, nil
		}

		v, err := fn()
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = v
		c.mu.Unlock()
		return v, nil
	})
	return v, err
}

// invalidatePrefix removes every entry whose key starts with prefix
// and returns the number removed.
func (c *resultCache) invalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// len reports the number of cached entries.
func (c *resultCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
