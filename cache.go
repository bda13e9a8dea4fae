package qrvision

import (
	"sync"
	"time"
)

// maxCachedSymbols bounds memory use; when full, expired entries are
// dropped first and then the whole cache is cleared.
const maxCachedSymbols = 512

// SymbolCache is an in-memory cache of rendered PNG symbols with TTL.
type SymbolCache struct {
	mu      sync.RWMutex
	entries map[string]cachedSymbol
	ttl     time.Duration
	now     func() time.Time
}

type cachedSymbol struct {
	data    []byte
	fetched time.Time
}

// NewSymbolCache creates a SymbolCache whose entries live for ttl.
func NewSymbolCache(ttl time.Duration) *SymbolCache {
	return &SymbolCache{
		entries: make(map[string]cachedSymbol),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *SymbolCache) valid(e cachedSymbol) bool {
	return c.now().Sub(e.fetched) < c.ttl
}

// Get returns the cached PNG for key if it has not expired.
func (c *SymbolCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !c.valid(e) {
		return nil, false
	}
	return e.data, true
}

// Set stores data under key.
func (c *SymbolCache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= maxCachedSymbols {
		c.evictLocked()
	}
	c.entries[key] = cachedSymbol{data: data, fetched: c.now()}
}

func (c *SymbolCache) evictLocked() {
	for k, e := range c.entries {
		if !c.valid(e) {
			delete(c.entries, k)
		}
	}
	if len(c.entries) >= maxCachedSymbols {
		clear(c.entries)
	}
}

// Invalidate clears the cache.
func (c *SymbolCache) Invalidate() {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included.
func (c *SymbolCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
