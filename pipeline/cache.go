package pipeline

import (
	"sync"
	"time"
)

// VerdictCache memoises verdicts by row fingerprint. The pipeline is
// deterministic, so a hit never changes the answer.
type VerdictCache interface {
	// Get returns the cached verdict, false on miss or expiry
	Get(key string) (Verdict, bool)

	// Set stores a verdict
	Set(key string, v Verdict)

	// Invalidate drops every entry
	Invalidate()

	// Len reports the number of live entries
	Len() int
}

// CacheConfig holds configuration for cache behavior
type CacheConfig struct {
	// TTL is the time-to-live for cached entries
	// Set to 0 for no expiration
	TTL time.Duration

	// MaxEntries caps the cache size; the cache is cleared when it is reached.
	// Set to 0 for no cap
	MaxEntries int
}

// DefaultCacheConfig returns the defaults used by the server.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:        0,
		MaxEntries: 10000,
	}
}

type cacheEntry struct {
	verdict  Verdict
	cachedAt time.Time
}

// InMemoryVerdictCache is a map-backed VerdictCache, safe for concurrent use.
type InMemoryVerdictCache struct {
	entries map[string]cacheEntry
	config  CacheConfig
	mu      sync.RWMutex
}

// NewInMemoryVerdictCache creates a new in-memory verdict cache
func NewInMemoryVerdictCache(config CacheConfig) *InMemoryVerdictCache {
	return &InMemoryVerdictCache{
		entries: make(map[string]cacheEntry),
		config:  config,
	}
}

func (c *InMemoryVerdictCache) Get(key string) (Verdict, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || c.expired(e) {
		return "", false
	}
	return e.verdict, true
}

func (c *InMemoryVerdictCache) Set(key string, v Verdict) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.config.MaxEntries > 0 && len(c.entries) >= c.config.MaxEntries {
		if _, exists := c.entries[key]; !exists {
			c.entries = make(map[string]cacheEntry)
		}
	}
	c.entries[key] = cacheEntry{verdict: v, cachedAt: time.Now()}
}

func (c *InMemoryVerdictCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]cacheEntry)
}

func (c *InMemoryVerdictCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, e := range c.entries {
		if !c.expired(e) {
			n++
		}
	}
	return n
}

func (c *InMemoryVerdictCache) expired(e cacheEntry) bool {
	return c.config.TTL > 0 && time.Since(e.cachedAt) > c.config.TTL
}
