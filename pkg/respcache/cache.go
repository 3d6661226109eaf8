// Package respcache is a bounded, TTL-bound store of previous completions,
// consulted before any backend call. Keys are normalized message text plus
// the conversation step; values are completion results with an insertion
// timestamp.
//
// Eviction is lazy on the read path (a stale entry is never returned and is
// discarded at lookup time) with an oldest-first eviction when the cache is
// at capacity. Only completions classified cacheable by the caller are ever
// stored, which keeps personalized and safety-sensitive answers out.
package respcache

import (
	"sync"
	"time"
)

// Entry is a cached completion.
type Entry struct {
	// Text is the sanitized completion text.
	Text string

	// Backend is the backend that produced the completion.
	Backend string

	// StoredAt is the insertion timestamp used for TTL checks.
	StoredAt time.Time
}

// Cache is a thread-safe TTL cache with a bounded capacity.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]Entry
	ttl        time.Duration
	maxEntries int

	hits   int64
	misses int64
}

// New creates a cache with the given TTL and capacity. A maxEntries of zero
// means unlimited.
func New(ttl time.Duration, maxEntries int) *Cache {
	return &Cache{
		entries:    make(map[string]Entry),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

// Lookup returns the entry for key if present and fresh. A stale entry is
// discarded on the spot and reported as a miss.
func (c *Cache) Lookup(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return Entry{}, false
	}
	if time.Since(entry.StoredAt) > c.ttl {
		delete(c.entries, key)
		c.misses++
		return Entry{}, false
	}

	c.hits++
	return entry, true
}

// Store inserts an entry for key, evicting the oldest entry if the cache is
// full. Storing overwrites any existing entry for the key.
func (c *Cache) Store(key string, entry Entry) {
	if entry.StoredAt.IsZero() {
		entry.StoredAt = time.Now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		if _, exists := c.entries[key]; !exists {
			c.evictOldestLocked()
		}
	}

	c.entries[key] = entry
}

// Len returns the number of live entries, stale ones included until their
// next lookup.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns cumulative hit and miss counts.
func (c *Cache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// evictOldestLocked removes the entry with the oldest insertion time.
// Caller holds the lock.
func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time

	for key, entry := range c.entries {
		if oldestKey == "" || entry.StoredAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.StoredAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
