package omnifetch

import (
	"hash/fnv"
	"strings"
	"sync"
	"time"
)

const defaultShardCount = 16

// MemoryCache is the default Cache implementation: a sharded in-memory map
// with lazy expiry on read. Expired entries linger until the next Sweep, a
// read of the same key, or an explicit Clear; reads never return them.
type MemoryCache struct {
	shards    []*cacheShard
	numShards int

	// now is replaceable in tests to fast-forward expiry.
	now func() time.Time
}

type cacheShard struct {
	mu    sync.RWMutex
	store map[string]*CacheEntry
}

// NewMemoryCache creates an empty cache.
func NewMemoryCache() *MemoryCache {
	shards := make([]*cacheShard, defaultShardCount)
	for i := range shards {
		shards[i] = &cacheShard{store: make(map[string]*CacheEntry)}
	}
	return &MemoryCache{
		shards:    shards,
		numShards: defaultShardCount,
		now:       time.Now,
	}
}

func (c *MemoryCache) getShard(key string) *cacheShard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return c.shards[h.Sum32()%uint32(c.numShards)]
}

// Get returns the entry for key if it exists and is still valid. Expired
// entries are removed on the way out.
func (c *MemoryCache) Get(key string) (*CacheEntry, bool) {
	shard := c.getShard(key)

	shard.mu.RLock()
	entry, exists := shard.store[key]
	shard.mu.RUnlock()

	if !exists {
		return nil, false
	}

	if entry.Expired(c.now()) {
		shard.mu.Lock()
		// Re-check: a concurrent Set may have refreshed the key.
		if cur, ok := shard.store[key]; ok && cur == entry {
			delete(shard.store, key)
		}
		shard.mu.Unlock()
		return nil, false
	}

	return entry, true
}

// Set stores entry under key with the given ttl, overwriting any prior
// entry unconditionally.
func (c *MemoryCache) Set(key string, entry *CacheEntry, ttl time.Duration) {
	shard := c.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	entry.StoredAt = c.now()
	entry.TTL = ttl
	shard.store[key] = entry
}

// Delete removes the entry for key.
func (c *MemoryCache) Delete(key string) {
	shard := c.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	delete(shard.store, key)
}

// Clear removes entries whose key contains any of the given substrings, or
// all entries when called without arguments, and returns the removal count.
func (c *MemoryCache) Clear(pattern ...string) int {
	removed := 0
	for _, shard := range c.shards {
		shard.mu.Lock()
		if len(pattern) == 0 {
			removed += len(shard.store)
			shard.store = make(map[string]*CacheEntry)
		} else {
			for key := range shard.store {
				for _, p := range pattern {
					if strings.Contains(key, p) {
						delete(shard.store, key)
						removed++
						break
					}
				}
			}
		}
		shard.mu.Unlock()
	}
	return removed
}

// Stats reports occupancy across all shards. SizeBytes approximates memory
// use as the sum of key and body lengths.
func (c *MemoryCache) Stats() CacheStats {
	var stats CacheStats
	now := c.now()

	for _, shard := range c.shards {
		shard.mu.RLock()
		for key, entry := range shard.store {
			stats.Entries++
			if entry.Expired(now) {
				stats.Expired++
			} else {
				stats.Valid++
			}
			stats.SizeBytes += int64(len(key) + len(entry.Body))
		}
		shard.mu.RUnlock()
	}
	return stats
}

// Sweep evicts every expired entry and returns the eviction count. Reads
// already reject stale entries, so sweeping only bounds memory growth.
func (c *MemoryCache) Sweep() int {
	evicted := 0
	now := c.now()

	for _, shard := range c.shards {
		shard.mu.Lock()
		for key, entry := range shard.store {
			if entry.Expired(now) {
				delete(shard.store, key)
				evicted++
			}
		}
		shard.mu.Unlock()
	}
	return evicted
}

// DefaultCacheKey derives the cache key as method + ":" + url, with the
// serialized body appended for requests that carry one. Bodies are
// canonicalized by encoding/json before they reach this function, so
// structurally equal payloads collide on the same key.
func DefaultCacheKey(method, url string, body []byte) string {
	var b strings.Builder
	b.Grow(len(method) + len(url) + len(body) + 2)
	b.WriteString(method)
	b.WriteByte(':')
	b.WriteString(url)
	if len(body) > 0 {
		b.WriteByte(':')
		b.Write(body)
	}
	return b.String()
}
