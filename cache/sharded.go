// Package cache provides a small generic concurrent cache used to memoize
// text measurements. Keys are distributed over a fixed number of shards to
// keep lock contention low when many renders run at once.
package cache

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
)

const (
	// shardCount is the number of shards. Must be a power of two so the
	// shard index can be computed with a bitwise AND.
	shardCount = 16

	shardMask = shardCount - 1

	// DefaultCapacity is the per-shard entry limit used when New is called
	// with a non-positive capacity.
	DefaultCapacity = 512
)

// Hasher computes a hash for a key, used for shard selection.
type Hasher[K comparable] func(K) uint64

// StringHasher computes the FNV-1a hash of a string key.
func StringHasher(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s)) // fnv.Write never fails
	return h.Sum64()
}

// Sharded is a thread-safe sharded cache with a per-shard capacity bound.
// When a shard fills up it discards an arbitrary entry; measurement caches
// tolerate that, since every value can be recomputed.
type Sharded[K comparable, V any] struct {
	shards   [shardCount]shard[K, V]
	hasher   Hasher[K]
	capacity int

	hits   atomic.Uint64
	misses atomic.Uint64
}

type shard[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

// New creates a sharded cache with the given per-shard capacity.
// If capacity <= 0, DefaultCapacity is used.
func New[K comparable, V any](capacity int, hasher Hasher[K]) *Sharded[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Sharded[K, V]{hasher: hasher, capacity: capacity}
	for i := range c.shards {
		c.shards[i].entries = make(map[K]V)
	}
	return c
}

func (c *Sharded[K, V]) shardFor(key K) *shard[K, V] {
	return &c.shards[c.hasher(key)&shardMask]
}

// Get retrieves a cached value by key.
func (c *Sharded[K, V]) Get(key K) (V, bool) {
	s := c.shardFor(key)
	s.mu.RLock()
	v, ok := s.entries[key]
	s.mu.RUnlock()
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Set stores a value. When the shard is at capacity an arbitrary existing
// entry is dropped to make room.
func (c *Sharded[K, V]) Set(key K, value V) {
	s := c.shardFor(key)
	s.mu.Lock()
	if _, ok := s.entries[key]; !ok && len(s.entries) >= c.capacity {
		for k := range s.entries {
			delete(s.entries, k)
			break
		}
	}
	s.entries[key] = value
	s.mu.Unlock()
}

// GetOrCreate returns the cached value for key, computing and storing it
// with create on a miss. The create function may be called more than once
// under contention; all callers observe a valid value.
func (c *Sharded[K, V]) GetOrCreate(key K, create func() V) V {
	if v, ok := c.Get(key); ok {
		return v
	}
	v := create()
	c.Set(key, v)
	return v
}

// Len returns the total number of cached entries across all shards.
func (c *Sharded[K, V]) Len() int {
	n := 0
	for i := range c.shards {
		c.shards[i].mu.RLock()
		n += len(c.shards[i].entries)
		c.shards[i].mu.RUnlock()
	}
	return n
}

// Clear removes all entries.
func (c *Sharded[K, V]) Clear() {
	for i := range c.shards {
		c.shards[i].mu.Lock()
		c.shards[i].entries = make(map[K]V)
		c.shards[i].mu.Unlock()
	}
}

// Stats returns the cumulative hit and miss counts.
func (c *Sharded[K, V]) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
