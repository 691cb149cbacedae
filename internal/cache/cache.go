// Package cache provides a fixed-capacity least-recently-used cache whose
// operations are serialized by a single lock.
package cache

import (
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// Cache maps keys to values, holding at most Capacity entries. When an
// insert would overflow it, the least recently used third of the entries is
// evicted in one batch.
//
// Every operation, including lookups, takes the same exclusive lock since a
// hit updates recency.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	lru      *simplelru.LRU[K, V]
	capacity int
}

// New creates a cache holding at most capacity entries. Capacities below one
// are raised to one.
func New[K comparable, V any](capacity int) *Cache[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	// simplelru only fails for non-positive sizes.
	lru, _ := simplelru.NewLRU[K, V](capacity, nil)
	return &Cache[K, V]{lru: lru, capacity: capacity}
}

// Capacity returns the configured maximum number of entries.
func (c *Cache[K, V]) Capacity() int {
	return c.capacity
}

// Len returns the current number of entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// GetOrCreate returns the cached value for key, computing and storing it
// with create on a miss. create runs while the lock is held.
func (c *Cache[K, V]) GetOrCreate(key K, create func(K) V) V {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.lru.Get(key); ok {
		return v
	}
	v := create(key)
	c.insertLocked(key, v)
	return v
}

// TryGet returns the cached value for key, if present.
func (c *Cache[K, V]) TryGet(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Get(key)
}

// Store sets the value for key, replacing any existing entry.
func (c *Cache[K, V]) Store(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lru.Contains(key) {
		c.lru.Add(key, value)
		return
	}
	c.insertLocked(key, value)
}

// Remove drops key from the cache.
func (c *Cache[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Remove(key)
}

// Clear empties the cache.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

func (c *Cache[K, V]) insertLocked(key K, value V) {
	if c.lru.Len() >= c.capacity {
		threshold := float64(c.capacity) / 1.5
		for c.lru.Len() > 0 && float64(c.lru.Len()) >= threshold {
			c.lru.RemoveOldest()
		}
	}
	c.lru.Add(key, value)
}
