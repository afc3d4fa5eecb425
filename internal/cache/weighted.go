// Package cache holds the storage layers behind the file diff cache: a
// weight-bounded in-memory LRU and durable stores for encoded values.
package cache

import (
	"sync"

	"github.com/golang/groupcache/lru"
)

// Weigher returns the cost of keeping an entry.
type Weigher[K comparable, V any] func(K, V) int64

// Weighted is an LRU cache bounded by the total weight of its entries rather
// than their count. It is safe for concurrent use.
type Weighted[K comparable, V any] struct {
	mu        sync.Mutex
	entries   *lru.Cache
	weigh     Weigher[K, V]
	maxWeight int64
	weight    int64
	evictions int64
}

type weightedEntry[V any] struct {
	value  V
	weight int64
}

// NewWeighted returns a cache holding at most maxWeight. An entry heavier
// than maxWeight is evicted as soon as it is added.
func NewWeighted[K comparable, V any](maxWeight int64, weigh Weigher[K, V]) *Weighted[K, V] {
	c := &Weighted[K, V]{
		entries:   lru.New(0),
		weigh:     weigh,
		maxWeight: maxWeight,
	}
	c.entries.OnEvicted = func(_ lru.Key, value interface{}) {
		c.weight -= value.(weightedEntry[V]).weight
		c.evictions++
	}
	return c
}

// Get returns the cached value for key and marks it as recently used.
func (c *Weighted[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.entries.Get(key); ok {
		return v.(weightedEntry[V]).value, true
	}
	var zero V
	return zero, false
}

// Add stores value under key and evicts the least recently used entries
// until the cache is within its weight bound.
func (c *Weighted[K, V]) Add(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries.Get(key); ok {
		c.weight -= old.(weightedEntry[V]).weight
	}
	w := c.weigh(key, value)
	c.entries.Add(key, weightedEntry[V]{value: value, weight: w})
	c.weight += w

	for c.weight > c.maxWeight && c.entries.Len() > 0 {
		c.entries.RemoveOldest()
	}
}

// Remove drops key from the cache.
func (c *Weighted[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Remove(key)
}

// Len returns the number of cached entries.
func (c *Weighted[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Weight returns the total weight of the cached entries.
func (c *Weighted[K, V]) Weight() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.weight
}

// Evictions returns how many entries were dropped, including explicit
// removals.
func (c *Weighted[K, V]) Evictions() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictions
}
