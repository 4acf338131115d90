// Package cache provides the content-addressed TTL+LRU caches backing the
// query engine: a generic core plus embedding and query-result frontends.
package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry[V any] struct {
	key       string
	value     V
	createdAt time.Time
	expiresAt time.Time
	hitCount  uint64
	element   *list.Element
}

// Stats is an O(1) snapshot of a cache's running counters. Counters persist
// across evictions and reset only on an explicit Clear.
type Stats struct {
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	Size      int     `json:"size"`
	Capacity  int     `json:"capacity"`
	HitRate   float64 `json:"hit_rate"`
}

// Cache is a capacity-bounded mapping from derived keys to values with TTL
// expiry and LRU eviction. All operations are atomic with respect to each
// other under one coarse lock.
type Cache[V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*entry[V]
	order    *list.List

	hits      uint64
	misses    uint64
	evictions uint64

	now func() time.Time
}

// New creates a cache holding at most capacity entries, each expiring ttl
// after insertion.
func New[V any](capacity int, ttl time.Duration) *Cache[V] {
	if capacity <= 0 {
		capacity = 128
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache[V]{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*entry[V], capacity),
		order:    list.New(),
		now:      time.Now,
	}
}

// Get returns the value for key, or false if absent or expired. Expired
// entries are removed lazily here. A hit bumps the entry's hit count and
// recency; it never touches created_at or expires_at.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	ent, ok := c.items[key]
	if !ok {
		c.misses++
		return zero, false
	}
	if !c.now().Before(ent.expiresAt) {
		c.removeEntry(ent)
		c.misses++
		return zero, false
	}
	ent.hitCount++
	c.hits++
	c.order.MoveToFront(ent.element)
	return ent.value, true
}

// GetEntry is Get plus the entry's age and accumulated hit count, for
// callers that surface cache freshness to users.
func (c *Cache[V]) GetEntry(key string) (V, time.Duration, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	ent, ok := c.items[key]
	if !ok {
		c.misses++
		return zero, 0, 0, false
	}
	if !c.now().Before(ent.expiresAt) {
		c.removeEntry(ent)
		c.misses++
		return zero, 0, 0, false
	}
	ent.hitCount++
	c.hits++
	c.order.MoveToFront(ent.element)
	return ent.value, c.now().Sub(ent.createdAt), ent.hitCount, true
}

// Put inserts or overwrites key. On overflow it evicts an expired entry
// first, falling back to the least-recently-used one.
func (c *Cache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		ent.value = value
		ent.createdAt = c.now()
		ent.expiresAt = c.now().Add(c.ttl)
		ent.hitCount = 0
		c.order.MoveToFront(ent.element)
		return
	}

	if len(c.items) >= c.capacity {
		c.evictOne()
	}

	elem := c.order.PushFront(key)
	c.items[key] = &entry[V]{
		key:       key,
		value:     value,
		createdAt: c.now(),
		expiresAt: c.now().Add(c.ttl),
		element:   elem,
	}
}

// Stats returns the current counters. HitRate is hits/(hits+misses), 0 when
// the cache has never been consulted.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      len(c.items),
		Capacity:  c.capacity,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// Clear empties the cache and zeroes all counters.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*entry[V], c.capacity)
	c.order.Init()
	c.hits, c.misses, c.evictions = 0, 0, 0
}

// Len reports the number of physically stored entries, expired or not.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache[V]) evictOne() {
	now := c.now()
	for elem := c.order.Back(); elem != nil; elem = elem.Prev() {
		ent := c.items[elem.Value.(string)]
		if ent != nil && !now.Before(ent.expiresAt) {
			c.removeEntry(ent)
			c.evictions++
			return
		}
	}
	elem := c.order.Back()
	if elem == nil {
		return
	}
	if ent, ok := c.items[elem.Value.(string)]; ok {
		c.removeEntry(ent)
		c.evictions++
	}
}

func (c *Cache[V]) removeEntry(ent *entry[V]) {
	if ent.element != nil {
		c.order.Remove(ent.element)
	}
	delete(c.items, ent.key)
}
