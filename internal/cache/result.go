package cache

import (
	"time"

	"github.com/finsight/finsight/internal/schema"
)

// ResultCache memoizes complete query results. Values are deep-copied on
// both read and write so a caller can never mutate a cached result.
type ResultCache struct {
	cache *Cache[*schema.QueryResult]
}

func NewResultCache(capacity int, ttl time.Duration) *ResultCache {
	if capacity <= 0 {
		capacity = 100
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ResultCache{cache: New[*schema.QueryResult](capacity, ttl)}
}

// Get returns a copy of the cached result annotated with its age and
// accumulated hit count.
func (r *ResultCache) Get(key string) (*schema.QueryResult, bool) {
	cached, age, hits, ok := r.cache.GetEntry(key)
	if !ok {
		return nil, false
	}
	out := cached.Clone()
	out.FromCache = true
	out.CacheAge = age
	out.CacheHits = hits
	return out, true
}

func (r *ResultCache) Put(key string, result *schema.QueryResult) {
	r.cache.Put(key, result.Clone())
}

func (r *ResultCache) Stats() Stats { return r.cache.Stats() }

func (r *ResultCache) Clear() { r.cache.Clear() }
