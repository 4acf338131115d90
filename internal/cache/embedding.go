package cache

import "time"

// estimatedCostPerEmbedding approximates the provider charge avoided by one
// cache hit, in USD. Used for the savings counter only, never for billing.
const estimatedCostPerEmbedding = 0.0001

// EmbeddingStats extends the generic counters with estimated cost savings.
type EmbeddingStats struct {
	Stats
	EstimatedSavingsUSD float64 `json:"estimated_savings_usd"`
}

// EmbeddingCache memoizes text-to-vector lookups per embedding model.
type EmbeddingCache struct {
	cache *Cache[[]float32]
	model string
}

// NewEmbeddingCache creates an embedding cache keyed on normalized text plus
// the model identifier.
func NewEmbeddingCache(capacity int, ttl time.Duration, model string) *EmbeddingCache {
	if capacity <= 0 {
		capacity = 1000
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &EmbeddingCache{cache: New[[]float32](capacity, ttl), model: model}
}

func (e *EmbeddingCache) Get(text string) ([]float32, bool) {
	return e.cache.Get(EmbeddingKey(text, e.model))
}

func (e *EmbeddingCache) Put(text string, vector []float32) {
	stored := make([]float32, len(vector))
	copy(stored, vector)
	e.cache.Put(EmbeddingKey(text, e.model), stored)
}

func (e *EmbeddingCache) Stats() EmbeddingStats {
	s := e.cache.Stats()
	return EmbeddingStats{
		Stats:               s,
		EstimatedSavingsUSD: float64(s.Hits) * estimatedCostPerEmbedding,
	}
}

func (e *EmbeddingCache) Clear() { e.cache.Clear() }
