package engine

import (
	"context"

	"github.com/finsight/finsight/internal/cache"
	"github.com/finsight/finsight/internal/vectordb"
)

// CacheStatsReport snapshots both cache layers.
type CacheStatsReport struct {
	Embedding cache.EmbeddingStats `json:"embedding_cache"`
	Results   cache.Stats          `json:"query_result_cache"`
}

// SystemStats is the operational overview surfaced by the stats endpoint.
type SystemStats struct {
	Sessions int                 `json:"active_sessions"`
	Index    vectordb.IndexStats `json:"index"`
	Caches   CacheStatsReport    `json:"caches"`
}

func (e *Engine) CacheStats() CacheStatsReport {
	return CacheStatsReport{
		Embedding: e.deps.EmbedCache.Stats(),
		Results:   e.deps.ResultCache.Stats(),
	}
}

// ClearCaches empties both caches and zeroes their counters.
func (e *Engine) ClearCaches() {
	e.deps.EmbedCache.Clear()
	e.deps.ResultCache.Clear()
	e.deps.Log.Info("caches cleared")
}

// DeleteSession removes a session's history. Unknown sessions report false
// without error.
func (e *Engine) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	if e.deps.Conversations == nil {
		return false, nil
	}
	return e.deps.Conversations.Delete(ctx, sessionID)
}

// Stats collects session, index and cache statistics. Index stats are best
// effort: an unreachable index leaves the zero value.
func (e *Engine) Stats(ctx context.Context) SystemStats {
	s := SystemStats{Caches: e.CacheStats()}
	if e.deps.Conversations != nil {
		if n, err := e.deps.Conversations.Sessions(ctx); err == nil {
			s.Sessions = n
		}
	}
	if e.deps.Index != nil {
		if idx, err := e.deps.Index.Stats(ctx); err == nil {
			s.Index = idx
		}
	}
	return s
}
