// Package retriever runs vector retrieval for one or more query variants,
// embedding each through the embedding cache and merging the result lists.
package retriever

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/finsight/finsight/internal/cache"
	"github.com/finsight/finsight/internal/embedding"
	"github.com/finsight/finsight/internal/schema"
	"github.com/finsight/finsight/internal/vectordb"
)

// CachedEmbedder memoizes provider lookups in the embedding cache.
type CachedEmbedder struct {
	Provider embedding.Provider
	Cache    *cache.EmbeddingCache
}

func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.Cache != nil {
		if vec, ok := e.Cache.Get(text); ok {
			return vec, nil
		}
	}
	vec, err := e.Provider.GetEmbedding(ctx, text)
	if err != nil {
		return nil, err
	}
	if e.Cache != nil {
		e.Cache.Put(text, vec)
	}
	return vec, nil
}

// VectorRetriever searches the index once per query variant and merges the
// lists, deduplicating chunks retrieved by more than one variant.
type VectorRetriever struct {
	Embedder *CachedEmbedder
	Store    vectordb.Provider
	TopK     int
	Log      *zap.Logger
}

// Retrieve returns merged candidates sorted by descending score. A variant
// whose embedding or search fails is skipped; the call errors only when no
// variant produced results and at least one failed.
func (r *VectorRetriever) Retrieve(ctx context.Context, queries []string, filter vectordb.Filter, topK int) ([]schema.SearchResult, error) {
	if topK <= 0 {
		topK = r.TopK
	}
	if topK <= 0 {
		topK = 30
	}

	merged := make(map[string]schema.SearchResult)
	order := make([]string, 0, topK)
	var lastErr error

	for _, q := range queries {
		vec, err := r.Embedder.Embed(ctx, q)
		if err != nil {
			lastErr = err
			r.logWarn("embedding failed for variant", q, err)
			continue
		}
		results, err := r.Store.Search(ctx, vec, filter, topK)
		if err != nil {
			lastErr = err
			r.logWarn("search failed for variant", q, err)
			continue
		}
		for _, res := range results {
			key := dedupKey(res.Document)
			if prev, ok := merged[key]; ok {
				if res.Score > prev.Score {
					merged[key] = res
				}
				continue
			}
			merged[key] = res
			order = append(order, key)
		}
	}

	if len(merged) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, nil
	}

	out := make([]schema.SearchResult, 0, len(merged))
	for _, key := range order {
		out = append(out, merged[key])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (r *VectorRetriever) logWarn(msg, query string, err error) {
	if r.Log != nil {
		r.Log.Warn(msg, zap.String("query", query), zap.Error(err))
	}
}

// dedupKey identifies a chunk across variants. Filename plus chunk id is
// enough for indexed filings; a content prefix guards against collisions on
// documents indexed without chunk ids.
func dedupKey(doc schema.Document) string {
	content := doc.Content
	if len(content) > 100 {
		content = content[:100]
	}
	return fmt.Sprintf("%s_%s_%s", doc.Filename, doc.ChunkID, content)
}
