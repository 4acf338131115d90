package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight/finsight/internal/cache"
	"github.com/finsight/finsight/internal/memory"
	"github.com/finsight/finsight/internal/rerank"
	"github.com/finsight/finsight/internal/retriever"
	"github.com/finsight/finsight/internal/schema"
	"github.com/finsight/finsight/internal/vectordb"
)

type fakeEmbedder struct {
	err     error
	vectors map[string][]float32
	calls   int
}

func (f *fakeEmbedder) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	return []float32{1, 0}, nil
}

func (f *fakeEmbedder) Model() string { return "fake-model" }

type fakeIndex struct {
	results []schema.SearchResult
	err     error
	gotTopK int
}

func (f *fakeIndex) Search(ctx context.Context, vector []float32, filter vectordb.Filter, topK int) ([]schema.SearchResult, error) {
	f.gotTopK = topK
	return f.results, f.err
}

func (f *fakeIndex) Stats(ctx context.Context) (vectordb.IndexStats, error) {
	return vectordb.IndexStats{Collection: "test", RowCount: int64(len(f.results))}, nil
}

type fakeGenerator struct {
	err   error
	reply string
	calls int
}

func (f *fakeGenerator) GenerateCompletion(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if f.reply != "" {
		return f.reply, nil
	}
	return fmt.Sprintf("answer #%d citing [Source 1]", f.calls), nil
}

func docs() []schema.SearchResult {
	return []schema.SearchResult{
		{Document: schema.Document{ID: "1", Filename: "acm_10k.pdf", ChunkID: "c1", Content: "Revenue was $4.2B."}, Score: 0.9},
		{Document: schema.Document{ID: "2", Filename: "acm_10k.pdf", ChunkID: "c2", Content: "Cash was $800M."}, Score: 0.6},
	}
}

func newTestEngine(idx *fakeIndex, gen *fakeGenerator) *Engine {
	embedder := &fakeEmbedder{}
	return New(Config{RetrievalTopK: 30, FinalTopK: 10, EnableRerank: true}, Deps{
		EmbedCache:    cache.NewEmbeddingCache(100, time.Hour, embedder.Model()),
		ResultCache:   cache.NewResultCache(100, time.Hour),
		Conversations: memory.NewInMemoryStore(memory.InMemoryStoreConfig{Estimator: &memory.TokenEstimator{}}),
		Retriever: &retriever.VectorRetriever{
			Embedder: &retriever.CachedEmbedder{Provider: embedder},
			Store:    idx,
		},
		Index:     idx,
		Reranker:  rerank.NewMMR(0.5),
		Generator: gen,
	})
}

func TestIdenticalQueriesHitCache(t *testing.T) {
	gen := &fakeGenerator{}
	e := newTestEngine(&fakeIndex{results: docs()}, gen)
	ctx := context.Background()
	req := schema.QueryRequest{Query: "Total revenue for fiscal 2024", Ticker: "ACM", TopK: 10}

	first, err := e.ProcessQuery(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := e.ProcessQuery(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.GreaterOrEqual(t, second.CacheHits, uint64(1))
	assert.Equal(t, first.Answer, second.Answer)
	assert.Equal(t, 1, gen.calls, "second query must not reach the generator")
}

func TestCacheKeyIgnoresSessionAndNormalizes(t *testing.T) {
	gen := &fakeGenerator{}
	e := newTestEngine(&fakeIndex{results: docs()}, gen)
	ctx := context.Background()

	_, err := e.ProcessQuery(ctx, schema.QueryRequest{Query: "Total revenue for fiscal 2024", SessionID: "s1"})
	require.NoError(t, err)

	second, err := e.ProcessQuery(ctx, schema.QueryRequest{Query: "  TOTAL revenue for fiscal 2024 ", SessionID: "s2"})
	require.NoError(t, err)
	assert.True(t, second.FromCache, "results are shared across sessions")
	assert.Equal(t, "s2", second.SessionID)
}

func TestFollowUpBypassesCache(t *testing.T) {
	gen := &fakeGenerator{}
	e := newTestEngine(&fakeIndex{results: docs()}, gen)
	ctx := context.Background()

	followUp := schema.QueryRequest{Query: "What about the following year?", SessionID: "s1"}

	first, err := e.ProcessQuery(ctx, followUp)
	require.NoError(t, err)
	second, err := e.ProcessQuery(ctx, followUp)
	require.NoError(t, err)

	assert.False(t, first.FromCache)
	assert.False(t, second.FromCache)
	assert.Equal(t, 2, gen.calls, "follow-ups are recomputed every time")
	assert.Equal(t, 0, e.CacheStats().Results.Size, "follow-up results are never written to the cache")
}

func TestInvalidFilterRejectedBeforeExternals(t *testing.T) {
	embedderCalls := &fakeEmbedder{}
	gen := &fakeGenerator{}
	e := New(Config{}, Deps{
		EmbedCache:  cache.NewEmbeddingCache(100, time.Hour, "fake-model"),
		ResultCache: cache.NewResultCache(100, time.Hour),
		Retriever: &retriever.VectorRetriever{
			Embedder: &retriever.CachedEmbedder{Provider: embedderCalls},
			Store:    &fakeIndex{results: docs()},
		},
		Generator: gen,
	})

	_, err := e.ProcessQuery(context.Background(), schema.QueryRequest{
		Query:    "What was revenue?",
		DocTypes: []string{"tweet"},
	})
	require.ErrorIs(t, err, schema.ErrInvalidFilter)
	assert.Zero(t, embedderCalls.calls)
	assert.Zero(t, gen.calls)
}

func TestRetrievalFailureYieldsDegradedResult(t *testing.T) {
	e := newTestEngine(&fakeIndex{err: schema.ErrServiceUnavailable}, &fakeGenerator{})

	res, err := e.ProcessQuery(context.Background(), schema.QueryRequest{Query: "Total revenue for fiscal 2024"})
	require.NoError(t, err, "service failures surface as degraded results, not errors")
	assert.True(t, res.Degraded)
	assert.NotEmpty(t, res.Answer)
	assert.Empty(t, res.Sources)
	assert.Equal(t, 0, e.CacheStats().Results.Size, "degraded results are never cached")
}

func TestGenerationFailureYieldsDegradedResult(t *testing.T) {
	e := newTestEngine(&fakeIndex{results: docs()}, &fakeGenerator{err: errors.New("timeout")})

	res, err := e.ProcessQuery(context.Background(), schema.QueryRequest{Query: "Total revenue for fiscal 2024"})
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Equal(t, 0, e.CacheStats().Results.Size)
}

func TestConversationContextFlowsIntoFollowUps(t *testing.T) {
	gen := &fakeGenerator{}
	e := newTestEngine(&fakeIndex{results: docs()}, gen)
	ctx := context.Background()

	_, err := e.ProcessQuery(ctx, schema.QueryRequest{Query: "Total revenue for fiscal 2024", SessionID: "s1"})
	require.NoError(t, err)

	history := e.deps.Conversations
	rendered, err := history.Context(ctx, "s1")
	require.NoError(t, err)
	assert.Contains(t, rendered, "Total revenue for fiscal 2024")
}

func TestClearCachesZeroesStats(t *testing.T) {
	e := newTestEngine(&fakeIndex{results: docs()}, &fakeGenerator{})
	ctx := context.Background()

	req := schema.QueryRequest{Query: "Total revenue for fiscal 2024"}
	_, err := e.ProcessQuery(ctx, req)
	require.NoError(t, err)
	_, err = e.ProcessQuery(ctx, req)
	require.NoError(t, err)

	e.ClearCaches()

	stats := e.CacheStats()
	assert.Zero(t, stats.Results.Size)
	assert.Zero(t, stats.Results.Hits)
	assert.Zero(t, stats.Results.Misses)
	assert.Zero(t, stats.Embedding.Size)
	assert.Zero(t, stats.Embedding.Hits)
	assert.Zero(t, stats.Embedding.Misses)
}

func TestDeleteSession(t *testing.T) {
	e := newTestEngine(&fakeIndex{results: docs()}, &fakeGenerator{})
	ctx := context.Background()

	_, err := e.ProcessQuery(ctx, schema.QueryRequest{Query: "Total revenue for fiscal 2024", SessionID: "s1"})
	require.NoError(t, err)

	ok, err := e.DeleteSession(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.DeleteSession(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, ok, "deleting an unknown session is a no-op")
}

func TestRerankDiversifiesRetrievedDocuments(t *testing.T) {
	// The index returns documents without vectors, as the search adapter
	// does; the engine embeds candidate contents before reranking so the
	// diversity penalty can displace a near-duplicate.
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"Net revenue grew 12% in fiscal 2024.":        {1, 0},
		"Net revenue grew twelve percent in FY2024.":  {0.995, 0.0998},
		"Operating cash flow was $310M for the year.": {0.1, 0.995},
	}}
	idx := &fakeIndex{results: []schema.SearchResult{
		{Document: schema.Document{ID: "a", Filename: "a.pdf", ChunkID: "c1", Content: "Net revenue grew 12% in fiscal 2024."}, Score: 0.9},
		{Document: schema.Document{ID: "b", Filename: "b.pdf", ChunkID: "c1", Content: "Net revenue grew twelve percent in FY2024."}, Score: 0.85},
		{Document: schema.Document{ID: "c", Filename: "c.pdf", ChunkID: "c1", Content: "Operating cash flow was $310M for the year."}, Score: 0.7},
	}}
	gen := &fakeGenerator{reply: "Revenue grew while cash flow held steady."}
	e := New(Config{RetrievalTopK: 30, FinalTopK: 10, EnableRerank: true}, Deps{
		EmbedCache:  cache.NewEmbeddingCache(100, time.Hour, embedder.Model()),
		ResultCache: cache.NewResultCache(100, time.Hour),
		Retriever: &retriever.VectorRetriever{
			Embedder: &retriever.CachedEmbedder{Provider: embedder},
			Store:    idx,
		},
		Index:     idx,
		Reranker:  rerank.NewMMR(0.5),
		Generator: gen,
	})

	res, err := e.ProcessQuery(context.Background(), schema.QueryRequest{Query: "Summarize revenue growth alongside cash flow", TopK: 2})
	require.NoError(t, err)
	require.Len(t, res.Sources, 2)
	assert.Equal(t, "a.pdf", res.Sources[0].Filename)
	assert.Equal(t, "c.pdf", res.Sources[1].Filename,
		"the near-duplicate of the top document yields its slot to the diverse one")
}

func TestTopKBoundsFinalSourcesNotRetrievalDepth(t *testing.T) {
	idx := &fakeIndex{results: docs()}
	gen := &fakeGenerator{}
	e := newTestEngine(idx, gen)
	ctx := context.Background()

	res, err := e.ProcessQuery(ctx, schema.QueryRequest{Query: "Total revenue for fiscal 2024", TopK: 1})
	require.NoError(t, err)
	assert.Equal(t, 30, idx.gotTopK, "retrieval always runs at the configured candidate pool depth")
	assert.LessOrEqual(t, len(res.Sources), 1)

	// A different final source count is a different cache entry.
	second, err := e.ProcessQuery(ctx, schema.QueryRequest{Query: "Total revenue for fiscal 2024", TopK: 2})
	require.NoError(t, err)
	assert.False(t, second.FromCache)
	assert.Equal(t, 2, gen.calls)
}

func TestEmptyRetrievalProducesWellFormedResult(t *testing.T) {
	gen := &fakeGenerator{}
	e := newTestEngine(&fakeIndex{}, gen)

	res, err := e.ProcessQuery(context.Background(), schema.QueryRequest{Query: "Total revenue for fiscal 2024"})
	require.NoError(t, err)
	assert.False(t, res.Degraded)
	assert.NotEmpty(t, res.Answer)
	assert.Empty(t, res.Sources)
	assert.Zero(t, gen.calls, "nothing to ground an answer on, generator is skipped")
}
