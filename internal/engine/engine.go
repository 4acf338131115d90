// Package engine sequences the query pipeline: cache lookup, expansion,
// retrieval, reranking, compression, context merge, generation and cache
// write-back.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/finsight/finsight/internal/cache"
	"github.com/finsight/finsight/internal/citations"
	"github.com/finsight/finsight/internal/expand"
	"github.com/finsight/finsight/internal/llm"
	"github.com/finsight/finsight/internal/memory"
	"github.com/finsight/finsight/internal/metrics"
	"github.com/finsight/finsight/internal/post"
	"github.com/finsight/finsight/internal/rerank"
	"github.com/finsight/finsight/internal/retriever"
	"github.com/finsight/finsight/internal/schema"
	"github.com/finsight/finsight/internal/vectordb"
)

// Config toggles and bounds the pipeline stages. Disabled stages pass their
// input through unchanged.
type Config struct {
	RetrievalTopK     int
	FinalTopK         int
	EnableExpansion   bool
	EnableRerank      bool
	EnableCompression bool
}

func (c *Config) applyDefaults() {
	if c.RetrievalTopK <= 0 {
		c.RetrievalTopK = 30
	}
	if c.FinalTopK <= 0 {
		c.FinalTopK = 10
	}
}

// Deps are the injected collaborators. Caches and the conversation store are
// constructed by the process entry point and shared across requests.
type Deps struct {
	Log           *zap.Logger
	EmbedCache    *cache.EmbeddingCache
	ResultCache   *cache.ResultCache
	Conversations memory.Store
	Expander      *expand.Expander
	Retriever     *retriever.VectorRetriever
	Index         vectordb.Provider
	Reranker      *rerank.MMR
	Compressor    post.Compressor
	Generator     llm.Provider

	// IsFollowUp classifies context-dependent queries; defaults to the
	// fixed-marker classifier.
	IsFollowUp func(string) bool
}

// Engine is the orchestrating state machine. Safe for concurrent use; all
// shared state lives in its injected collaborators.
type Engine struct {
	cfg  Config
	deps Deps
	now  func() time.Time
}

func New(cfg Config, deps Deps) *Engine {
	cfg.applyDefaults()
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.IsFollowUp == nil {
		deps.IsFollowUp = cache.IsFollowUp
	}
	return &Engine{cfg: cfg, deps: deps, now: time.Now}
}

// ProcessQuery answers one query. It always returns a well-formed result:
// external-service failures yield a degraded result with an explanatory
// answer, not an error. The only error return is filter validation.
func (e *Engine) ProcessQuery(ctx context.Context, req schema.QueryRequest) (*schema.QueryResult, error) {
	start := e.now()

	if req.Query == "" {
		return nil, fmt.Errorf("%w: empty query", schema.ErrInvalidFilter)
	}
	filter := vectordb.Filter{Ticker: req.Ticker, DocTypes: req.DocTypes}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	// req.TopK is the number of sources in the final answer, not the
	// retrieval depth; retrieval always runs at the configured depth so
	// the reranker has a full candidate pool.
	finalK := req.TopK
	if finalK <= 0 {
		finalK = e.cfg.FinalTopK
	}

	followUp := e.deps.IsFollowUp(req.Query)
	var key string
	if followUp {
		metrics.CountFollowUp()
		metrics.CountCacheOp("result", "bypass")
		e.deps.Log.Debug("follow-up detected, bypassing result cache", zap.String("query", req.Query))
	} else {
		key = cache.ResultKey(req.Query, req.Ticker, req.DocTypes, finalK)
		if cached, ok := e.deps.ResultCache.Get(key); ok {
			metrics.CountCacheOp("result", "hit")
			cached.SessionID = req.SessionID
			cached.ProcessingTime = e.now().Sub(start)
			e.recordExchange(ctx, req.SessionID, req.Query, cached.Answer)
			return cached, nil
		}
		metrics.CountCacheOp("result", "miss")
	}

	// Expand
	queries := []string{req.Query}
	if e.cfg.EnableExpansion && e.deps.Expander != nil {
		stageStart := e.now()
		queries = e.deps.Expander.Expand(ctx, req.Query)
		metrics.ObserveStage("expand", e.now().Sub(stageStart))
	}

	// Embed + Retrieve
	stageStart := e.now()
	results, err := e.deps.Retriever.Retrieve(ctx, queries, filter, e.cfg.RetrievalTopK)
	metrics.ObserveStage("retrieve", e.now().Sub(stageStart))
	if err != nil {
		return e.degraded(req, queries, "retrieval", start, err), nil
	}
	metrics.ObserveRetrieved(len(results))

	if len(results) == 0 {
		result := &schema.QueryResult{
			Answer:          "No relevant documents were found for this question. Try broadening the question or removing the ticker or document type filters.",
			Sources:         []schema.Source{},
			ExpandedQueries: queries,
			SessionID:       req.SessionID,
			ProcessingTime:  e.now().Sub(start),
		}
		if !followUp {
			e.deps.ResultCache.Put(key, result)
		}
		return result, nil
	}

	// Rerank
	if e.cfg.EnableRerank && e.deps.Reranker != nil {
		stageStart = e.now()
		e.embedCandidates(ctx, results)
		results = e.deps.Reranker.Rerank(results, finalK)
		metrics.ObserveStage("rerank", e.now().Sub(stageStart))
	} else if len(results) > finalK {
		results = results[:finalK]
	}

	// Compress
	if e.cfg.EnableCompression && e.deps.Compressor != nil {
		stageStart = e.now()
		compressed, err := e.deps.Compressor.Compress(ctx, req.Query, results)
		metrics.ObserveStage("compress", e.now().Sub(stageStart))
		if err != nil {
			e.deps.Log.Warn("compression failed, using uncompressed chunks", zap.Error(err))
		} else {
			results = compressed
		}
	}

	// Context merge
	tracker := citations.NewTracker(results)
	history := e.conversationContext(ctx, req.SessionID)

	// Generate
	stageStart = e.now()
	answer, err := e.deps.Generator.GenerateCompletion(ctx, llm.AnswerPrompt(req.Query, tracker.Context(results), history))
	metrics.ObserveStage("generate", e.now().Sub(stageStart))
	if err != nil {
		return e.degraded(req, queries, "generation", start, err), nil
	}

	result := &schema.QueryResult{
		Answer:          answer,
		Sources:         tracker.CitedSources(answer),
		ExpandedQueries: queries,
		SessionID:       req.SessionID,
		ProcessingTime:  e.now().Sub(start),
	}

	// Cache write: follow-ups carry session-specific meaning and must not
	// enter the shared cache.
	if !followUp {
		e.deps.ResultCache.Put(key, result)
	}
	e.recordExchange(ctx, req.SessionID, req.Query, answer)

	metrics.ObserveQuery(e.now().Sub(start))
	return result, nil
}

// embedCandidates fills in missing document embeddings so diversity
// reranking can measure pairwise similarity. Lookups ride the embedding
// cache, so repeat candidates cost nothing. A failed lookup leaves the
// remaining documents untouched and the reranker falls back to relevance
// order.
func (e *Engine) embedCandidates(ctx context.Context, results []schema.SearchResult) {
	if e.deps.Retriever == nil || e.deps.Retriever.Embedder == nil {
		return
	}
	for i := range results {
		if len(results[i].Document.Embedding) > 0 {
			continue
		}
		vec, err := e.deps.Retriever.Embedder.Embed(ctx, results[i].Document.Content)
		if err != nil {
			e.deps.Log.Warn("candidate embedding failed, reranking by relevance only", zap.Error(err))
			return
		}
		results[i].Document.Embedding = vec
	}
}

// degraded is the terminal state for external-service failures. Degraded
// results are never cached and never appended to conversation history.
func (e *Engine) degraded(req schema.QueryRequest, queries []string, stage string, start time.Time, cause error) *schema.QueryResult {
	metrics.CountDegraded(stage)
	e.deps.Log.Error("pipeline stage failed, returning degraded result",
		zap.String("stage", stage), zap.Error(cause))
	return &schema.QueryResult{
		Answer:          fmt.Sprintf("The answer could not be generated because a backing service is unavailable (%s failed). Please retry shortly.", stage),
		Sources:         []schema.Source{},
		ExpandedQueries: queries,
		SessionID:       req.SessionID,
		ProcessingTime:  e.now().Sub(start),
		Degraded:        true,
	}
}

func (e *Engine) conversationContext(ctx context.Context, sessionID string) string {
	if sessionID == "" || e.deps.Conversations == nil {
		return ""
	}
	history, err := e.deps.Conversations.Context(ctx, sessionID)
	if err != nil {
		e.deps.Log.Warn("conversation context unavailable", zap.String("session_id", sessionID), zap.Error(err))
		return ""
	}
	return history
}

func (e *Engine) recordExchange(ctx context.Context, sessionID, question, answer string) {
	if sessionID == "" || e.deps.Conversations == nil {
		return
	}
	if err := e.deps.Conversations.Append(ctx, sessionID, question, answer); err != nil {
		e.deps.Log.Warn("failed to record exchange", zap.String("session_id", sessionID), zap.Error(err))
	}
}
