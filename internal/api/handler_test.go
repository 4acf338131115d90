package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight/finsight/internal/cache"
	"github.com/finsight/finsight/internal/engine"
	"github.com/finsight/finsight/internal/memory"
	"github.com/finsight/finsight/internal/retriever"
	"github.com/finsight/finsight/internal/schema"
	"github.com/finsight/finsight/internal/vectordb"
)

type stubEmbedder struct{}

func (stubEmbedder) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (stubEmbedder) Model() string { return "stub" }

type stubIndex struct{}

func (stubIndex) Search(ctx context.Context, vector []float32, filter vectordb.Filter, topK int) ([]schema.SearchResult, error) {
	return []schema.SearchResult{
		{Document: schema.Document{Filename: "acm_10k.pdf", ChunkID: "c1", Content: "Revenue was $4.2B."}, Score: 0.9},
	}, nil
}

func (stubIndex) Stats(ctx context.Context) (vectordb.IndexStats, error) {
	return vectordb.IndexStats{Collection: "test", RowCount: 1}, nil
}

type stubGenerator struct{}

func (stubGenerator) GenerateCompletion(ctx context.Context, prompt string) (string, error) {
	return "Revenue was $4.2B [Source 1].", nil
}

func newTestApp() *fiber.App {
	e := engine.New(engine.Config{}, engine.Deps{
		EmbedCache:    cache.NewEmbeddingCache(100, time.Hour, "stub"),
		ResultCache:   cache.NewResultCache(100, time.Hour),
		Conversations: memory.NewInMemoryStore(memory.InMemoryStoreConfig{Estimator: &memory.TokenEstimator{}}),
		Retriever: &retriever.VectorRetriever{
			Embedder: &retriever.CachedEmbedder{Provider: stubEmbedder{}},
			Store:    stubIndex{},
		},
		Index:     stubIndex{},
		Generator: stubGenerator{},
	})
	app := fiber.New()
	Register(app, NewHandler(e, nil))
	return app
}

func postQuery(t *testing.T, app *fiber.App, body string) (*schema.QueryResult, int, string) {
	t.Helper()
	req := httptest.NewRequest("POST", "/v1/query", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if resp.StatusCode != fiber.StatusOK {
		return nil, resp.StatusCode, ""
	}
	var result schema.QueryResult
	require.NoError(t, json.Unmarshal(data, &result))
	return &result, resp.StatusCode, resp.Header.Get("X-Finsight-Cache")
}

func TestQueryEndpoint(t *testing.T) {
	app := newTestApp()

	result, status, cacheHdr := postQuery(t, app, `{"query":"What was total revenue in fiscal 2024?"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "miss", cacheHdr)
	assert.Contains(t, result.Answer, "Revenue")
	assert.NotEmpty(t, result.SessionID, "a session id is assigned when absent")
	require.Len(t, result.Sources, 1)
	assert.Equal(t, "acm_10k.pdf", result.Sources[0].Filename)

	_, status, cacheHdr = postQuery(t, app, `{"query":"What was total revenue in fiscal 2024?"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "hit", cacheHdr)
}

func TestQueryEndpointRejectsInvalidFilter(t *testing.T) {
	app := newTestApp()

	_, status, _ := postQuery(t, app, `{"query":"What was revenue?","doc_types":["tweet"]}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestCacheEndpoints(t *testing.T) {
	app := newTestApp()

	_, status, _ := postQuery(t, app, `{"query":"What was total revenue in fiscal 2024?"}`)
	require.Equal(t, fiber.StatusOK, status)

	resp, err := app.Test(httptest.NewRequest("DELETE", "/v1/cache", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/v1/cache/stats", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var report engine.CacheStatsReport
	data, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Zero(t, report.Results.Size)
	assert.Zero(t, report.Results.Hits)
	assert.Zero(t, report.Embedding.Size)
}

func TestDeleteSessionEndpoint(t *testing.T) {
	app := newTestApp()

	result, status, _ := postQuery(t, app, `{"query":"What was total revenue in fiscal 2024?","session_id":"s1"}`)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "s1", result.SessionID)

	resp, err := app.Test(httptest.NewRequest("DELETE", "/v1/session/s1", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("DELETE", "/v1/session/unknown", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode, "unknown session delete is a no-op")
}

func TestHealthEndpoint(t *testing.T) {
	app := newTestApp()
	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
