// Package vectordb adapts the Milvus vector index behind the retrieval
// contract the engine consumes.
package vectordb

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/finsight/finsight/internal/schema"
)

// Provider searches the vector index. Results come back sorted by
// descending relevance.
type Provider interface {
	Search(ctx context.Context, vector []float32, filter Filter, topK int) ([]schema.SearchResult, error)
	Stats(ctx context.Context) (IndexStats, error)
}

// IndexStats is a coarse snapshot of the backing collection.
type IndexStats struct {
	Collection string `json:"collection"`
	RowCount   int64  `json:"row_count"`
}

// MilvusStore implements Provider on a Milvus (or Zilliz Cloud) collection.
type MilvusStore struct {
	client      client.Client
	collection  string
	vectorField string
	metric      entity.MetricType
}

type MilvusConfig struct {
	Client      client.Client
	Collection  string
	VectorField string
}

func NewMilvusStore(cfg MilvusConfig) *MilvusStore {
	if cfg.Collection == "" {
		cfg.Collection = "financial_documents"
	}
	if cfg.VectorField == "" {
		cfg.VectorField = "embedding"
	}
	return &MilvusStore{
		client:      cfg.Client,
		collection:  cfg.Collection,
		vectorField: cfg.VectorField,
		metric:      entity.COSINE,
	}
}

var outputFields = []string{"content", "ticker", "doc_type", "filename", "chunk_id"}

func (m *MilvusStore) Search(ctx context.Context, vector []float32, filter Filter, topK int) ([]schema.SearchResult, error) {
	if topK <= 0 {
		topK = 10
	}
	sp, err := entity.NewIndexAUTOINDEXSearchParam(1)
	if err != nil {
		return nil, fmt.Errorf("%w: search params: %v", schema.ErrServiceUnavailable, err)
	}

	results, err := m.client.Search(ctx, m.collection, nil, filter.Expr(), outputFields,
		[]entity.Vector{entity.FloatVector(vector)}, m.vectorField, m.metric, topK, sp)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search: %v", schema.ErrServiceUnavailable, err)
	}

	var out []schema.SearchResult
	for _, rs := range results {
		for i := 0; i < rs.ResultCount; i++ {
			doc := schema.Document{
				ID:       columnString(rs.IDs, i),
				Content:  fieldString(rs.Fields, "content", i),
				Ticker:   fieldString(rs.Fields, "ticker", i),
				DocType:  fieldString(rs.Fields, "doc_type", i),
				Filename: fieldString(rs.Fields, "filename", i),
				ChunkID:  fieldString(rs.Fields, "chunk_id", i),
			}
			out = append(out, schema.SearchResult{
				Document: doc,
				Score:    float64(rs.Scores[i]),
			})
		}
	}
	return out, nil
}

func (m *MilvusStore) Stats(ctx context.Context) (IndexStats, error) {
	stats, err := m.client.GetCollectionStatistics(ctx, m.collection)
	if err != nil {
		return IndexStats{}, fmt.Errorf("%w: collection stats: %v", schema.ErrServiceUnavailable, err)
	}
	var rows int64
	if raw, ok := stats["row_count"]; ok {
		fmt.Sscanf(raw, "%d", &rows)
	}
	return IndexStats{Collection: m.collection, RowCount: rows}, nil
}

func fieldString(fields client.ResultSet, name string, idx int) string {
	col := fields.GetColumn(name)
	if col == nil {
		return ""
	}
	return columnString(col, idx)
}

func columnString(col entity.Column, idx int) string {
	if col == nil {
		return ""
	}
	if vc, ok := col.(*entity.ColumnVarChar); ok {
		data := vc.Data()
		if idx < len(data) {
			return data[idx]
		}
		return ""
	}
	v, err := col.Get(idx)
	if err != nil {
		return ""
	}
	return fmt.Sprint(v)
}
