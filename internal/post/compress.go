// Package post holds post-retrieval processing: contextual compression of
// candidate chunks before they enter the generation prompt.
package post

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/finsight/finsight/internal/llm"
	"github.com/finsight/finsight/internal/schema"
)

// Compressor reduces candidate chunks to their query-relevant content.
type Compressor interface {
	Compress(ctx context.Context, query string, in []schema.SearchResult) ([]schema.SearchResult, error)
}

// notRelevantMarker is the provider's sentinel for a chunk with nothing to
// contribute; such chunks are dropped from the context.
const notRelevantMarker = "NOT_RELEVANT"

// minCompressLength skips chunks already short enough to keep verbatim.
const minCompressLength = 200

// SelectiveCompressor asks the completion provider for only the sentences
// relevant to the query. Provider failure keeps the original chunk: a full
// chunk beats an empty context.
type SelectiveCompressor struct {
	Provider llm.Provider
	Log      *zap.Logger
}

func (s *SelectiveCompressor) Compress(ctx context.Context, query string, in []schema.SearchResult) ([]schema.SearchResult, error) {
	if s.Provider == nil {
		return in, nil
	}
	out := make([]schema.SearchResult, 0, len(in))
	for _, res := range in {
		if len(res.Document.Content) < minCompressLength {
			out = append(out, res)
			continue
		}
		reply, err := s.Provider.GenerateCompletion(ctx, llm.CompressionPrompt(query, res.Document.Content))
		if err != nil {
			if s.Log != nil {
				s.Log.Warn("compression failed, keeping original chunk",
					zap.String("chunk_id", res.Document.ChunkID), zap.Error(err))
			}
			out = append(out, res)
			continue
		}
		reply = strings.TrimSpace(reply)
		if strings.EqualFold(reply, notRelevantMarker) {
			continue
		}
		if reply == "" {
			out = append(out, res)
			continue
		}
		res.Document.Content = reply
		out = append(out, res)
	}
	return out, nil
}

// TruncateCompressor caps each chunk at a character budget. It is the
// non-LLM fallback when selective compression is disabled.
type TruncateCompressor struct {
	MaxChars int
}

func (t *TruncateCompressor) Compress(ctx context.Context, query string, in []schema.SearchResult) ([]schema.SearchResult, error) {
	limit := t.MaxChars
	if limit <= 0 {
		limit = 1500
	}
	out := make([]schema.SearchResult, len(in))
	copy(out, in)
	for i := range out {
		if len(out[i].Document.Content) > limit {
			out[i].Document.Content = out[i].Document.Content[:limit] + "..."
		}
	}
	return out, nil
}

// NewCompressor selects a compression strategy by name. Unknown methods fall
// back to truncation.
func NewCompressor(method string, provider llm.Provider, maxChars int, log *zap.Logger) Compressor {
	switch method {
	case "selective":
		return &SelectiveCompressor{Provider: provider, Log: log}
	default:
		return &TruncateCompressor{MaxChars: maxChars}
	}
}
