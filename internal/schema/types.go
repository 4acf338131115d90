package schema

import "time"

// Document is one retrieved chunk of a financial filing.
type Document struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Ticker    string    `json:"ticker,omitempty"`
	DocType   string    `json:"doc_type,omitempty"`
	Filename  string    `json:"filename,omitempty"`
	ChunkID   string    `json:"chunk_id,omitempty"`
	Embedding []float32 `json:"-"`
}

// SearchResult pairs a document with its relevance score against the query.
type SearchResult struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}

// QueryRequest is the single logical input to the query engine.
type QueryRequest struct {
	Query     string   `json:"query"`
	Ticker    string   `json:"ticker,omitempty"`
	DocTypes  []string `json:"doc_types,omitempty"`
	TopK      int      `json:"top_k,omitempty"`
	SessionID string   `json:"session_id,omitempty"`
}

// Source is one citation record attached to an answer.
type Source struct {
	Index    int     `json:"index"`
	Filename string  `json:"filename"`
	ChunkID  string  `json:"chunk_id,omitempty"`
	Ticker   string  `json:"ticker,omitempty"`
	DocType  string  `json:"doc_type,omitempty"`
	Excerpt  string  `json:"excerpt"`
	Score    float64 `json:"score"`
}

// QueryResult is always well-formed: a failed pipeline produces a degraded
// result with an explanatory answer, never a partial object.
type QueryResult struct {
	Answer          string        `json:"answer"`
	Sources         []Source      `json:"sources"`
	ExpandedQueries []string      `json:"expanded_queries,omitempty"`
	SessionID       string        `json:"session_id,omitempty"`
	ProcessingTime  time.Duration `json:"processing_time"`
	FromCache       bool          `json:"from_cache"`
	CacheAge        time.Duration `json:"cache_age,omitempty"`
	CacheHits       uint64        `json:"cache_hits,omitempty"`
	Degraded        bool          `json:"degraded,omitempty"`
}

// Clone returns a deep copy so cached results are never mutated by callers.
func (r *QueryResult) Clone() *QueryResult {
	if r == nil {
		return nil
	}
	out := *r
	if r.Sources != nil {
		out.Sources = make([]Source, len(r.Sources))
		copy(out.Sources, r.Sources)
	}
	if r.ExpandedQueries != nil {
		out.ExpandedQueries = make([]string, len(r.ExpandedQueries))
		copy(out.ExpandedQueries, r.ExpandedQueries)
	}
	return &out
}
