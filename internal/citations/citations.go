// Package citations numbers retrieved chunks, renders them as a prompt
// context and maps [Source N] references in an answer back to sources.
package citations

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/finsight/finsight/internal/schema"
)

// excerptLength bounds the source excerpt surfaced in API responses.
const excerptLength = 200

// Tracker assigns stable source numbers to a query's candidate chunks.
type Tracker struct {
	sources []schema.Source
}

// NewTracker numbers the results in order, 1-based.
func NewTracker(results []schema.SearchResult) *Tracker {
	t := &Tracker{sources: make([]schema.Source, 0, len(results))}
	for i, res := range results {
		t.sources = append(t.sources, schema.Source{
			Index:    i + 1,
			Filename: res.Document.Filename,
			ChunkID:  res.Document.ChunkID,
			Ticker:   res.Document.Ticker,
			DocType:  res.Document.DocType,
			Excerpt:  excerpt(res.Document.Content),
			Score:    res.Score,
		})
	}
	return t
}

// Context renders the numbered chunks for the generation prompt.
func (t *Tracker) Context(results []schema.SearchResult) string {
	var b strings.Builder
	for i, res := range results {
		fmt.Fprintf(&b, "[Source %d] %s\n%s\n\n", i+1, res.Document.Filename, res.Document.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Sources returns all numbered sources.
func (t *Tracker) Sources() []schema.Source {
	return t.sources
}

var citationPattern = regexp.MustCompile(`\[Source (\d+)\]`)

// CitedSources returns only the sources the answer actually references, in
// numbering order. An answer without citations keeps the full list, so the
// caller never loses provenance.
func (t *Tracker) CitedSources(answer string) []schema.Source {
	matches := citationPattern.FindAllStringSubmatch(answer, -1)
	if len(matches) == 0 {
		return t.sources
	}
	cited := make(map[int]struct{}, len(matches))
	for _, m := range matches {
		if n, err := strconv.Atoi(m[1]); err == nil {
			cited[n] = struct{}{}
		}
	}
	out := make([]schema.Source, 0, len(cited))
	for _, src := range t.sources {
		if _, ok := cited[src.Index]; ok {
			out = append(out, src)
		}
	}
	if len(out) == 0 {
		return t.sources
	}
	return out
}

func excerpt(content string) string {
	if len(content) <= excerptLength {
		return content
	}
	return content[:excerptLength] + "..."
}
