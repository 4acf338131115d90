package citations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight/finsight/internal/schema"
)

func results() []schema.SearchResult {
	return []schema.SearchResult{
		{Document: schema.Document{Filename: "acm_10k.pdf", ChunkID: "c1", Content: "Revenue was $4.2B."}, Score: 0.9},
		{Document: schema.Document{Filename: "acm_10k.pdf", ChunkID: "c7", Content: "Cash was $800M."}, Score: 0.7},
		{Document: schema.Document{Filename: "acm_bs.pdf", ChunkID: "c2", Content: "Total assets were $6.1B."}, Score: 0.6},
	}
}

func TestTrackerNumbersSources(t *testing.T) {
	tr := NewTracker(results())

	srcs := tr.Sources()
	require.Len(t, srcs, 3)
	assert.Equal(t, 1, srcs[0].Index)
	assert.Equal(t, 3, srcs[2].Index)
	assert.Equal(t, "acm_bs.pdf", srcs[2].Filename)
}

func TestContextRendersNumberedChunks(t *testing.T) {
	tr := NewTracker(results())

	ctx := tr.Context(results())
	assert.Contains(t, ctx, "[Source 1] acm_10k.pdf")
	assert.Contains(t, ctx, "[Source 3] acm_bs.pdf")
	assert.Contains(t, ctx, "Revenue was $4.2B.")
}

func TestCitedSourcesFiltersToReferenced(t *testing.T) {
	tr := NewTracker(results())

	cited := tr.CitedSources("Revenue was $4.2B [Source 1] against assets of $6.1B [Source 3].")
	require.Len(t, cited, 2)
	assert.Equal(t, 1, cited[0].Index)
	assert.Equal(t, 3, cited[1].Index)
}

func TestCitedSourcesKeepsAllWithoutCitations(t *testing.T) {
	tr := NewTracker(results())
	assert.Len(t, tr.CitedSources("No citation markers here."), 3)
	assert.Len(t, tr.CitedSources("Only bogus markers [Source 9]."), 3)
}
