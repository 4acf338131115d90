// Package rerank selects a diverse subset of retrieved candidates using
// Maximal Marginal Relevance.
package rerank

import (
	"math"
	"sort"

	"github.com/finsight/finsight/internal/schema"
)

// MMR reranks greedily: the highest-relevance candidate first, then
// repeatedly the candidate maximizing
//
//	lambda*relevance(d) - (1-lambda)*maxSimilarity(d, selected)
//
// Greedy selection is locally optimal only; that is the documented behavior,
// not a defect to optimize away.
type MMR struct {
	// Lambda in [0,1] trades relevance against redundancy. 1 is pure
	// relevance ordering, 0 pure diversity.
	Lambda float64
}

func NewMMR(lambda float64) *MMR {
	if lambda < 0 || lambda > 1 {
		lambda = 0.5
	}
	return &MMR{Lambda: lambda}
}

// Rerank returns min(topN, len(in)) results. Candidates without embeddings
// cannot contribute similarity, so the whole input falls back to a stable
// relevance sort.
func (m *MMR) Rerank(in []schema.SearchResult, topN int) []schema.SearchResult {
	if topN <= 0 || topN > len(in) {
		topN = len(in)
	}
	if len(in) == 0 {
		return nil
	}
	if !hasEmbeddings(in) {
		out := make([]schema.SearchResult, len(in))
		copy(out, in)
		sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
		return out[:topN]
	}

	selected := make([]schema.SearchResult, 0, topN)
	remaining := make([]int, len(in))
	for i := range in {
		remaining[i] = i
	}

	for len(selected) < topN && len(remaining) > 0 {
		bestPos := 0
		bestScore := math.Inf(-1)
		for pos, idx := range remaining {
			var score float64
			if len(selected) == 0 {
				score = in[idx].Score
			} else {
				score = m.Lambda*in[idx].Score - (1-m.Lambda)*maxSimilarity(in[idx], selected)
			}
			// Strict greater-than keeps ties on the earlier original rank.
			if score > bestScore {
				bestScore = score
				bestPos = pos
			}
		}
		selected = append(selected, in[remaining[bestPos]])
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}
	return selected
}

func hasEmbeddings(in []schema.SearchResult) bool {
	for _, r := range in {
		if len(r.Document.Embedding) == 0 {
			return false
		}
	}
	return true
}

func maxSimilarity(candidate schema.SearchResult, selected []schema.SearchResult) float64 {
	max := 0.0
	for _, s := range selected {
		if sim := cosine(candidate.Document.Embedding, s.Document.Embedding); sim > max {
			max = sim
		}
	}
	return max
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
