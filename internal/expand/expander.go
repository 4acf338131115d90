// Package expand widens retrieval by rewording queries and splitting
// multi-part questions into standalone sub-questions.
package expand

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/finsight/finsight/internal/llm"
)

// Expander produces query variants through the completion provider. Any
// provider failure degrades to the original query alone.
type Expander struct {
	Provider    llm.Provider
	MaxVariants int
	Log         *zap.Logger
}

func NewExpander(provider llm.Provider, maxVariants int, log *zap.Logger) *Expander {
	if maxVariants <= 0 {
		maxVariants = 3
	}
	return &Expander{Provider: provider, MaxVariants: maxVariants, Log: log}
}

// Expand returns the original query first, followed by generated variants
// or sub-questions.
func (e *Expander) Expand(ctx context.Context, query string) []string {
	out := []string{query}
	if e.Provider == nil {
		return out
	}

	var prompt string
	switch {
	case isMultiPart(query):
		prompt = llm.DecomposePrompt(query)
	case shouldExpand(query):
		prompt = llm.ExpansionPrompt(query, e.MaxVariants-1)
	default:
		return out
	}

	reply, err := e.Provider.GenerateCompletion(ctx, prompt)
	if err != nil {
		if e.Log != nil {
			e.Log.Warn("query expansion failed, using original query", zap.Error(err))
		}
		return out
	}

	for _, line := range strings.Split(reply, "\n") {
		variant := cleanVariant(line)
		if variant == "" || strings.EqualFold(variant, query) {
			continue
		}
		out = append(out, variant)
		if len(out) >= e.MaxVariants {
			break
		}
	}
	return out
}

// isMultiPart detects explicitly enumerated or conjoined compound questions.
func isMultiPart(query string) bool {
	q := strings.ToLower(query)
	if strings.Contains(q, "1.") && strings.Contains(q, "2.") {
		return true
	}
	if strings.Contains(q, "1)") && strings.Contains(q, "2)") {
		return true
	}
	if strings.Count(q, "?") > 1 {
		return true
	}
	return strings.Contains(q, " and ") && len(strings.Fields(q)) > 15
}

// shouldExpand skips very short queries and simple factual lookups, which
// retrieve well as-is.
func shouldExpand(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if len(strings.Fields(q)) < 5 {
		return false
	}
	for _, simple := range []string{"what is ", "what was ", "when did ", "when was ", "where is "} {
		if strings.HasPrefix(q, simple) {
			return false
		}
	}
	return true
}

func cleanVariant(line string) string {
	v := strings.TrimSpace(line)
	v = strings.TrimLeft(v, "0123456789.)- ")
	return strings.TrimSpace(v)
}
