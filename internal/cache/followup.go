package cache

import "strings"

// Markers that signal a query depends on prior conversational context.
// A fixed list is imprecise for paraphrased anaphora; it is kept as a pure
// function so the classifier can be swapped without touching the engine.
var (
	followUpWords = map[string]struct{}{
		"it":       {},
		"that":     {},
		"this":     {},
		"they":     {},
		"them":     {},
		"those":    {},
		"these":    {},
		"previous": {},
		"earlier":  {},
		"above":    {},
		"instead":  {},
		"also":     {},
		"versus":   {},
		"vs":       {},
		"compare":  {},
		"compared": {},
	}

	followUpPhrases = []string{
		"what about",
		"how about",
		"and for",
		"same for",
		"as well",
	}
)

// IsFollowUp reports whether the query looks context-dependent. Follow-ups
// bypass the result cache for both read and write: their meaning is bound to
// one session and must not leak into the shared cache.
func IsFollowUp(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return false
	}
	for _, phrase := range followUpPhrases {
		if strings.Contains(q, phrase) {
			return true
		}
	}
	for _, tok := range strings.Fields(q) {
		tok = strings.Trim(tok, ".,;:?!\"'()")
		if _, ok := followUpWords[tok]; ok {
			return true
		}
	}
	return false
}
