package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

func hashKey(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// EmbeddingKey derives the cache key for a text/model pair.
func EmbeddingKey(text, model string) string {
	return hashKey(normalize(text) + "|" + model)
}

// ResultKey derives the shared key for a query result. The session id is
// deliberately excluded so identical questions hit across sessions; doc
// types are sorted so filter order does not fragment the cache.
func ResultKey(query, ticker string, docTypes []string, topK int) string {
	sorted := make([]string, len(docTypes))
	copy(sorted, docTypes)
	sort.Strings(sorted)
	base := fmt.Sprintf("%s|%s|%s|%d", normalize(query), normalize(ticker), strings.Join(sorted, ","), topK)
	return hashKey(base)
}
