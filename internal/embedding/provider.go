// Package embedding defines the text embedding contract and its OpenAI
// implementation.
package embedding

import "context"

// Provider computes a vector for a text.
type Provider interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
	// Model identifies the embedding model, used in cache key derivation.
	Model() string
}
