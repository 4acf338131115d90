// Package llm defines the completion provider contract and its OpenAI
// implementation. Query expansion, contextual compression and answer
// synthesis all ride on the same transport with different prompts.
package llm

import "context"

// Provider generates a completion for a prompt.
type Provider interface {
	GenerateCompletion(ctx context.Context, prompt string) (string, error)
}
