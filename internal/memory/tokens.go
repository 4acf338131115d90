package memory

import "github.com/pkoukk/tiktoken-go"

// TokenEstimator approximates token counts for trimming decisions. It is a
// local computation, never a service call, and never used for billing.
type TokenEstimator struct {
	enc *tiktoken.Tiktoken
}

// NewTokenEstimator loads the cl100k_base encoding, falling back to a
// character heuristic when the encoding is unavailable.
func NewTokenEstimator() *TokenEstimator {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return &TokenEstimator{}
	}
	return &TokenEstimator{enc: enc}
}

// Count returns the estimated token count for text.
func (e *TokenEstimator) Count(text string) int {
	if e == nil || e.enc == nil {
		// Rough average of 4 characters per token for English text.
		return (len(text) + 3) / 4
	}
	return len(e.enc.Encode(text, nil, nil))
}

func (e *TokenEstimator) countExchange(ex Exchange) int {
	return e.Count(ex.Question) + e.Count(ex.Answer)
}
