package schema

import "errors"

var (
	// ErrServiceUnavailable marks a failed or timed-out external call
	// (embedding, vector search, generation).
	ErrServiceUnavailable = errors.New("external service unavailable")

	// ErrInvalidFilter rejects malformed ticker or doc_type input before
	// any external service is invoked.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrSessionNotFound is returned by session lookups; callers treat it
	// as empty context, not a hard failure.
	ErrSessionNotFound = errors.New("session not found")
)
