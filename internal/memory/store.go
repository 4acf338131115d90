// Package memory keeps bounded per-session conversation history for context
// injection into generation prompts.
package memory

import (
	"context"
	"time"
)

// Exchange is one question/answer round.
type Exchange struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}

// Store is the conversation history backend. Sessions are created lazily on
// first Append and removed only by explicit Delete or idle expiry.
type Store interface {
	// Append records an exchange, creating the session if absent, then trims
	// so neither the exchange count nor the token budget is exceeded.
	Append(ctx context.Context, sessionID, question, answer string) error

	// Context renders retained exchanges oldest-first for prompt inclusion.
	// Unknown or empty sessions yield an empty string.
	Context(ctx context.Context, sessionID string) (string, error)

	// Delete removes a session. Deleting an unknown session reports false
	// without error.
	Delete(ctx context.Context, sessionID string) (bool, error)

	// Sessions reports the number of live sessions.
	Sessions(ctx context.Context) (int, error)
}

// Sweeper is implemented by stores that need explicit idle-session cleanup.
// Backends with native key expiry (Redis) do not.
type Sweeper interface {
	SweepIdle(ctx context.Context, idleFor time.Duration) int
}
