package memory

import (
	"context"
	"strings"
	"sync"
	"time"
)

type session struct {
	exchanges   []Exchange
	totalTokens int
	createdAt   time.Time
	lastActive  time.Time
}

// InMemoryStore holds conversation history in process memory. Suitable for a
// single instance; use the Redis store for distributed deployments.
type InMemoryStore struct {
	mu           sync.RWMutex
	sessions     map[string]*session
	maxExchanges int
	tokenBudget  int
	renderLimit  int
	estimator    *TokenEstimator
	now          func() time.Time
}

// InMemoryStoreConfig bounds the history kept per session.
type InMemoryStoreConfig struct {
	MaxExchanges int
	TokenBudget  int
	RenderLimit  int
	Estimator    *TokenEstimator
}

func NewInMemoryStore(cfg InMemoryStoreConfig) *InMemoryStore {
	if cfg.MaxExchanges <= 0 {
		cfg.MaxExchanges = 10
	}
	if cfg.TokenBudget <= 0 {
		cfg.TokenBudget = 4000
	}
	if cfg.RenderLimit <= 0 {
		cfg.RenderLimit = 300
	}
	if cfg.Estimator == nil {
		cfg.Estimator = NewTokenEstimator()
	}
	return &InMemoryStore{
		sessions:     make(map[string]*session),
		maxExchanges: cfg.MaxExchanges,
		tokenBudget:  cfg.TokenBudget,
		renderLimit:  cfg.RenderLimit,
		estimator:    cfg.Estimator,
		now:          time.Now,
	}
}

func (s *InMemoryStore) Append(ctx context.Context, sessionID, question, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &session{createdAt: s.now()}
		s.sessions[sessionID] = sess
	}
	sess.lastActive = s.now()
	sess.exchanges = append(sess.exchanges, Exchange{
		Question:  question,
		Answer:    answer,
		Timestamp: s.now(),
	})
	s.trim(sess)
	return nil
}

func (s *InMemoryStore) trim(sess *session) {
	sess.exchanges, sess.totalTokens = trimExchanges(sess.exchanges, s.estimator, s.maxExchanges, s.tokenBudget, s.renderLimit)
}

func (s *InMemoryStore) Context(ctx context.Context, sessionID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok || len(sess.exchanges) == 0 {
		return "", nil
	}
	return renderExchanges(sess.exchanges, s.renderLimit), nil
}

func (s *InMemoryStore) Delete(ctx context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return false, nil
	}
	delete(s.sessions, sessionID)
	return true, nil
}

func (s *InMemoryStore) Sessions(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions), nil
}

// SweepIdle drops sessions inactive for longer than idleFor and reports how
// many were removed.
func (s *InMemoryStore) SweepIdle(ctx context.Context, idleFor time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-idleFor)
	removed := 0
	for id, sess := range s.sessions {
		if sess.lastActive.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func renderExchanges(exchanges []Exchange, limit int) string {
	var b strings.Builder
	b.WriteString("Previous conversation:\n")
	for _, ex := range exchanges {
		b.WriteString("Q: ")
		b.WriteString(truncate(ex.Question, limit))
		b.WriteString("\nA: ")
		b.WriteString(truncate(ex.Answer, limit))
		b.WriteString("\n")
	}
	return b.String()
}

func truncate(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
