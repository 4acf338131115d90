package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps conversation history in Redis for multi-instance
// deployments. Idle expiry rides on key TTLs, so no sweeper is needed.
type RedisStore struct {
	client       *redis.Client
	keyPrefix    string
	sessionTTL   time.Duration
	maxExchanges int
	tokenBudget  int
	renderLimit  int
	estimator    *TokenEstimator
}

type RedisStoreConfig struct {
	Client       *redis.Client
	KeyPrefix    string
	SessionTTL   time.Duration
	MaxExchanges int
	TokenBudget  int
	RenderLimit  int
	Estimator    *TokenEstimator
}

func NewRedisStore(cfg RedisStoreConfig) *RedisStore {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "finsight:conversation:"
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = time.Hour
	}
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
	return &RedisStore{
		client:       cfg.Client,
		keyPrefix:    cfg.KeyPrefix,
		sessionTTL:   cfg.SessionTTL,
		maxExchanges: cfg.MaxExchanges,
		tokenBudget:  cfg.TokenBudget,
		renderLimit:  cfg.RenderLimit,
		estimator:    cfg.Estimator,
	}
}

func (s *RedisStore) key(sessionID string) string {
	return s.keyPrefix + sessionID
}

func (s *RedisStore) load(ctx context.Context, sessionID string) ([]Exchange, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	var exchanges []Exchange
	if err := json.Unmarshal([]byte(raw), &exchanges); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return exchanges, nil
}

func (s *RedisStore) Append(ctx context.Context, sessionID, question, answer string) error {
	exchanges, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}
	exchanges = append(exchanges, Exchange{Question: question, Answer: answer, Timestamp: time.Now()})
	exchanges, _ = trimExchanges(exchanges, s.estimator, s.maxExchanges, s.tokenBudget, s.renderLimit)

	data, err := json.Marshal(exchanges)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sessionID, err)
	}
	return s.client.Set(ctx, s.key(sessionID), data, s.sessionTTL).Err()
}

func (s *RedisStore) Context(ctx context.Context, sessionID string) (string, error) {
	exchanges, err := s.load(ctx, sessionID)
	if err != nil || len(exchanges) == 0 {
		return "", err
	}
	return renderExchanges(exchanges, s.renderLimit), nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.client.Del(ctx, s.key(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return n > 0, nil
}

func (s *RedisStore) Sessions(ctx context.Context) (int, error) {
	var count int
	iter := s.client.Scan(ctx, 0, s.keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("scan sessions: %w", err)
	}
	return count, nil
}
