package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/undergnarly/odoo-mcp-chat/model"
)

// historyTTL bounds how long idle conversations are kept.
const historyTTL = 24 * time.Hour

// RedisStore is a Redis-backed Store for multi-instance deployments.
// History lives in a list, the pending action in a key with TTL.
type RedisStore struct {
	client redis.Cmdable
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func historyKey(sessionID string) string { return "session:" + sessionID + ":history" }
func pendingKey(sessionID string) string { return "session:" + sessionID + ":pending" }

// History returns the stored conversation turns, oldest first.
func (s *RedisStore) History(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	raw, err := s.client.LRange(ctx, historyKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("session: reading history: %w", err)
	}
	turns := make([]model.ChatMessage, 0, len(raw))
	for _, entry := range raw {
		var turn model.ChatMessage
		if err := json.Unmarshal([]byte(entry), &turn); err != nil {
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// AppendHistory appends turns, trimming to the retention bound.
func (s *RedisStore) AppendHistory(ctx context.Context, sessionID string, turns ...model.ChatMessage) error {
	key := historyKey(sessionID)
	pipe := s.client.TxPipeline()
	for _, turn := range turns {
		encoded, err := json.Marshal(turn)
		if err != nil {
			return fmt.Errorf("session: encoding turn: %w", err)
		}
		pipe.RPush(ctx, key, encoded)
	}
	pipe.LTrim(ctx, key, -int64(maxHistoryTurns), -1)
	pipe.Expire(ctx, key, historyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session: appending history: %w", err)
	}
	return nil
}

// ClearHistory removes all stored turns.
func (s *RedisStore) ClearHistory(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, historyKey(sessionID)).Err()
}

// SetPending stores the action awaiting confirmation.
func (s *RedisStore) SetPending(ctx context.Context, sessionID string, action model.PendingAction, ttl time.Duration) error {
	encoded, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("session: encoding pending action: %w", err)
	}
	return s.client.Set(ctx, pendingKey(sessionID), encoded, ttl).Err()
}

// Pending returns the action awaiting confirmation, or nil.
func (s *RedisStore) Pending(ctx context.Context, sessionID string) (*model.PendingAction, error) {
	raw, err := s.client.Get(ctx, pendingKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: reading pending action: %w", err)
	}
	var action model.PendingAction
	if err := json.Unmarshal(raw, &action); err != nil {
		return nil, fmt.Errorf("session: decoding pending action: %w", err)
	}
	return &action, nil
}

// ClearPending removes the pending action.
func (s *RedisStore) ClearPending(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, pendingKey(sessionID)).Err()
}

// HealthCheck pings Redis.
func (s *RedisStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
