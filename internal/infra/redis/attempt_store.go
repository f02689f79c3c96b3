package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"quizmaster-service/internal/domain"
)

// AttemptStore keeps shuffle mappings in Redis so any instance can grade a submission.
// Keys: attempt:{userID}:{quizID} -> JSON mapping, expiring after ttl.
// Take uses GETDEL so two concurrent submits cannot both read the mapping.
type AttemptStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAttemptStore(client *redis.Client, ttl time.Duration) *AttemptStore {
	return &AttemptStore{client: client, ttl: ttl}
}

func (s *AttemptStore) Put(ctx context.Context, userID string, quizID int64, mapping domain.AttemptMapping) error {
	payload, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("marshal attempt mapping: %w", err)
	}
	return s.client.Set(ctx, s.key(userID, quizID), payload, s.ttl).Err()
}

func (s *AttemptStore) Take(ctx context.Context, userID string, quizID int64) (domain.AttemptMapping, error) {
	raw, err := s.client.GetDel(ctx, s.key(userID, quizID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("take attempt mapping: %w", err)
	}
	var mapping domain.AttemptMapping
	if err := json.Unmarshal(raw, &mapping); err != nil {
		return nil, fmt.Errorf("unmarshal attempt mapping: %w", err)
	}
	return mapping, nil
}

func (s *AttemptStore) key(userID string, quizID int64) string {
	return "attempt:" + userID + ":" + strconv.FormatInt(quizID, 10)
}
