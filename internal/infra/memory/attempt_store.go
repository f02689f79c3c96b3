package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"quizmaster-service/internal/domain"
)

// AttemptStore is an in-memory implementation of app.AttemptStore.
// It keeps at most one mapping per (user, quiz) pair; entries older than ttl are
// treated as absent and swept on the next Put.
type AttemptStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu       sync.Mutex
	attempts map[string]storedAttempt
}

type storedAttempt struct {
	mapping   domain.AttemptMapping
	expiresAt time.Time
}

// NewAttemptStore creates a store; ttl <= 0 keeps mappings until taken or overwritten.
func NewAttemptStore(ttl time.Duration) *AttemptStore {
	return &AttemptStore{
		ttl:      ttl,
		clock:    time.Now,
		attempts: make(map[string]storedAttempt),
	}
}

func (s *AttemptStore) Put(_ context.Context, userID string, quizID int64, mapping domain.AttemptMapping) error {
	now := s.clock()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(now)
	entry := storedAttempt{mapping: copyMapping(mapping)}
	if s.ttl > 0 {
		entry.expiresAt = now.Add(s.ttl)
	}
	s.attempts[attemptKey(userID, quizID)] = entry
	return nil
}

func (s *AttemptStore) Take(_ context.Context, userID string, quizID int64) (domain.AttemptMapping, error) {
	now := s.clock()
	key := attemptKey(userID, quizID)

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.attempts[key]
	if !ok {
		return nil, domain.ErrAttemptNotFound
	}
	delete(s.attempts, key)
	if entry.expired(now) {
		return nil, domain.ErrAttemptNotFound
	}
	return entry.mapping, nil
}

// Len reports the number of stored mappings.
func (s *AttemptStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attempts)
}

func (s *AttemptStore) sweepLocked(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	for key, entry := range s.attempts {
		if entry.expired(now) {
			delete(s.attempts, key)
		}
	}
}

func (e storedAttempt) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

func attemptKey(userID string, quizID int64) string {
	return userID + "\x00" + strconv.FormatInt(quizID, 10)
}

func copyMapping(mapping domain.AttemptMapping) domain.AttemptMapping {
	out := make(domain.AttemptMapping, len(mapping))
	for id, m := range mapping {
		m.Options = append([]domain.ShuffledOption(nil), m.Options...)
		out[id] = m
	}
	return out
}
