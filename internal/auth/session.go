package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

// SessionStore resolves session ids to user ids kept in Redis. Sessions are
// issued and expired by the login flow that shares the same Redis.
type SessionStore struct {
	rdb *redis.Client
}

func NewSessionStore(rdb *redis.Client) *SessionStore {
	return &SessionStore{rdb: rdb}
}

// UserID returns the owner of session id. ok is false for unknown or expired sessions.
func (s *SessionStore) UserID(ctx context.Context, id string) (userID string, ok bool, err error) {
	userID, err = s.rdb.Get(ctx, sessionKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup session: %w", err)
	}
	return userID, userID != "", nil
}
