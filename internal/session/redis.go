// Package session keeps sessions in Redis so every service instance shares
// the same view and tokens survive restarts. Keys expire via Redis TTL.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/oakline/ledger/internal/models"
)

const keyPrefix = "session:"

var ErrNotFound = errors.New("session not found")

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// Create opens a session for a principal and returns the opaque token.
func (s *Store) Create(ctx context.Context, userID int64) (string, time.Time, error) {
	token := uuid.New().String()
	expiresAt := time.Now().Add(s.ttl)

	payload, err := json.Marshal(models.Session{UserID: userID, ExpiresAt: expiresAt})
	if err != nil {
		return "", time.Time{}, err
	}

	if err := s.rdb.Set(ctx, keyPrefix+token, payload, s.ttl).Err(); err != nil {
		return "", time.Time{}, fmt.Errorf("session write failed: %w", err)
	}
	return token, expiresAt, nil
}

// Lookup resolves a token to its session. Expired keys vanish via TTL, but
// the expiry is checked anyway in case of clock drift between instances.
func (s *Store) Lookup(ctx context.Context, token string) (*models.Session, error) {
	raw, err := s.rdb.Get(ctx, keyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("session read failed: %w", err)
	}

	var sess models.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("session decode failed: %w", err)
	}
	if time.Now().After(sess.ExpiresAt) {
		s.rdb.Del(ctx, keyPrefix+token)
		return nil, ErrNotFound
	}
	return &sess, nil
}

// Destroy removes a session. Removing an unknown token is not an error.
func (s *Store) Destroy(ctx context.Context, token string) error {
	if err := s.rdb.Del(ctx, keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("session delete failed: %w", err)
	}
	return nil
}
