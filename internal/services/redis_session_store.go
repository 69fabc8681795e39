package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/unseen-britain/internal/models"
	"github.com/redis/go-redis/v9"
)

const redisSessionPrefix = "session:"

// RedisSessionStore keeps sessions in Redis; keys expire on their own.
type RedisSessionStore struct {
	rdb *redis.Client
}

// NewRedisSessionStore creates a new RedisSessionStore.
func NewRedisSessionStore(rdb *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb}
}

type redisSession struct {
	UserID    int64 `json:"userId"`
	ExpiresAt int64 `json:"expiresAt"`
}

// Create starts a new session for userID lasting ttl.
func (s *RedisSessionStore) Create(ctx context.Context, userID int64, ttl time.Duration) (models.Session, error) {
	session := models.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(ttl).UTC().Truncate(time.Second),
	}
	b, err := json.Marshal(redisSession{UserID: userID, ExpiresAt: session.ExpiresAt.Unix()})
	if err != nil {
		return models.Session{}, err
	}
	if err := s.rdb.Set(ctx, redisSessionPrefix+session.ID, b, ttl).Err(); err != nil {
		return models.Session{}, fmt.Errorf("store session: %w", err)
	}
	return session, nil
}

// Get returns a live session.
func (s *RedisSessionStore) Get(ctx context.Context, id string) (models.Session, error) {
	val, err := s.rdb.Get(ctx, redisSessionPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return models.Session{}, err
	}
	var stored redisSession
	if err := json.Unmarshal(val, &stored); err != nil {
		return models.Session{}, fmt.Errorf("decode session: %w", err)
	}
	session := models.Session{ID: id, UserID: stored.UserID, ExpiresAt: time.Unix(stored.ExpiresAt, 0).UTC()}
	if session.Expired(time.Now()) {
		return models.Session{}, ErrSessionNotFound
	}
	return session, nil
}

// Delete removes a session.
func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, redisSessionPrefix+id).Err()
}

// DeleteExpired is a no-op: Redis drops keys when their TTL runs out.
func (s *RedisSessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}
