package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/unseen-britain/internal/models"
)

// ErrSessionNotFound is returned for unknown or expired sessions.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps server-side sessions.
type SessionStore interface {
	Create(ctx context.Context, userID int64, ttl time.Duration) (models.Session, error)
	Get(ctx context.Context, id string) (models.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// SQLSessionStore stores sessions in the sessions table.
type SQLSessionStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLSessionStore creates a new SQLSessionStore.
func NewSQLSessionStore(db *sql.DB) *SQLSessionStore {
	return &SQLSessionStore{db: db, now: time.Now}
}

// Create starts a new session for userID lasting ttl.
func (s *SQLSessionStore) Create(ctx context.Context, userID int64, ttl time.Duration) (models.Session, error) {
	session := models.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		ExpiresAt: s.now().Add(ttl).UTC().Truncate(time.Second),
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (id, user_id, expires_at) VALUES (?, ?, ?)",
		session.ID, session.UserID, session.ExpiresAt.Unix())
	if err != nil {
		return models.Session{}, fmt.Errorf("insert session: %w", err)
	}
	return session, nil
}

// Get returns a live session. Expired rows are reported as ErrSessionNotFound.
func (s *SQLSessionStore) Get(ctx context.Context, id string) (models.Session, error) {
	var session models.Session
	var expiresAt int64
	err := s.db.QueryRowContext(ctx, "SELECT id, user_id, expires_at FROM sessions WHERE id = ?", id).
		Scan(&session.ID, &session.UserID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return models.Session{}, err
	}
	session.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	if session.Expired(s.now()) {
		return models.Session{}, ErrSessionNotFound
	}
	return session, nil
}

// Delete removes a session. Deleting an unknown session is not an error.
func (s *SQLSessionStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	return err
}

// DeleteExpired purges sessions past their expiry and returns how many were removed.
func (s *SQLSessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", s.now().Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
