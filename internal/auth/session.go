package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/isdelr/unseen-britain/internal/services"
	"github.com/rs/zerolog/log"
)

// DefaultMaxAge is how long a login session lasts.
const DefaultMaxAge = 24 * time.Hour

// SessionConfig describes the session cookie. It is built once at startup and handed
// to the router; nothing here is process-global.
type SessionConfig struct {
	CookieName string
	Secret     []byte // HMAC key for the cookie token
	MaxAge     time.Duration
	Secure     bool
}

// DefaultSessionConfig returns the standard cookie settings for the given secret.
func DefaultSessionConfig(secret []byte, secure bool) SessionConfig {
	return SessionConfig{
		CookieName: "ub_session",
		Secret:     secret,
		MaxAge:     DefaultMaxAge,
		Secure:     secure,
	}
}

type contextKey string

const (
	userIDKey    = contextKey("userID")
	sessionIDKey = contextKey("sessionID")
)

// UserID returns the logged-in user's ID from the request context.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// WithUserID returns a context carrying userID, as LoadSession would.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// SessionManager ties the signed session cookie to a server-side SessionStore.
type SessionManager struct {
	cfg   SessionConfig
	store services.SessionStore
}

// NewSessionManager creates a new SessionManager.
func NewSessionManager(cfg SessionConfig, store services.SessionStore) *SessionManager {
	return &SessionManager{cfg: cfg, store: store}
}

// Login starts a session for userID and sets the cookie. Any session already attached to
// the request is destroyed first.
func (m *SessionManager) Login(w http.ResponseWriter, r *http.Request, userID int64) error {
	if old, ok := r.Context().Value(sessionIDKey).(string); ok {
		if err := m.store.Delete(r.Context(), old); err != nil {
			log.Warn().Err(err).Msg("Failed to drop previous session")
		}
	}

	session, err := m.store.Create(r.Context(), userID, m.cfg.MaxAge)
	if err != nil {
		return err
	}
	token, err := m.sign(session.ID, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("sign session cookie: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.cfg.MaxAge.Seconds()),
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Logout destroys the request's session, if any, and clears the cookie.
func (m *SessionManager) Logout(w http.ResponseWriter, r *http.Request) error {
	var err error
	if cookie, cerr := r.Cookie(m.cfg.CookieName); cerr == nil {
		if id, perr := m.parse(cookie.Value); perr == nil {
			err = m.store.Delete(r.Context(), id)
		}
	}
	m.clearCookie(w)
	return err
}

// LoadSession resolves the session cookie into a user ID on the request context.
// Requests without a valid session continue anonymously.
func (m *SessionManager) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(m.cfg.CookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		id, err := m.parse(cookie.Value)
		if err != nil {
			log.Debug().Err(err).Msg("Rejected session cookie")
			m.clearCookie(w)
			next.ServeHTTP(w, r)
			return
		}

		session, err := m.store.Get(r.Context(), id)
		if err != nil {
			if !errors.Is(err, services.ErrSessionNotFound) {
				log.Error().Err(err).Msg("Failed to load session")
			} else {
				m.clearCookie(w)
			}
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), sessionIDKey, session.ID)
		ctx = context.WithValue(ctx, userIDKey, session.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireLogin redirects anonymous requests to the login page.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserID(r.Context()); !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *SessionManager) sign(sessionID string, expiresAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        sessionID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.cfg.Secret)
}

// parse validates the cookie token and returns the session ID it carries.
func (m *SessionManager) parse(tokenStr string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return m.cfg.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.ID == "" {
		return "", fmt.Errorf("invalid session token")
	}
	return claims.ID, nil
}

func (m *SessionManager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
