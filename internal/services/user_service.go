package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/isdelr/unseen-britain/internal/database"
	"github.com/isdelr/unseen-britain/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt work factor for stored passwords.
const PasswordCost = 10

var (
	// ErrEmailTaken is returned when registering an email that already has an account.
	ErrEmailTaken = errors.New("email is already registered")
	// ErrInvalidCredentials covers both unknown emails and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserNotFound is returned by lookups by ID.
	ErrUserNotFound = errors.New("user not found")
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	GetIDFromEmail(ctx context.Context, email string) (int64, bool, error)
	GetUserByID(ctx context.Context, id int64) (models.User, error)
	Register(ctx context.Context, fullName, email, phone, password string) (models.User, error)
	Authenticate(ctx context.Context, email, password string) (models.User, error)
	UpdatePassword(ctx context.Context, id int64, newPassword string) error
}

// UserService provides business logic for user management.
type UserService struct {
	db     *sql.DB
	events EventServiceProvider
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB, events EventServiceProvider) *UserService {
	return &UserService{db: db, events: events}
}

// GetIDFromEmail looks up the account ID for an email. found is false when there is none.
func (s *UserService) GetIDFromEmail(ctx context.Context, email string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, "SELECT id FROM users WHERE email = ?", email).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lookup user by email: %w", err)
	}
	return id, true, nil
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	var user models.User
	row := s.db.QueryRowContext(ctx, "SELECT id, full_name, email, phone, created_at FROM users WHERE id = ?", id)
	err := row.Scan(&user.ID, &user.FullName, &user.Email, &user.Phone, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// Register creates a new account, hashing the password. The email pre-check keeps the
// common case cheap; the UNIQUE index catches concurrent registrations of the same email.
func (s *UserService) Register(ctx context.Context, fullName, email, phone, password string) (models.User, error) {
	if _, found, err := s.GetIDFromEmail(ctx, email); err != nil {
		return models.User{}, err
	} else if found {
		return models.User{}, ErrEmailTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (full_name, email, phone, password) VALUES (?, ?, ?, ?)",
		fullName, email, phone, string(hashedPassword))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.User{}, err
	}

	s.events.CreateEvent(ctx, "user.register", "info", fmt.Sprintf("Account created for %s.", email), &id)

	return models.User{ID: id, FullName: fullName, Email: email, Phone: phone}, nil
}

// Authenticate verifies a user's credentials.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	var user models.User
	row := s.db.QueryRowContext(ctx, "SELECT id, full_name, email, phone, password FROM users WHERE email = ?", email)
	err := row.Scan(&user.ID, &user.FullName, &user.Email, &user.Phone, &user.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, fmt.Errorf("lookup credentials: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}

	user.PasswordHash = ""
	return user, nil
}

// UpdatePassword rehashes and overwrites the stored password for a user.
func (s *UserService) UpdatePassword(ctx context.Context, id int64, newPassword string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), PasswordCost)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	res, err := s.db.ExecContext(ctx, "UPDATE users SET password = ? WHERE id = ?", string(hashedPassword), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound
	}

	s.events.CreateEvent(ctx, "user.password", "info", "Password changed.", &id)
	return nil
}
