package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DefaultReputation is the neutral score of a user with no ratings received.
const DefaultReputation = 5.0

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("username, email or phone already registered")
)

// User represents a registered account
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"-"`
	Reputation   float64   `json:"reputation"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Repository defines the interface for user data access
type Repository interface {
	// Create stores a new user, returning ErrDuplicateUser on a unique violation
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetByLogin retrieves a user whose username equals login, or whose
	// email equals login case-insensitively. Emails are stored lowercased.
	GetByLogin(ctx context.Context, login string) (*User, error)

	// Exists reports whether any user already holds the username, email or phone
	Exists(ctx context.Context, username, email, phone string) (bool, error)

	// UpdatePassword replaces the stored password hash
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}
