package userrepo

import (
	"context"
	"time"

	"github.com/gatherhall/events-api/internal/domain"
)

// User is the persistence shape used by the user repository. PasswordHash is
// a bcrypt hash and must never leave the application layer.
type User struct {
	ID domain.UserID

	// Email is stored normalized (lowercased, trimmed) and is unique.
	Email       string
	DisplayName string

	PasswordHash string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to persisted users.
type Repository interface {
	// Create inserts a new user. ErrEmailTaken is returned when another user
	// already holds the email.
	Create(ctx context.Context, u User) error

	GetByID(ctx context.Context, id domain.UserID) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
}
