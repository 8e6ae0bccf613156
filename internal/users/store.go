package users

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("user not found")
	ErrConflict = errors.New("user with this email already exists")
)

// User is a single directory entry.
type User struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Update carries a partial change. Nil fields are left untouched.
type Update struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

// Store persists users. Implementations must reject a duplicate email with
// ErrConflict without changing state, and report absent ids with ErrNotFound.
type Store interface {
	Create(ctx context.Context, user User) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context) ([]User, error)
	Update(ctx context.Context, id string, update Update) (User, error)
	Delete(ctx context.Context, id string) error
	// Reset removes every user.
	Reset(ctx context.Context) error
}
