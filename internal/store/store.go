package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUserExists is returned when a username is already taken.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
)

// User is a registered account. Username is the primary key.
type User struct {
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	DisplayName    string    `json:"display_name"`
	HashedPassword string    `json:"hashed_password"`
	Disabled       bool      `json:"disabled"`
	CreatedAt      time.Time `json:"created_at,omitzero"`
}

// UserStore persists user credentials.
type UserStore interface {
	// CreateUser stores a new user. It returns ErrUserExists when the
	// username is taken, in which case nothing is written.
	CreateUser(ctx context.Context, user User) error
	// GetUser returns the user or ErrUserNotFound.
	GetUser(ctx context.Context, username string) (*User, error)
	// Close releases underlying resources.
	Close() error
}
