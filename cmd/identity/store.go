package identity

import (
	"context"
	"time"
)

// User is FreeMonitor's canonical security principal.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	Role         Role
	IsActive     bool

	CreatedAt time.Time
	// DeletedAt marks a soft-deleted account; such users never authenticate.
	DeletedAt *time.Time
}

// CreateUserInput describes a user fixture or registration request.
type CreateUserInput struct {
	Email        string
	PasswordHash string
	DisplayName  string
	Role         Role
	Now          time.Time
}

// Store is the user persistence boundary.
//
// GetUserByEmail resolves the normalized email and only returns active,
// non-deleted users; everything else is ErrNotFound.
type Store interface {
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
}
