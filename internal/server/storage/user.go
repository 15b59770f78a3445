package storage

import (
	"context"

	"github.com/iudanet/gophdir/internal/models"
)

// UserStorage defines interface for user account persistence
type UserStorage interface {
	// CreateUser creates a new user in the storage
	// Returns ErrUserAlreadyExists if user id is taken
	CreateUser(ctx context.Context, user *models.User) error

	// GetUser retrieves user by ID
	// Returns ErrUserNotFound if user doesn't exist
	GetUser(ctx context.Context, userID string) (*models.User, error)

	// UpdateUser updates profile fields and password hash
	// Returns ErrUserNotFound if user doesn't exist
	UpdateUser(ctx context.Context, user *models.User) error

	// DeleteUser deletes user by ID
	// Returns ErrUserNotFound if user doesn't exist
	DeleteUser(ctx context.Context, userID string) error

	// SearchUsers returns users whose id, name or email contains query,
	// ordered by id. Empty query lists everyone up to limit.
	SearchUsers(ctx context.Context, query string, limit int) ([]*models.User, error)
}
