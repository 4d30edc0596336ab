package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// UserRepository saves and loads accounts.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	// FindByID returns ErrUserNotFound when no user matches.
	FindByID(ctx context.Context, userID string) (*model.User, error)
	// FindByEmail returns ErrUserNotFound when no user matches.
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
}
