// Package users declares the identity store contract and its Postgres and
// in-memory implementations.
package users

import (
	"context"

	"github.com/dmitrijs2005/sessionkeeper/internal/server/models"
)

// Repository persists registered identities.
type Repository interface {
	// Create inserts a user and fills in ID and CreatedAt. A duplicate email
	// yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetUserByEmail returns common.ErrorNotFound when no user has the email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID returns common.ErrorNotFound when the user does not exist.
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}
