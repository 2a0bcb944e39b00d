// Package users persists accounts and their role assignments.
package users

import (
	"context"

	"github.com/dmitrijs2005/useradmin/internal/server/models"
)

// Repository stores accounts. Lookups return accounts with their roles
// loaded and common.ErrorNotFound when nothing matches.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByVerificationToken(ctx context.Context, token string) (*models.User, error)
	GetByResetToken(ctx context.Context, token string) (*models.User, error)
	SetRoles(ctx context.Context, userID string, roleIDs []string) error
	List(ctx context.Context, filter models.UserListFilter) ([]models.User, int, error)
	Stats(ctx context.Context) (*models.UserStats, error)
}
