package roles

import (
	"context"

	"github.com/dmitrijs2005/useradmin/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, role *models.Role) (*models.Role, error)
	Update(ctx context.Context, role *models.Role) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*models.Role, error)
	GetByName(ctx context.Context, name string) (*models.Role, error)
	List(ctx context.Context, filter models.RoleListFilter) ([]models.RoleWithUsage, int, error)
	CountUsers(ctx context.Context, roleID string) (int, error)
	Stats(ctx context.Context) (*models.RoleStats, error)
}
