package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/useradmin/internal/common"
	"github.com/dmitrijs2005/useradmin/internal/dbx"
	"github.com/dmitrijs2005/useradmin/internal/logging"
	"github.com/dmitrijs2005/useradmin/internal/server/models"
	"github.com/dmitrijs2005/useradmin/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/useradmin/internal/server/repositories/roles"
)

type CreateRoleInput struct {
	Name        string
	Description string
	Permissions []string
	IsActive    *bool
}

// UpdateRoleInput is a partial update. Nil fields are left unchanged.
type UpdateRoleInput struct {
	Name        *string
	Description *string
	Permissions []string
	IsActive    *bool
}

type RoleService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewRoleService(db *sql.DB, m repomanager.RepositoryManager, l logging.Logger) *RoleService {
	return &RoleService{db: db, repomanager: m, logger: l.With("module", "role_service")}
}

func (s *RoleService) Create(ctx context.Context, in CreateRoleInput) (*models.Role, error) {
	name := models.NormalizeRoleName(in.Name)
	if name == "" {
		return nil, common.BadRequest("role name is required")
	}
	if err := checkPermissions(in.Permissions); err != nil {
		return nil, err
	}

	repo := s.repomanager.Roles(s.db)
	if err := ensureRoleNameFree(ctx, repo, name, ""); err != nil {
		return nil, err
	}

	role := &models.Role{
		Name:        name,
		Description: in.Description,
		Permissions: nonNil(in.Permissions),
		IsActive:    true,
	}
	if in.IsActive != nil {
		role.IsActive = *in.IsActive
	}

	if _, err := repo.Create(ctx, role); err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.Conflict("role with this name already exists")
		}
		return nil, fmt.Errorf("create role: %w", err)
	}

	s.logger.Info(ctx, "role created", "role", role.Name)
	return role, nil
}

func (s *RoleService) List(ctx context.Context, filter models.RoleListFilter) (models.Page[models.RoleWithUsage], error) {
	list, total, err := s.repomanager.Roles(s.db).List(ctx, filter)
	if err != nil {
		return models.Page[models.RoleWithUsage]{}, fmt.Errorf("list roles: %w", err)
	}
	return models.NewPage(list, total, filter.Page, filter.Limit), nil
}

func (s *RoleService) Get(ctx context.Context, id string) (*models.Role, error) {
	role, err := s.repomanager.Roles(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, roleNotFound(err)
	}
	return role, nil
}

// Update applies a partial update. Built-in roles keep their names.
func (s *RoleService) Update(ctx context.Context, id string, in UpdateRoleInput) (*models.Role, error) {
	repo := s.repomanager.Roles(s.db)

	role, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := models.NormalizeRoleName(*in.Name)
		if name == "" {
			return nil, common.BadRequest("role name is required")
		}
		if name != role.Name {
			if models.IsSystemRole(role.Name) {
				return nil, common.BadRequest("cannot rename system role %s", role.Name)
			}
			if err := ensureRoleNameFree(ctx, repo, name, role.ID); err != nil {
				return nil, err
			}
			role.Name = name
		}
	}
	if in.Description != nil {
		role.Description = *in.Description
	}
	if in.Permissions != nil {
		if err := checkPermissions(in.Permissions); err != nil {
			return nil, err
		}
		role.Permissions = in.Permissions
	}
	if in.IsActive != nil {
		if !*in.IsActive && role.Name == models.RoleAdmin {
			return nil, common.BadRequest("cannot deactivate ADMIN role")
		}
		role.IsActive = *in.IsActive
	}

	if err := repo.Update(ctx, role); err != nil {
		return nil, roleWriteError(err)
	}
	return role, nil
}

// AssignPermissions replaces the permission set of role id.
func (s *RoleService) AssignPermissions(ctx context.Context, id string, permissions []string) (*models.Role, error) {
	if len(permissions) == 0 {
		return nil, common.BadRequest("at least one permission is required")
	}
	if err := checkPermissions(permissions); err != nil {
		return nil, err
	}

	role, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	role.Permissions = permissions

	if err := s.repomanager.Roles(s.db).Update(ctx, role); err != nil {
		return nil, roleWriteError(err)
	}
	return role, nil
}

// ToggleStatus flips the active flag of role id. ADMIN cannot be switched off.
func (s *RoleService) ToggleStatus(ctx context.Context, id string) (*models.Role, error) {
	role, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if role.Name == models.RoleAdmin && role.IsActive {
		return nil, common.BadRequest("cannot deactivate ADMIN role")
	}

	role.IsActive = !role.IsActive
	if err := s.repomanager.Roles(s.db).Update(ctx, role); err != nil {
		return nil, roleWriteError(err)
	}
	return role, nil
}

// Delete removes role id. Built-in roles and roles still assigned to
// accounts cannot be deleted.
func (s *RoleService) Delete(ctx context.Context, id string) error {
	repo := s.repomanager.Roles(s.db)

	role, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if models.IsSystemRole(role.Name) {
		return common.BadRequest("cannot delete system role %s", role.Name)
	}

	n, err := repo.CountUsers(ctx, role.ID)
	if err != nil {
		return fmt.Errorf("count role users: %w", err)
	}
	if n > 0 {
		return common.BadRequest("cannot delete role assigned to %d user(s)", n)
	}

	if err := repo.Delete(ctx, role.ID); err != nil {
		if dbx.IsForeignKeyViolation(err) {
			return common.BadRequest("cannot delete role that is assigned to users")
		}
		return roleNotFound(err)
	}

	s.logger.Info(ctx, "role deleted", "role", role.Name)
	return nil
}

// AvailablePermissions returns the permission catalog.
func (s *RoleService) AvailablePermissions() []models.Permission {
	return models.Permissions()
}

func (s *RoleService) Stats(ctx context.Context) (*models.RoleStats, error) {
	stats, err := s.repomanager.Roles(s.db).Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("role stats: %w", err)
	}
	return stats, nil
}

// InitializeDefaults creates whichever built-in roles are missing and
// returns the names of those it created. Existing roles are left untouched.
func (s *RoleService) InitializeDefaults(ctx context.Context) ([]string, error) {
	created := []string{}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Roles(tx)
		for _, d := range models.DefaultRoles() {
			_, err := repo.GetByName(ctx, d.Name)
			if err == nil {
				continue
			}
			if !errors.Is(err, common.ErrorNotFound) {
				return err
			}

			role := &models.Role{
				Name:        d.Name,
				Description: d.Description,
				Permissions: d.Permissions,
				IsActive:    true,
			}
			if _, err := repo.Create(ctx, role); err != nil {
				return err
			}
			created = append(created, d.Name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("initialize default roles: %w", err)
	}

	if len(created) > 0 {
		s.logger.Info(ctx, "default roles created", "roles", strings.Join(created, ","))
	}
	return created, nil
}

func ensureRoleNameFree(ctx context.Context, repo roles.Repository, name, exceptID string) error {
	existing, err := repo.GetByName(ctx, name)
	if err == nil {
		if existing.ID == exceptID {
			return nil
		}
		return common.Conflict("role with this name already exists")
	}
	if errors.Is(err, common.ErrorNotFound) {
		return nil
	}
	return fmt.Errorf("lookup role: %w", err)
}

func checkPermissions(perms []string) error {
	if unknown := models.UnknownPermissions(perms); len(unknown) > 0 {
		return common.BadRequest("invalid permissions: %s", strings.Join(unknown, ", "))
	}
	return nil
}

func roleWriteError(err error) error {
	if dbx.IsUniqueViolation(err) {
		return common.Conflict("role with this name already exists")
	}
	return roleNotFound(err)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
