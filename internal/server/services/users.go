package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/useradmin/internal/common"
	"github.com/dmitrijs2005/useradmin/internal/dbx"
	"github.com/dmitrijs2005/useradmin/internal/logging"
	"github.com/dmitrijs2005/useradmin/internal/server/auth"
	"github.com/dmitrijs2005/useradmin/internal/server/models"
	"github.com/dmitrijs2005/useradmin/internal/server/repositories/repomanager"
)

// CreateUserInput is an administrator-created account. Empty RoleIDs
// assigns the USER role; a nil Status means ACTIVE.
type CreateUserInput struct {
	Email       string
	FirstName   string
	LastName    string
	PhoneNumber *string
	Avatar      *string
	Status      *models.UserStatus
	RoleIDs     []string
}

// UpdateUserInput is a partial update. Nil fields are left unchanged.
type UpdateUserInput struct {
	Email       *string
	FirstName   *string
	LastName    *string
	PhoneNumber *string
	Avatar      *string
	Status      *models.UserStatus
	RoleIDs     []string
}

// ProfileInput is the subset of fields an account may change on itself.
type ProfileInput struct {
	FirstName   *string
	LastName    *string
	PhoneNumber *string
	Avatar      *string
}

type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      Hasher
	notifier    Notifier
	logger      logging.Logger
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, h Hasher, n Notifier, l logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      h,
		notifier:    n,
		logger:      l.With("module", "user_service"),
	}
}

// Create adds an account with a generated temporary password, which is
// emailed to the new user.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	email := models.NormalizeEmail(in.Email)

	if err := s.ensureEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}

	roleRepo := s.repomanager.Roles(s.db)
	var assigned []models.Role
	if len(in.RoleIDs) > 0 {
		rs, err := resolveRoles(ctx, roleRepo, in.RoleIDs)
		if err != nil {
			return nil, err
		}
		assigned = rs
	} else {
		r, err := defaultRole(ctx, roleRepo)
		if err != nil {
			return nil, err
		}
		assigned = []models.Role{*r}
	}

	status := models.StatusActive
	if in.Status != nil {
		status = *in.Status
	}

	password, err := auth.NewTemporaryPassword()
	if err != nil {
		return nil, fmt.Errorf("temporary password: %w", err)
	}
	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:         email,
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		PasswordHash:  hash,
		Status:        status,
		PhoneNumber:   in.PhoneNumber,
		Avatar:        in.Avatar,
		EmailVerified: true,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		if _, err := repo.Create(ctx, user); err != nil {
			return err
		}
		return repo.SetRoles(ctx, user.ID, roleIDs(assigned))
	})
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.Conflict("user with this email already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	user.Roles = assigned

	if err := s.notifier.SendTemporaryPassword(ctx, user.Email, user.FirstName, password); err != nil {
		s.logger.Error(ctx, "sending temporary password failed", "user_id", user.ID, "error", err)
	}

	s.logger.Info(ctx, "user created", "user_id", user.ID)
	return user, nil
}

// CreateAdmin adds an ACTIVE, verified account holding the ADMIN role with
// the given password. Used to bootstrap an empty installation.
func (s *UserService) CreateAdmin(ctx context.Context, email, firstName, lastName, password string) (*models.User, error) {
	email = models.NormalizeEmail(email)

	if err := s.ensureEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}

	admin, err := s.repomanager.Roles(s.db).GetByName(ctx, models.RoleAdmin)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.BadRequest("ADMIN role not found, run migrations first")
		}
		return nil, fmt.Errorf("load admin role: %w", err)
	}

	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:         email,
		FirstName:     firstName,
		LastName:      lastName,
		PasswordHash:  hash,
		Status:        models.StatusActive,
		EmailVerified: true,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		if _, err := repo.Create(ctx, user); err != nil {
			return err
		}
		return repo.SetRoles(ctx, user.ID, []string{admin.ID})
	})
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.Conflict("user with this email already exists")
		}
		return nil, fmt.Errorf("create admin: %w", err)
	}
	user.Roles = []models.Role{*admin}

	return user, nil
}

func (s *UserService) List(ctx context.Context, filter models.UserListFilter) (models.Page[models.User], error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return models.Page[models.User]{}, common.BadRequest("invalid status %q", filter.Status)
	}
	filter.Role = models.NormalizeRoleName(filter.Role)

	list, total, err := s.repomanager.Users(s.db).List(ctx, filter)
	if err != nil {
		return models.Page[models.User]{}, fmt.Errorf("list users: %w", err)
	}
	return models.NewPage(list, total, filter.Page, filter.Limit), nil
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, userNotFound(err)
	}
	return user, nil
}

// Update applies an administrative partial update. When RoleIDs is non-nil
// the role set is replaced in the same transaction.
func (s *UserService) Update(ctx context.Context, id string, in UpdateUserInput) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Email != nil {
		email := models.NormalizeEmail(*in.Email)
		if email != user.Email {
			if err := s.ensureEmailFree(ctx, email, user.ID); err != nil {
				return nil, err
			}
			user.Email = email
		}
	}
	applyProfile(user, ProfileInput{
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		PhoneNumber: in.PhoneNumber,
		Avatar:      in.Avatar,
	})
	if in.Status != nil {
		user.Status = *in.Status
	}

	var assigned []models.Role
	if in.RoleIDs != nil {
		if assigned, err = resolveRoles(ctx, s.repomanager.Roles(s.db), in.RoleIDs); err != nil {
			return nil, err
		}
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		if err := repo.Update(ctx, user); err != nil {
			return err
		}
		if in.RoleIDs == nil {
			return nil
		}
		return repo.SetRoles(ctx, user.ID, roleIDs(assigned))
	})
	if err != nil {
		return nil, s.writeError(err)
	}
	if in.RoleIDs != nil {
		user.Roles = assigned
	}

	return user, nil
}

// UpdateProfile lets an account change its own name, phone and avatar.
func (s *UserService) UpdateProfile(ctx context.Context, id string, in ProfileInput) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	applyProfile(user, in)

	if err := s.repomanager.Users(s.db).Update(ctx, user); err != nil {
		return nil, s.writeError(err)
	}
	return user, nil
}

// UpdateStatus changes the status of account id on behalf of actor. The
// actor needs the users:manage_status permission, cannot change its own
// status, and only an ADMIN may change the status of another ADMIN.
func (s *UserService) UpdateStatus(ctx context.Context, actor *models.User, id string, status models.UserStatus) (*models.User, error) {
	if !status.Valid() {
		return nil, common.BadRequest("invalid status %q", status)
	}
	if !models.UserHasPermission(actor, models.PermUsersManageState) {
		return nil, common.Forbidden("insufficient permissions to manage user status")
	}
	if actor.ID == id {
		return nil, common.BadRequest("you cannot change your own status")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if models.HasRole(user, models.RoleAdmin) && !models.HasRole(actor, models.RoleAdmin) {
		return nil, common.Forbidden("only administrators can change the status of an administrator")
	}

	user.Status = status
	if err := s.repomanager.Users(s.db).Update(ctx, user); err != nil {
		return nil, s.writeError(err)
	}

	s.logger.Info(ctx, "user status changed", "user_id", user.ID, "status", status, "actor_id", actor.ID)
	return user, nil
}

// AssignRoles replaces the role set of account id.
func (s *UserService) AssignRoles(ctx context.Context, id string, ids []string) (*models.User, error) {
	if len(ids) == 0 {
		return nil, common.BadRequest("at least one role is required")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	assigned, err := resolveRoles(ctx, s.repomanager.Roles(s.db), ids)
	if err != nil {
		return nil, err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Users(tx).SetRoles(ctx, user.ID, roleIDs(assigned))
	})
	if err != nil {
		return nil, s.writeError(err)
	}
	user.Roles = assigned

	return user, nil
}

// Delete removes account id permanently. An account cannot delete itself.
func (s *UserService) Delete(ctx context.Context, actor *models.User, id string) error {
	if actor.ID == id {
		return common.BadRequest("you cannot delete your own account")
	}
	if err := s.repomanager.Users(s.db).Delete(ctx, id); err != nil {
		return userNotFound(err)
	}
	s.logger.Info(ctx, "user deleted", "user_id", id, "actor_id", actor.ID)
	return nil
}

// SoftDelete deactivates account id instead of removing it.
func (s *UserService) SoftDelete(ctx context.Context, actor *models.User, id string) (*models.User, error) {
	if actor.ID == id {
		return nil, common.BadRequest("you cannot delete your own account")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	user.Status = models.StatusInactive
	if err := s.repomanager.Users(s.db).Update(ctx, user); err != nil {
		return nil, s.writeError(err)
	}
	return user, nil
}

func (s *UserService) Stats(ctx context.Context) (*models.UserStats, error) {
	stats, err := s.repomanager.Users(s.db).Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}
	return stats, nil
}

// ensureEmailFree fails with Conflict when email belongs to an account other
// than exceptID.
func (s *UserService) ensureEmailFree(ctx context.Context, email, exceptID string) error {
	existing, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err == nil {
		if existing.ID == exceptID {
			return nil
		}
		return common.Conflict("user with this email already exists")
	}
	if errors.Is(err, common.ErrorNotFound) {
		return nil
	}
	return fmt.Errorf("lookup user: %w", err)
}

func (s *UserService) writeError(err error) error {
	if dbx.IsUniqueViolation(err) {
		return common.Conflict("user with this email already exists")
	}
	return userNotFound(err)
}

func applyProfile(user *models.User, in ProfileInput) {
	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		user.LastName = *in.LastName
	}
	if in.PhoneNumber != nil {
		user.PhoneNumber = in.PhoneNumber
	}
	if in.Avatar != nil {
		user.Avatar = in.Avatar
	}
}
