// Package services contains the business logic of the server: the
// authentication flow and the administration of accounts and roles.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/useradmin/internal/common"
	"github.com/dmitrijs2005/useradmin/internal/server/models"
	"github.com/dmitrijs2005/useradmin/internal/server/repositories/roles"
)

// Hasher hashes and checks passwords.
type Hasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Verify(ctx context.Context, plaintext, hash string) (bool, error)
	VerifyDummy(ctx context.Context, plaintext string)
}

// Notifier delivers account emails.
type Notifier interface {
	SendVerification(ctx context.Context, to, name, token string) error
	SendPasswordReset(ctx context.Context, to, name, token string, expires time.Time) error
	SendTemporaryPassword(ctx context.Context, to, name, password string) error
}

// resolveRoles loads every role in ids; a missing one is a BadRequest.
func resolveRoles(ctx context.Context, repo roles.Repository, ids []string) ([]models.Role, error) {
	out := make([]models.Role, 0, len(ids))
	seen := map[string]struct{}{}
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		role, err := repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, common.BadRequest("one or more roles not found")
			}
			return nil, fmt.Errorf("load role: %w", err)
		}
		out = append(out, *role)
	}
	return out, nil
}

func defaultRole(ctx context.Context, repo roles.Repository) (*models.Role, error) {
	role, err := repo.GetByName(ctx, models.RoleUser)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.BadRequest("default user role not found")
		}
		return nil, fmt.Errorf("load default role: %w", err)
	}
	return role, nil
}

func roleIDs(rs []models.Role) []string {
	ids := make([]string, 0, len(rs))
	for _, r := range rs {
		ids = append(ids, r.ID)
	}
	return ids
}

func userNotFound(err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.NotFound("user not found")
	}
	return fmt.Errorf("load user: %w", err)
}

func roleNotFound(err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.NotFound("role not found")
	}
	return fmt.Errorf("load role: %w", err)
}
