// Package roles persists roles and their permission sets.
package roles

import (
	"strings"

	"github.com/dmitrijs2005/useradmin/internal/server/models"
)

// Columns is the select list understood by ScanRole, qualified with alias r.
const Columns = `r.id, r.name, r.description, r.permissions, r.is_active, r.created_at, r.updated_at`

// Scanner is implemented by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanRole reads one row selected with Columns (plus any trailing extra
// destinations) into a Role.
func ScanRole(s Scanner, extra ...any) (*models.Role, error) {
	r := &models.Role{}
	var perms string
	dest := append([]any{&r.ID, &r.Name, &r.Description, &perms, &r.IsActive, &r.CreatedAt, &r.UpdatedAt}, extra...)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	r.Permissions = DecodePermissions(perms)
	return r, nil
}

// EncodePermissions stores permissions as a comma separated list.
func EncodePermissions(perms []string) string {
	return strings.Join(perms, ",")
}

// DecodePermissions is the inverse of EncodePermissions.
func DecodePermissions(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}
