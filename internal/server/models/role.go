package models

import (
	"strings"
	"time"
)

// Built-in role names.
const (
	RoleAdmin     = "ADMIN"
	RoleModerator = "MODERATOR"
	RoleUser      = "USER"
)

// Role is a named set of permissions.
type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Permissions []string  `json:"permissions"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// RoleWithUsage is a role together with the number of accounts holding it.
type RoleWithUsage struct {
	Role
	UserCount int `json:"userCount"`
}

// RoleListFilter narrows a role listing. A nil IsActive matches both states.
type RoleListFilter struct {
	Page     int
	Limit    int
	Search   string
	IsActive *bool
}

// RoleStats aggregates role counts.
type RoleStats struct {
	Total    int             `json:"total"`
	Active   int             `json:"active"`
	Inactive int             `json:"inactive"`
	Usage    []RoleUserCount `json:"usage"`
}

// NormalizeRoleName trims and uppercases a role name.
func NormalizeRoleName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// IsSystemRole reports whether name is one of the built-in roles that cannot
// be deleted.
func IsSystemRole(name string) bool {
	switch name {
	case RoleAdmin, RoleModerator, RoleUser:
		return true
	}
	return false
}

// HasPermission reports whether r grants permission. Pure membership test.
func HasPermission(r Role, permission string) bool {
	for _, p := range r.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}
