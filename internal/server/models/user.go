// Package models holds the persistent entities of the user administration
// domain and pure helpers over them.
package models

import (
	"strings"
	"time"
)

// UserStatus is the lifecycle state of an account. Only ACTIVE accounts may
// log in or pass authentication.
type UserStatus string

const (
	StatusActive    UserStatus = "ACTIVE"
	StatusInactive  UserStatus = "INACTIVE"
	StatusSuspended UserStatus = "SUSPENDED"
)

// Valid reports whether s is one of the known statuses.
func (s UserStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended:
		return true
	}
	return false
}

// User is an account. Secrets are never serialized.
type User struct {
	ID                     string     `json:"id"`
	Email                  string     `json:"email"`
	FirstName              string     `json:"firstName"`
	LastName               string     `json:"lastName"`
	PasswordHash           string     `json:"-"`
	Status                 UserStatus `json:"status"`
	PhoneNumber            *string    `json:"phoneNumber,omitempty"`
	Avatar                 *string    `json:"avatar,omitempty"`
	EmailVerified          bool       `json:"emailVerified"`
	EmailVerificationToken *string    `json:"-"`
	PasswordResetToken     *string    `json:"-"`
	PasswordResetExpires   *time.Time `json:"-"`
	LastLoginAt            *time.Time `json:"lastLoginAt,omitempty"`
	Roles                  []Role     `json:"roles"`
	CreatedAt              time.Time  `json:"createdAt"`
	UpdatedAt              time.Time  `json:"updatedAt"`
}

// NormalizeEmail is applied to every email before it is stored or looked up.
// Emails are case-sensitive keys, so only surrounding whitespace is removed.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

// RoleNames returns the names of all roles held by u.
func RoleNames(u *User) []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

// HasRole reports whether u holds a role called name.
func HasRole(u *User, name string) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether held and required intersect. An empty required
// set always matches.
func HasAnyRole(held []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	for _, want := range required {
		for _, have := range held {
			if have == want {
				return true
			}
		}
	}
	return false
}

// UserHasPermission reports whether any active role of u grants permission.
func UserHasPermission(u *User, permission string) bool {
	for _, r := range u.Roles {
		if r.IsActive && HasPermission(r, permission) {
			return true
		}
	}
	return false
}

// UserPermissions returns the de-duplicated permissions of the active roles of u.
func UserPermissions(u *User) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, r := range u.Roles {
		if !r.IsActive {
			continue
		}
		for _, p := range r.Permissions {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// UserListFilter narrows a user listing.
type UserListFilter struct {
	Page   int
	Limit  int
	Search string
	Status UserStatus
	Role   string
}

// UserStats aggregates account counts.
type UserStats struct {
	Total     int             `json:"total"`
	Active    int             `json:"active"`
	Inactive  int             `json:"inactive"`
	Suspended int             `json:"suspended"`
	Verified  int             `json:"verified"`
	ByRole    []RoleUserCount `json:"byRole"`
}

// RoleUserCount is the number of accounts holding a role.
type RoleUserCount struct {
	RoleName  string `json:"roleName"`
	UserCount int    `json:"userCount"`
}
