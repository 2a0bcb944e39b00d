package models

// Permission keys.
const (
	PermUsersRead        = "users:read"
	PermUsersCreate      = "users:create"
	PermUsersUpdate      = "users:update"
	PermUsersDelete      = "users:delete"
	PermUsersManageRoles = "users:manage_roles"
	PermUsersManageState = "users:manage_status"

	PermRolesRead              = "roles:read"
	PermRolesCreate            = "roles:create"
	PermRolesUpdate            = "roles:update"
	PermRolesDelete            = "roles:delete"
	PermRolesAssignPermissions = "roles:assign_permissions"

	PermSystemAdmin = "system:admin"
	PermSystemStats = "system:stats"
	PermSystemLogs  = "system:logs"

	PermReportsView   = "reports:view"
	PermReportsExport = "reports:export"
)

// Permission describes one entry of the catalog.
type Permission struct {
	Key         string `json:"key"`
	Description string `json:"description"`
}

var catalog = []Permission{
	{PermUsersRead, "Read users"},
	{PermUsersCreate, "Create users"},
	{PermUsersUpdate, "Update users"},
	{PermUsersDelete, "Delete users"},
	{PermUsersManageRoles, "Manage user roles"},
	{PermUsersManageState, "Manage user status"},
	{PermRolesRead, "Read roles"},
	{PermRolesCreate, "Create roles"},
	{PermRolesUpdate, "Update roles"},
	{PermRolesDelete, "Delete roles"},
	{PermRolesAssignPermissions, "Assign permissions to roles"},
	{PermSystemAdmin, "Full system administration"},
	{PermSystemStats, "View system statistics"},
	{PermSystemLogs, "View system logs"},
	{PermReportsView, "View reports"},
	{PermReportsExport, "Export reports"},
}

// Permissions returns a copy of the permission catalog in display order.
func Permissions() []Permission {
	out := make([]Permission, len(catalog))
	copy(out, catalog)
	return out
}

// PermissionKeys returns every key of the catalog.
func PermissionKeys() []string {
	keys := make([]string, 0, len(catalog))
	for _, p := range catalog {
		keys = append(keys, p.Key)
	}
	return keys
}

// UnknownPermissions returns the entries of perms missing from the catalog.
func UnknownPermissions(perms []string) []string {
	known := make(map[string]struct{}, len(catalog))
	for _, p := range catalog {
		known[p.Key] = struct{}{}
	}
	var unknown []string
	for _, p := range perms {
		if _, ok := known[p]; !ok {
			unknown = append(unknown, p)
		}
	}
	return unknown
}

// DefaultRole is a role seeded by the initialize-defaults operation.
type DefaultRole struct {
	Name        string
	Description string
	Permissions []string
}

// DefaultRoles returns the built-in roles with their initial permissions.
func DefaultRoles() []DefaultRole {
	return []DefaultRole{
		{
			Name:        RoleAdmin,
			Description: "Administrator with full access",
			Permissions: PermissionKeys(),
		},
		{
			Name:        RoleModerator,
			Description: "Moderator with limited administrative access",
			Permissions: []string{
				PermUsersRead,
				PermUsersUpdate,
				PermUsersManageState,
				PermRolesRead,
				PermReportsView,
			},
		},
		{
			Name:        RoleUser,
			Description: "Regular user",
			Permissions: []string{},
		},
	}
}
