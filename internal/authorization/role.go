package authorization

import "strings"

const (
	RoleStaff   = "staff"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// NormalizeRole lowercases and validates a role name, returning "" when unknown.
func NormalizeRole(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	switch role {
	case RoleStaff, RoleManager, RoleAdmin:
		return role
	default:
		return ""
	}
}
