package identity

import "strings"

// Role is the coarse authorization level attached to a user.
type Role string

const (
	// RoleViewer may read dashboards only.
	RoleViewer Role = "viewer"
	// RoleUser may manage their own devices.
	RoleUser Role = "user"
	// RoleOperator may acknowledge alerts across tenants.
	RoleOperator Role = "operator"
	// RoleAdmin may manage accounts and sessions.
	RoleAdmin Role = "admin"
)

// ParseRole normalizes a role string, defaulting to RoleUser for unknown input.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleViewer:
		return RoleViewer
	case RoleUser:
		return RoleUser
	case RoleOperator:
		return RoleOperator
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleUser
	}
}
