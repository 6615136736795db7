package auth

import "errors"

// Role represents an authorisation tier.
type Role string

// Roles.
const (
	// RoleOperator is lot staff with read access to the audit trail.
	RoleOperator Role = "operator"

	// RoleAdmin manages slots.
	RoleAdmin Role = "admin"
)

// ValidRoles lists every role a token may carry.
var ValidRoles = []Role{RoleOperator, RoleAdmin}

// IsValidRole reports whether r is a known role.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Auth errors.
var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrForbidden    = errors.New("insufficient permissions")
)
