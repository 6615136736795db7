package auth

// Permission represents a named capability.
type Permission string

// Permission constants.
const (
	PermAuditRead   Permission = "audit:read"
	PermSlotsManage Permission = "slots:manage"
)

// rolePermissions is the single source of truth for the authorisation model.
var rolePermissions = map[Role][]Permission{
	RoleOperator: {
		PermAuditRead,
	},
	RoleAdmin: {
		PermAuditRead,
		PermSlotsManage,
	},
}

// HasPermission returns true if the given role has the specified permission.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}
