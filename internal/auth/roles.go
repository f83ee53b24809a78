package auth

import "strings"

// Role is a staff role. Higher roles include the rights of lower ones.
type Role string

const (
	// RoleViewer reads reports of its own branch.
	RoleViewer Role = "viewer"
	// RoleLibrarian also generates reports.
	RoleLibrarian Role = "librarian"
	// RoleAdmin works across branches.
	RoleAdmin Role = "admin"
)

var roleRanks = map[Role]int{
	RoleViewer:    1,
	RoleLibrarian: 2,
	RoleAdmin:     3,
}

// ParseRole accepts a role name in any case.
func ParseRole(value string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := roleRanks[role]; !ok {
		return "", false
	}
	return role, true
}

// Allows reports whether r carries at least the rights of required.
func (r Role) Allows(required Role) bool {
	rank, ok := roleRanks[r]
	return ok && rank >= roleRanks[required]
}
