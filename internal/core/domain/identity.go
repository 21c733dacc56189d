package domain

// Role is the closed set of caller roles used for authorization.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"

	// RoleAnonymous stands in for a caller without a resolvable identity.
	// It is never accepted from input.
	RoleAnonymous Role = "anonymous"
)

// ParseRole maps a stored or submitted role string onto the closed set.
// "anonymous" is rejected.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleManager:
		return RoleManager, true
	case RoleEmployee:
		return RoleEmployee, true
	default:
		return "", false
	}
}

// Identity is the authenticated caller for a single request.
type Identity struct {
	ID   string
	Role Role
}

// Anonymous returns the identity used when no session could be resolved.
func Anonymous() Identity {
	return Identity{Role: RoleAnonymous}
}

// IsAnonymous reports whether the identity carries no caller.
func (i Identity) IsAnonymous() bool {
	if i.ID == "" {
		return true
	}
	_, ok := ParseRole(string(i.Role))
	return !ok
}
