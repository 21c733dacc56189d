// Package permission is the single place role rules are decided. Every
// function is pure and total: an unknown or anonymous role is simply denied.
package permission

import "github.com/99minutos/taskboard/internal/core/domain"

// Decision is the outcome of a permission check.
type Decision struct {
	Allowed bool
	Reason  domain.DenyReason
}

var allow = Decision{Allowed: true}

func deny(r domain.DenyReason) Decision { return Decision{Reason: r} }

// Err converts a denial into the matching domain error, or nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	if d.Reason == domain.DenyUnauthenticated {
		return domain.ErrUnauthenticated
	}
	return &domain.ForbiddenError{Reason: d.Reason}
}

// IsPrivileged reports whether role carries full create/update/delete rights.
// Admin and manager share the same rights over projects, tasks and users.
func IsPrivileged(role domain.Role) bool {
	switch role {
	case domain.RoleAdmin, domain.RoleManager:
		return true
	case domain.RoleEmployee, domain.RoleAnonymous:
		return false
	default:
		return false
	}
}

// Authenticated denies anonymous callers.
func Authenticated(actor domain.Identity) Decision {
	if actor.IsAnonymous() {
		return deny(domain.DenyUnauthenticated)
	}
	return allow
}

// CanMutateProject gates project create/update/delete.
func CanMutateProject(actor domain.Identity, _ domain.Action) Decision {
	if d := Authenticated(actor); !d.Allowed {
		return d
	}
	if !IsPrivileged(actor.Role) {
		return deny(domain.DenyRoleTooLow)
	}
	return allow
}

// CanMutateTask gates task writes. Employees may create tasks (the caller
// forces self-assignment) and update tasks assigned to them; only
// privileged roles delete. assigneeID is the task's current assignee and
// is ignored for create.
func CanMutateTask(actor domain.Identity, action domain.Action, assigneeID string) Decision {
	if d := Authenticated(actor); !d.Allowed {
		return d
	}
	if IsPrivileged(actor.Role) {
		return allow
	}
	switch action {
	case domain.ActionCreate:
		return allow
	case domain.ActionUpdate:
		if assigneeID != actor.ID {
			return deny(domain.DenyNotAssigned)
		}
		return allow
	case domain.ActionDelete:
		return deny(domain.DenyRoleTooLow)
	default:
		return deny(domain.DenyRoleTooLow)
	}
}

// CanActOnUser gates edit and delete of an existing user. targetRole must be
// the role currently stored for the target, not one taken from the request.
func CanActOnUser(actor domain.Identity, targetID string, targetRole domain.Role, action domain.Action) Decision {
	if d := Authenticated(actor); !d.Allowed {
		return d
	}
	if action == domain.ActionDelete && targetID == actor.ID {
		return deny(domain.DenySelfAction)
	}
	switch actor.Role {
	case domain.RoleAdmin:
		return allow
	case domain.RoleManager:
		if targetRole == domain.RoleAdmin {
			return deny(domain.DenyProtectedTarget)
		}
		return allow
	default:
		return deny(domain.DenyRoleTooLow)
	}
}

// CanAssignRole gates creating a user with role, or changing a user to it.
// Managers may not mint admins.
func CanAssignRole(actor domain.Identity, role domain.Role) Decision {
	if d := Authenticated(actor); !d.Allowed {
		return d
	}
	switch actor.Role {
	case domain.RoleAdmin:
		return allow
	case domain.RoleManager:
		if role == domain.RoleAdmin {
			return deny(domain.DenyProtectedTarget)
		}
		return allow
	default:
		return deny(domain.DenyRoleTooLow)
	}
}

// CanViewActivity gates the audit trail.
func CanViewActivity(actor domain.Identity) Decision {
	if d := Authenticated(actor); !d.Allowed {
		return d
	}
	if !IsPrivileged(actor.Role) {
		return deny(domain.DenyRoleTooLow)
	}
	return allow
}

// TaskScope returns the assignee every task listing for actor must be
// restricted to, or "" for an unrestricted listing.
func TaskScope(actor domain.Identity) (assigneeID string, scoped bool) {
	if IsPrivileged(actor.Role) && !actor.IsAnonymous() {
		return "", false
	}
	return actor.ID, true
}

// ProjectScope returns the member id every project listing for actor must
// be restricted to.
func ProjectScope(actor domain.Identity) (memberID string, scoped bool) {
	return TaskScope(actor)
}

// CanSeeTask applies TaskScope to a single retrieved task.
func CanSeeTask(actor domain.Identity, t *domain.Task) bool {
	if t == nil || actor.IsAnonymous() {
		return false
	}
	assignee, scoped := TaskScope(actor)
	return !scoped || t.AssigneeID == assignee
}

// CanSeeProject applies ProjectScope to a single retrieved project.
func CanSeeProject(actor domain.Identity, p *domain.Project) bool {
	if p == nil || actor.IsAnonymous() {
		return false
	}
	member, scoped := ProjectScope(actor)
	return !scoped || p.HasMember(member)
}
