package permission

import (
	"errors"
	"testing"

	"github.com/99minutos/taskboard/internal/core/domain"
)

var (
	admin    = domain.Identity{ID: "u-admin", Role: domain.RoleAdmin}
	manager  = domain.Identity{ID: "u-manager", Role: domain.RoleManager}
	employee = domain.Identity{ID: "u-employee", Role: domain.RoleEmployee}
	anon     = domain.Anonymous()
)

func TestIsPrivileged(t *testing.T) {
	cases := map[domain.Role]bool{
		domain.RoleAdmin:     true,
		domain.RoleManager:   true,
		domain.RoleEmployee:  false,
		domain.RoleAnonymous: false,
		domain.Role("root"):  false,
	}
	for role, want := range cases {
		if got := IsPrivileged(role); got != want {
			t.Errorf("IsPrivileged(%q) = %v, want %v", role, got, want)
		}
	}
}

func TestCanActOnUser_ManagerNeverOnAdmin(t *testing.T) {
	for _, action := range []domain.Action{domain.ActionUpdate, domain.ActionDelete} {
		d := CanActOnUser(manager, "u-other-admin", domain.RoleAdmin, action)
		if d.Allowed {
			t.Fatalf("manager %s on admin must be denied", action)
		}
		if d.Reason != domain.DenyProtectedTarget {
			t.Errorf("reason: want %q, got %q", domain.DenyProtectedTarget, d.Reason)
		}
	}
}

func TestCanActOnUser_ManagerOnLowerRoles(t *testing.T) {
	for _, role := range []domain.Role{domain.RoleEmployee, domain.RoleManager} {
		if d := CanActOnUser(manager, "u-target", role, domain.ActionDelete); !d.Allowed {
			t.Errorf("manager delete on %s should be allowed, got %q", role, d.Reason)
		}
	}
}

func TestCanActOnUser_AdminOnAdmin(t *testing.T) {
	if d := CanActOnUser(admin, "u-other-admin", domain.RoleAdmin, domain.ActionDelete); !d.Allowed {
		t.Fatalf("admin delete on admin should be allowed, got %q", d.Reason)
	}
}

func TestCanActOnUser_SelfDeleteForbiddenForEveryRole(t *testing.T) {
	for _, actor := range []domain.Identity{admin, manager, employee} {
		d := CanActOnUser(actor, actor.ID, actor.Role, domain.ActionDelete)
		if d.Allowed {
			t.Fatalf("%s must not delete itself", actor.Role)
		}
		if d.Reason != domain.DenySelfAction {
			t.Errorf("%s reason: want %q, got %q", actor.Role, domain.DenySelfAction, d.Reason)
		}
	}
}

func TestCanActOnUser_EmployeeDenied(t *testing.T) {
	d := CanActOnUser(employee, "u-target", domain.RoleEmployee, domain.ActionUpdate)
	if d.Allowed || d.Reason != domain.DenyRoleTooLow {
		t.Fatalf("employee edit: got %+v", d)
	}
}

func TestCanActOnUser_AnonymousNeverSelfMatches(t *testing.T) {
	d := CanActOnUser(anon, "", domain.RoleEmployee, domain.ActionDelete)
	if d.Allowed || d.Reason != domain.DenyUnauthenticated {
		t.Fatalf("anonymous: got %+v", d)
	}
	if !errors.Is(d.Err(), domain.ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", d.Err())
	}
}

func TestCanAssignRole(t *testing.T) {
	if d := CanAssignRole(manager, domain.RoleAdmin); d.Allowed {
		t.Error("manager must not create admins")
	}
	if d := CanAssignRole(manager, domain.RoleEmployee); !d.Allowed {
		t.Error("manager may create employees")
	}
	if d := CanAssignRole(admin, domain.RoleAdmin); !d.Allowed {
		t.Error("admin may create admins")
	}
	if d := CanAssignRole(employee, domain.RoleEmployee); d.Allowed {
		t.Error("employee may not create users")
	}
}

func TestCanMutateTask(t *testing.T) {
	cases := []struct {
		name     string
		actor    domain.Identity
		action   domain.Action
		assignee string
		want     bool
	}{
		{"manager delete", manager, domain.ActionDelete, "x", true},
		{"employee create", employee, domain.ActionCreate, "", true},
		{"employee update own", employee, domain.ActionUpdate, employee.ID, true},
		{"employee update other", employee, domain.ActionUpdate, "u-someone", false},
		{"employee delete own", employee, domain.ActionDelete, employee.ID, false},
		{"anonymous create", anon, domain.ActionCreate, "", false},
	}
	for _, tc := range cases {
		if got := CanMutateTask(tc.actor, tc.action, tc.assignee).Allowed; got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestCanMutateProject(t *testing.T) {
	if !CanMutateProject(manager, domain.ActionDelete).Allowed {
		t.Error("manager may delete projects")
	}
	d := CanMutateProject(employee, domain.ActionCreate)
	var fe *domain.ForbiddenError
	if !errors.As(d.Err(), &fe) || fe.Reason != domain.DenyRoleTooLow {
		t.Errorf("employee create project: got %v", d.Err())
	}
}

func TestTaskScope(t *testing.T) {
	if _, scoped := TaskScope(admin); scoped {
		t.Error("admin listing must be unscoped")
	}
	if _, scoped := TaskScope(manager); scoped {
		t.Error("manager listing must be unscoped")
	}
	id, scoped := TaskScope(employee)
	if !scoped || id != employee.ID {
		t.Errorf("employee scope: got (%q, %v)", id, scoped)
	}
	if _, scoped := TaskScope(anon); !scoped {
		t.Error("anonymous listing must be scoped")
	}
}

func TestCanSeeTask(t *testing.T) {
	own := &domain.Task{AssigneeID: employee.ID}
	other := &domain.Task{AssigneeID: "u-someone"}
	unassigned := &domain.Task{}

	if !CanSeeTask(employee, own) {
		t.Error("employee should see own task")
	}
	if CanSeeTask(employee, other) || CanSeeTask(employee, unassigned) {
		t.Error("employee must not see tasks assigned elsewhere")
	}
	if CanSeeTask(anon, unassigned) {
		t.Error("anonymous must see nothing")
	}
	if !CanSeeTask(manager, other) {
		t.Error("manager sees every task")
	}
}
