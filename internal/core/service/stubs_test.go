package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/taskboard/internal/core/domain"
	"github.com/99minutos/taskboard/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub repositories with fault injection
// ---------------------------------------------------------------------------

type fault struct {
	insertErr    error // returned by Insert
	storeOnErr   bool  // Insert still stores the record when insertErr is set
	missingAck   bool  // UpdateReturning applies the change but returns (nil, nil)
	lostWrite    bool  // UpdateReturning returns (nil, nil) without applying
	zeroDeleted  bool  // Delete removes the record but reports 0
	keepOnDelete bool  // Delete reports 0 and keeps the record
}

type memStore[T any] struct {
	fault
	items map[string]*T
	order []string
}

func newMemStore[T any]() *memStore[T] {
	return &memStore[T]{items: make(map[string]*T)}
}

func (m *memStore[T]) find(id string) (*T, error) {
	v, ok := m.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *v
	return &c, nil
}

func (m *memStore[T]) put(id string, v *T) {
	if _, ok := m.items[id]; !ok {
		m.order = append(m.order, id)
	}
	c := *v
	m.items[id] = &c
}

func (m *memStore[T]) insert(id string, v *T) error {
	if m.insertErr != nil {
		if m.storeOnErr {
			m.put(id, v)
		}
		return m.insertErr
	}
	if _, ok := m.items[id]; ok {
		return domain.ErrConflict
	}
	m.put(id, v)
	return nil
}

func (m *memStore[T]) update(id string, apply func(*T)) (*T, error) {
	v, ok := m.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if m.lostWrite {
		return nil, nil
	}
	apply(v)
	if m.missingAck {
		return nil, nil
	}
	c := *v
	return &c, nil
}

func (m *memStore[T]) remove(id string) (int64, error) {
	if m.keepOnDelete {
		return 0, nil
	}
	if _, ok := m.items[id]; !ok {
		return 0, nil
	}
	delete(m.items, id)
	m.order = slices.DeleteFunc(m.order, func(s string) bool { return s == id })
	if m.zeroDeleted {
		return 0, nil
	}
	return 1, nil
}

func (m *memStore[T]) all() []*T {
	out := make([]*T, 0, len(m.order))
	for _, id := range m.order {
		c := *m.items[id]
		out = append(out, &c)
	}
	return out
}

type stubUsers struct{ *memStore[domain.User] }

func (r stubUsers) FindByID(_ context.Context, id string) (*domain.User, error) { return r.find(id) }

func (r stubUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.all() {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r stubUsers) FindMany(_ context.Context, f ports.UserFilter) ([]*domain.User, error) {
	var out []*domain.User
	for _, u := range r.all() {
		if f.Role == "" || u.Role == f.Role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r stubUsers) CountByIDs(_ context.Context, ids []string) (int64, error) {
	var n int64
	for _, id := range ids {
		if _, ok := r.items[id]; ok {
			n++
		}
	}
	return n, nil
}

func (r stubUsers) Count(context.Context) (int64, error) { return int64(len(r.items)), nil }

func (r stubUsers) Insert(ctx context.Context, u *domain.User) error {
	if _, err := r.FindByEmail(ctx, u.Email); err == nil {
		return domain.ErrConflict
	}
	return r.insert(u.ID, u)
}

func (r stubUsers) UpdateReturning(_ context.Context, id string, p domain.UserPatch) (*domain.User, error) {
	return r.update(id, func(u *domain.User) {
		setIf(&u.Name, p.Name)
		setIf(&u.Email, p.Email)
		setIf(&u.PasswordHash, p.PasswordHash)
		setIf(&u.Role, p.Role)
		u.UpdatedAt = p.UpdatedAt
	})
}

func (r stubUsers) Delete(_ context.Context, id string) (int64, error) { return r.remove(id) }

type stubProjects struct{ *memStore[domain.Project] }

func (r stubProjects) FindByID(_ context.Context, id string) (*domain.Project, error) {
	return r.find(id)
}

func (r stubProjects) FindMany(_ context.Context, f ports.ProjectFilter) ([]*domain.Project, error) {
	var out []*domain.Project
	for _, p := range r.all() {
		if (f.MemberID == "" || p.HasMember(f.MemberID)) && (f.ManagerID == "" || p.ManagerID == f.ManagerID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r stubProjects) Insert(_ context.Context, p *domain.Project) error { return r.insert(p.ID, p) }

func (r stubProjects) UpdateReturning(_ context.Context, id string, patch domain.ProjectPatch) (*domain.Project, error) {
	return r.update(id, func(p *domain.Project) {
		setIf(&p.Name, patch.Name)
		setIf(&p.Description, patch.Description)
		setIf(&p.ManagerID, patch.ManagerID)
		setIf(&p.MemberIDs, patch.MemberIDs)
		setIf(&p.ImageURLs, patch.ImageURLs)
		if patch.StartDate != nil {
			p.StartDate = patch.StartDate
		}
		if patch.Deadline != nil {
			p.Deadline = patch.Deadline
		}
		p.UpdatedAt = patch.UpdatedAt
	})
}

func (r stubProjects) Delete(_ context.Context, id string) (int64, error) { return r.remove(id) }

func (r stubProjects) PullMember(_ context.Context, userID string) (int64, error) {
	var n int64
	for _, p := range r.items {
		if p.HasMember(userID) {
			p.MemberIDs = slices.DeleteFunc(slices.Clone(p.MemberIDs), func(s string) bool { return s == userID })
			n++
		}
	}
	return n, nil
}

type stubTasks struct {
	*memStore[domain.Task]
	ignoreScope   bool // FindMany drops the assignee filter, like a buggy index or query
	cascadeLeaves int  // DeleteByProject leaves this many tasks behind
	lastFilter    ports.TaskFilter
}

func (r *stubTasks) FindByID(_ context.Context, id string) (*domain.Task, error) { return r.find(id) }

func (r *stubTasks) FindMany(_ context.Context, f ports.TaskFilter) ([]*domain.Task, error) {
	r.lastFilter = f
	var out []*domain.Task
	for _, t := range r.all() {
		switch {
		case f.ProjectID != "" && t.ProjectID != f.ProjectID:
		case !r.ignoreScope && f.AssigneeID != "" && t.AssigneeID != f.AssigneeID:
		case f.Status != "" && t.Status != f.Status:
		case f.Priority != "" && t.Priority != f.Priority:
		default:
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *stubTasks) Insert(_ context.Context, t *domain.Task) error { return r.insert(t.ID, t) }

func (r *stubTasks) UpdateReturning(_ context.Context, id string, p domain.TaskPatch) (*domain.Task, error) {
	return r.update(id, func(t *domain.Task) {
		setIf(&t.Title, p.Title)
		setIf(&t.Description, p.Description)
		setIf(&t.Status, p.Status)
		setIf(&t.Priority, p.Priority)
		setIf(&t.AssigneeID, p.AssigneeID)
		setIf(&t.ImageURLs, p.ImageURLs)
		if p.DueDate != nil {
			t.DueDate = p.DueDate
		}
		t.UpdatedAt = p.UpdatedAt
	})
}

func (r *stubTasks) Delete(_ context.Context, id string) (int64, error) { return r.remove(id) }

func (r *stubTasks) DeleteByProject(_ context.Context, projectID string) (int64, error) {
	var n int64
	leave := r.cascadeLeaves
	for _, t := range r.all() {
		if t.ProjectID != projectID {
			continue
		}
		if leave > 0 {
			leave--
			continue
		}
		delete(r.items, t.ID)
		r.order = slices.DeleteFunc(r.order, func(s string) bool { return s == t.ID })
		n++
	}
	return n, nil
}

func (r *stubTasks) CountByProject(_ context.Context, projectID string) (int64, error) {
	var n int64
	for _, t := range r.items {
		if t.ProjectID == projectID {
			n++
		}
	}
	return n, nil
}

func (r *stubTasks) Unassign(_ context.Context, f ports.UnassignFilter) (int64, error) {
	var n int64
	for _, t := range r.items {
		if (f.ProjectID == "" || t.ProjectID == f.ProjectID) && slices.Contains(f.AssigneeIDs, t.AssigneeID) {
			t.AssigneeID = ""
			n++
		}
	}
	return n, nil
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

type stubRecorder struct{ got []domain.Activity }

func (r *stubRecorder) Record(a domain.Activity) { r.got = append(r.got, a) }

type stubObserver struct {
	confirmed []string
	cascades  []string
}

func (o *stubObserver) Confirmed(kind domain.EntityKind, action domain.Action, outcome string) {
	o.confirmed = append(o.confirmed, fmt.Sprintf("%s/%s/%s", kind, action, outcome))
}

func (o *stubObserver) Cascaded(outcome string, tasks int64) {
	o.cascades = append(o.cascades, fmt.Sprintf("%s/%d", outcome, tasks))
}

// ---------------------------------------------------------------------------
// Fixture: one admin, one manager, two employees, one project, two tasks
// ---------------------------------------------------------------------------

var (
	fixedNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

	admin     = domain.Identity{ID: "a1", Role: domain.RoleAdmin}
	manager   = domain.Identity{ID: "m1", Role: domain.RoleManager}
	employee  = domain.Identity{ID: "e1", Role: domain.RoleEmployee}
	employee2 = domain.Identity{ID: "e2", Role: domain.RoleEmployee}
)

type fixture struct {
	users    stubUsers
	projects stubProjects
	tasks    *stubTasks
	rec      *stubRecorder
	obs      *stubObserver
	deps     Deps
}

func newFixture() *fixture {
	f := &fixture{
		users:    stubUsers{newMemStore[domain.User]()},
		projects: stubProjects{newMemStore[domain.Project]()},
		tasks:    &stubTasks{memStore: newMemStore[domain.Task]()},
		rec:      &stubRecorder{},
		obs:      &stubObserver{},
	}
	seq := 0
	f.deps = Deps{
		Users:    f.users,
		Projects: f.projects,
		Tasks:    f.tasks,
		Activity: f.rec,
		Observer: f.obs,
		Log:      zerolog.Nop(),
		Now:      func() time.Time { return fixedNow },
		NewID: func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		},
	}

	for _, u := range []domain.User{
		{ID: "a1", Name: "Ada", Email: "ada@example.com", PasswordHash: "hash-a1", Role: domain.RoleAdmin},
		{ID: "a2", Name: "Alan", Email: "alan@example.com", PasswordHash: "hash-a2", Role: domain.RoleAdmin},
		{ID: "m1", Name: "Mia", Email: "mia@example.com", PasswordHash: "hash-m1", Role: domain.RoleManager},
		{ID: "e1", Name: "Eve", Email: "eve@example.com", PasswordHash: "hash-e1", Role: domain.RoleEmployee},
		{ID: "e2", Name: "Eli", Email: "eli@example.com", PasswordHash: "hash-e2", Role: domain.RoleEmployee},
	} {
		f.users.put(u.ID, &u)
	}
	f.projects.put("p1", &domain.Project{ID: "p1", Name: "Launch", ManagerID: "m1", MemberIDs: []string{"m1", "e1", "e2"}})
	f.projects.put("p2", &domain.Project{ID: "p2", Name: "Internal", ManagerID: "m1", MemberIDs: []string{"m1"}})
	f.tasks.put("t1", &domain.Task{ID: "t1", ProjectID: "p1", Title: "Write copy", Status: domain.StatusNew, Priority: domain.PriorityLow, AssigneeID: "e1"})
	f.tasks.put("t2", &domain.Task{ID: "t2", ProjectID: "p1", Title: "Review", Status: domain.StatusNew, Priority: domain.PriorityHigh, AssigneeID: "e2"})
	f.tasks.put("t3", &domain.Task{ID: "t3", ProjectID: "p2", Title: "Budget", Status: domain.StatusBug, Priority: domain.PriorityMedium, AssigneeID: "m1"})
	return f
}
