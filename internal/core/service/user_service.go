package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/taskboard/internal/core/domain"
	"github.com/99minutos/taskboard/internal/core/permission"
	"github.com/99minutos/taskboard/internal/core/ports"
	"github.com/99minutos/taskboard/internal/core/sanitize"
)

type userService struct {
	Deps
}

// NewUserService returns a UserService implementation.
func NewUserService(d Deps) ports.UserService {
	return &userService{Deps: d.withDefaults()}
}

// List returns users without credential fields, for any signed-in caller.
func (s *userService) List(ctx context.Context, actor domain.Identity, filter ports.UserFilter) ([]domain.User, error) {
	if err := permission.Authenticated(actor).Err(); err != nil {
		return nil, err
	}
	filter.Limit = listLimit(filter.Limit)
	users, err := s.Users.FindMany(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]domain.User, 0, len(users))
	for _, u := range users {
		out = append(out, u.WithoutCredentials())
	}
	return out, nil
}

func (s *userService) Get(ctx context.Context, actor domain.Identity, id string) (*domain.User, error) {
	if err := permission.Authenticated(actor).Err(); err != nil {
		return nil, err
	}
	u, err := s.Users.FindByID(ctx, sanitize.String(id, sanitize.MaxIDLength))
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	safe := u.WithoutCredentials()
	return &safe, nil
}

func (s *userService) Create(ctx context.Context, actor domain.Identity, in sanitize.Fields) (*domain.User, error) {
	// Employees are refused before any field is read.
	if err := permission.CanAssignRole(actor, domain.RoleEmployee).Err(); err != nil {
		return nil, s.denied(actor, "create user", err)
	}

	name, err := in.RequiredString("name", maxNameLength)
	if err != nil {
		return nil, err
	}
	email, err := sanitize.Email(in["email"])
	if err != nil {
		return nil, err
	}
	password, err := sanitize.Password(in["password"])
	if err != nil {
		return nil, err
	}
	role := domain.RoleEmployee
	if r, err := sanitize.Enum(in, "role", domain.ParseRole, assignableRoles); err != nil {
		return nil, err
	} else if r != nil {
		role = *r
	}
	if err := permission.CanAssignRole(actor, role).Err(); err != nil {
		return nil, s.denied(actor, "create user", err)
	}
	if err := s.ensureEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("create user: hash password: %w", err)
	}

	now := s.Now()
	user := &domain.User{
		ID:           s.NewID(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	ctx = context.WithoutCancel(ctx)
	err = s.Users.Insert(ctx, user)
	created, err := confirmInsert(ctx, s.Deps, domain.EntityUser, user, err,
		func(ctx context.Context) (*domain.User, error) { return s.Users.FindByID(ctx, user.ID) },
		func(u *domain.User) bool { return u.Email == user.Email },
	)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.record(domain.EntityUser, created.ID, domain.ActionCreate, actor, string(created.Role))
	safe := created.WithoutCredentials()
	return &safe, nil
}

func (s *userService) Update(ctx context.Context, actor domain.Identity, id string, in sanitize.Fields) (*domain.User, error) {
	if err := permission.Authenticated(actor).Err(); err != nil {
		return nil, err
	}
	target, err := s.Users.FindByID(ctx, sanitize.String(id, sanitize.MaxIDLength))
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	// Checked against the stored role, which the patch may be about to change.
	if err := permission.CanActOnUser(actor, target.ID, target.Role, domain.ActionUpdate).Err(); err != nil {
		return nil, s.denied(actor, "update user", err)
	}

	patch := domain.UserPatch{Name: in.OptionalString("name", maxNameLength)}
	if patch.Name != nil && *patch.Name == "" {
		return nil, domain.Invalid("name", "must not be empty")
	}
	if in.Has("email") {
		email, err := sanitize.Email(in["email"])
		if err != nil {
			return nil, err
		}
		if email != target.Email {
			if err := s.ensureEmailFree(ctx, email, target.ID); err != nil {
				return nil, err
			}
			patch.Email = &email
		}
	}
	role, err := sanitize.Enum(in, "role", domain.ParseRole, assignableRoles)
	if err != nil {
		return nil, err
	}
	if role != nil {
		if err := permission.CanAssignRole(actor, *role).Err(); err != nil {
			return nil, s.denied(actor, "update user", err)
		}
		if !permission.IsPrivileged(*role) {
			if err := s.ensureManagesNothing(ctx, target.ID, "role"); err != nil {
				return nil, err
			}
		}
		patch.Role = role
	}
	if in.Has("password") {
		password, err := sanitize.Password(in["password"])
		if err != nil {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("update user: hash password: %w", err)
		}
		h := string(hash)
		patch.PasswordHash = &h
	}
	if patch.Empty() {
		safe := target.WithoutCredentials()
		return &safe, nil
	}
	patch.UpdatedAt = s.Now()

	ctx = context.WithoutCancel(ctx)
	got, err := s.Users.UpdateReturning(ctx, target.ID, patch)
	updated, err := confirmUpdate(ctx, s.Deps, domain.EntityUser, got, err,
		func(ctx context.Context) (*domain.User, error) { return s.Users.FindByID(ctx, target.ID) },
		patch.Applied,
	)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.record(domain.EntityUser, updated.ID, domain.ActionUpdate, actor, "")
	safe := updated.WithoutCredentials()
	return &safe, nil
}

// Delete removes a user after detaching them from every project and task,
// so no task is left assigned to a non-member. A project manager must be
// replaced first.
func (s *userService) Delete(ctx context.Context, actor domain.Identity, id string) error {
	if err := permission.Authenticated(actor).Err(); err != nil {
		return err
	}
	id = sanitize.String(id, sanitize.MaxIDLength)
	if id == actor.ID {
		return s.denied(actor, "delete user", permission.CanActOnUser(actor, id, actor.Role, domain.ActionDelete).Err())
	}
	target, err := s.Users.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if err := permission.CanActOnUser(actor, target.ID, target.Role, domain.ActionDelete).Err(); err != nil {
		return s.denied(actor, "delete user", err)
	}
	if err := s.ensureManagesNothing(ctx, target.ID, "id"); err != nil {
		return err
	}

	ctx = context.WithoutCancel(ctx)
	if _, err := s.Tasks.Unassign(ctx, ports.UnassignFilter{AssigneeIDs: []string{target.ID}}); err != nil {
		return fmt.Errorf("delete user: unassign tasks: %w", err)
	}
	if _, err := s.Projects.PullMember(ctx, target.ID); err != nil {
		return fmt.Errorf("delete user: leave projects: %w", err)
	}

	n, err := s.Users.Delete(ctx, target.ID)
	err = confirmDelete(ctx, s.Deps, domain.EntityUser, n, err,
		func(ctx context.Context) (*domain.User, error) { return s.Users.FindByID(ctx, target.ID) },
	)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	s.record(domain.EntityUser, target.ID, domain.ActionDelete, actor, "")
	return nil
}

var assignableRoles = []domain.Role{domain.RoleAdmin, domain.RoleManager, domain.RoleEmployee}

func (s *userService) ensureEmailFree(ctx context.Context, email, ownerID string) error {
	existing, err := s.Users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("check email: %w", err)
	case existing.ID != ownerID:
		return fmt.Errorf("email %w", domain.ErrConflict)
	}
	return nil
}

// ensureManagesNothing rejects changes that would leave a project managed by a
// missing or unprivileged user.
func (s *userService) ensureManagesNothing(ctx context.Context, userID, field string) error {
	managed, err := s.Projects.FindMany(ctx, ports.ProjectFilter{ManagerID: userID, Limit: 1})
	if err != nil {
		return fmt.Errorf("check managed projects: %w", err)
	}
	if len(managed) > 0 {
		return domain.Invalid(field, "user manages projects; reassign them first")
	}
	return nil
}

func (s *userService) denied(actor domain.Identity, op string, err error) error {
	logDenied(s.Log, actor, op, err)
	return err
}
