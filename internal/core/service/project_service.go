package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/99minutos/taskboard/internal/core/domain"
	"github.com/99minutos/taskboard/internal/core/permission"
	"github.com/99minutos/taskboard/internal/core/ports"
	"github.com/99minutos/taskboard/internal/core/sanitize"
)

type projectService struct {
	Deps
}

// NewProjectService returns a ProjectService implementation.
func NewProjectService(d Deps) ports.ProjectService {
	return &projectService{Deps: d.withDefaults()}
}

// List returns every project for privileged callers and only the projects
// an employee belongs to otherwise.
func (s *projectService) List(ctx context.Context, actor domain.Identity) ([]*domain.Project, error) {
	if err := permission.Authenticated(actor).Err(); err != nil {
		return nil, err
	}
	filter := ports.ProjectFilter{Limit: maxListLimit}
	if member, scoped := permission.ProjectScope(actor); scoped {
		filter.MemberID = member
	}
	projects, err := s.Projects.FindMany(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	out := make([]*domain.Project, 0, len(projects))
	for _, p := range projects {
		if permission.CanSeeProject(actor, p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *projectService) Get(ctx context.Context, actor domain.Identity, id string) (*domain.Project, error) {
	if err := permission.Authenticated(actor).Err(); err != nil {
		return nil, err
	}
	p, err := s.Projects.FindByID(ctx, sanitize.String(id, sanitize.MaxIDLength))
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	if !permission.CanSeeProject(actor, p) {
		return nil, fmt.Errorf("get project: %w", domain.ErrNotFound)
	}
	return p, nil
}

func (s *projectService) Create(ctx context.Context, actor domain.Identity, in sanitize.Fields) (*domain.Project, error) {
	if err := permission.CanMutateProject(actor, domain.ActionCreate).Err(); err != nil {
		logDenied(s.Log, actor, "create project", err)
		return nil, err
	}

	name, err := in.RequiredString("name", maxNameLength)
	if err != nil {
		return nil, err
	}
	managerID := actor.ID
	if m := in.OptionalString("manager_id", sanitize.MaxIDLength); m != nil && *m != "" {
		managerID = *m
	}
	members, err := sanitize.IDs("member_ids", in["member_ids"], maxMembers)
	if err != nil {
		return nil, err
	}
	images, err := sanitize.ListTruncated("image_urls", in["image_urls"], maxImages, maxImageURLLength)
	if err != nil {
		return nil, err
	}
	start, err := in.OptionalDate("start_date")
	if err != nil {
		return nil, err
	}
	deadline, err := in.OptionalDate("deadline")
	if err != nil {
		return nil, err
	}
	if err := checkSchedule(start, deadline); err != nil {
		return nil, err
	}
	if err := s.checkManager(ctx, managerID); err != nil {
		return nil, err
	}
	if members, err = withManager(members, managerID); err != nil {
		return nil, err
	}
	if err := s.checkUsersExist(ctx, members); err != nil {
		return nil, err
	}

	now := s.Now()
	project := &domain.Project{
		ID:          s.NewID(),
		Name:        name,
		Description: derefString(in.OptionalString("description", maxDescriptionLength)),
		ManagerID:   managerID,
		MemberIDs:   members,
		ImageURLs:   images,
		StartDate:   start,
		Deadline:    deadline,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	ctx = context.WithoutCancel(ctx)
	err = s.Projects.Insert(ctx, project)
	created, err := confirmInsert(ctx, s.Deps, domain.EntityProject, project, err,
		func(ctx context.Context) (*domain.Project, error) { return s.Projects.FindByID(ctx, project.ID) },
		func(p *domain.Project) bool { return p.CreatedAt.UnixMilli() == project.CreatedAt.UnixMilli() },
	)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	s.record(domain.EntityProject, created.ID, domain.ActionCreate, actor, created.Name)
	return created, nil
}

// Update applies a partial change. Members dropped from the project lose
// their task assignments in it before the project itself is written.
func (s *projectService) Update(ctx context.Context, actor domain.Identity, id string, in sanitize.Fields) (*domain.Project, error) {
	if err := permission.CanMutateProject(actor, domain.ActionUpdate).Err(); err != nil {
		logDenied(s.Log, actor, "update project", err)
		return nil, err
	}
	current, err := s.Projects.FindByID(ctx, sanitize.String(id, sanitize.MaxIDLength))
	if err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}

	patch := domain.ProjectPatch{
		Name:        in.OptionalString("name", maxNameLength),
		Description: in.OptionalString("description", maxDescriptionLength),
	}
	if patch.Name != nil && *patch.Name == "" {
		return nil, domain.Invalid("name", "must not be empty")
	}
	if m := in.OptionalString("manager_id", sanitize.MaxIDLength); m != nil && *m != current.ManagerID {
		if err := s.checkManager(ctx, *m); err != nil {
			return nil, err
		}
		patch.ManagerID = m
	}
	if in.Has("member_ids") {
		members, err := sanitize.IDs("member_ids", in["member_ids"], maxMembers)
		if err != nil {
			return nil, err
		}
		patch.MemberIDs = &members
	}
	if in.Has("image_urls") {
		images, err := sanitize.ListTruncated("image_urls", in["image_urls"], maxImages, maxImageURLLength)
		if err != nil {
			return nil, err
		}
		patch.ImageURLs = &images
	}
	if patch.StartDate, err = in.OptionalDate("start_date"); err != nil {
		return nil, err
	}
	if patch.Deadline, err = in.OptionalDate("deadline"); err != nil {
		return nil, err
	}
	if err := checkSchedule(pick(patch.StartDate, current.StartDate), pick(patch.Deadline, current.Deadline)); err != nil {
		return nil, err
	}

	manager := current.ManagerID
	if patch.ManagerID != nil {
		manager = *patch.ManagerID
	}
	members := current.MemberIDs
	if patch.MemberIDs != nil {
		members = *patch.MemberIDs
	}
	if !slices.Contains(members, manager) {
		if members, err = withManager(members, manager); err != nil {
			return nil, err
		}
		patch.MemberIDs = &members
	}
	if patch.MemberIDs != nil {
		if err := s.checkUsersExist(ctx, added(current.MemberIDs, members)); err != nil {
			return nil, err
		}
	}
	if patch.Empty() {
		return current, nil
	}
	patch.UpdatedAt = s.Now()

	ctx = context.WithoutCancel(ctx)
	if gone := added(members, current.MemberIDs); len(gone) > 0 {
		n, err := s.Tasks.Unassign(ctx, ports.UnassignFilter{ProjectID: current.ID, AssigneeIDs: gone})
		if err != nil {
			return nil, fmt.Errorf("update project: unassign removed members: %w", err)
		}
		s.Log.Info().Str("project_id", current.ID).Int("removed_members", len(gone)).Int64("unassigned_tasks", n).
			Msg("members removed from project")
	}

	got, err := s.Projects.UpdateReturning(ctx, current.ID, patch)
	updated, err := confirmUpdate(ctx, s.Deps, domain.EntityProject, got, err,
		func(ctx context.Context) (*domain.Project, error) { return s.Projects.FindByID(ctx, current.ID) },
		patch.Applied,
	)
	if err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}

	s.record(domain.EntityProject, updated.ID, domain.ActionUpdate, actor, "")
	return updated, nil
}

// Delete removes the project's tasks first and only removes the project
// once none are left, so a task never outlives its project.
func (s *projectService) Delete(ctx context.Context, actor domain.Identity, id string) error {
	if err := permission.CanMutateProject(actor, domain.ActionDelete).Err(); err != nil {
		logDenied(s.Log, actor, "delete project", err)
		return err
	}
	project, err := s.Projects.FindByID(ctx, sanitize.String(id, sanitize.MaxIDLength))
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}

	ctx = context.WithoutCancel(ctx)
	removed, err := s.Tasks.DeleteByProject(ctx, project.ID)
	if err != nil && !errors.Is(err, domain.ErrPersistenceAmbiguous) {
		s.Observer.Cascaded(outcomeFailed, 0)
		return fmt.Errorf("delete project: %w: delete tasks: %v", domain.ErrPersistenceFailed, err)
	}
	left, err := s.Tasks.CountByProject(ctx, project.ID)
	if err != nil || left > 0 {
		s.Observer.Cascaded(outcomeFailed, removed)
		s.Log.Error().Err(err).Str("project_id", project.ID).Int64("tasks_left", left).
			Msg("cascade incomplete, project kept")
		return fmt.Errorf("delete project: %w: %d tasks left", domain.ErrPersistenceFailed, left)
	}

	n, err := s.Projects.Delete(ctx, project.ID)
	err = confirmDelete(ctx, s.Deps, domain.EntityProject, n, err,
		func(ctx context.Context) (*domain.Project, error) { return s.Projects.FindByID(ctx, project.ID) },
	)
	if err != nil {
		s.Observer.Cascaded(outcomeFailed, removed)
		return fmt.Errorf("delete project: %w", err)
	}

	s.Observer.Cascaded(outcomeAcked, removed)
	s.Log.Info().Str("project_id", project.ID).Int64("tasks", removed).Msg("project deleted")
	s.record(domain.EntityProject, project.ID, domain.ActionDelete, actor, fmt.Sprintf("%d tasks", removed))
	return nil
}

func (s *projectService) checkManager(ctx context.Context, id string) error {
	u, err := s.Users.FindByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Invalid("manager_id", "unknown user")
	}
	if err != nil {
		return fmt.Errorf("check manager: %w", err)
	}
	if !permission.IsPrivileged(u.Role) {
		return domain.Invalid("manager_id", "must be an admin or manager")
	}
	return nil
}

func (s *projectService) checkUsersExist(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	n, err := s.Users.CountByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("check members: %w", err)
	}
	if n != int64(len(ids)) {
		return domain.Invalid("member_ids", "contains unknown users")
	}
	return nil
}

// withManager returns members with the manager included.
func withManager(members []string, managerID string) ([]string, error) {
	if slices.Contains(members, managerID) {
		return members, nil
	}
	if len(members) >= maxMembers {
		return nil, domain.Invalid("member_ids", fmt.Sprintf("must have at most %d items including the manager", maxMembers))
	}
	return append(slices.Clone(members), managerID), nil
}

// added returns the ids in next that are not in prev.
func added(prev, next []string) []string {
	var out []string
	for _, id := range next {
		if !slices.Contains(prev, id) {
			out = append(out, id)
		}
	}
	return out
}

func checkSchedule(start, deadline *time.Time) error {
	if start != nil && deadline != nil && deadline.Before(*start) {
		return domain.Invalid("deadline", "must not be before start_date")
	}
	return nil
}

func pick(patch, current *time.Time) *time.Time {
	if patch != nil {
		return patch
	}
	return current
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
