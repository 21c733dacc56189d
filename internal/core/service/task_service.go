package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/99minutos/taskboard/internal/core/domain"
	"github.com/99minutos/taskboard/internal/core/permission"
	"github.com/99minutos/taskboard/internal/core/ports"
	"github.com/99minutos/taskboard/internal/core/sanitize"
)

type taskService struct {
	Deps
}

// NewTaskService returns a TaskService implementation.
func NewTaskService(d Deps) ports.TaskService {
	return &taskService{Deps: d.withDefaults()}
}

// List applies the employee scope twice: once in the store filter and again
// on the returned rows.
func (s *taskService) List(ctx context.Context, actor domain.Identity, q ports.TaskQuery) ([]*domain.Task, error) {
	if err := permission.Authenticated(actor).Err(); err != nil {
		return nil, err
	}
	query := sanitize.Fields{}
	if q.Status != "" {
		query["status"] = q.Status
	}
	if q.Priority != "" {
		query["priority"] = q.Priority
	}
	filter := ports.TaskFilter{
		ProjectID: sanitize.String(q.ProjectID, sanitize.MaxIDLength),
		Limit:     maxListLimit,
	}
	st, err := sanitize.Enum(query, "status", domain.ParseTaskStatus, domain.TaskStatuses)
	if err != nil {
		return nil, err
	}
	if st != nil {
		filter.Status = *st
	}
	pr, err := sanitize.Enum(query, "priority", domain.ParseTaskPriority, domain.TaskPriorities)
	if err != nil {
		return nil, err
	}
	if pr != nil {
		filter.Priority = *pr
	}
	if assignee, scoped := permission.TaskScope(actor); scoped {
		filter.AssigneeID = assignee
	}

	tasks, err := s.Tasks.FindMany(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	out := make([]*domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if permission.CanSeeTask(actor, t) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *taskService) Get(ctx context.Context, actor domain.Identity, id string) (*domain.Task, error) {
	if err := permission.Authenticated(actor).Err(); err != nil {
		return nil, err
	}
	return s.visible(ctx, actor, "get task", id)
}

func (s *taskService) Create(ctx context.Context, actor domain.Identity, in sanitize.Fields) (*domain.Task, error) {
	if err := permission.CanMutateTask(actor, domain.ActionCreate, "").Err(); err != nil {
		logDenied(s.Log, actor, "create task", err)
		return nil, err
	}

	projectID, err := in.RequiredString("project_id", sanitize.MaxIDLength)
	if err != nil {
		return nil, err
	}
	title, err := in.RequiredString("title", maxNameLength)
	if err != nil {
		return nil, err
	}
	status := domain.StatusNew
	if st, err := sanitize.Enum(in, "status", domain.ParseTaskStatus, domain.TaskStatuses); err != nil {
		return nil, err
	} else if st != nil {
		status = *st
	}
	priority := domain.PriorityMedium
	if pr, err := sanitize.Enum(in, "priority", domain.ParseTaskPriority, domain.TaskPriorities); err != nil {
		return nil, err
	} else if pr != nil {
		priority = *pr
	}
	due, err := in.OptionalDate("due_date")
	if err != nil {
		return nil, err
	}
	images, err := sanitize.ListTruncated("image_urls", in["image_urls"], maxImages, maxImageURLLength)
	if err != nil {
		return nil, err
	}

	// Employees always own what they create, whatever the body says.
	assignee := derefString(in.OptionalString("assignee_id", sanitize.MaxIDLength))
	if !permission.IsPrivileged(actor.Role) {
		assignee = actor.ID
	}
	if err := s.checkAssignee(ctx, projectID, assignee); err != nil {
		return nil, err
	}

	now := s.Now()
	task := &domain.Task{
		ID:          s.NewID(),
		ProjectID:   projectID,
		Title:       title,
		Description: derefString(in.OptionalString("description", maxDescriptionLength)),
		Status:      status,
		Priority:    priority,
		AssigneeID:  assignee,
		DueDate:     due,
		ImageURLs:   images,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	ctx = context.WithoutCancel(ctx)
	err = s.Tasks.Insert(ctx, task)
	created, err := confirmInsert(ctx, s.Deps, domain.EntityTask, task, err,
		func(ctx context.Context) (*domain.Task, error) { return s.Tasks.FindByID(ctx, task.ID) },
		func(t *domain.Task) bool { return t.CreatedAt.UnixMilli() == task.CreatedAt.UnixMilli() },
	)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.record(domain.EntityTask, created.ID, domain.ActionCreate, actor, created.Title)
	return created, nil
}

func (s *taskService) Update(ctx context.Context, actor domain.Identity, id string, in sanitize.Fields) (*domain.Task, error) {
	if err := permission.Authenticated(actor).Err(); err != nil {
		return nil, err
	}
	current, err := s.visible(ctx, actor, "update task", id)
	if err != nil {
		return nil, err
	}
	if err := permission.CanMutateTask(actor, domain.ActionUpdate, current.AssigneeID).Err(); err != nil {
		logDenied(s.Log, actor, "update task", err)
		return nil, err
	}

	patch := domain.TaskPatch{
		Title:       in.OptionalString("title", maxNameLength),
		Description: in.OptionalString("description", maxDescriptionLength),
	}
	if patch.Title != nil && *patch.Title == "" {
		return nil, domain.Invalid("title", "must not be empty")
	}
	if patch.Status, err = sanitize.Enum(in, "status", domain.ParseTaskStatus, domain.TaskStatuses); err != nil {
		return nil, err
	}
	if patch.Priority, err = sanitize.Enum(in, "priority", domain.ParseTaskPriority, domain.TaskPriorities); err != nil {
		return nil, err
	}
	if patch.DueDate, err = in.OptionalDate("due_date"); err != nil {
		return nil, err
	}
	if in.Has("image_urls") {
		images, err := sanitize.ListTruncated("image_urls", in["image_urls"], maxImages, maxImageURLLength)
		if err != nil {
			return nil, err
		}
		patch.ImageURLs = &images
	}
	if a := in.OptionalString("assignee_id", sanitize.MaxIDLength); a != nil && *a != current.AssigneeID {
		if !permission.IsPrivileged(actor.Role) {
			err := &domain.ForbiddenError{Reason: domain.DenyRoleTooLow}
			logDenied(s.Log, actor, "reassign task", err)
			return nil, err
		}
		if err := s.checkAssignee(ctx, current.ProjectID, *a); err != nil {
			return nil, err
		}
		patch.AssigneeID = a
	}
	if patch.Empty() {
		return current, nil
	}
	patch.UpdatedAt = s.Now()

	ctx = context.WithoutCancel(ctx)
	got, err := s.Tasks.UpdateReturning(ctx, current.ID, patch)
	updated, err := confirmUpdate(ctx, s.Deps, domain.EntityTask, got, err,
		func(ctx context.Context) (*domain.Task, error) { return s.Tasks.FindByID(ctx, current.ID) },
		patch.Applied,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	s.record(domain.EntityTask, updated.ID, domain.ActionUpdate, actor, string(updated.Status))
	return updated, nil
}

func (s *taskService) Delete(ctx context.Context, actor domain.Identity, id string) error {
	if err := permission.Authenticated(actor).Err(); err != nil {
		return err
	}
	task, err := s.visible(ctx, actor, "delete task", id)
	if err != nil {
		return err
	}
	if err := permission.CanMutateTask(actor, domain.ActionDelete, task.AssigneeID).Err(); err != nil {
		logDenied(s.Log, actor, "delete task", err)
		return err
	}

	ctx = context.WithoutCancel(ctx)
	n, err := s.Tasks.Delete(ctx, task.ID)
	err = confirmDelete(ctx, s.Deps, domain.EntityTask, n, err,
		func(ctx context.Context) (*domain.Task, error) { return s.Tasks.FindByID(ctx, task.ID) },
	)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	s.record(domain.EntityTask, task.ID, domain.ActionDelete, actor, "")
	return nil
}

// visible loads a task, hiding tasks outside the caller's scope as not found.
func (s *taskService) visible(ctx context.Context, actor domain.Identity, op, id string) (*domain.Task, error) {
	t, err := s.Tasks.FindByID(ctx, sanitize.String(id, sanitize.MaxIDLength))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !permission.CanSeeTask(actor, t) {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return t, nil
}

// checkAssignee enforces that a non-empty assignee belongs to the project.
func (s *taskService) checkAssignee(ctx context.Context, projectID, assigneeID string) error {
	project, err := s.Projects.FindByID(ctx, projectID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Invalid("project_id", "unknown project")
	}
	if err != nil {
		return fmt.Errorf("load project: %w", err)
	}
	if assigneeID != "" && !project.HasMember(assigneeID) {
		return domain.Invalid("assignee_id", "must be a member of the project")
	}
	return nil
}
