package ports

import (
	"context"

	"github.com/99minutos/taskboard/internal/core/domain"
)

// Repository contracts shared by every collection:
//   - FindByID returns domain.ErrNotFound when no record has the key.
//   - Insert and UpdateReturning return domain.ErrPersistenceAmbiguous when
//     the store gave no usable acknowledgment (timeout, dropped connection).
//   - UpdateReturning returns (nil, nil) when the store accepted the update
//     but did not hand back the new document.
//   - Delete returns the number of removed records; zero is not an error.
//   - Reads return domain.ErrUpstreamUnavailable when the store is unreachable.

// UserFilter narrows a user listing.
type UserFilter struct {
	Role  domain.Role // empty = any role
	Limit int64
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindMany(ctx context.Context, filter UserFilter) ([]*domain.User, error)
	// CountByIDs returns how many of ids belong to existing users.
	CountByIDs(ctx context.Context, ids []string) (int64, error)
	Count(ctx context.Context) (int64, error)
	Insert(ctx context.Context, u *domain.User) error
	UpdateReturning(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error)
	Delete(ctx context.Context, id string) (int64, error)
}

// ProjectFilter narrows a project listing.
type ProjectFilter struct {
	MemberID  string // empty = all projects
	ManagerID string
	Limit     int64
}

// ProjectRepository defines persistence operations for projects.
type ProjectRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Project, error)
	FindMany(ctx context.Context, filter ProjectFilter) ([]*domain.Project, error)
	Insert(ctx context.Context, p *domain.Project) error
	UpdateReturning(ctx context.Context, id string, patch domain.ProjectPatch) (*domain.Project, error)
	Delete(ctx context.Context, id string) (int64, error)
	// PullMember removes userID from every project's member set.
	PullMember(ctx context.Context, userID string) (int64, error)
}

// TaskFilter narrows a task listing. Empty fields do not filter.
type TaskFilter struct {
	ProjectID  string
	AssigneeID string
	Status     domain.TaskStatus
	Priority   domain.TaskPriority
	Limit      int64
}

// UnassignFilter selects tasks whose assignee must be cleared.
type UnassignFilter struct {
	ProjectID   string // empty = every project
	AssigneeIDs []string
}

// TaskRepository defines persistence operations for tasks.
type TaskRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Task, error)
	FindMany(ctx context.Context, filter TaskFilter) ([]*domain.Task, error)
	Insert(ctx context.Context, t *domain.Task) error
	UpdateReturning(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error)
	Delete(ctx context.Context, id string) (int64, error)
	DeleteByProject(ctx context.Context, projectID string) (int64, error)
	CountByProject(ctx context.Context, projectID string) (int64, error)
	Unassign(ctx context.Context, filter UnassignFilter) (int64, error)
}

// ActivityFilter narrows the activity feed.
type ActivityFilter struct {
	Entity   domain.EntityKind
	EntityID string
	Limit    int64
}

// ActivityRepository persists the audit trail. List returns newest first.
type ActivityRepository interface {
	Insert(ctx context.Context, a *domain.Activity) error
	List(ctx context.Context, filter ActivityFilter) ([]*domain.Activity, error)
}
