package ports

import (
	"context"

	"github.com/99minutos/taskboard/internal/core/domain"
	"github.com/99minutos/taskboard/internal/core/sanitize"
)

// Every service call receives the caller explicitly. Bodies arrive as raw
// decoded JSON so authorization runs before any field is interpreted.

type UserService interface {
	List(ctx context.Context, actor domain.Identity, filter UserFilter) ([]domain.User, error)
	Get(ctx context.Context, actor domain.Identity, id string) (*domain.User, error)
	Create(ctx context.Context, actor domain.Identity, in sanitize.Fields) (*domain.User, error)
	Update(ctx context.Context, actor domain.Identity, id string, in sanitize.Fields) (*domain.User, error)
	Delete(ctx context.Context, actor domain.Identity, id string) error
}

type ProjectService interface {
	List(ctx context.Context, actor domain.Identity) ([]*domain.Project, error)
	Get(ctx context.Context, actor domain.Identity, id string) (*domain.Project, error)
	Create(ctx context.Context, actor domain.Identity, in sanitize.Fields) (*domain.Project, error)
	Update(ctx context.Context, actor domain.Identity, id string, in sanitize.Fields) (*domain.Project, error)
	Delete(ctx context.Context, actor domain.Identity, id string) error
}

// TaskQuery carries the raw list filters from the query string.
type TaskQuery struct {
	ProjectID string
	Status    string
	Priority  string
}

type TaskService interface {
	List(ctx context.Context, actor domain.Identity, q TaskQuery) ([]*domain.Task, error)
	Get(ctx context.Context, actor domain.Identity, id string) (*domain.Task, error)
	Create(ctx context.Context, actor domain.Identity, in sanitize.Fields) (*domain.Task, error)
	Update(ctx context.Context, actor domain.Identity, id string, in sanitize.Fields) (*domain.Task, error)
	Delete(ctx context.Context, actor domain.Identity, id string) error
}

type ActivityService interface {
	List(ctx context.Context, actor domain.Identity, filter ActivityFilter) ([]*domain.Activity, error)
}

// AuthService issues session tokens.
type AuthService interface {
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
}

// IdentityResolver turns a bearer token into the current caller. It returns
// domain.ErrUnauthenticated for a missing, invalid or orphaned session.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (domain.Identity, error)
}

// ActivityRecorder accepts confirmed mutations for the audit trail. Record
// must not block the write path.
type ActivityRecorder interface {
	Record(a domain.Activity)
}

// MutationObserver is told how writes were confirmed.
type MutationObserver interface {
	// Confirmed reports outcome "acked", "reconciled" or "failed".
	Confirmed(entity domain.EntityKind, action domain.Action, outcome string)
	// Cascaded reports a project delete and how many tasks went with it.
	Cascaded(outcome string, tasks int64)
}

// TokenIssuer signs session tokens for authenticated users.
type TokenIssuer interface {
	Issue(user *domain.User) (string, error)
}
