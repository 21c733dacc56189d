package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/taskboard/internal/core/domain"
	"github.com/99minutos/taskboard/internal/core/ports"
)

// Field limits for stored text and collections.
const (
	maxNameLength        = 120
	maxDescriptionLength = 2000
	maxMembers           = 50
	maxImages            = 10
	maxImageURLLength    = 2048
	maxListLimit         = 100
)

// Deps wires the collaborators shared by the mutation services. Zero-valued
// optional fields fall back to no-op or wall-clock defaults.
type Deps struct {
	Users    ports.UserRepository
	Projects ports.ProjectRepository
	Tasks    ports.TaskRepository
	Activity ports.ActivityRecorder
	Observer ports.MutationObserver
	Log      zerolog.Logger
	Now      func() time.Time
	NewID    func() string
}

func (d Deps) withDefaults() Deps {
	if d.Activity == nil {
		d.Activity = nopRecorder{}
	}
	if d.Observer == nil {
		d.Observer = nopObserver{}
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.NewID == nil {
		d.NewID = newID
	}
	return d
}

func (d Deps) record(kind domain.EntityKind, id string, action domain.Action, actor domain.Identity, detail string) {
	d.Activity.Record(domain.Activity{
		ID:       d.NewID(),
		Entity:   kind,
		EntityID: id,
		Action:   action,
		ActorID:  actor.ID,
		Detail:   detail,
		At:       d.Now(),
	})
}

type nopRecorder struct{}

func (nopRecorder) Record(domain.Activity) {}

type nopObserver struct{}

func (nopObserver) Confirmed(domain.EntityKind, domain.Action, string) {}
func (nopObserver) Cascaded(string, int64)                             {}

func listLimit(n int64) int64 {
	if n <= 0 || n > maxListLimit {
		return maxListLimit
	}
	return n
}

func logDenied(log zerolog.Logger, actor domain.Identity, op string, err error) {
	log.Info().Err(err).Str("actor_id", actor.ID).Str("role", string(actor.Role)).Str("op", op).Msg("authorization denied")
}

func newID() string { return uuid.NewString() }
