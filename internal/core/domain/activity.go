package domain

import "time"

// EntityKind names the collections a mutation can touch.
type EntityKind string

const (
	EntityUser    EntityKind = "user"
	EntityProject EntityKind = "project"
	EntityTask    EntityKind = "task"
)

// Action is a mutation verb used by authorization and the activity trail.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Activity records one confirmed mutation.
type Activity struct {
	ID       string     `json:"id" bson:"_id"`
	Entity   EntityKind `json:"entity" bson:"entity"`
	EntityID string     `json:"entity_id" bson:"entity_id"`
	Action   Action     `json:"action" bson:"action"`
	ActorID  string     `json:"actor_id" bson:"actor_id"`
	Detail   string     `json:"detail,omitempty" bson:"detail,omitempty"`
	At       time.Time  `json:"at" bson:"at"`
}
