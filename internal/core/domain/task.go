package domain

import (
	"slices"
	"time"
)

// TaskStatus is the bounded lifecycle of a task.
type TaskStatus string

const (
	StatusNew        TaskStatus = "new"
	StatusBug        TaskStatus = "bug"
	StatusInProgress TaskStatus = "in_progress"
	StatusFixed      TaskStatus = "fixed"
	StatusDone       TaskStatus = "done"
)

// TaskStatuses lists every valid status in display order.
var TaskStatuses = []TaskStatus{StatusNew, StatusBug, StatusInProgress, StatusFixed, StatusDone}

func ParseTaskStatus(s string) (TaskStatus, bool) {
	st := TaskStatus(s)
	if slices.Contains(TaskStatuses, st) {
		return st, true
	}
	return "", false
}

// TaskPriority ranks tasks within a project.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

var TaskPriorities = []TaskPriority{PriorityLow, PriorityMedium, PriorityHigh}

func ParseTaskPriority(s string) (TaskPriority, bool) {
	p := TaskPriority(s)
	if slices.Contains(TaskPriorities, p) {
		return p, true
	}
	return "", false
}

// Task is a unit of work inside a project. A non-empty AssigneeID is always
// a member of the parent project.
type Task struct {
	ID          string       `json:"id" bson:"_id"`
	ProjectID   string       `json:"project_id" bson:"project_id"`
	Title       string       `json:"title" bson:"title"`
	Description string       `json:"description" bson:"description"`
	Status      TaskStatus   `json:"status" bson:"status"`
	Priority    TaskPriority `json:"priority" bson:"priority"`
	AssigneeID  string       `json:"assignee_id" bson:"assignee_id"`
	DueDate     *time.Time   `json:"due_date,omitempty" bson:"due_date,omitempty"`
	ImageURLs   []string     `json:"image_urls" bson:"image_urls"`
	CreatedBy   string       `json:"created_by" bson:"created_by"`
	CreatedAt   time.Time    `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" bson:"updated_at"`
}

// TaskPatch lists the fields a task update may change.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *TaskStatus
	Priority    *TaskPriority
	AssigneeID  *string
	DueDate     *time.Time
	ImageURLs   *[]string
	UpdatedAt   time.Time
}

func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.Priority == nil &&
		p.AssigneeID == nil && p.DueDate == nil && p.ImageURLs == nil
}

// Applied reports whether t reflects every field of the patch.
func (p TaskPatch) Applied(t *Task) bool {
	if t == nil {
		return false
	}
	switch {
	case p.Title != nil && t.Title != *p.Title:
		return false
	case p.Description != nil && t.Description != *p.Description:
		return false
	case p.Status != nil && t.Status != *p.Status:
		return false
	case p.Priority != nil && t.Priority != *p.Priority:
		return false
	case p.AssigneeID != nil && t.AssigneeID != *p.AssigneeID:
		return false
	case p.DueDate != nil && !sameInstant(t.DueDate, p.DueDate):
		return false
	case p.ImageURLs != nil && !slices.Equal(t.ImageURLs, *p.ImageURLs):
		return false
	}
	return true
}
