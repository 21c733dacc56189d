package domain

import (
	"slices"
	"time"
)

// Project groups tasks and the users allowed to work on them.
type Project struct {
	ID          string     `json:"id" bson:"_id"`
	Name        string     `json:"name" bson:"name"`
	Description string     `json:"description" bson:"description"`
	ManagerID   string     `json:"manager_id" bson:"manager_id"`
	MemberIDs   []string   `json:"member_ids" bson:"member_ids"`
	ImageURLs   []string   `json:"image_urls" bson:"image_urls"`
	StartDate   *time.Time `json:"start_date,omitempty" bson:"start_date,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty" bson:"deadline,omitempty"`
	CreatedBy   string     `json:"created_by" bson:"created_by"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updated_at"`
}

// HasMember reports whether userID belongs to the project.
func (p *Project) HasMember(userID string) bool {
	return userID != "" && slices.Contains(p.MemberIDs, userID)
}

// ProjectPatch lists the fields a project update may change.
type ProjectPatch struct {
	Name        *string
	Description *string
	ManagerID   *string
	MemberIDs   *[]string
	ImageURLs   *[]string
	StartDate   *time.Time
	Deadline    *time.Time
	UpdatedAt   time.Time
}

func (p ProjectPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.ManagerID == nil &&
		p.MemberIDs == nil && p.ImageURLs == nil && p.StartDate == nil && p.Deadline == nil
}

// Applied reports whether pr reflects every field of the patch.
func (p ProjectPatch) Applied(pr *Project) bool {
	if pr == nil {
		return false
	}
	switch {
	case p.Name != nil && pr.Name != *p.Name:
		return false
	case p.Description != nil && pr.Description != *p.Description:
		return false
	case p.ManagerID != nil && pr.ManagerID != *p.ManagerID:
		return false
	case p.MemberIDs != nil && !slices.Equal(pr.MemberIDs, *p.MemberIDs):
		return false
	case p.ImageURLs != nil && !slices.Equal(pr.ImageURLs, *p.ImageURLs):
		return false
	case p.StartDate != nil && !sameInstant(pr.StartDate, p.StartDate):
		return false
	case p.Deadline != nil && !sameInstant(pr.Deadline, p.Deadline):
		return false
	}
	return true
}

// sameInstant compares at millisecond precision, the resolution BSON dates keep.
func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.UnixMilli() == b.UnixMilli()
}
