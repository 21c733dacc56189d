package service

import (
	"context"
	"fmt"

	"github.com/99minutos/taskboard/internal/core/domain"
	"github.com/99minutos/taskboard/internal/core/permission"
	"github.com/99minutos/taskboard/internal/core/ports"
	"github.com/99minutos/taskboard/internal/core/sanitize"
)

type activityService struct {
	repo ports.ActivityRepository
}

// NewActivityService returns an ActivityService implementation.
func NewActivityService(repo ports.ActivityRepository) ports.ActivityService {
	return &activityService{repo: repo}
}

// List returns the newest entries of the audit trail for privileged callers.
func (s *activityService) List(ctx context.Context, actor domain.Identity, filter ports.ActivityFilter) ([]*domain.Activity, error) {
	if err := permission.CanViewActivity(actor).Err(); err != nil {
		return nil, err
	}
	switch filter.Entity {
	case "", domain.EntityUser, domain.EntityProject, domain.EntityTask:
	default:
		return nil, domain.Invalid("entity", "must be one of: user, project, task")
	}
	filter.EntityID = sanitize.String(filter.EntityID, sanitize.MaxIDLength)
	filter.Limit = listLimit(filter.Limit)

	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return items, nil
}
