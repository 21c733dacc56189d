package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/taskboard/internal/core/domain"
	"github.com/99minutos/taskboard/internal/core/ports"
)

type ActivityHandler struct {
	activity ports.ActivityService
}

func NewActivityHandler(activity ports.ActivityService) *ActivityHandler {
	return &ActivityHandler{activity: activity}
}

// List returns the audit trail, newest first.
//
// @Summary      Activity feed
// @Tags         activity
// @Produce      json
// @Security     BearerAuth
// @Param        entity     query     string  false  "user, project or task"
// @Param        entity_id  query     string  false  "Entity ID"
// @Param        limit      query     int     false  "at most 100"
// @Success      200        {object}  envelope{data=[]domain.Activity}
// @Failure      400        {object}  api.ErrorResponse
// @Failure      403        {object}  api.ErrorResponse
// @Router       /v1/activity [get]
func (h *ActivityHandler) List(c echo.Context) error {
	limit, err := queryLimit(c)
	if err != nil {
		return err
	}
	filter := ports.ActivityFilter{
		Entity:   domain.EntityKind(c.QueryParam("entity")),
		EntityID: c.QueryParam("entity_id"),
		Limit:    limit,
	}
	items, err := h.activity.List(c.Request().Context(), actor(c), filter)
	if err != nil {
		return err
	}
	return respond(c, items)
}
