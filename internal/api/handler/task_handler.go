package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/taskboard/internal/core/ports"
)

type TaskHandler struct {
	tasks ports.TaskService
}

func NewTaskHandler(tasks ports.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// List returns tasks visible to the caller. Employees only ever see tasks
// assigned to them.
//
// @Summary      List tasks
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        project_id  query     string  false  "Project ID"
// @Param        status      query     string  false  "new, bug, in_progress, fixed or done"
// @Param        priority    query     string  false  "low, medium or high"
// @Success      200         {object}  envelope{data=[]domain.Task}
// @Failure      400         {object}  api.ErrorResponse
// @Failure      401         {object}  api.ErrorResponse
// @Router       /v1/tasks [get]
func (h *TaskHandler) List(c echo.Context) error {
	q := ports.TaskQuery{
		ProjectID: c.QueryParam("project_id"),
		Status:    c.QueryParam("status"),
		Priority:  c.QueryParam("priority"),
	}
	tasks, err := h.tasks.List(c.Request().Context(), actor(c), q)
	if err != nil {
		return err
	}
	return respond(c, tasks)
}

// @Summary      Get task
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  envelope{data=domain.Task}
// @Failure      404  {object}  api.ErrorResponse
// @Router       /v1/tasks/{id} [get]
func (h *TaskHandler) Get(c echo.Context) error {
	t, err := h.tasks.Get(c.Request().Context(), actor(c), c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, t)
}

// Create adds a task. Tasks created by employees are assigned to them.
//
// @Summary      Create task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      object  true  "project_id, title, description, status, priority, assignee_id, due_date, image_urls"
// @Success      200   {object}  envelope{data=domain.Task}
// @Failure      400   {object}  api.ErrorResponse
// @Failure      403   {object}  api.ErrorResponse
// @Router       /v1/tasks [post]
func (h *TaskHandler) Create(c echo.Context) error {
	in, err := bindFields(c)
	if err != nil {
		return err
	}
	t, err := h.tasks.Create(c.Request().Context(), actor(c), in)
	if err != nil {
		return err
	}
	return respond(c, t)
}

// @Summary      Update task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string  true  "Task ID"
// @Param        body  body      object  true  "fields to change"
// @Success      200   {object}  envelope{data=domain.Task}
// @Failure      400   {object}  api.ErrorResponse
// @Failure      403   {object}  api.ErrorResponse
// @Failure      404   {object}  api.ErrorResponse
// @Router       /v1/tasks/{id} [put]
func (h *TaskHandler) Update(c echo.Context) error {
	in, err := bindFields(c)
	if err != nil {
		return err
	}
	t, err := h.tasks.Update(c.Request().Context(), actor(c), c.Param("id"), in)
	if err != nil {
		return err
	}
	return respond(c, t)
}

// @Summary      Delete task
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  envelope{data=deletedResponse}
// @Failure      403  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /v1/tasks/{id} [delete]
func (h *TaskHandler) Delete(c echo.Context) error {
	id := c.Param("id")
	if err := h.tasks.Delete(c.Request().Context(), actor(c), id); err != nil {
		return err
	}
	return respond(c, deletedResponse{ID: id})
}
