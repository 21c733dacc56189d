package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/taskboard/internal/core/ports"
)

type ProjectHandler struct {
	projects ports.ProjectService
}

func NewProjectHandler(projects ports.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// List returns the projects visible to the caller.
//
// @Summary      List projects
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  envelope{data=[]domain.Project}
// @Failure      401  {object}  api.ErrorResponse
// @Router       /v1/projects [get]
func (h *ProjectHandler) List(c echo.Context) error {
	projects, err := h.projects.List(c.Request().Context(), actor(c))
	if err != nil {
		return err
	}
	return respond(c, projects)
}

// @Summary      Get project
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Project ID"
// @Success      200  {object}  envelope{data=domain.Project}
// @Failure      404  {object}  api.ErrorResponse
// @Router       /v1/projects/{id} [get]
func (h *ProjectHandler) Get(c echo.Context) error {
	p, err := h.projects.Get(c.Request().Context(), actor(c), c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, p)
}

// @Summary      Create project
// @Tags         projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      object  true  "name, description, manager_id, member_ids, image_urls, start_date, deadline"
// @Success      200   {object}  envelope{data=domain.Project}
// @Failure      400   {object}  api.ErrorResponse
// @Failure      403   {object}  api.ErrorResponse
// @Router       /v1/projects [post]
func (h *ProjectHandler) Create(c echo.Context) error {
	in, err := bindFields(c)
	if err != nil {
		return err
	}
	p, err := h.projects.Create(c.Request().Context(), actor(c), in)
	if err != nil {
		return err
	}
	return respond(c, p)
}

// @Summary      Update project
// @Tags         projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string  true  "Project ID"
// @Param        body  body      object  true  "fields to change"
// @Success      200   {object}  envelope{data=domain.Project}
// @Failure      400   {object}  api.ErrorResponse
// @Failure      403   {object}  api.ErrorResponse
// @Failure      404   {object}  api.ErrorResponse
// @Router       /v1/projects/{id} [put]
func (h *ProjectHandler) Update(c echo.Context) error {
	in, err := bindFields(c)
	if err != nil {
		return err
	}
	p, err := h.projects.Update(c.Request().Context(), actor(c), c.Param("id"), in)
	if err != nil {
		return err
	}
	return respond(c, p)
}

// Delete removes a project together with its tasks.
//
// @Summary      Delete project
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Project ID"
// @Success      200  {object}  envelope{data=deletedResponse}
// @Failure      403  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /v1/projects/{id} [delete]
func (h *ProjectHandler) Delete(c echo.Context) error {
	id := c.Param("id")
	if err := h.projects.Delete(c.Request().Context(), actor(c), id); err != nil {
		return err
	}
	return respond(c, deletedResponse{ID: id})
}
