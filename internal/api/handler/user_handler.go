package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/taskboard/internal/core/domain"
	"github.com/99minutos/taskboard/internal/core/ports"
)

type UserHandler struct {
	users ports.UserService
}

func NewUserHandler(users ports.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// List returns users, optionally filtered by role.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        role   query     string  false  "admin, manager or employee"
// @Param        limit  query     int     false  "at most 100"
// @Success      200    {object}  envelope{data=[]domain.User}
// @Failure      400    {object}  api.ErrorResponse
// @Failure      401    {object}  api.ErrorResponse
// @Router       /v1/users [get]
func (h *UserHandler) List(c echo.Context) error {
	limit, err := queryLimit(c)
	if err != nil {
		return err
	}
	filter := ports.UserFilter{Limit: limit}
	if raw := c.QueryParam("role"); raw != "" {
		role, ok := domain.ParseRole(raw)
		if !ok {
			return domain.Invalid("role", "must be one of: admin, manager, employee")
		}
		filter.Role = role
	}

	users, err := h.users.List(c.Request().Context(), actor(c), filter)
	if err != nil {
		return err
	}
	return respond(c, users)
}

// Get returns one user.
//
// @Summary      Get user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  envelope{data=domain.User}
// @Failure      401  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /v1/users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	user, err := h.users.Get(c.Request().Context(), actor(c), c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, user)
}

// Create adds a user account. Managers cannot create admins.
//
// @Summary      Create user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      object  true  "name, email, password, role"
// @Success      200   {object}  envelope{data=domain.User}
// @Failure      400   {object}  api.ErrorResponse
// @Failure      403   {object}  api.ErrorResponse
// @Failure      409   {object}  api.ErrorResponse
// @Router       /v1/users [post]
func (h *UserHandler) Create(c echo.Context) error {
	in, err := bindFields(c)
	if err != nil {
		return err
	}
	user, err := h.users.Create(c.Request().Context(), actor(c), in)
	if err != nil {
		return err
	}
	return respond(c, user)
}

// Update changes name, email, password or role.
//
// @Summary      Update user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string  true  "User ID"
// @Param        body  body      object  true  "fields to change"
// @Success      200   {object}  envelope{data=domain.User}
// @Failure      400   {object}  api.ErrorResponse
// @Failure      403   {object}  api.ErrorResponse
// @Failure      404   {object}  api.ErrorResponse
// @Router       /v1/users/{id} [put]
func (h *UserHandler) Update(c echo.Context) error {
	in, err := bindFields(c)
	if err != nil {
		return err
	}
	user, err := h.users.Update(c.Request().Context(), actor(c), c.Param("id"), in)
	if err != nil {
		return err
	}
	return respond(c, user)
}

// Delete removes a user, unassigning their tasks and project memberships.
//
// @Summary      Delete user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  envelope{data=deletedResponse}
// @Failure      403  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /v1/users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	id := c.Param("id")
	if err := h.users.Delete(c.Request().Context(), actor(c), id); err != nil {
		return err
	}
	return respond(c, deletedResponse{ID: id})
}
