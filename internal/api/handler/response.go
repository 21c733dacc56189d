package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// envelope is the success body for every API response: {"ok":true,"data":...}.
type envelope struct {
	OK   bool `json:"ok"`
	Data any  `json:"data"`
}

// deletedResponse is the payload of a successful delete.
type deletedResponse struct {
	ID string `json:"id"`
}

func respond(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, envelope{OK: true, Data: data})
}
