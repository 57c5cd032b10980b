package handlers

import (
	"errors"
	"log"
	"net/http"

	"tax_flow_app_go/services"

	"github.com/labstack/echo/v4"
)

// DetailResponse is the JSON error envelope every endpoint uses
type DetailResponse struct {
	Detail string `json:"detail"`
}

// renderError maps a service error onto its HTTP status and the {detail}
// envelope. Unclassified errors are logged and come back as a generic 500
// so internals never leak to clients.
func renderError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, services.ErrNoEncontrado):
		return c.JSON(http.StatusNotFound, DetailResponse{Detail: err.Error()})
	case errors.Is(err, services.ErrTransicionInvalida):
		return c.JSON(http.StatusBadRequest, DetailResponse{Detail: err.Error()})
	case errors.Is(err, services.ErrValidacion):
		return c.JSON(http.StatusBadRequest, DetailResponse{Detail: err.Error()})
	case errors.Is(err, services.ErrPermisoDenegado):
		return c.JSON(http.StatusForbidden, DetailResponse{Detail: err.Error()})
	case errors.Is(err, services.ErrConflicto):
		return c.JSON(http.StatusConflict, DetailResponse{Detail: err.Error()})
	}

	log.Printf("[ERROR] %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	return c.JSON(http.StatusInternalServerError, DetailResponse{Detail: "error interno del servidor"})
}
