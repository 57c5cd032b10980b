package handlers

import (
	"net/http"

	"tax_flow_app_go/middleware"
	"tax_flow_app_go/services"

	"github.com/labstack/echo/v4"
)

// CrearRegistro creates a base tax record
func (h *Handler) CrearRegistro(c echo.Context) error {
	var input services.CrearRegistroInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, DetailResponse{Detail: "payload inválido"})
	}

	registro, err := services.CrearRegistro(h.DB, middleware.GetActor(c), input)
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(http.StatusCreated, registro)
}

// ListarRegistros lists the registros visible to the actor
func (h *Handler) ListarRegistros(c echo.Context) error {
	registros, err := services.ListarRegistros(h.DB, middleware.GetActor(c), c.QueryParam("usuario_id"))
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(http.StatusOK, registros)
}

// ObtenerRegistro fetches one registro
func (h *Handler) ObtenerRegistro(c echo.Context) error {
	registro, err := services.ObtenerRegistro(h.DB, middleware.GetActor(c), c.Param("id"))
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(http.StatusOK, registro)
}

// ActualizarRegistroRequest is the registro patch payload
type ActualizarRegistroRequest struct {
	Titulo      *string `json:"titulo"`
	Descripcion *string `json:"descripcion"`
}

// ActualizarRegistro edits a registro (privileged roles only)
func (h *Handler) ActualizarRegistro(c echo.Context) error {
	var req ActualizarRegistroRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, DetailResponse{Detail: "payload inválido"})
	}

	registro, err := services.ActualizarRegistro(h.DB, middleware.GetActor(c), c.Param("id"), req.Titulo, req.Descripcion)
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(http.StatusOK, registro)
}
