package handlers

import (
	"net/http"
	"strconv"

	"tax_flow_app_go/middleware"
	"tax_flow_app_go/services"

	"github.com/labstack/echo/v4"
)

// CrearRegla creates a business rule at version 1
func (h *Handler) CrearRegla(c echo.Context) error {
	var input services.CrearReglaInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, DetailResponse{Detail: "payload inválido"})
	}

	regla, err := services.CrearRegla(h.DB, middleware.GetActor(c), input)
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(http.StatusCreated, regla)
}

// ListarReglas lists business rules, optionally filtered by estado
func (h *Handler) ListarReglas(c echo.Context) error {
	reglas, err := services.ListarReglas(h.DB, middleware.GetActor(c), c.QueryParam("estado"))
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(http.StatusOK, reglas)
}

// ObtenerRegla fetches one rule
func (h *Handler) ObtenerRegla(c echo.Context) error {
	regla, err := services.ObtenerRegla(h.DB, middleware.GetActor(c), c.Param("id"))
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(http.StatusOK, regla)
}

// ActualizarReglaRequest is the rule patch payload
type ActualizarReglaRequest struct {
	services.ActualizarReglaInput
	Comentario string `json:"comentario"`
}

// ActualizarRegla mutates a rule under snapshot-before-mutate semantics
func (h *Handler) ActualizarRegla(c echo.Context) error {
	var req ActualizarReglaRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, DetailResponse{Detail: "payload inválido"})
	}

	regla, err := services.ActualizarRegla(h.DB, middleware.GetActor(c), c.Param("id"), req.ActualizarReglaInput, req.Comentario)
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(http.StatusOK, regla)
}

// EliminarRegla removes a rule and its snapshots
func (h *Handler) EliminarRegla(c echo.Context) error {
	if err := services.EliminarRegla(h.DB, middleware.GetActor(c), c.Param("id")); err != nil {
		return renderError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"detail": "regla eliminada"})
}

// HistorialRegla returns the snapshots of a rule, newest first
func (h *Handler) HistorialRegla(c echo.Context) error {
	snapshots, err := services.HistorialRegla(h.DB, middleware.GetActor(c), c.Param("id"))
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(http.StatusOK, snapshots)
}

// RollbackRequest is the rollback payload
type RollbackRequest struct {
	Version    int    `json:"version"`
	Comentario string `json:"comentario"`
}

// RollbackRegla restores the content of an earlier version
func (h *Handler) RollbackRegla(c echo.Context) error {
	var req RollbackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, DetailResponse{Detail: "payload inválido"})
	}
	if req.Version < 1 {
		return c.JSON(http.StatusBadRequest, DetailResponse{Detail: "version debe ser un entero positivo"})
	}

	regla, err := services.RollbackRegla(h.DB, middleware.GetActor(c), c.Param("id"), req.Version, req.Comentario)
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(http.StatusOK, regla)
}

// CompararVersiones compares two snapshots field by field
func (h *Handler) CompararVersiones(c echo.Context) error {
	versionA, errA := strconv.Atoi(c.QueryParam("version_a"))
	versionB, errB := strconv.Atoi(c.QueryParam("version_b"))
	if errA != nil || errB != nil {
		return c.JSON(http.StatusBadRequest, DetailResponse{Detail: "version_a y version_b deben ser enteros"})
	}

	comparacion, err := services.CompararVersiones(h.DB, middleware.GetActor(c), c.Param("id"), versionA, versionB)
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(http.StatusOK, comparacion)
}
