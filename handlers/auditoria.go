package handlers

import (
	"net/http"
	"strconv"
	"time"

	"tax_flow_app_go/middleware"
	"tax_flow_app_go/services"

	"github.com/labstack/echo/v4"
)

// ListarAuditoria returns filtered, paginated audit entries
func (h *Handler) ListarAuditoria(c echo.Context) error {
	filtros := services.FiltrosAuditoria{
		UsuarioID: c.QueryParam("usuario_id"),
		Accion:    c.QueryParam("accion"),
		Modelo:    c.QueryParam("modelo"),
	}
	if desde := c.QueryParam("desde"); desde != "" {
		if t, err := time.Parse("2006-01-02", desde); err == nil {
			filtros.Desde = t
		}
	}
	if hasta := c.QueryParam("hasta"); hasta != "" {
		if t, err := time.Parse("2006-01-02", hasta); err == nil {
			filtros.Hasta = t.Add(24*time.Hour - time.Second) // End of day
		}
	}

	pagina, _ := strconv.Atoi(c.QueryParam("pagina"))
	tamano, _ := strconv.Atoi(c.QueryParam("tamano"))

	entradas, total, err := services.ListarAuditoria(h.DB, middleware.GetActor(c), filtros, pagina, tamano)
	if err != nil {
		return renderError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"total":      total,
		"resultados": entradas,
	})
}

// HistorialObjeto returns the audit trail of one entity
func (h *Handler) HistorialObjeto(c echo.Context) error {
	entradas, err := services.HistorialObjeto(h.DB, middleware.GetActor(c), c.Param("modelo"), c.Param("id"))
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(http.StatusOK, entradas)
}

// PurgarAuditoriaRequest is the purge payload
type PurgarAuditoriaRequest struct {
	Dias         int    `json:"dias"`
	Confirmacion string `json:"confirmacion"`
}

// PurgarAuditoria deletes audit entries older than the retention window.
// Requires the exact confirmation literal.
func (h *Handler) PurgarAuditoria(c echo.Context) error {
	var req PurgarAuditoriaRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, DetailResponse{Detail: "payload inválido"})
	}

	resultado, err := services.PurgarAuditoria(h.DB, middleware.GetActor(c), req.Dias, req.Confirmacion)
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(http.StatusOK, resultado)
}
