package handlers

import (
	"net/http"
	"path/filepath"
	"strings"

	"tax_flow_app_go/middleware"
	"tax_flow_app_go/models"
	"tax_flow_app_go/services"

	"github.com/labstack/echo/v4"
)

// CrearCalificacion creates a calificación in BORRADOR, or directly in
// PENDIENTE when enviar_validacion is set
func (h *Handler) CrearCalificacion(c echo.Context) error {
	var input services.CrearCalificacionInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, DetailResponse{Detail: "payload inválido"})
	}

	calificacion, err := h.Calificaciones.Crear(h.DB, middleware.GetActor(c), input)
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(http.StatusCreated, calificacion)
}

// ListarCalificaciones lists calificaciones; corredores only see their own
func (h *Handler) ListarCalificaciones(c echo.Context) error {
	filtros := services.FiltrosCalificacion{
		UsuarioID:  c.QueryParam("usuario_id"),
		RegistroID: c.QueryParam("registro_id"),
		Rut:        c.QueryParam("rut"),
		Estado:     models.EstadoCalificacion(c.QueryParam("estado")),
	}

	calificaciones, err := h.Calificaciones.Listar(h.DB, middleware.GetActor(c), filtros)
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(http.StatusOK, calificaciones)
}

// ObtenerCalificacion fetches one calificación with its embedded history
func (h *Handler) ObtenerCalificacion(c echo.Context) error {
	calificacion, err := h.Calificaciones.Obtener(h.DB, middleware.GetActor(c), c.Param("id"))
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(http.StatusOK, calificacion)
}

// ActualizarCalificacion applies a partial update to an editable calificación
func (h *Handler) ActualizarCalificacion(c echo.Context) error {
	patch := map[string]interface{}{}
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, DetailResponse{Detail: "payload inválido"})
	}

	calificacion, err := h.Calificaciones.Actualizar(h.DB, middleware.GetActor(c), c.Param("id"), patch)
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(http.StatusOK, calificacion)
}

// TransicionRequest is the payload of explicit state transitions
type TransicionRequest struct {
	Estado     models.EstadoCalificacion `json:"estado"`
	Comentario string                    `json:"comentario"`
}

// TransicionarCalificacion moves a calificación along any permitted edge
func (h *Handler) TransicionarCalificacion(c echo.Context) error {
	var req TransicionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, DetailResponse{Detail: "payload inválido"})
	}

	calificacion, err := h.Calificaciones.Transicionar(h.DB, middleware.GetActor(c), c.Param("id"), req.Estado, req.Comentario)
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(http.StatusOK, calificacion)
}

// EnviarValidacion submits a calificación for review (→ PENDIENTE).
// The body is optional; when present it may carry a comentario.
func (h *Handler) EnviarValidacion(c echo.Context) error {
	var req TransicionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, DetailResponse{Detail: "payload inválido"})
	}

	calificacion, err := h.Calificaciones.Transicionar(h.DB, middleware.GetActor(c), c.Param("id"), models.EstadoPendiente, req.Comentario)
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(http.StatusOK, calificacion)
}

// ResolverRequest is the resolution payload
type ResolverRequest struct {
	Estado     models.EstadoCalificacion `json:"estado"`
	Comentario string                    `json:"comentario"`
}

// ResolverCalificacion resolves a PENDIENTE calificación as APROBADA,
// OBSERVADA or RECHAZADA
func (h *Handler) ResolverCalificacion(c echo.Context) error {
	var req ResolverRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, DetailResponse{Detail: "payload inválido"})
	}
	switch req.Estado {
	case models.EstadoAprobada, models.EstadoObservada, models.EstadoRechazada:
	default:
		return c.JSON(http.StatusBadRequest, DetailResponse{Detail: "estado de resolución inválido"})
	}

	calificacion, err := h.Calificaciones.Transicionar(h.DB, middleware.GetActor(c), c.Param("id"), req.Estado, req.Comentario)
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(http.StatusOK, calificacion)
}

// CalificacionesPendientes returns the review queue
func (h *Handler) CalificacionesPendientes(c echo.Context) error {
	pendientes, err := h.Calificaciones.Pendientes(h.DB, middleware.GetActor(c))
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(http.StatusOK, pendientes)
}

// EstadisticasCalificaciones aggregates count and monto per estado
func (h *Handler) EstadisticasCalificaciones(c echo.Context) error {
	stats, err := h.Calificaciones.Estadisticas(h.DB, middleware.GetActor(c))
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// PlantillaCargaMasiva downloads the XLSX bulk import template
func (h *Handler) PlantillaCargaMasiva(c echo.Context) error {
	buf, err := services.GenerarPlantillaCarga()
	if err != nil {
		return renderError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="plantilla_calificaciones.xlsx"`)
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// CargaMasiva imports calificaciones from an uploaded CSV or XLSX file
func (h *Handler) CargaMasiva(c echo.Context) error {
	fileHeader, err := c.FormFile("archivo")
	if err != nil {
		return c.JSON(http.StatusBadRequest, DetailResponse{Detail: "archivo es obligatorio"})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, DetailResponse{Detail: "no se pudo leer el archivo"})
	}
	defer src.Close()

	actor := middleware.GetActor(c)

	var resultado *services.ResultadoCarga
	switch strings.ToLower(filepath.Ext(fileHeader.Filename)) {
	case ".csv":
		resultado, err = h.Calificaciones.CargaMasivaCSV(h.DB, actor, src)
	case ".xlsx":
		resultado, err = h.Calificaciones.CargaMasivaXLSX(h.DB, actor, src)
	default:
		return c.JSON(http.StatusBadRequest, DetailResponse{Detail: "formato no soportado, use CSV o XLSX"})
	}
	if err != nil {
		return renderError(c, err)
	}

	services.ArchivarCargaMasiva(c.Request().Context(), h.DB, h.Storage, actor, fileHeader, resultado)
	return c.JSON(http.StatusOK, resultado)
}
