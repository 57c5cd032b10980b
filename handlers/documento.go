package handlers

import (
	"net/http"

	"tax_flow_app_go/middleware"
	"tax_flow_app_go/services"

	"github.com/labstack/echo/v4"
)

// SubirDocumento uploads a certificate file for a registro
func (h *Handler) SubirDocumento(c echo.Context) error {
	fileHeader, err := c.FormFile("archivo")
	if err != nil {
		return c.JSON(http.StatusBadRequest, DetailResponse{Detail: "archivo es obligatorio"})
	}

	tipoDocumento := c.FormValue("tipo_documento")
	if tipoDocumento == "" {
		tipoDocumento = "CERTIFICADO"
	}

	documento, err := services.SubirDocumento(
		c.Request().Context(),
		h.DB,
		h.Storage,
		middleware.GetActor(c),
		c.Param("id"),
		c.FormValue("calificacion_id"),
		tipoDocumento,
		fileHeader,
	)
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(http.StatusCreated, documento)
}

// ListarDocumentos lists the documents attached to a registro
func (h *Handler) ListarDocumentos(c echo.Context) error {
	documentos, err := services.ListarDocumentos(h.DB, middleware.GetActor(c), c.Param("id"))
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(http.StatusOK, documentos)
}

// DescargarDocumento streams a stored document back to the client
func (h *Handler) DescargarDocumento(c echo.Context) error {
	reader, contentType, documento, err := services.DescargarDocumento(
		c.Request().Context(), h.DB, h.Storage, middleware.GetActor(c), c.Param("id"))
	if err != nil {
		return renderError(c, err)
	}
	defer reader.Close()

	c.Response().Header().Set("X-Hash-Integridad", documento.HashIntegridad)
	return c.Stream(http.StatusOK, contentType, reader)
}
