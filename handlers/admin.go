package handlers

import (
	"net/http"
	"time"

	"tax_flow_app_go/middleware"
	"tax_flow_app_go/models"
	"tax_flow_app_go/services"

	"github.com/labstack/echo/v4"
)

// EstadoSistema reports operational counters for the admin dashboard.
// Each access leaves an audit entry.
func (h *Handler) EstadoSistema(c echo.Context) error {
	usuario := middleware.GetCurrentUser(c)
	if usuario == nil || (!usuario.EsSuperadmin && usuario.Rol != models.RolTI) {
		return c.JSON(http.StatusForbidden, DetailResponse{Detail: "permisos insuficientes"})
	}
	actor := middleware.GetActor(c)

	contar := func(modelo interface{}) int64 {
		var n int64
		h.DB.Model(modelo).Count(&n)
		return n
	}

	var pendientes int64
	if stats, err := h.Calificaciones.Estadisticas(h.DB, actor); err == nil {
		for _, s := range stats {
			if s.Estado == models.EstadoPendiente {
				pendientes = s.Total
			}
		}
	}

	var reglasActivas int64
	h.DB.Model(&models.ReglaNegocio{}).Where("estado = ?", models.ReglaActiva).Count(&reglasActivas)

	var actividad24h int64
	h.DB.Model(&models.Auditoria{}).Where("fecha > ?", time.Now().Add(-24*time.Hour)).Count(&actividad24h)

	if err := services.RegistrarAuditoria(h.DB, actor, models.AccionAcceso, "Sistema", "estado-sistema",
		"Consulta del estado del sistema", nil); err != nil {
		return renderError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"timestamp":                 time.Now().Format(time.RFC3339),
		"entorno":                   h.Cfg.Environment,
		"store":                     h.Cfg.CalificacionStore,
		"storage_disponible":        h.Storage.IsConfigured(),
		"calificaciones_pendientes": pendientes,
		"reglas_activas":            reglasActivas,
		"actividad_24h":             actividad24h,
		"totales": map[string]int64{
			"usuarios":       contar(&models.Usuario{}),
			"registros":      contar(&models.Registro{}),
			"reglas_negocio": contar(&models.ReglaNegocio{}),
			"auditorias":     contar(&models.Auditoria{}),
			"documentos":     contar(&models.Documento{}),
		},
	})
}

// CrearUsuarioRequest is the admin user-creation payload
type CrearUsuarioRequest struct {
	Nombre       string `json:"nombre"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Rol          string `json:"rol"`
	EsSuperadmin bool   `json:"es_superadmin"`
}

// CrearUsuario registers a user (superadmin only)
func (h *Handler) CrearUsuario(c echo.Context) error {
	var req CrearUsuarioRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, DetailResponse{Detail: "payload inválido"})
	}

	usuario := &models.Usuario{
		Nombre:       req.Nombre,
		Username:     req.Username,
		Email:        req.Email,
		Rol:          req.Rol,
		EsSuperadmin: req.EsSuperadmin,
	}
	if err := services.CrearUsuario(h.DB, usuario, req.Password); err != nil {
		return renderError(c, err)
	}

	if err := services.RegistrarAuditoria(h.DB, middleware.GetActor(c), models.AccionCreate, "Usuario", usuario.ID,
		"Usuario "+usuario.Username+" creado con rol "+usuario.Rol, nil); err != nil {
		return renderError(c, err)
	}
	return c.JSON(http.StatusCreated, usuario)
}
