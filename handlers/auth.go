package handlers

import (
	"net/http"

	"tax_flow_app_go/middleware"
	"tax_flow_app_go/models"
	"tax_flow_app_go/services"

	"github.com/labstack/echo/v4"
)

// LoginRequest is the login payload
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the session token and the user's profile
type LoginResponse struct {
	Token   string          `json:"token"`
	Usuario *models.Usuario `json:"usuario"`
}

// Login authenticates and opens a session. The token comes back both in
// the body (for API clients) and as an HttpOnly cookie.
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, DetailResponse{Detail: "payload inválido"})
	}
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, DetailResponse{Detail: "username y password son obligatorios"})
	}

	sesion, usuario, err := services.Login(h.DB, req.Username, req.Password, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return renderError(c, err)
	}

	middleware.SetSessionCookie(c, sesion.Token, h.Cfg.Environment == "production")
	return c.JSON(http.StatusOK, LoginResponse{Token: sesion.Token, Usuario: usuario})
}

// Logout closes the current session and clears the cookie
func (h *Handler) Logout(c echo.Context) error {
	sesion, ok := c.Get(middleware.ContextKeySession).(*models.Sesion)
	if !ok {
		return c.JSON(http.StatusUnauthorized, DetailResponse{Detail: "no autenticado"})
	}

	if err := services.Logout(h.DB, middleware.GetActor(c), sesion.Token); err != nil {
		return renderError(c, err)
	}

	middleware.ClearSessionCookie(c)
	return c.JSON(http.StatusOK, map[string]string{"detail": "sesión cerrada"})
}

// Me returns the authenticated user's profile
func (h *Handler) Me(c echo.Context) error {
	usuario := middleware.GetCurrentUser(c)
	if usuario == nil {
		return c.JSON(http.StatusUnauthorized, DetailResponse{Detail: "no autenticado"})
	}
	return c.JSON(http.StatusOK, usuario)
}
