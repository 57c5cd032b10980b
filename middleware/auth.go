package middleware

import (
	"net/http"
	"strings"

	"tax_flow_app_go/models"
	"tax_flow_app_go/services"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

const (
	// SessionCookieName is the name of the session cookie
	SessionCookieName = "tax_flow_session"
	// ContextKeyUser is the context key for the authenticated user
	ContextKeyUser = "user"
	// ContextKeyActor is the context key for the resolved AuthContext
	ContextKeyActor = "actor"
	// ContextKeySession is the context key for the session
	ContextKeySession = "session"
)

// RequireAuth validates the session token (cookie or bearer header),
// builds the actor's AuthContext once and stores it in the request
// context. Services never resolve roles themselves.
func RequireAuth(conn *gorm.DB) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractToken(c)
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "no autenticado")
			}

			session, err := services.ValidateSession(conn, token)
			if err != nil {
				ClearSessionCookie(c)
				return echo.NewHTTPError(http.StatusUnauthorized, "sesión inválida o expirada")
			}

			if !session.Usuario.Activo {
				ClearSessionCookie(c)
				return echo.NewHTTPError(http.StatusUnauthorized, "cuenta desactivada")
			}

			actor := services.AuthContextDe(&session.Usuario, c.RealIP())

			c.Set(ContextKeyUser, &session.Usuario)
			c.Set(ContextKeyActor, actor)
			c.Set(ContextKeySession, session)

			return next(c)
		}
	}
}

// RequireRol restricts a route to the given profile roles. Superusers
// always pass.
func RequireRol(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			usuario := GetCurrentUser(c)
			if usuario == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "no autenticado")
			}
			if usuario.EsSuperadmin {
				return next(c)
			}
			for _, rol := range roles {
				if usuario.Rol == rol {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "permisos insuficientes")
		}
	}
}

// RequireSuperadmin restricts a route to global administrators
func RequireSuperadmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			usuario := GetCurrentUser(c)
			if usuario == nil || !usuario.EsSuperadmin {
				return echo.NewHTTPError(http.StatusForbidden, "permisos insuficientes")
			}
			return next(c)
		}
	}
}

// GetCurrentUser retrieves the authenticated user from context
func GetCurrentUser(c echo.Context) *models.Usuario {
	usuario, ok := c.Get(ContextKeyUser).(*models.Usuario)
	if !ok {
		return nil
	}
	return usuario
}

// GetActor retrieves the resolved AuthContext from context
func GetActor(c echo.Context) services.AuthContext {
	actor, _ := c.Get(ContextKeyActor).(services.AuthContext)
	return actor
}

// extractToken reads the session token from the Authorization header or
// the session cookie, in that order
func extractToken(c echo.Context) string {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	cookie, err := c.Cookie(SessionCookieName)
	if err == nil {
		return cookie.Value
	}
	return ""
}

// SetSessionCookie writes the session cookie on login
func SetSessionCookie(c echo.Context, token string, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie clears the session cookie
func ClearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
