package services

import (
	"testing"
	"time"

	"tax_flow_app_go/models"

	"github.com/stretchr/testify/assert"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("secreto123")
	assert.NoError(t, err)
	assert.NotEqual(t, "secreto123", hash)
	assert.True(t, CheckPassword("secreto123", hash))
	assert.False(t, CheckPassword("otroPassword", hash))
}

func TestCrearUsuarioYLogin(t *testing.T) {
	conn := setupTestDB(t)

	usuario := &models.Usuario{
		Nombre:   "Carla Rojas",
		Username: "crojas",
		Email:    "crojas@nuamtributario.org",
		Rol:      models.RolAnalista,
	}
	assert.NoError(t, CrearUsuario(conn, usuario, "secreto123"))

	sesion, logueado, err := Login(conn, "crojas", "secreto123", "127.0.0.1", "test-agent")
	assert.NoError(t, err)
	assert.NotEmpty(t, sesion.Token)
	assert.Equal(t, usuario.ID, logueado.ID)

	// Login stamps ultimo_acceso and writes a LOGIN audit entry
	var refrescado models.Usuario
	conn.First(&refrescado, "id = ?", usuario.ID)
	assert.NotNil(t, refrescado.UltimoAcceso)

	var entrada models.Auditoria
	err = conn.Where("accion = ? AND objeto_id = ?", models.AccionLogin, usuario.ID).First(&entrada).Error
	assert.NoError(t, err)
	assert.Equal(t, "crojas", entrada.Usuario)
	assert.Equal(t, models.RolAnalista, entrada.Rol)
}

func TestLoginCredencialesInvalidas(t *testing.T) {
	conn := setupTestDB(t)

	usuario := &models.Usuario{
		Nombre:   "Carla Rojas",
		Username: "crojas",
		Email:    "crojas@nuamtributario.org",
		Rol:      models.RolAnalista,
	}
	assert.NoError(t, CrearUsuario(conn, usuario, "secreto123"))

	_, _, err := Login(conn, "crojas", "passwordIncorrecto", "127.0.0.1", "")
	assert.ErrorIs(t, err, ErrPermisoDenegado)

	_, _, err = Login(conn, "noexiste", "secreto123", "127.0.0.1", "")
	assert.ErrorIs(t, err, ErrPermisoDenegado)
}

func TestLoginCuentaInactiva(t *testing.T) {
	conn := setupTestDB(t)

	usuario := &models.Usuario{
		Nombre:   "Inactivo",
		Username: "inactivo",
		Email:    "inactivo@nuamtributario.org",
		Rol:      models.RolCorredor,
	}
	assert.NoError(t, CrearUsuario(conn, usuario, "secreto123"))
	conn.Model(usuario).Update("activo", false)

	_, _, err := Login(conn, "inactivo", "secreto123", "127.0.0.1", "")
	assert.ErrorIs(t, err, ErrPermisoDenegado)
}

func TestCrearUsuarioDuplicado(t *testing.T) {
	conn := setupTestDB(t)

	primero := &models.Usuario{
		Nombre:   "Uno",
		Username: "repetido",
		Email:    "repetido@nuamtributario.org",
		Rol:      models.RolCorredor,
	}
	assert.NoError(t, CrearUsuario(conn, primero, "secreto123"))

	segundo := &models.Usuario{
		Nombre:   "Dos",
		Username: "repetido",
		Email:    "otro@nuamtributario.org",
		Rol:      models.RolCorredor,
	}
	err := CrearUsuario(conn, segundo, "secreto123")
	assert.ErrorIs(t, err, ErrConflicto)
}

func TestCrearUsuarioRolInvalido(t *testing.T) {
	conn := setupTestDB(t)

	usuario := &models.Usuario{
		Nombre:   "Raro",
		Username: "raro",
		Email:    "raro@nuamtributario.org",
		Rol:      "GERENTE",
	}
	err := CrearUsuario(conn, usuario, "secreto123")
	assert.ErrorIs(t, err, ErrValidacion)
}

func TestValidateSessionExpirada(t *testing.T) {
	conn := setupTestDB(t)
	usuario := crearUsuarioPrueba(t, conn, models.RolCorredor, false)

	sesion, err := CreateSession(conn, usuario.ID, "127.0.0.1", "")
	assert.NoError(t, err)

	conn.Model(&models.Sesion{}).Where("id = ?", sesion.ID).
		Update("expira_en", time.Now().Add(-time.Hour))

	_, err = ValidateSession(conn, sesion.Token)
	assert.ErrorIs(t, err, ErrPermisoDenegado)

	// The expired session is removed on validation
	var n int64
	conn.Model(&models.Sesion{}).Where("id = ?", sesion.ID).Count(&n)
	assert.Zero(t, n)
}

func TestLogoutEliminaSesionYAudita(t *testing.T) {
	conn := setupTestDB(t)
	usuario := crearUsuarioPrueba(t, conn, models.RolCorredor, false)

	sesion, err := CreateSession(conn, usuario.ID, "127.0.0.1", "")
	assert.NoError(t, err)

	assert.NoError(t, Logout(conn, actorDe(usuario), sesion.Token))

	var n int64
	conn.Model(&models.Sesion{}).Where("token = ?", sesion.Token).Count(&n)
	assert.Zero(t, n)

	var entrada models.Auditoria
	err = conn.Where("accion = ?", models.AccionLogout).First(&entrada).Error
	assert.NoError(t, err)
	assert.Equal(t, usuario.Username, entrada.Usuario)
}

func TestCleanupExpiredSessions(t *testing.T) {
	conn := setupTestDB(t)
	usuario := crearUsuarioPrueba(t, conn, models.RolCorredor, false)

	viva, _ := CreateSession(conn, usuario.ID, "127.0.0.1", "")
	muerta, _ := CreateSession(conn, usuario.ID, "127.0.0.1", "")
	conn.Model(&models.Sesion{}).Where("id = ?", muerta.ID).
		Update("expira_en", time.Now().Add(-time.Minute))

	assert.NoError(t, CleanupExpiredSessions(conn))

	var tokens []string
	conn.Model(&models.Sesion{}).Pluck("token", &tokens)
	assert.Equal(t, []string{viva.Token}, tokens)
}
