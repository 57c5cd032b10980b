package services

import (
	"fmt"
	"testing"

	"tax_flow_app_go/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.Usuario{},
		&models.Sesion{},
		&models.Registro{},
		&models.Calificacion{},
		&models.CalificacionRelacional{},
		&models.CalificacionEstadoLog{},
		&models.CalificacionCambioLog{},
		&models.ReglaNegocio{},
		&models.HistorialReglaNegocio{},
		&models.Auditoria{},
		&models.Documento{},
	); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return conn
}

// crearUsuarioPrueba inserts a user with the given role and returns it
func crearUsuarioPrueba(t *testing.T, conn *gorm.DB, rol string, superadmin bool) *models.Usuario {
	t.Helper()
	usuario := &models.Usuario{
		Nombre:       "Usuario " + rol,
		Email:        fmt.Sprintf("%s_%d@nuamtributario.org", rol, contadorUsuarios()),
		Username:     fmt.Sprintf("u_%s_%d", rol, contadorUsuarios()),
		Password:     "x",
		Rol:          rol,
		EsSuperadmin: superadmin,
		Activo:       true,
	}
	if err := conn.Create(usuario).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return usuario
}

var usuariosCreados int

func contadorUsuarios() int {
	usuariosCreados++
	return usuariosCreados
}

func actorDe(u *models.Usuario) AuthContext {
	return AuthContextDe(u, "127.0.0.1")
}

// crearRegistroPrueba inserts a registro owned by the given user
func crearRegistroPrueba(t *testing.T, conn *gorm.DB, propietario *models.Usuario) *models.Registro {
	t.Helper()
	registro := &models.Registro{
		UsuarioID: propietario.ID,
		Titulo:    "Registro de prueba",
	}
	if err := conn.Create(registro).Error; err != nil {
		t.Fatalf("failed to create test registro: %v", err)
	}
	return registro
}

// notificadorStub records notifications instead of sending. Setting
// fallar makes every send report failure, to verify callers ignore it.
type notificadorStub struct {
	enviados []string
	fallar   bool
}

func (n *notificadorStub) Enviar(plantilla string, destinatario string, contexto map[string]string) bool {
	n.enviados = append(n.enviados, plantilla)
	return !n.fallar
}

func contarAuditorias(conn *gorm.DB, modelo, objetoID string) int64 {
	var n int64
	conn.Model(&models.Auditoria{}).Where("modelo = ? AND objeto_id = ?", modelo, objetoID).Count(&n)
	return n
}
