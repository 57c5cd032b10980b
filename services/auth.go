package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"tax_flow_app_go/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 10
	// SessionTokenLength is the length of the session token in bytes (64 chars hex)
	SessionTokenLength = 32
	// DefaultSessionDuration is the default session duration (8 hours)
	DefaultSessionDuration = 8 * time.Hour
)

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPassword verifies a password against a bcrypt hash
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// GenerateSessionToken generates a cryptographically secure random token
func GenerateSessionToken() (string, error) {
	bytes := make([]byte, SessionTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// Login authenticates by username+password, opens a session and writes a
// LOGIN audit entry. Inactive accounts and bad credentials both come back
// as permission denied so callers can't probe which usernames exist.
func Login(conn *gorm.DB, username, password, ip, userAgent string) (*models.Sesion, *models.Usuario, error) {
	var usuario models.Usuario
	if err := conn.Where("username = ?", username).First(&usuario).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, permisoDenegado("credenciales inválidas")
		}
		return nil, nil, err
	}

	if !usuario.Activo || !CheckPassword(password, usuario.Password) {
		return nil, nil, permisoDenegado("credenciales inválidas")
	}

	sesion, err := CreateSession(conn, usuario.ID, ip, userAgent)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	conn.Model(&usuario).Update("ultimo_acceso", now)

	actor := AuthContextDe(&usuario, ip)
	if err := RegistrarAuditoria(conn, actor, models.AccionLogin, "Usuario", usuario.ID,
		fmt.Sprintf("Inicio de sesión de %s", usuario.Username), nil); err != nil {
		return nil, nil, err
	}

	return sesion, &usuario, nil
}

// Logout closes the session and writes a LOGOUT audit entry
func Logout(conn *gorm.DB, actor AuthContext, token string) error {
	if err := DeleteSession(conn, token); err != nil {
		return err
	}
	return RegistrarAuditoria(conn, actor, models.AccionLogout, "Usuario", actor.ActorID,
		fmt.Sprintf("Cierre de sesión de %s", actor.Usuario), nil)
}

// CreateSession creates a new session for a user
func CreateSession(conn *gorm.DB, usuarioID, ipAddress, userAgent string) (*models.Sesion, error) {
	token, err := GenerateSessionToken()
	if err != nil {
		return nil, err
	}

	sesion := &models.Sesion{
		ID:        uuid.New().String(),
		UsuarioID: usuarioID,
		Token:     token,
		ExpiraEn:  time.Now().Add(DefaultSessionDuration),
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}

	if err := conn.Create(sesion).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return sesion, nil
}

// ValidateSession validates a session token and returns the session if valid
func ValidateSession(conn *gorm.DB, token string) (*models.Sesion, error) {
	var sesion models.Sesion

	err := conn.Preload("Usuario").
		Where("token = ?", token).
		First(&sesion).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, noEncontrado("sesión no encontrada")
		}
		return nil, fmt.Errorf("failed to validate session: %w", err)
	}

	if sesion.Expirada() {
		// Delete expired session
		conn.Delete(&sesion)
		return nil, permisoDenegado("sesión expirada")
	}

	return &sesion, nil
}

// DeleteSession deletes a session (logout)
func DeleteSession(conn *gorm.DB, token string) error {
	result := conn.Where("token = ?", token).Delete(&models.Sesion{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete session: %w", result.Error)
	}
	return nil
}

// CleanupExpiredSessions removes all expired sessions from the database
func CleanupExpiredSessions(conn *gorm.DB) error {
	result := conn.Where("expira_en < ?", time.Now()).Delete(&models.Sesion{})
	if result.Error != nil {
		return fmt.Errorf("failed to cleanup expired sessions: %w", result.Error)
	}
	return nil
}

// CrearUsuario registers a user with a hashed password and a validated
// profile role. Duplicate usernames/emails are a Conflict.
func CrearUsuario(conn *gorm.DB, usuario *models.Usuario, password string) error {
	if usuario.Username == "" || usuario.Email == "" || password == "" {
		return validacion("username, email y password son obligatorios")
	}
	if !usuario.RolValido() && !usuario.EsSuperadmin {
		return validacion("rol desconocido: %s", usuario.Rol)
	}

	var count int64
	conn.Model(&models.Usuario{}).
		Where("username = ? OR email = ?", usuario.Username, usuario.Email).
		Count(&count)
	if count > 0 {
		return conflicto("ya existe un usuario con ese username o email")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	usuario.Password = hash
	usuario.Activo = true

	if err := conn.Create(usuario).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}
