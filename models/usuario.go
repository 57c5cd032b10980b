package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Roles de perfil
const (
	RolCorredor = "CORREDOR" // Corredor de inversión
	RolAnalista = "ANALISTA" // Analista tributario
	RolAuditor  = "AUDITOR"  // Auditor interno
	RolTI       = "TI"       // Administrador TI
)

// RolSuperadmin is not a profile role: it is the role string stamped on
// Auditoria entries for actions taken under the superuser bypass.
const RolSuperadmin = "SUPERADMIN"

// RolesValidos lists the assignable profile roles.
var RolesValidos = []string{RolCorredor, RolAnalista, RolAuditor, RolTI}

// Usuario represents a system user with a resolved profile role
type Usuario struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Nombre       string     `gorm:"not null" json:"nombre"`
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	Username     string     `gorm:"uniqueIndex;not null" json:"username"`
	Password     string     `gorm:"not null" json:"-"`
	Rol          string     `gorm:"not null" json:"rol"`
	EsSuperadmin bool       `gorm:"not null;default:false" json:"es_superadmin"`
	Activo       bool       `gorm:"not null;default:true" json:"activo"`
	UltimoAcceso *time.Time `json:"ultimo_acceso,omitempty"`
}

// BeforeCreate hook to generate UUID
func (u *Usuario) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for Usuario model
func (Usuario) TableName() string {
	return "usuarios"
}

// RolValido reports whether the profile role is one of the known roles
func (u *Usuario) RolValido() bool {
	for _, r := range RolesValidos {
		if u.Rol == r {
			return true
		}
	}
	return false
}
