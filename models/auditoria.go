package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AccionAuditoria represents the type of operation performed
type AccionAuditoria string

const (
	AccionCreate       AccionAuditoria = "CREATE"
	AccionUpdate       AccionAuditoria = "UPDATE"
	AccionDelete       AccionAuditoria = "DELETE"
	AccionLogin        AccionAuditoria = "LOGIN"
	AccionLogout       AccionAuditoria = "LOGOUT"
	AccionAcceso       AccionAuditoria = "ACCESO"        // Acceso a paneles administrativos
	AccionRule         AccionAuditoria = "RULE"          // Regla aplicada
	AccionEstadoCambio AccionAuditoria = "ESTADO_CAMBIO" // Transición de estado
	AccionResolucion   AccionAuditoria = "RESOLUCION"    // Resolución / solicitud de auditoría
)

// Auditoria is an immutable, append-only record of a state-changing
// action. Rows are never updated or deleted except through the explicit
// purge operation, which bypasses the hooks with raw SQL.
type Auditoria struct {
	ID    string    `gorm:"type:uuid;primarykey" json:"id"`
	Fecha time.Time `gorm:"autoCreateTime;index:idx_auditoria_fecha" json:"fecha"`

	// Actor identification (denormalized for historical accuracy)
	UsuarioID *string `gorm:"type:uuid;index:idx_auditoria_usuario" json:"usuario_id,omitempty"`
	Usuario   string  `gorm:"not null" json:"usuario"`
	Rol       string  `gorm:"size:20;not null" json:"rol"`

	// Target resource
	Accion   AccionAuditoria `gorm:"size:20;not null;index:idx_auditoria_accion" json:"accion"`
	Modelo   string          `gorm:"size:100;not null;index:idx_auditoria_modelo" json:"modelo"`
	ObjetoID string          `gorm:"index:idx_auditoria_modelo" json:"objeto_id,omitempty"`

	Descripcion string            `gorm:"type:text;not null" json:"descripcion"`
	Metadatos   datatypes.JSONMap `json:"metadatos,omitempty"`

	// Request metadata
	IPAddress string `gorm:"size:45" json:"ip_address,omitempty"`
}

// BeforeCreate generates UUID
func (a *Auditoria) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// BeforeUpdate prevents modification of audit entries (immutability)
func (a *Auditoria) BeforeUpdate(tx *gorm.DB) error {
	return gorm.ErrRecordNotFound // Prevent any updates
}

// BeforeDelete prevents deletion of audit entries (immutability)
func (a *Auditoria) BeforeDelete(tx *gorm.DB) error {
	return gorm.ErrRecordNotFound // Prevent any deletes
}

// TableName specifies the table name
func (Auditoria) TableName() string {
	return "auditorias"
}
