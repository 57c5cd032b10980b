package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Estados de una regla de negocio
const (
	ReglaActiva    = "ACTIVA"
	ReglaInactiva  = "INACTIVA"
	ReglaDeprecada = "DEPRECADA"
	ReglaRevision  = "REVISION"
)

// ReglaNegocio is a versioned business rule. Version increases
// monotonically on every content change (condición or acción); authorship
// (CreadoPorID) is permanent provenance, set once and never reassigned.
type ReglaNegocio struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"fecha_creacion"`
	UpdatedAt time.Time      `json:"fecha_modificacion"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Nombre      string `gorm:"size:150;not null" json:"nombre"`
	Descripcion string `gorm:"type:text" json:"descripcion"`
	// Condición lógica de la regla (ej: monto > 1000000)
	Condicion string `gorm:"type:text;not null" json:"condicion"`
	// Acción a ejecutar cuando se cumple la condición
	Accion string `gorm:"type:text;not null" json:"accion"`

	Version int    `gorm:"not null;default:1" json:"version"`
	Estado  string `gorm:"not null;default:REVISION;index" json:"estado"`

	CreadoPorID string  `gorm:"type:uuid;not null" json:"creado_por_id"`
	CreadoPor   Usuario `gorm:"foreignKey:CreadoPorID" json:"creado_por,omitempty"`
}

// BeforeCreate hook to generate UUID
func (r *ReglaNegocio) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for ReglaNegocio model
func (ReglaNegocio) TableName() string {
	return "reglas_negocio"
}

// EstadoReglaValido reports whether the given estado is a known rule state
func EstadoReglaValido(estado string) bool {
	switch estado {
	case ReglaActiva, ReglaInactiva, ReglaDeprecada, ReglaRevision:
		return true
	}
	return false
}
