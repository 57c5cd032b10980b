package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HistorialReglaNegocio is an immutable snapshot of a ReglaNegocio taken
// before every mutation. The version stored is the version the rule had
// when the snapshot was taken, so a version number may appear in more
// than one row (e.g. the initial snapshot and the pre-update snapshot of
// v1); readers take the most recent row per version.
type HistorialReglaNegocio struct {
	ID      string `gorm:"type:uuid;primarykey" json:"id"`
	ReglaID string `gorm:"type:uuid;not null;index:idx_historial_regla;index:idx_historial_regla_version" json:"regla_id"`

	Nombre      string `gorm:"size:150;not null" json:"nombre"`
	Descripcion string `gorm:"type:text" json:"descripcion"`
	Condicion   string `gorm:"type:text;not null" json:"condicion"`
	Accion      string `gorm:"type:text;not null" json:"accion"`
	Version     int    `gorm:"not null;index:idx_historial_regla_version" json:"version"`
	Estado      string `gorm:"not null" json:"estado"`

	ModificadoPorID string `gorm:"type:uuid" json:"modificado_por_id"`
	ModificadoPor   string `gorm:"not null" json:"modificado_por"` // Denormalized username for historical accuracy
	Comentario      string `gorm:"type:text" json:"comentario"`

	FechaSnapshot time.Time `gorm:"autoCreateTime;index" json:"fecha_snapshot"`
}

// BeforeCreate hook to generate UUID
func (h *HistorialReglaNegocio) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	return nil
}

// BeforeUpdate prevents modification of snapshots (immutability)
func (h *HistorialReglaNegocio) BeforeUpdate(tx *gorm.DB) error {
	return gorm.ErrInvalidData
}

// TableName specifies the table name
func (HistorialReglaNegocio) TableName() string {
	return "historial_reglas_negocio"
}
