package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Estados de documento
const (
	DocumentoCargado = "DOCUMENTO_CARGADO"
)

// Documento holds the metadata of an uploaded certificate file. The bytes
// live in the file store; only the path and the sha256 integrity hash are
// tracked here.
type Documento struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"fecha_creacion"`
	UpdatedAt time.Time `json:"fecha_actualizacion"`

	RegistroID     string  `gorm:"type:uuid;not null;index" json:"registro_id"`
	CalificacionID *string `gorm:"type:uuid;index" json:"calificacion_id,omitempty"`

	TipoDocumento  string `gorm:"not null" json:"tipo_documento"`
	RutaStorage    string `gorm:"not null" json:"ruta_storage"`
	HashIntegridad string `gorm:"size:64;not null" json:"hash_integridad"` // sha256 hex

	Estado    string            `gorm:"not null;default:DOCUMENTO_CARGADO;index" json:"estado"`
	Metadata  datatypes.JSONMap `json:"metadata,omitempty"`
	CreadoPor string            `gorm:"not null" json:"creado_por"`
}

// BeforeCreate hook to generate UUID
func (d *Documento) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (Documento) TableName() string {
	return "documentos"
}
