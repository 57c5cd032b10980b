package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EstadoCalificacion is the workflow state of a calificación
type EstadoCalificacion string

const (
	EstadoBorrador  EstadoCalificacion = "BORRADOR"
	EstadoPendiente EstadoCalificacion = "PENDIENTE"
	EstadoAprobada  EstadoCalificacion = "APROBADA"
	EstadoObservada EstadoCalificacion = "OBSERVADA"
	EstadoRechazada EstadoCalificacion = "RECHAZADA"
	EstadoHistorica EstadoCalificacion = "HISTORICA"
)

// TransicionEstado is one entry of the ordered state-transition log
// embedded in a calificación.
type TransicionEstado struct {
	Estado     EstadoCalificacion `json:"estado"`
	Usuario    string             `json:"usuario"`
	Timestamp  time.Time          `json:"timestamp"`
	Comentario string             `json:"comentario"`
}

// CambioCalificacion records a field-level update: who changed what, and
// the estado the record was in before the change.
type CambioCalificacion struct {
	Timestamp      time.Time              `json:"timestamp"`
	ModificadoPor  string                 `json:"modificado_por"`
	Cambios        map[string]interface{} `json:"cambios"`
	EstadoAnterior EstadoCalificacion     `json:"estado_anterior"`
}

// Calificacion is the canonical, document-oriented tax qualification
// record: flexible detalles/metadata plus embedded append-only history
// arrays. The relational adapter converts its normalized rows into this
// shape.
type Calificacion struct {
	ID string `gorm:"type:uuid;primarykey" json:"id"`

	RegistroID  string `gorm:"type:uuid;not null;index:idx_cal_registro;index:idx_cal_registro_estado" json:"registro_id"`
	UsuarioID   string `gorm:"type:uuid;not null;index:idx_cal_usuario;index:idx_cal_usuario_estado" json:"usuario_id"`
	CreadoPorID string `gorm:"type:uuid" json:"creado_por_id"`

	Estado EstadoCalificacion `gorm:"not null;default:BORRADOR;index;index:idx_cal_registro_estado;index:idx_cal_usuario_estado" json:"estado"`

	TipoCertificado string  `gorm:"not null" json:"tipo_certificado"`
	Rut             string  `gorm:"not null;index" json:"rut"`
	Periodo         string  `gorm:"not null" json:"periodo"`
	Monto           float64 `json:"monto"`

	Comentario         string `gorm:"type:text" json:"comentario"`
	SolicitarAuditoria bool   `gorm:"not null;default:false" json:"solicitar_auditoria"`

	// Flexible payloads
	Detalles   datatypes.JSONMap           `json:"detalles"`
	Metadata   datatypes.JSONMap           `json:"metadata"`
	Documentos datatypes.JSONSlice[string] `json:"documentos"`

	// Append-only history arrays
	Historial        datatypes.JSONSlice[CambioCalificacion] `json:"historial"`
	HistorialEstados datatypes.JSONSlice[TransicionEstado]   `json:"historial_estados"`

	FechaCreacion      time.Time `gorm:"autoCreateTime" json:"fecha_creacion"`
	FechaActualizacion time.Time `gorm:"autoUpdateTime" json:"fecha_actualizacion"`
}

// BeforeCreate hook to generate UUID
func (c *Calificacion) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for the document-oriented store
func (Calificacion) TableName() string {
	return "calificaciones"
}

// EstadoFinal reports whether the calificación can no longer transition
func (c *Calificacion) EstadoFinal() bool {
	return c.Estado == EstadoAprobada || c.Estado == EstadoRechazada
}
