package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CalificacionRelacional is the normalized representation used by the
// relational store adapter: scalar columns only, history in side tables.
// Flexible payloads are serialized JSON text.
type CalificacionRelacional struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	RegistroID  string `gorm:"type:uuid;not null;index" json:"registro_id"`
	UsuarioID   string `gorm:"type:uuid;not null;index" json:"usuario_id"`
	CreadoPorID string `gorm:"type:uuid" json:"creado_por_id"`

	Estado EstadoCalificacion `gorm:"not null;default:BORRADOR;index" json:"estado"`

	TipoCertificado string  `gorm:"not null" json:"tipo_certificado"`
	Rut             string  `gorm:"not null;index" json:"rut"`
	Periodo         string  `gorm:"not null" json:"periodo"`
	Monto           float64 `json:"monto"`

	Comentario         string `gorm:"type:text" json:"comentario"`
	SolicitarAuditoria bool   `gorm:"not null;default:false" json:"solicitar_auditoria"`

	DetallesJSON   string `gorm:"type:text" json:"-"`
	MetadataJSON   string `gorm:"type:text" json:"-"`
	DocumentosJSON string `gorm:"type:text" json:"-"`
}

func (c *CalificacionRelacional) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

func (CalificacionRelacional) TableName() string {
	return "calificaciones_rel"
}

// CalificacionEstadoLog is one row per state transition of a relational
// calificación, ordered by creation time.
type CalificacionEstadoLog struct {
	ID             string             `gorm:"type:uuid;primarykey" json:"id"`
	CalificacionID string             `gorm:"type:uuid;not null;index" json:"calificacion_id"`
	Estado         EstadoCalificacion `gorm:"not null" json:"estado"`
	Actor          string             `gorm:"not null" json:"actor"`
	Comentario     string             `gorm:"type:text" json:"comentario"`
	CreatedAt      time.Time          `json:"created_at"`
}

func (l *CalificacionEstadoLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return nil
}

func (CalificacionEstadoLog) TableName() string {
	return "calificaciones_rel_estados"
}

// CalificacionCambioLog is one row per field-level update of a relational
// calificación.
type CalificacionCambioLog struct {
	ID             string             `gorm:"type:uuid;primarykey" json:"id"`
	CalificacionID string             `gorm:"type:uuid;not null;index" json:"calificacion_id"`
	ModificadoPor  string             `gorm:"not null" json:"modificado_por"`
	EstadoAnterior EstadoCalificacion `json:"estado_anterior"`
	CambiosJSON    string             `gorm:"type:text" json:"-"`
	CreatedAt      time.Time          `json:"created_at"`
}

func (l *CalificacionCambioLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return nil
}

func (CalificacionCambioLog) TableName() string {
	return "calificaciones_rel_cambios"
}
