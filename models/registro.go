package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Registro is the base tax record calificaciones hang off. It is owned by
// a user and immutable after creation except for privileged roles.
type Registro struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UsuarioID   string    `gorm:"type:uuid;not null;index" json:"usuario_id"`
	Usuario     Usuario   `gorm:"foreignKey:UsuarioID" json:"usuario,omitempty"`
	Titulo      string    `gorm:"size:200;not null" json:"titulo"`
	Descripcion string    `gorm:"type:text" json:"descripcion"`
	Fecha       time.Time `gorm:"autoCreateTime" json:"fecha"`
}

// BeforeCreate hook to generate UUID
func (r *Registro) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for Registro model
func (Registro) TableName() string {
	return "registros"
}
