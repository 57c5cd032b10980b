package models

import (
	"time"
)

type Sesion struct {
	ID        string    `gorm:"primarykey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UsuarioID string    `gorm:"type:uuid;not null;index" json:"usuario_id"`
	Token     string    `gorm:"uniqueIndex;not null;type:varchar(128)" json:"-"`
	ExpiraEn  time.Time `gorm:"not null;index" json:"expira_en"`
	IPAddress string    `gorm:"type:varchar(45)" json:"ip_address"`
	UserAgent string    `gorm:"type:text" json:"user_agent"`

	// Relationships
	Usuario Usuario `gorm:"foreignKey:UsuarioID" json:"-"`
}

// TableName specifies the table name for Sesion model
func (Sesion) TableName() string {
	return "sesiones"
}

// Expirada checks if the session has expired
func (s *Sesion) Expirada() bool {
	return time.Now().After(s.ExpiraEn)
}
