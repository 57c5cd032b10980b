package handlers

import (
	"tax_flow_app_go/config"
	"tax_flow_app_go/services"

	"gorm.io/gorm"
)

// Handler bundles the shared dependencies every endpoint needs
type Handler struct {
	DB             *gorm.DB
	Cfg            *config.Config
	Calificaciones *services.CalificacionService
	Storage        services.StorageProvider
}

func New(db *gorm.DB, cfg *config.Config, calificaciones *services.CalificacionService, storage services.StorageProvider) *Handler {
	return &Handler{
		DB:             db,
		Cfg:            cfg,
		Calificaciones: calificaciones,
		Storage:        storage,
	}
}
