package services

import (
	"fmt"
	"log"
	"time"

	"tax_flow_app_go/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ConfirmacionPurga is the literal confirmation string the purge
// operation requires. Anything else rejects the request outright.
const ConfirmacionPurga = "PURGAR_DEFINITIVAMENTE"

// DiasPurgaDefault is the default retention window for purges.
const DiasPurgaDefault = 90

// RegistrarAuditoria appends one Auditoria row synchronously on the given
// handle. Callers inside a transaction pass the tx so the audit row
// commits or rolls back atomically with the primary mutation.
func RegistrarAuditoria(
	tx *gorm.DB,
	actor AuthContext,
	accion models.AccionAuditoria,
	modelo string,
	objetoID string,
	descripcion string,
	metadatos map[string]interface{},
) error {
	entrada := models.Auditoria{
		UsuarioID:   ptrIfNotEmpty(actor.ActorID),
		Usuario:     actor.Usuario,
		Rol:         actor.RolAuditoria(),
		Accion:      accion,
		Modelo:      modelo,
		ObjetoID:    objetoID,
		Descripcion: descripcion,
		IPAddress:   actor.IPAddress,
	}
	if metadatos != nil {
		entrada.Metadatos = datatypes.JSONMap(metadatos)
	}

	if err := tx.Create(&entrada).Error; err != nil {
		log.Printf("[AUDIT] Failed to create audit entry: %v", err)
		return fmt.Errorf("error al registrar auditoría: %w", err)
	}
	return nil
}

// ptrIfNotEmpty returns a pointer to the string if not empty, nil otherwise
func ptrIfNotEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// FiltrosAuditoria contains filter options for audit queries
type FiltrosAuditoria struct {
	UsuarioID string
	Accion    string
	Modelo    string
	Desde     time.Time
	Hasta     time.Time
}

// ListarAuditoria retrieves paginated audit entries, newest first.
// Requires the ver_auditoria capability.
func ListarAuditoria(conn *gorm.DB, actor AuthContext, filtros FiltrosAuditoria, pagina, tamano int) ([]models.Auditoria, int64, error) {
	if err := AutorizarActor(actor, PermisoVerAuditoria); err != nil {
		return nil, 0, err
	}

	query := conn.Model(&models.Auditoria{})
	if filtros.UsuarioID != "" {
		query = query.Where("usuario_id = ?", filtros.UsuarioID)
	}
	if filtros.Accion != "" {
		query = query.Where("accion = ?", filtros.Accion)
	}
	if filtros.Modelo != "" {
		query = query.Where("modelo = ?", filtros.Modelo)
	}
	if !filtros.Desde.IsZero() {
		query = query.Where("fecha >= ?", filtros.Desde)
	}
	if !filtros.Hasta.IsZero() {
		query = query.Where("fecha <= ?", filtros.Hasta)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if pagina < 1 {
		pagina = 1
	}
	if tamano < 1 {
		tamano = 50
	}

	var entradas []models.Auditoria
	err := query.Order("fecha DESC").
		Offset((pagina - 1) * tamano).
		Limit(tamano).
		Find(&entradas).Error
	return entradas, total, err
}

// HistorialObjeto retrieves the audit trail of a single entity
func HistorialObjeto(conn *gorm.DB, actor AuthContext, modelo, objetoID string) ([]models.Auditoria, error) {
	if err := AutorizarActor(actor, PermisoVerAuditoria); err != nil {
		return nil, err
	}
	var entradas []models.Auditoria
	err := conn.Where("modelo = ? AND objeto_id = ?", modelo, objetoID).
		Order("fecha DESC").
		Find(&entradas).Error
	return entradas, err
}

// ResultadoPurga summarizes a completed purge
type ResultadoPurga struct {
	Eliminados  int64     `json:"registros_eliminados"`
	FechaLimite time.Time `json:"fecha_limite"`
}

// PurgarAuditoria deletes audit entries older than the retention window.
// Superuser only, and the caller must supply the exact confirmation
// string; otherwise nothing is deleted and no audit entry is written.
// The deletion uses raw SQL because the Auditoria hooks block every other
// delete path. A final DELETE entry summarizing count and cutoff is
// written in the same transaction before returning.
func PurgarAuditoria(conn *gorm.DB, actor AuthContext, dias int, confirmacion string) (*ResultadoPurga, error) {
	if !actor.EsSuperadmin {
		return nil, permisoDenegado("la purga de auditoría requiere administrador global")
	}
	if confirmacion != ConfirmacionPurga {
		return nil, validacion("debe confirmar con: %s", ConfirmacionPurga)
	}
	if dias <= 0 {
		dias = DiasPurgaDefault
	}

	fechaLimite := time.Now().AddDate(0, 0, -dias)
	resultado := &ResultadoPurga{FechaLimite: fechaLimite}

	err := conn.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Auditoria{}).Where("fecha < ?", fechaLimite).Count(&count).Error; err != nil {
			return err
		}

		if err := tx.Exec("DELETE FROM auditorias WHERE fecha < ?", fechaLimite).Error; err != nil {
			return err
		}
		resultado.Eliminados = count

		descripcion := fmt.Sprintf(
			"PURGA MASIVA: eliminados %d registros de auditoría anteriores a %d días",
			count, dias,
		)
		return RegistrarAuditoria(tx, actor, models.AccionDelete, "Auditoria", "", descripcion, map[string]interface{}{
			"registros_eliminados": count,
			"fecha_limite":         fechaLimite.Format(time.RFC3339),
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[AUDIT] Purge completed: %d entries removed (cutoff %s)", resultado.Eliminados, fechaLimite.Format("2006-01-02"))
	return resultado, nil
}
