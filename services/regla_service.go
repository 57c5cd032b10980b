package services

import (
	"errors"
	"fmt"

	"tax_flow_app_go/models"

	"gorm.io/gorm"
)

// CrearReglaInput carries the fields accepted when creating a rule
type CrearReglaInput struct {
	Nombre      string `json:"nombre"`
	Descripcion string `json:"descripcion"`
	Condicion   string `json:"condicion"`
	Accion      string `json:"accion"`
	Estado      string `json:"estado"`
}

// CrearRegla creates a business rule at version 1 in REVISION (unless an
// explicit valid estado is given), takes the initial snapshot and writes
// one CREATE audit entry, all in one transaction.
func CrearRegla(conn *gorm.DB, actor AuthContext, input CrearReglaInput) (*models.ReglaNegocio, error) {
	if err := AutorizarActor(actor, PermisoGestionarReglas); err != nil {
		return nil, err
	}
	if input.Nombre == "" || input.Condicion == "" || input.Accion == "" {
		return nil, validacion("nombre, condicion y accion son obligatorios")
	}

	estado := models.ReglaRevision
	if input.Estado != "" {
		if !models.EstadoReglaValido(input.Estado) {
			return nil, validacion("estado de regla desconocido: %s", input.Estado)
		}
		estado = input.Estado
	}

	regla := &models.ReglaNegocio{
		Nombre:      input.Nombre,
		Descripcion: input.Descripcion,
		Condicion:   input.Condicion,
		Accion:      input.Accion,
		Version:     1,
		Estado:      estado,
		CreadoPorID: actor.ActorID,
	}

	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(regla).Error; err != nil {
			return err
		}
		if err := crearSnapshot(tx, regla, actor, "Versión inicial"); err != nil {
			return err
		}
		return RegistrarAuditoria(tx, actor, models.AccionCreate, "ReglaNegocio", regla.ID,
			fmt.Sprintf("Regla de negocio '%s' creada (v1)", regla.Nombre), nil)
	})
	if err != nil {
		return nil, err
	}
	return regla, nil
}

// ActualizarReglaInput carries the mutable fields of a rule. Nil pointers
// leave the field untouched.
type ActualizarReglaInput struct {
	Nombre      *string `json:"nombre"`
	Descripcion *string `json:"descripcion"`
	Condicion   *string `json:"condicion"`
	Accion      *string `json:"accion"`
	Estado      *string `json:"estado"`
}

// ActualizarRegla mutates a rule under snapshot-before-mutate: the
// pre-change content is captured first, then the fields are applied. The
// version increments only when condición or acción changed; metadata-only
// edits (nombre, descripción, estado) keep the version. Authorship is
// never reassigned.
func ActualizarRegla(conn *gorm.DB, actor AuthContext, reglaID string, input ActualizarReglaInput, comentario string) (*models.ReglaNegocio, error) {
	if err := AutorizarActor(actor, PermisoGestionarReglas); err != nil {
		return nil, err
	}
	if input.Estado != nil && !models.EstadoReglaValido(*input.Estado) {
		return nil, validacion("estado de regla desconocido: %s", *input.Estado)
	}

	var regla models.ReglaNegocio
	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&regla, "id = ?", reglaID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return noEncontrado("regla %s no existe", reglaID)
			}
			return err
		}

		// Snapshot of the pre-change content, stamped with the version the
		// rule had before this mutation
		if comentario == "" {
			comentario = fmt.Sprintf("Actualización de v%d", regla.Version)
		}
		if err := crearSnapshot(tx, &regla, actor, SanitizarTexto(comentario)); err != nil {
			return err
		}

		cambioContenido := false
		if input.Nombre != nil {
			regla.Nombre = *input.Nombre
		}
		if input.Descripcion != nil {
			regla.Descripcion = *input.Descripcion
		}
		if input.Condicion != nil && *input.Condicion != regla.Condicion {
			regla.Condicion = *input.Condicion
			cambioContenido = true
		}
		if input.Accion != nil && *input.Accion != regla.Accion {
			regla.Accion = *input.Accion
			cambioContenido = true
		}
		if input.Estado != nil {
			regla.Estado = *input.Estado
		}

		if cambioContenido {
			regla.Version++
		}

		if err := tx.Save(&regla).Error; err != nil {
			return err
		}
		return RegistrarAuditoria(tx, actor, models.AccionUpdate, "ReglaNegocio", regla.ID,
			fmt.Sprintf("Regla de negocio '%s' actualizada (v%d)", regla.Nombre, regla.Version),
			map[string]interface{}{"cambio_contenido": cambioContenido, "version": regla.Version})
	})
	if err != nil {
		return nil, err
	}
	return &regla, nil
}

// RollbackRegla restores the content of an earlier version. Two snapshots
// bracket the restore: a pre-rollback capture of the current content, and
// a post-rollback capture documenting the restored content at its new,
// incremented version. Rollback always increments the version, even when
// the restored content equals the current one.
func RollbackRegla(conn *gorm.DB, actor AuthContext, reglaID string, versionObjetivo int, comentario string) (*models.ReglaNegocio, error) {
	if err := AutorizarActor(actor, PermisoGestionarReglas); err != nil {
		return nil, err
	}

	var regla models.ReglaNegocio
	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&regla, "id = ?", reglaID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return noEncontrado("regla %s no existe", reglaID)
			}
			return err
		}

		snapshot, err := snapshotDeVersion(tx, reglaID, versionObjetivo)
		if err != nil {
			return err
		}

		if err := crearSnapshot(tx, &regla, actor,
			fmt.Sprintf("Pre-rollback a v%d", versionObjetivo)); err != nil {
			return err
		}

		regla.Nombre = snapshot.Nombre
		regla.Descripcion = snapshot.Descripcion
		regla.Condicion = snapshot.Condicion
		regla.Accion = snapshot.Accion
		regla.Version++

		if err := tx.Save(&regla).Error; err != nil {
			return err
		}

		detalle := fmt.Sprintf("Rollback desde v%d", versionObjetivo)
		if comentario != "" {
			detalle = fmt.Sprintf("Rollback desde v%d: %s", versionObjetivo, SanitizarTexto(comentario))
		}
		if err := crearSnapshot(tx, &regla, actor, detalle); err != nil {
			return err
		}

		return RegistrarAuditoria(tx, actor, models.AccionUpdate, "ReglaNegocio", regla.ID,
			fmt.Sprintf("Regla de negocio '%s': rollback a v%d (ahora v%d)", regla.Nombre, versionObjetivo, regla.Version),
			map[string]interface{}{"version_objetivo": versionObjetivo, "version_nueva": regla.Version})
	})
	if err != nil {
		return nil, err
	}
	return &regla, nil
}

// ComparacionVersiones is the result of comparing two rule versions
type ComparacionVersiones struct {
	VersionA  *models.HistorialReglaNegocio `json:"version_a"`
	VersionB  *models.HistorialReglaNegocio `json:"version_b"`
	Diferente struct {
		Nombre      bool `json:"nombre"`
		Descripcion bool `json:"descripcion"`
		Condicion   bool `json:"condicion"`
		Accion      bool `json:"accion"`
	} `json:"diferencias"`
}

// CompararVersiones loads both snapshots and flags field-level
// differences. Comparing a version with itself yields all-false flags.
func CompararVersiones(conn *gorm.DB, actor AuthContext, reglaID string, versionA, versionB int) (*ComparacionVersiones, error) {
	if err := AutorizarActor(actor, PermisoVerReglas); err != nil {
		return nil, err
	}

	a, err := snapshotDeVersion(conn, reglaID, versionA)
	if err != nil {
		return nil, err
	}
	b, err := snapshotDeVersion(conn, reglaID, versionB)
	if err != nil {
		return nil, err
	}

	comp := &ComparacionVersiones{VersionA: a, VersionB: b}
	comp.Diferente.Nombre = a.Nombre != b.Nombre
	comp.Diferente.Descripcion = a.Descripcion != b.Descripcion
	comp.Diferente.Condicion = a.Condicion != b.Condicion
	comp.Diferente.Accion = a.Accion != b.Accion
	return comp, nil
}

// HistorialRegla returns the snapshots of a rule, newest first
func HistorialRegla(conn *gorm.DB, actor AuthContext, reglaID string) ([]models.HistorialReglaNegocio, error) {
	if err := AutorizarActor(actor, PermisoVerReglas); err != nil {
		return nil, err
	}
	if err := reglaExiste(conn, reglaID); err != nil {
		return nil, err
	}

	var snapshots []models.HistorialReglaNegocio
	err := conn.Where("regla_id = ?", reglaID).
		Order("version DESC, fecha_snapshot DESC").
		Find(&snapshots).Error
	return snapshots, err
}

// ObtenerRegla fetches one rule
func ObtenerRegla(conn *gorm.DB, actor AuthContext, reglaID string) (*models.ReglaNegocio, error) {
	if err := AutorizarActor(actor, PermisoVerReglas); err != nil {
		return nil, err
	}
	var regla models.ReglaNegocio
	if err := conn.First(&regla, "id = ?", reglaID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, noEncontrado("regla %s no existe", reglaID)
		}
		return nil, err
	}
	return &regla, nil
}

// ListarReglas returns rules, optionally filtered by estado
func ListarReglas(conn *gorm.DB, actor AuthContext, estado string) ([]models.ReglaNegocio, error) {
	if err := AutorizarActor(actor, PermisoVerReglas); err != nil {
		return nil, err
	}
	query := conn.Model(&models.ReglaNegocio{})
	if estado != "" {
		query = query.Where("estado = ?", estado)
	}
	var reglas []models.ReglaNegocio
	err := query.Order("created_at DESC").Find(&reglas).Error
	return reglas, err
}

// EliminarRegla soft-deletes a rule and hard-deletes its snapshots. The
// DELETE audit entry is written first so the trail survives the removal.
func EliminarRegla(conn *gorm.DB, actor AuthContext, reglaID string) error {
	if err := AutorizarActor(actor, PermisoGestionarReglas); err != nil {
		return err
	}

	return conn.Transaction(func(tx *gorm.DB) error {
		var regla models.ReglaNegocio
		if err := tx.First(&regla, "id = ?", reglaID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return noEncontrado("regla %s no existe", reglaID)
			}
			return err
		}

		if err := RegistrarAuditoria(tx, actor, models.AccionDelete, "ReglaNegocio", regla.ID,
			fmt.Sprintf("Regla de negocio '%s' eliminada (v%d)", regla.Nombre, regla.Version), nil); err != nil {
			return err
		}

		// Snapshot rows carry no update path, so the raw delete is fine here
		if err := tx.Exec("DELETE FROM historial_reglas_negocio WHERE regla_id = ?", reglaID).Error; err != nil {
			return err
		}
		return tx.Delete(&regla).Error
	})
}

// crearSnapshot captures the rule's current content into the immutable
// history table, stamped with the rule's current version
func crearSnapshot(tx *gorm.DB, regla *models.ReglaNegocio, actor AuthContext, comentario string) error {
	snapshot := &models.HistorialReglaNegocio{
		ReglaID:         regla.ID,
		Nombre:          regla.Nombre,
		Descripcion:     regla.Descripcion,
		Condicion:       regla.Condicion,
		Accion:          regla.Accion,
		Version:         regla.Version,
		Estado:          regla.Estado,
		ModificadoPorID: actor.ActorID,
		ModificadoPor:   actor.Usuario,
		Comentario:      comentario,
	}
	return tx.Create(snapshot).Error
}

// snapshotDeVersion returns the most recent snapshot carrying the given
// version number. Versions can appear in more than one row; the latest
// capture is authoritative.
func snapshotDeVersion(tx *gorm.DB, reglaID string, version int) (*models.HistorialReglaNegocio, error) {
	var snapshot models.HistorialReglaNegocio
	err := tx.Where("regla_id = ? AND version = ?", reglaID, version).
		Order("fecha_snapshot DESC").
		First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, noEncontrado("la versión %d de la regla %s no existe", version, reglaID)
		}
		return nil, err
	}
	return &snapshot, nil
}

func reglaExiste(conn *gorm.DB, reglaID string) error {
	var count int64
	if err := conn.Model(&models.ReglaNegocio{}).Where("id = ?", reglaID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return noEncontrado("regla %s no existe", reglaID)
	}
	return nil
}
