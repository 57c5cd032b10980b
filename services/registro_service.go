package services

import (
	"errors"
	"fmt"

	"tax_flow_app_go/models"

	"gorm.io/gorm"
)

// CrearRegistroInput carries the fields accepted when creating a registro
type CrearRegistroInput struct {
	UsuarioID   string `json:"usuario_id"`
	Titulo      string `json:"titulo"`
	Descripcion string `json:"descripcion"`
}

// CrearRegistro creates a base tax record for a user. Only analysts and
// TI create registros; the owner may be any existing user.
func CrearRegistro(conn *gorm.DB, actor AuthContext, input CrearRegistroInput) (*models.Registro, error) {
	if err := AutorizarActor(actor, PermisoCrearRegistro); err != nil {
		return nil, err
	}
	if input.Titulo == "" {
		return nil, validacion("titulo es obligatorio")
	}

	usuarioID := input.UsuarioID
	if usuarioID == "" {
		usuarioID = actor.ActorID
	}
	var propietario models.Usuario
	if err := conn.First(&propietario, "id = ?", usuarioID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, noEncontrado("usuario %s no existe", usuarioID)
		}
		return nil, err
	}

	registro := &models.Registro{
		UsuarioID:   usuarioID,
		Titulo:      input.Titulo,
		Descripcion: SanitizarTexto(input.Descripcion),
	}

	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(registro).Error; err != nil {
			return err
		}
		return RegistrarAuditoria(tx, actor, models.AccionCreate, "Registro", registro.ID,
			fmt.Sprintf("Registro '%s' creado para %s", registro.Titulo, propietario.Username), nil)
	})
	if err != nil {
		return nil, err
	}
	return registro, nil
}

// ObtenerRegistro fetches a registro; corredores only see their own
func ObtenerRegistro(conn *gorm.DB, actor AuthContext, registroID string) (*models.Registro, error) {
	var registro models.Registro
	if err := conn.Preload("Usuario").First(&registro, "id = ?", registroID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, noEncontrado("registro %s no existe", registroID)
		}
		return nil, err
	}
	if !actor.Puede(PermisoVerTodosRegistros) && registro.UsuarioID != actor.ActorID {
		return nil, permisoDenegado("no puede ver registros de otros usuarios")
	}
	return &registro, nil
}

// ListarRegistros returns the registros visible to the actor: everything
// for analysts, auditors and TI, own records only for corredores.
func ListarRegistros(conn *gorm.DB, actor AuthContext, usuarioID string) ([]models.Registro, error) {
	query := conn.Model(&models.Registro{})
	if actor.Puede(PermisoVerTodosRegistros) {
		if usuarioID != "" {
			query = query.Where("usuario_id = ?", usuarioID)
		}
	} else {
		if err := AutorizarActor(actor, PermisoVerRegistroPropio); err != nil {
			return nil, err
		}
		query = query.Where("usuario_id = ?", actor.ActorID)
	}

	var registros []models.Registro
	err := query.Order("fecha DESC").Find(&registros).Error
	return registros, err
}

// ActualizarRegistro edits a registro's title or description. Privileged
// roles only; registros are otherwise immutable after creation.
func ActualizarRegistro(conn *gorm.DB, actor AuthContext, registroID string, titulo, descripcion *string) (*models.Registro, error) {
	if err := AutorizarActor(actor, PermisoEditarRegistro); err != nil {
		return nil, err
	}

	var registro models.Registro
	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&registro, "id = ?", registroID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return noEncontrado("registro %s no existe", registroID)
			}
			return err
		}

		cambios := map[string]interface{}{}
		if titulo != nil && *titulo != registro.Titulo {
			if *titulo == "" {
				return validacion("titulo no puede quedar vacío")
			}
			cambios["titulo"] = map[string]interface{}{"antes": registro.Titulo, "despues": *titulo}
			registro.Titulo = *titulo
		}
		if descripcion != nil {
			limpio := SanitizarTexto(*descripcion)
			if limpio != registro.Descripcion {
				cambios["descripcion"] = map[string]interface{}{"antes": registro.Descripcion, "despues": limpio}
				registro.Descripcion = limpio
			}
		}
		if len(cambios) == 0 {
			return nil
		}

		if err := tx.Save(&registro).Error; err != nil {
			return err
		}
		return RegistrarAuditoria(tx, actor, models.AccionUpdate, "Registro", registro.ID,
			fmt.Sprintf("Registro '%s' actualizado", registro.Titulo),
			map[string]interface{}{"cambios": cambios})
	})
	if err != nil {
		return nil, err
	}
	return &registro, nil
}
