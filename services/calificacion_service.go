package services

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"tax_flow_app_go/models"

	"gorm.io/gorm"
)

// estadosBloqueados are the states in which field edits are rejected.
// A calificación under review or already resolved can only move through
// explicit transitions.
var estadosBloqueados = map[models.EstadoCalificacion]bool{
	models.EstadoPendiente: true,
	models.EstadoAprobada:  true,
	models.EstadoRechazada: true,
}

// CalificacionService is the workflow engine: it owns every calificación
// mutation, drives the state machine and guarantees one audit entry per
// state-changing operation in the same transaction.
type CalificacionService struct {
	Store     CalificacionStore
	Notificar Notificador
}

func NewCalificacionService(store CalificacionStore, notificador Notificador) *CalificacionService {
	return &CalificacionService{Store: store, Notificar: notificador}
}

// CrearCalificacionInput carries the fields accepted at creation
type CrearCalificacionInput struct {
	RegistroID         string                 `json:"registro_id"`
	TipoCertificado    string                 `json:"tipo_certificado"`
	Rut                string                 `json:"rut"`
	Periodo            string                 `json:"periodo"`
	Monto              float64                `json:"monto"`
	Comentario         string                 `json:"comentario"`
	SolicitarAuditoria bool                   `json:"solicitar_auditoria"`
	EnviarValidacion   bool                   `json:"enviar_validacion"`
	Detalles           map[string]interface{} `json:"detalles"`
	Metadata           map[string]interface{} `json:"metadata"`
	Documentos         []string               `json:"documentos"`
}

// Crear creates a calificación in BORRADOR, or directly in PENDIENTE when
// the caller asks to submit for validation in the same step. Writes the
// initial history entries, one CREATE audit entry, and a RESOLUCION entry
// when an audit was requested. Notification emails go out after commit
// and never fail the operation.
func (s *CalificacionService) Crear(conn *gorm.DB, actor AuthContext, input CrearCalificacionInput) (*models.Calificacion, error) {
	if err := AutorizarActor(actor, PermisoCrearCalificacion); err != nil {
		return nil, err
	}
	if input.RegistroID == "" || input.TipoCertificado == "" || input.Rut == "" || input.Periodo == "" {
		return nil, validacion("registro_id, tipo_certificado, rut y periodo son obligatorios")
	}

	var registro models.Registro
	if err := conn.First(&registro, "id = ?", input.RegistroID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, noEncontrado("registro %s no existe", input.RegistroID)
		}
		return nil, err
	}
	if !actor.Puede(PermisoVerTodosRegistros) && registro.UsuarioID != actor.ActorID {
		return nil, permisoDenegado("no puede crear calificaciones sobre registros de otros usuarios")
	}

	estadoInicial := models.EstadoBorrador
	if input.EnviarValidacion {
		estadoInicial = models.EstadoPendiente
	}

	ahora := time.Now()
	calificacion := &models.Calificacion{
		RegistroID:         input.RegistroID,
		UsuarioID:          registro.UsuarioID,
		CreadoPorID:        actor.ActorID,
		Estado:             estadoInicial,
		TipoCertificado:    input.TipoCertificado,
		Rut:                input.Rut,
		Periodo:            input.Periodo,
		Monto:              input.Monto,
		Comentario:         SanitizarTexto(input.Comentario),
		SolicitarAuditoria: input.SolicitarAuditoria,
		Detalles:           ensureJSONMap(input.Detalles),
		Metadata:           ensureJSONMap(input.Metadata),
		Documentos:         input.Documentos,
		Historial: []models.CambioCalificacion{{
			Timestamp:      ahora,
			ModificadoPor:  actor.Usuario,
			Cambios:        map[string]interface{}{"evento": "Creación"},
			EstadoAnterior: estadoInicial,
		}},
		HistorialEstados: []models.TransicionEstado{{
			Estado:     estadoInicial,
			Usuario:    actor.Usuario,
			Timestamp:  ahora,
			Comentario: "Creación",
		}},
	}

	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := s.Store.Crear(tx, calificacion); err != nil {
			return err
		}
		if err := RegistrarAuditoria(tx, actor, models.AccionCreate, "Calificacion", calificacion.ID,
			fmt.Sprintf("Calificación creada para RUT %s en estado %s", calificacion.Rut, calificacion.Estado),
			map[string]interface{}{"registro_id": calificacion.RegistroID, "estado": string(calificacion.Estado)}); err != nil {
			return err
		}
		if input.SolicitarAuditoria {
			return RegistrarAuditoria(tx, actor, models.AccionResolucion, "Calificacion", calificacion.ID,
				fmt.Sprintf("Auditoría solicitada para calificación de RUT %s", calificacion.Rut), nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notificarCreacion(conn, calificacion)
	return calificacion, nil
}

// Obtener fetches one calificación; corredores only see their own
func (s *CalificacionService) Obtener(conn *gorm.DB, actor AuthContext, id string) (*models.Calificacion, error) {
	calificacion, err := s.Store.Obtener(conn, id)
	if err != nil {
		return nil, err
	}
	if !actor.Puede(PermisoVerTodosRegistros) && calificacion.UsuarioID != actor.ActorID {
		return nil, permisoDenegado("no puede ver calificaciones de otros usuarios")
	}
	return calificacion, nil
}

// Listar returns calificaciones visible to the actor. Corredores are
// always scoped to their own regardless of the filter.
func (s *CalificacionService) Listar(conn *gorm.DB, actor AuthContext, filtros FiltrosCalificacion) ([]models.Calificacion, error) {
	if !actor.Puede(PermisoVerTodosRegistros) {
		filtros.UsuarioID = actor.ActorID
	}
	return s.Store.Listar(conn, filtros)
}

// Pendientes returns the review queue, oldest submissions included
func (s *CalificacionService) Pendientes(conn *gorm.DB, actor AuthContext) ([]models.Calificacion, error) {
	if err := AutorizarActor(actor, PermisoResolverCalificacion); err != nil {
		return nil, err
	}
	return s.Store.Listar(conn, FiltrosCalificacion{Estado: models.EstadoPendiente})
}

// camposEditables are the fields Actualizar accepts in its patch
var camposEditables = map[string]bool{
	"tipo_certificado": true,
	"rut":              true,
	"periodo":          true,
	"monto":            true,
	"comentario":       true,
	"detalles":         true,
	"metadata":         true,
	"documentos":       true,
}

// Actualizar applies a partial update to an editable calificación. Edits
// are rejected while the record is under review or resolved. Every
// applied change lands in the embedded historial with old and new values,
// plus one UPDATE audit entry, atomically.
func (s *CalificacionService) Actualizar(conn *gorm.DB, actor AuthContext, id string, patch map[string]interface{}) (*models.Calificacion, error) {
	if err := AutorizarActor(actor, PermisoEditarCalificacion); err != nil {
		return nil, err
	}

	calificacion, err := s.Store.Obtener(conn, id)
	if err != nil {
		return nil, err
	}
	if !actor.Puede(PermisoVerTodosRegistros) && calificacion.UsuarioID != actor.ActorID {
		return nil, permisoDenegado("no puede editar calificaciones de otros usuarios")
	}
	if estadosBloqueados[calificacion.Estado] {
		return nil, conflicto("no se puede editar una calificación en estado %s", calificacion.Estado)
	}

	cambios := map[string]interface{}{}
	estadoAnterior := calificacion.Estado

	for campo, valor := range patch {
		if !camposEditables[campo] {
			continue
		}
		switch campo {
		case "tipo_certificado":
			if v, ok := valor.(string); ok && v != calificacion.TipoCertificado {
				cambios[campo] = map[string]interface{}{"antes": calificacion.TipoCertificado, "despues": v}
				calificacion.TipoCertificado = v
			}
		case "rut":
			if v, ok := valor.(string); ok && v != calificacion.Rut {
				cambios[campo] = map[string]interface{}{"antes": calificacion.Rut, "despues": v}
				calificacion.Rut = v
			}
		case "periodo":
			if v, ok := valor.(string); ok && v != calificacion.Periodo {
				cambios[campo] = map[string]interface{}{"antes": calificacion.Periodo, "despues": v}
				calificacion.Periodo = v
			}
		case "monto":
			if v, ok := aFloat(valor); ok && v != calificacion.Monto {
				cambios[campo] = map[string]interface{}{"antes": calificacion.Monto, "despues": v}
				calificacion.Monto = v
			}
		case "comentario":
			if v, ok := valor.(string); ok {
				limpio := SanitizarTexto(v)
				if limpio != calificacion.Comentario {
					cambios[campo] = map[string]interface{}{"antes": calificacion.Comentario, "despues": limpio}
					calificacion.Comentario = limpio
				}
			}
		case "detalles":
			if v, ok := valor.(map[string]interface{}); ok {
				calificacion.Detalles = ensureJSONMap(calificacion.Detalles)
				for k, nuevo := range v {
					calificacion.Detalles[k] = nuevo
				}
				cambios[campo] = map[string]interface{}{"campos": clavesDe(v)}
			}
		case "metadata":
			if v, ok := valor.(map[string]interface{}); ok {
				calificacion.Metadata = ensureJSONMap(calificacion.Metadata)
				for k, nuevo := range v {
					calificacion.Metadata[k] = nuevo
				}
				cambios[campo] = map[string]interface{}{"campos": clavesDe(v)}
			}
		case "documentos":
			if v, ok := aSliceString(valor); ok {
				cambios[campo] = map[string]interface{}{"total": len(v)}
				calificacion.Documentos = v
			}
		}
	}

	if len(cambios) == 0 {
		return calificacion, nil
	}

	cambio := models.CambioCalificacion{
		Timestamp:      time.Now(),
		ModificadoPor:  actor.Usuario,
		Cambios:        cambios,
		EstadoAnterior: estadoAnterior,
	}
	calificacion.Historial = append(calificacion.Historial, cambio)

	err = conn.Transaction(func(tx *gorm.DB) error {
		if err := s.Store.Actualizar(tx, calificacion, cambio); err != nil {
			return err
		}
		return RegistrarAuditoria(tx, actor, models.AccionUpdate, "Calificacion", calificacion.ID,
			fmt.Sprintf("Calificación actualizada (%d campos)", len(cambios)),
			map[string]interface{}{"cambios": cambios})
	})
	if err != nil {
		return nil, err
	}
	return calificacion, nil
}

// Transicionar moves a calificación along one edge of the state machine.
// Submission (→PENDIENTE) and withdrawal back to BORRADOR belong to the
// record owner; resolutions (APROBADA/OBSERVADA/RECHAZADA) require the
// resolver capability. The transition entry, the estado change and one
// audit entry commit atomically; the resolution email goes out after.
func (s *CalificacionService) Transicionar(conn *gorm.DB, actor AuthContext, id string, destino models.EstadoCalificacion, comentario string) (*models.Calificacion, error) {
	calificacion, err := s.Store.Obtener(conn, id)
	if err != nil {
		return nil, err
	}

	if err := ValidarTransicion(calificacion.Estado, destino); err != nil {
		return nil, err
	}

	esResolucion := destino == models.EstadoAprobada || destino == models.EstadoObservada || destino == models.EstadoRechazada
	if esResolucion {
		if err := AutorizarActor(actor, PermisoResolverCalificacion); err != nil {
			return nil, err
		}
	} else {
		if err := AutorizarActor(actor, PermisoEnviarValidacion); err != nil {
			return nil, err
		}
		if !actor.Puede(PermisoVerTodosRegistros) && calificacion.UsuarioID != actor.ActorID {
			return nil, permisoDenegado("no puede enviar calificaciones de otros usuarios")
		}
	}

	comentario = SanitizarTexto(comentario)
	transicion := models.TransicionEstado{
		Estado:     destino,
		Usuario:    actor.Usuario,
		Timestamp:  time.Now(),
		Comentario: comentario,
	}

	estadoAnterior := calificacion.Estado
	calificacion.Estado = destino
	if comentario != "" {
		calificacion.Comentario = comentario
	}
	calificacion.HistorialEstados = append(calificacion.HistorialEstados, transicion)

	accion := models.AccionEstadoCambio
	if esResolucion {
		accion = models.AccionResolucion
	}

	err = conn.Transaction(func(tx *gorm.DB) error {
		if err := s.Store.Transicionar(tx, calificacion, transicion); err != nil {
			return err
		}
		return RegistrarAuditoria(tx, actor, accion, "Calificacion", calificacion.ID,
			fmt.Sprintf("Transición %s -> %s", estadoAnterior, destino),
			map[string]interface{}{
				"estado_anterior": string(estadoAnterior),
				"estado_nuevo":    string(destino),
				"comentario":      comentario,
			})
	})
	if err != nil {
		return nil, err
	}

	if esResolucion {
		s.notificarResolucion(conn, calificacion, comentario)
	}
	return calificacion, nil
}

// Estadisticas aggregates calificaciones per estado: count and total
// monto. Privileged roles see the global numbers; corredores get their
// own dashboard, scoped to their calificaciones.
func (s *CalificacionService) Estadisticas(conn *gorm.DB, actor AuthContext) ([]EstadisticaEstado, error) {
	if actor.Puede(PermisoVerTodosRegistros) {
		return s.Store.ContarPorEstado(conn, "")
	}
	if err := AutorizarActor(actor, PermisoVerRegistroPropio); err != nil {
		return nil, err
	}
	return s.Store.ContarPorEstado(conn, actor.ActorID)
}

func (s *CalificacionService) notificarCreacion(conn *gorm.DB, c *models.Calificacion) {
	var propietario models.Usuario
	if err := conn.First(&propietario, "id = ?", c.UsuarioID).Error; err != nil {
		return
	}

	ctx := map[string]string{
		"nombre":           propietario.Nombre,
		"rut":              c.Rut,
		"tipo_certificado": c.TipoCertificado,
		"estado":           string(c.Estado),
	}
	if c.SolicitarAuditoria {
		ctx["solicitar_auditoria"] = "true"
	}
	s.Notificar.Enviar(PlantillaCalificacionCreada, propietario.Email, ctx)

	if c.SolicitarAuditoria {
		s.Notificar.Enviar(PlantillaAuditoriaSolicitada, propietario.Email, map[string]string{
			"nombre":          propietario.Nombre,
			"rut":             c.Rut,
			"calificacion_id": c.ID,
		})
	}
}

func (s *CalificacionService) notificarResolucion(conn *gorm.DB, c *models.Calificacion, comentario string) {
	var propietario models.Usuario
	if err := conn.First(&propietario, "id = ?", c.UsuarioID).Error; err != nil {
		return
	}
	s.Notificar.Enviar(PlantillaCalificacionResuelta, propietario.Email, map[string]string{
		"nombre":      propietario.Nombre,
		"rut":         c.Rut,
		"estado":      string(c.Estado),
		"comentarios": comentario,
	})
}

func aFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func aSliceString(v interface{}) ([]string, bool) {
	switch lista := v.(type) {
	case []string:
		return lista, true
	case []interface{}:
		out := make([]string, 0, len(lista))
		for _, item := range lista {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

func clavesDe(m map[string]interface{}) []string {
	claves := make([]string, 0, len(m))
	for k := range m {
		claves = append(claves, k)
	}
	return claves
}
