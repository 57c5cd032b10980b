package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"tax_flow_app_go/config"
	"tax_flow_app_go/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FiltrosCalificacion narrows calificación listings
type FiltrosCalificacion struct {
	UsuarioID  string
	RegistroID string
	Rut        string
	Estado     models.EstadoCalificacion
}

// EstadisticaEstado is one aggregation bucket: count and accumulated
// monto per workflow state.
type EstadisticaEstado struct {
	Estado models.EstadoCalificacion `json:"estado"`
	Total  int64                     `json:"total"`
	Monto  float64                   `json:"monto_total"`
}

// CalificacionStore abstracts how calificaciones are persisted. The
// workflow engine only ever sees the canonical document shape; adapters
// translate. All methods run on the handle they are given so callers can
// pass a transaction.
type CalificacionStore interface {
	Crear(tx *gorm.DB, c *models.Calificacion) error
	Obtener(tx *gorm.DB, id string) (*models.Calificacion, error)
	// Actualizar persists the current scalar fields plus the one change
	// entry the caller just appended to c.Historial.
	Actualizar(tx *gorm.DB, c *models.Calificacion, cambio models.CambioCalificacion) error
	// Transicionar persists the new estado plus the transition entry the
	// caller just appended to c.HistorialEstados.
	Transicionar(tx *gorm.DB, c *models.Calificacion, transicion models.TransicionEstado) error
	Listar(tx *gorm.DB, filtros FiltrosCalificacion) ([]models.Calificacion, error)
	// ContarPorEstado aggregates per estado; an empty usuarioID means global.
	ContarPorEstado(tx *gorm.DB, usuarioID string) ([]EstadisticaEstado, error)
}

// NewCalificacionStore selects the adapter named in configuration
func NewCalificacionStore(cfg *config.Config) CalificacionStore {
	if cfg.CalificacionStore == config.StoreRelational {
		return &RelationalCalificacionStore{}
	}
	return &DocumentCalificacionStore{}
}

// DocumentCalificacionStore persists the canonical shape directly: one
// row per calificación with history embedded as JSON columns.
type DocumentCalificacionStore struct{}

func (s *DocumentCalificacionStore) Crear(tx *gorm.DB, c *models.Calificacion) error {
	return tx.Create(c).Error
}

func (s *DocumentCalificacionStore) Obtener(tx *gorm.DB, id string) (*models.Calificacion, error) {
	var c models.Calificacion
	if err := tx.First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, noEncontrado("calificación %s no existe", id)
		}
		return nil, err
	}
	return &c, nil
}

func (s *DocumentCalificacionStore) Actualizar(tx *gorm.DB, c *models.Calificacion, _ models.CambioCalificacion) error {
	return tx.Save(c).Error
}

func (s *DocumentCalificacionStore) Transicionar(tx *gorm.DB, c *models.Calificacion, _ models.TransicionEstado) error {
	return tx.Save(c).Error
}

func (s *DocumentCalificacionStore) Listar(tx *gorm.DB, filtros FiltrosCalificacion) ([]models.Calificacion, error) {
	var calificaciones []models.Calificacion
	err := aplicarFiltros(tx.Model(&models.Calificacion{}), filtros).
		Order("fecha_creacion DESC").
		Find(&calificaciones).Error
	return calificaciones, err
}

func (s *DocumentCalificacionStore) ContarPorEstado(tx *gorm.DB, usuarioID string) ([]EstadisticaEstado, error) {
	query := tx.Model(&models.Calificacion{})
	if usuarioID != "" {
		query = query.Where("usuario_id = ?", usuarioID)
	}
	var stats []EstadisticaEstado
	err := query.
		Select("estado, COUNT(*) as total, COALESCE(SUM(monto), 0) as monto").
		Group("estado").
		Scan(&stats).Error
	return stats, err
}

func aplicarFiltros(query *gorm.DB, filtros FiltrosCalificacion) *gorm.DB {
	if filtros.UsuarioID != "" {
		query = query.Where("usuario_id = ?", filtros.UsuarioID)
	}
	if filtros.RegistroID != "" {
		query = query.Where("registro_id = ?", filtros.RegistroID)
	}
	if filtros.Rut != "" {
		query = query.Where("rut = ?", filtros.Rut)
	}
	if filtros.Estado != "" {
		query = query.Where("estado = ?", filtros.Estado)
	}
	return query
}

// RelationalCalificacionStore persists calificaciones normalized: scalar
// columns on the main table, one side-table row per state transition and
// per field change. Reads reassemble the canonical document shape.
type RelationalCalificacionStore struct{}

func (s *RelationalCalificacionStore) Crear(tx *gorm.DB, c *models.Calificacion) error {
	fila, err := aRelacional(c)
	if err != nil {
		return err
	}
	if err := tx.Create(fila).Error; err != nil {
		return err
	}
	c.ID = fila.ID

	for _, t := range c.HistorialEstados {
		if err := tx.Create(&models.CalificacionEstadoLog{
			CalificacionID: c.ID,
			Estado:         t.Estado,
			Actor:          t.Usuario,
			Comentario:     t.Comentario,
			CreatedAt:      t.Timestamp,
		}).Error; err != nil {
			return err
		}
	}
	for _, h := range c.Historial {
		if err := s.crearCambioLog(tx, c.ID, h); err != nil {
			return err
		}
	}
	return nil
}

func (s *RelationalCalificacionStore) Obtener(tx *gorm.DB, id string) (*models.Calificacion, error) {
	var fila models.CalificacionRelacional
	if err := tx.First(&fila, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, noEncontrado("calificación %s no existe", id)
		}
		return nil, err
	}
	return s.ensamblar(tx, &fila)
}

func (s *RelationalCalificacionStore) Actualizar(tx *gorm.DB, c *models.Calificacion, cambio models.CambioCalificacion) error {
	fila, err := aRelacional(c)
	if err != nil {
		return err
	}
	if err := tx.Model(&models.CalificacionRelacional{}).
		Where("id = ?", c.ID).
		Updates(map[string]interface{}{
			"tipo_certificado": fila.TipoCertificado,
			"rut":              fila.Rut,
			"periodo":          fila.Periodo,
			"monto":            fila.Monto,
			"comentario":       fila.Comentario,
			"detalles_json":    fila.DetallesJSON,
			"metadata_json":    fila.MetadataJSON,
			"documentos_json":  fila.DocumentosJSON,
		}).Error; err != nil {
		return err
	}
	return s.crearCambioLog(tx, c.ID, cambio)
}

func (s *RelationalCalificacionStore) Transicionar(tx *gorm.DB, c *models.Calificacion, transicion models.TransicionEstado) error {
	if err := tx.Model(&models.CalificacionRelacional{}).
		Where("id = ?", c.ID).
		Updates(map[string]interface{}{
			"estado":     c.Estado,
			"comentario": c.Comentario,
		}).Error; err != nil {
		return err
	}
	return tx.Create(&models.CalificacionEstadoLog{
		CalificacionID: c.ID,
		Estado:         transicion.Estado,
		Actor:          transicion.Usuario,
		Comentario:     transicion.Comentario,
		CreatedAt:      transicion.Timestamp,
	}).Error
}

func (s *RelationalCalificacionStore) Listar(tx *gorm.DB, filtros FiltrosCalificacion) ([]models.Calificacion, error) {
	var filas []models.CalificacionRelacional
	err := aplicarFiltros(tx.Model(&models.CalificacionRelacional{}), filtros).
		Order("created_at DESC").
		Find(&filas).Error
	if err != nil {
		return nil, err
	}

	calificaciones := make([]models.Calificacion, 0, len(filas))
	for i := range filas {
		c, err := s.ensamblar(tx, &filas[i])
		if err != nil {
			return nil, err
		}
		calificaciones = append(calificaciones, *c)
	}
	return calificaciones, nil
}

func (s *RelationalCalificacionStore) ContarPorEstado(tx *gorm.DB, usuarioID string) ([]EstadisticaEstado, error) {
	query := tx.Model(&models.CalificacionRelacional{})
	if usuarioID != "" {
		query = query.Where("usuario_id = ?", usuarioID)
	}
	var stats []EstadisticaEstado
	err := query.
		Select("estado, COUNT(*) as total, COALESCE(SUM(monto), 0) as monto").
		Group("estado").
		Scan(&stats).Error
	return stats, err
}

func (s *RelationalCalificacionStore) crearCambioLog(tx *gorm.DB, calificacionID string, cambio models.CambioCalificacion) error {
	cambiosJSON, err := json.Marshal(cambio.Cambios)
	if err != nil {
		return fmt.Errorf("failed to serialize change set: %w", err)
	}
	return tx.Create(&models.CalificacionCambioLog{
		CalificacionID: calificacionID,
		ModificadoPor:  cambio.ModificadoPor,
		EstadoAnterior: cambio.EstadoAnterior,
		CambiosJSON:    string(cambiosJSON),
		CreatedAt:      cambio.Timestamp,
	}).Error
}

// ensamblar rebuilds the canonical document shape from the normalized rows
func (s *RelationalCalificacionStore) ensamblar(tx *gorm.DB, fila *models.CalificacionRelacional) (*models.Calificacion, error) {
	c := &models.Calificacion{
		ID:                 fila.ID,
		RegistroID:         fila.RegistroID,
		UsuarioID:          fila.UsuarioID,
		CreadoPorID:        fila.CreadoPorID,
		Estado:             fila.Estado,
		TipoCertificado:    fila.TipoCertificado,
		Rut:                fila.Rut,
		Periodo:            fila.Periodo,
		Monto:              fila.Monto,
		Comentario:         fila.Comentario,
		SolicitarAuditoria: fila.SolicitarAuditoria,
		FechaCreacion:      fila.CreatedAt,
		FechaActualizacion: fila.UpdatedAt,
	}

	if err := desdeJSON(fila.DetallesJSON, &c.Detalles); err != nil {
		return nil, err
	}
	if err := desdeJSON(fila.MetadataJSON, &c.Metadata); err != nil {
		return nil, err
	}
	if err := desdeJSON(fila.DocumentosJSON, &c.Documentos); err != nil {
		return nil, err
	}

	var estados []models.CalificacionEstadoLog
	if err := tx.Where("calificacion_id = ?", fila.ID).
		Order("created_at ASC").
		Find(&estados).Error; err != nil {
		return nil, err
	}
	for _, e := range estados {
		c.HistorialEstados = append(c.HistorialEstados, models.TransicionEstado{
			Estado:     e.Estado,
			Usuario:    e.Actor,
			Timestamp:  e.CreatedAt,
			Comentario: e.Comentario,
		})
	}

	var cambios []models.CalificacionCambioLog
	if err := tx.Where("calificacion_id = ?", fila.ID).
		Order("created_at ASC").
		Find(&cambios).Error; err != nil {
		return nil, err
	}
	for _, cl := range cambios {
		entrada := models.CambioCalificacion{
			Timestamp:      cl.CreatedAt,
			ModificadoPor:  cl.ModificadoPor,
			EstadoAnterior: cl.EstadoAnterior,
		}
		if err := desdeJSON(cl.CambiosJSON, &entrada.Cambios); err != nil {
			return nil, err
		}
		c.Historial = append(c.Historial, entrada)
	}

	return c, nil
}

// aRelacional maps the canonical shape onto the normalized main row
func aRelacional(c *models.Calificacion) (*models.CalificacionRelacional, error) {
	detalles, err := aJSON(map[string]interface{}(c.Detalles))
	if err != nil {
		return nil, err
	}
	metadata, err := aJSON(map[string]interface{}(c.Metadata))
	if err != nil {
		return nil, err
	}
	documentos, err := aJSON([]string(c.Documentos))
	if err != nil {
		return nil, err
	}

	return &models.CalificacionRelacional{
		ID:                 c.ID,
		RegistroID:         c.RegistroID,
		UsuarioID:          c.UsuarioID,
		CreadoPorID:        c.CreadoPorID,
		Estado:             c.Estado,
		TipoCertificado:    c.TipoCertificado,
		Rut:                c.Rut,
		Periodo:            c.Periodo,
		Monto:              c.Monto,
		Comentario:         c.Comentario,
		SolicitarAuditoria: c.SolicitarAuditoria,
		DetallesJSON:       detalles,
		MetadataJSON:       metadata,
		DocumentosJSON:     documentos,
	}, nil
}

func aJSON(v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to serialize payload: %w", err)
	}
	return string(data), nil
}

func desdeJSON(data string, dest interface{}) error {
	if data == "" || data == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("failed to parse stored payload: %w", err)
	}
	return nil
}

// ensureJSONMap keeps flexible payloads non-nil so merges never hit a nil map
func ensureJSONMap(m datatypes.JSONMap) datatypes.JSONMap {
	if m == nil {
		return datatypes.JSONMap{}
	}
	return m
}
