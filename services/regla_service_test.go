package services

import (
	"testing"

	"tax_flow_app_go/models"

	"github.com/stretchr/testify/assert"
)

func punteroStr(s string) *string { return &s }

func TestCrearReglaVersionInicial(t *testing.T) {
	conn := setupTestDB(t)
	ti := crearUsuarioPrueba(t, conn, models.RolTI, false)

	regla, err := CrearRegla(conn, actorDe(ti), CrearReglaInput{
		Nombre:    "Monto máximo",
		Condicion: "monto > 1000000",
		Accion:    "requiere_auditoria",
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, regla.Version)
	assert.Equal(t, models.ReglaRevision, regla.Estado)
	assert.Equal(t, ti.ID, regla.CreadoPorID)

	var snapshots []models.HistorialReglaNegocio
	conn.Where("regla_id = ?", regla.ID).Find(&snapshots)
	assert.Len(t, snapshots, 1)
	assert.Equal(t, "Versión inicial", snapshots[0].Comentario)
	assert.Equal(t, 1, snapshots[0].Version)

	assert.EqualValues(t, 1, contarAuditorias(conn, "ReglaNegocio", regla.ID))
}

func TestCrearReglaRequiereGestion(t *testing.T) {
	conn := setupTestDB(t)
	auditor := crearUsuarioPrueba(t, conn, models.RolAuditor, false)

	_, err := CrearRegla(conn, actorDe(auditor), CrearReglaInput{
		Nombre: "x", Condicion: "c", Accion: "a",
	})
	assert.ErrorIs(t, err, ErrPermisoDenegado)
}

func TestActualizarReglaIncrementaSoloConCambioDeContenido(t *testing.T) {
	conn := setupTestDB(t)
	ti := crearUsuarioPrueba(t, conn, models.RolTI, false)

	regla, err := CrearRegla(conn, actorDe(ti), CrearReglaInput{
		Nombre: "Regla", Condicion: "monto > 100", Accion: "alertar",
	})
	assert.NoError(t, err)

	// Metadata-only edit: snapshot taken, version unchanged
	regla, err = ActualizarRegla(conn, actorDe(ti), regla.ID, ActualizarReglaInput{
		Descripcion: punteroStr("descripción nueva"),
		Estado:      punteroStr(models.ReglaActiva),
	}, "")
	assert.NoError(t, err)
	assert.Equal(t, 1, regla.Version)
	assert.Equal(t, models.ReglaActiva, regla.Estado)

	// Content edit: version increments
	regla, err = ActualizarRegla(conn, actorDe(ti), regla.ID, ActualizarReglaInput{
		Condicion: punteroStr("monto > 500"),
	}, "ajuste de umbral")
	assert.NoError(t, err)
	assert.Equal(t, 2, regla.Version)

	// Identical content does not bump the version
	regla, err = ActualizarRegla(conn, actorDe(ti), regla.ID, ActualizarReglaInput{
		Condicion: punteroStr("monto > 500"),
	}, "")
	assert.NoError(t, err)
	assert.Equal(t, 2, regla.Version)
}

func TestActualizarReglaNoReasignaAutor(t *testing.T) {
	conn := setupTestDB(t)
	creador := crearUsuarioPrueba(t, conn, models.RolTI, false)
	otro := crearUsuarioPrueba(t, conn, models.RolTI, false)

	regla, err := CrearRegla(conn, actorDe(creador), CrearReglaInput{
		Nombre: "Regla", Condicion: "c", Accion: "a",
	})
	assert.NoError(t, err)

	regla, err = ActualizarRegla(conn, actorDe(otro), regla.ID, ActualizarReglaInput{
		Accion: punteroStr("otra acción"),
	}, "")
	assert.NoError(t, err)
	assert.Equal(t, creador.ID, regla.CreadoPorID)

	// The snapshot records who made the change
	var ultimo models.HistorialReglaNegocio
	assert.NoError(t, conn.Where("regla_id = ? AND comentario = ?", regla.ID, "Actualización de v1").First(&ultimo).Error)
	assert.Equal(t, otro.Username, ultimo.ModificadoPor)
}

func TestRollbackEscenarioCompleto(t *testing.T) {
	conn := setupTestDB(t)
	ti := crearUsuarioPrueba(t, conn, models.RolTI, false)

	// v1 -> v2 -> v3, then roll back to v1
	regla, err := CrearRegla(conn, actorDe(ti), CrearReglaInput{
		Nombre: "Umbral", Condicion: "monto > 100", Accion: "alertar",
	})
	assert.NoError(t, err)

	regla, err = ActualizarRegla(conn, actorDe(ti), regla.ID, ActualizarReglaInput{
		Condicion: punteroStr("monto > 200"),
	}, "")
	assert.NoError(t, err)
	assert.Equal(t, 2, regla.Version)

	regla, err = ActualizarRegla(conn, actorDe(ti), regla.ID, ActualizarReglaInput{
		Condicion: punteroStr("monto > 300"),
	}, "")
	assert.NoError(t, err)
	assert.Equal(t, 3, regla.Version)

	regla, err = RollbackRegla(conn, actorDe(ti), regla.ID, 1, "volver al umbral original")
	assert.NoError(t, err)

	// Rollback restores v1 content at a new version
	assert.Equal(t, 4, regla.Version)
	assert.Equal(t, "monto > 100", regla.Condicion)
	assert.Equal(t, "alertar", regla.Accion)

	// Five snapshots: initial, pre-v2, pre-v3, pre-rollback, post-rollback
	var snapshots []models.HistorialReglaNegocio
	conn.Where("regla_id = ?", regla.ID).Find(&snapshots)
	assert.Len(t, snapshots, 5)

	var ultimo models.HistorialReglaNegocio
	assert.NoError(t, conn.Where("regla_id = ? AND version = ?", regla.ID, 4).First(&ultimo).Error)
	assert.Contains(t, ultimo.Comentario, "Rollback desde v1")
	assert.Contains(t, ultimo.Comentario, "volver al umbral original")
}

func TestRollbackVersionInexistente(t *testing.T) {
	conn := setupTestDB(t)
	ti := crearUsuarioPrueba(t, conn, models.RolTI, false)

	regla, err := CrearRegla(conn, actorDe(ti), CrearReglaInput{
		Nombre: "Regla", Condicion: "c", Accion: "a",
	})
	assert.NoError(t, err)

	_, err = RollbackRegla(conn, actorDe(ti), regla.ID, 7, "")
	assert.ErrorIs(t, err, ErrNoEncontrado)

	// Nothing changed: no extra snapshots, version intact
	var snapshots int64
	conn.Model(&models.HistorialReglaNegocio{}).Where("regla_id = ?", regla.ID).Count(&snapshots)
	assert.EqualValues(t, 1, snapshots)
}

func TestCompararVersiones(t *testing.T) {
	conn := setupTestDB(t)
	ti := crearUsuarioPrueba(t, conn, models.RolTI, false)

	regla, err := CrearRegla(conn, actorDe(ti), CrearReglaInput{
		Nombre: "Regla", Condicion: "monto > 100", Accion: "alertar",
	})
	assert.NoError(t, err)

	_, err = ActualizarRegla(conn, actorDe(ti), regla.ID, ActualizarReglaInput{
		Condicion: punteroStr("monto > 200"),
	}, "")
	assert.NoError(t, err)

	// Snapshot of v2 only exists after the next mutation captures it
	_, err = ActualizarRegla(conn, actorDe(ti), regla.ID, ActualizarReglaInput{
		Accion: punteroStr("bloquear"),
	}, "")
	assert.NoError(t, err)

	comp, err := CompararVersiones(conn, actorDe(ti), regla.ID, 1, 2)
	assert.NoError(t, err)
	assert.True(t, comp.Diferente.Condicion)
	assert.False(t, comp.Diferente.Accion)
	assert.False(t, comp.Diferente.Nombre)

	// A version compared against itself shows no differences
	mismo, err := CompararVersiones(conn, actorDe(ti), regla.ID, 1, 1)
	assert.NoError(t, err)
	assert.False(t, mismo.Diferente.Nombre)
	assert.False(t, mismo.Diferente.Descripcion)
	assert.False(t, mismo.Diferente.Condicion)
	assert.False(t, mismo.Diferente.Accion)

	_, err = CompararVersiones(conn, actorDe(ti), regla.ID, 1, 99)
	assert.ErrorIs(t, err, ErrNoEncontrado)
}

func TestHistorialReglaOrden(t *testing.T) {
	conn := setupTestDB(t)
	ti := crearUsuarioPrueba(t, conn, models.RolTI, false)
	auditor := crearUsuarioPrueba(t, conn, models.RolAuditor, false)

	regla, err := CrearRegla(conn, actorDe(ti), CrearReglaInput{
		Nombre: "Regla", Condicion: "c1", Accion: "a",
	})
	assert.NoError(t, err)

	_, err = ActualizarRegla(conn, actorDe(ti), regla.ID, ActualizarReglaInput{
		Condicion: punteroStr("c2"),
	}, "")
	assert.NoError(t, err)

	// Auditors can read the history but not mutate rules
	snapshots, err := HistorialRegla(conn, actorDe(auditor), regla.ID)
	assert.NoError(t, err)
	assert.Len(t, snapshots, 2)
	assert.GreaterOrEqual(t, snapshots[0].Version, snapshots[1].Version)

	_, err = ActualizarRegla(conn, actorDe(auditor), regla.ID, ActualizarReglaInput{
		Condicion: punteroStr("c3"),
	}, "")
	assert.ErrorIs(t, err, ErrPermisoDenegado)
}

func TestEliminarRegla(t *testing.T) {
	conn := setupTestDB(t)
	ti := crearUsuarioPrueba(t, conn, models.RolTI, false)

	regla, err := CrearRegla(conn, actorDe(ti), CrearReglaInput{
		Nombre: "Efímera", Condicion: "c", Accion: "a",
	})
	assert.NoError(t, err)

	assert.NoError(t, EliminarRegla(conn, actorDe(ti), regla.ID))

	_, err = ObtenerRegla(conn, actorDe(ti), regla.ID)
	assert.ErrorIs(t, err, ErrNoEncontrado)

	var snapshots int64
	conn.Model(&models.HistorialReglaNegocio{}).Where("regla_id = ?", regla.ID).Count(&snapshots)
	assert.Zero(t, snapshots)

	// The audit trail keeps CREATE and DELETE
	assert.EqualValues(t, 2, contarAuditorias(conn, "ReglaNegocio", regla.ID))
}
