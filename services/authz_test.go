package services

import (
	"testing"

	"tax_flow_app_go/models"

	"github.com/stretchr/testify/assert"
)

func actorConRol(rol string) AuthContext {
	return AuthContext{ActorID: "actor-1", Usuario: "actor", Rol: rol}
}

func TestMatrizPermisosPorRol(t *testing.T) {
	casos := []struct {
		permiso Permiso
		con     []string
		sin     []string
	}{
		{PermisoVerRegistroPropio,
			[]string{models.RolCorredor, models.RolAnalista, models.RolAuditor, models.RolTI},
			nil},
		{PermisoVerTodosRegistros,
			[]string{models.RolAnalista, models.RolAuditor, models.RolTI},
			[]string{models.RolCorredor}},
		{PermisoCrearRegistro,
			[]string{models.RolAnalista, models.RolTI},
			[]string{models.RolCorredor, models.RolAuditor}},
		{PermisoEditarRegistro,
			[]string{models.RolAnalista, models.RolTI},
			[]string{models.RolCorredor, models.RolAuditor}},
		{PermisoCrearCalificacion,
			[]string{models.RolCorredor, models.RolAnalista, models.RolTI},
			[]string{models.RolAuditor}},
		{PermisoEditarCalificacion,
			[]string{models.RolCorredor, models.RolAnalista, models.RolTI},
			[]string{models.RolAuditor}},
		{PermisoEnviarValidacion,
			[]string{models.RolCorredor, models.RolAnalista, models.RolTI},
			[]string{models.RolAuditor}},
		{PermisoResolverCalificacion,
			[]string{models.RolAuditor, models.RolTI},
			[]string{models.RolCorredor, models.RolAnalista}},
		{PermisoVerReglas,
			[]string{models.RolAuditor, models.RolTI},
			[]string{models.RolCorredor, models.RolAnalista}},
		{PermisoGestionarReglas,
			[]string{models.RolTI},
			[]string{models.RolCorredor, models.RolAnalista, models.RolAuditor}},
		{PermisoVerAuditoria,
			[]string{models.RolAuditor, models.RolTI},
			[]string{models.RolCorredor, models.RolAnalista}},
	}

	for _, caso := range casos {
		for _, rol := range caso.con {
			assert.True(t, actorConRol(rol).Puede(caso.permiso), "%s debería tener %s", rol, caso.permiso)
		}
		for _, rol := range caso.sin {
			assert.False(t, actorConRol(rol).Puede(caso.permiso), "%s no debería tener %s", rol, caso.permiso)
		}
	}
}

func TestSuperadminPasaTodo(t *testing.T) {
	actor := AuthContext{ActorID: "root", Usuario: "root", Rol: models.RolCorredor, EsSuperadmin: true}

	for permiso := range matrizPermisos {
		assert.True(t, actor.Puede(permiso))
		assert.NoError(t, AutorizarActor(actor, permiso))
	}
}

func TestRolDesconocidoNoTienePermisos(t *testing.T) {
	actor := actorConRol("INVITADO")
	for permiso := range matrizPermisos {
		assert.False(t, actor.Puede(permiso))
	}
	assert.ErrorIs(t, AutorizarActor(actor, PermisoGestionarReglas), ErrPermisoDenegado)
}

func TestRolAuditoria(t *testing.T) {
	assert.Equal(t, models.RolAnalista, actorConRol(models.RolAnalista).RolAuditoria())

	superadmin := AuthContext{Rol: models.RolTI, EsSuperadmin: true}
	assert.Equal(t, models.RolSuperadmin, superadmin.RolAuditoria())
}

func TestAuthContextDe(t *testing.T) {
	usuario := &models.Usuario{
		ID:           "u-1",
		Username:     "maria",
		Rol:          models.RolAuditor,
		EsSuperadmin: false,
	}
	actor := AuthContextDe(usuario, "10.0.0.1")
	assert.Equal(t, "u-1", actor.ActorID)
	assert.Equal(t, "maria", actor.Usuario)
	assert.Equal(t, models.RolAuditor, actor.Rol)
	assert.Equal(t, "10.0.0.1", actor.IPAddress)
}
