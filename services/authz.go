package services

import (
	"tax_flow_app_go/models"
)

// Permiso is a named capability from the RBAC matrix
type Permiso string

const (
	PermisoVerRegistroPropio    Permiso = "ver_registro_propio"
	PermisoVerTodosRegistros    Permiso = "ver_todos_registros"
	PermisoCrearRegistro        Permiso = "crear_registro"
	PermisoEditarRegistro       Permiso = "editar_registro"
	PermisoCrearCalificacion    Permiso = "crear_calificacion"
	PermisoEditarCalificacion   Permiso = "editar_calificacion"
	PermisoEnviarValidacion     Permiso = "enviar_validacion"
	PermisoResolverCalificacion Permiso = "resolver_calificacion"
	PermisoVerReglas            Permiso = "ver_reglas"
	PermisoGestionarReglas      Permiso = "gestionar_reglas"
	PermisoVerAuditoria         Permiso = "ver_auditoria"
)

// matrizPermisos maps each capability to the profile roles that hold it.
// The superuser bypass is handled in AuthContext.Puede, not here.
var matrizPermisos = map[Permiso][]string{
	PermisoVerRegistroPropio:    {models.RolCorredor, models.RolAnalista, models.RolAuditor, models.RolTI},
	PermisoVerTodosRegistros:    {models.RolAnalista, models.RolAuditor, models.RolTI},
	PermisoCrearRegistro:        {models.RolAnalista, models.RolTI},
	PermisoEditarRegistro:       {models.RolAnalista, models.RolTI},
	PermisoCrearCalificacion:    {models.RolCorredor, models.RolAnalista, models.RolTI},
	PermisoEditarCalificacion:   {models.RolCorredor, models.RolAnalista, models.RolTI},
	PermisoEnviarValidacion:     {models.RolCorredor, models.RolAnalista, models.RolTI},
	PermisoResolverCalificacion: {models.RolAuditor, models.RolTI},
	PermisoVerReglas:            {models.RolAuditor, models.RolTI},
	PermisoGestionarReglas:      {models.RolTI},
	PermisoVerAuditoria:         {models.RolAuditor, models.RolTI},
}

// AuthContext is the authenticated actor every operation receives. It is
// built once at the request boundary (middleware) from the session; core
// services never look up roles themselves.
type AuthContext struct {
	ActorID      string
	Usuario      string // username, denormalized into historial/audit rows
	Rol          string
	EsSuperadmin bool
	IPAddress    string
}

// Puede reports whether the actor holds the capability. Superusers pass
// every check.
func (a AuthContext) Puede(permiso Permiso) bool {
	if a.EsSuperadmin {
		return true
	}
	for _, rol := range matrizPermisos[permiso] {
		if a.Rol == rol {
			return true
		}
	}
	return false
}

// RolAuditoria is the role string recorded on Auditoria rows. Superuser
// actions are always stamped SUPERADMIN, never the profile role.
func (a AuthContext) RolAuditoria() string {
	if a.EsSuperadmin {
		return models.RolSuperadmin
	}
	return a.Rol
}

// AutorizarActor returns ErrPermisoDenegado unless the actor holds the
// capability.
func AutorizarActor(actor AuthContext, permiso Permiso) error {
	if !actor.Puede(permiso) {
		return permisoDenegado("el rol %s no puede ejecutar %s", actor.Rol, permiso)
	}
	return nil
}

// AuthContextDe builds the AuthContext for a user record
func AuthContextDe(u *models.Usuario, ip string) AuthContext {
	return AuthContext{
		ActorID:      u.ID,
		Usuario:      u.Username,
		Rol:          u.Rol,
		EsSuperadmin: u.EsSuperadmin,
		IPAddress:    ip,
	}
}
