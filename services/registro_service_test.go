package services

import (
	"mime/multipart"
	"testing"

	"tax_flow_app_go/models"

	"github.com/stretchr/testify/assert"
)

func TestCrearRegistro(t *testing.T) {
	conn := setupTestDB(t)
	analista := crearUsuarioPrueba(t, conn, models.RolAnalista, false)
	corredor := crearUsuarioPrueba(t, conn, models.RolCorredor, false)

	registro, err := CrearRegistro(conn, actorDe(analista), CrearRegistroInput{
		UsuarioID:   corredor.ID,
		Titulo:      "Declaración renta 2026",
		Descripcion: "<b>contribuyente</b> persona natural",
	})
	assert.NoError(t, err)
	assert.Equal(t, corredor.ID, registro.UsuarioID)
	assert.Equal(t, "contribuyente persona natural", registro.Descripcion)
	assert.EqualValues(t, 1, contarAuditorias(conn, "Registro", registro.ID))

	// Omitting the owner assigns the registro to the creator
	propio, err := CrearRegistro(conn, actorDe(analista), CrearRegistroInput{Titulo: "Propio"})
	assert.NoError(t, err)
	assert.Equal(t, analista.ID, propio.UsuarioID)

	_, err = CrearRegistro(conn, actorDe(analista), CrearRegistroInput{Titulo: "x", UsuarioID: "no-existe"})
	assert.ErrorIs(t, err, ErrNoEncontrado)

	_, err = CrearRegistro(conn, actorDe(analista), CrearRegistroInput{})
	assert.ErrorIs(t, err, ErrValidacion)

	_, err = CrearRegistro(conn, actorDe(corredor), CrearRegistroInput{Titulo: "x"})
	assert.ErrorIs(t, err, ErrPermisoDenegado)
}

func TestObtenerYListarRegistrosScope(t *testing.T) {
	conn := setupTestDB(t)
	analista := crearUsuarioPrueba(t, conn, models.RolAnalista, false)
	corredor := crearUsuarioPrueba(t, conn, models.RolCorredor, false)
	otro := crearUsuarioPrueba(t, conn, models.RolCorredor, false)

	propio := crearRegistroPrueba(t, conn, corredor)
	ajeno := crearRegistroPrueba(t, conn, otro)

	obtenido, err := ObtenerRegistro(conn, actorDe(corredor), propio.ID)
	assert.NoError(t, err)
	assert.Equal(t, corredor.ID, obtenido.Usuario.ID)

	_, err = ObtenerRegistro(conn, actorDe(corredor), ajeno.ID)
	assert.ErrorIs(t, err, ErrPermisoDenegado)

	_, err = ObtenerRegistro(conn, actorDe(analista), "no-existe")
	assert.ErrorIs(t, err, ErrNoEncontrado)

	propios, err := ListarRegistros(conn, actorDe(corredor), "")
	assert.NoError(t, err)
	assert.Len(t, propios, 1)

	todos, err := ListarRegistros(conn, actorDe(analista), "")
	assert.NoError(t, err)
	assert.Len(t, todos, 2)

	filtrados, err := ListarRegistros(conn, actorDe(analista), otro.ID)
	assert.NoError(t, err)
	assert.Len(t, filtrados, 1)
	assert.Equal(t, otro.ID, filtrados[0].UsuarioID)
}

func TestActualizarRegistro(t *testing.T) {
	conn := setupTestDB(t)
	analista := crearUsuarioPrueba(t, conn, models.RolAnalista, false)
	corredor := crearUsuarioPrueba(t, conn, models.RolCorredor, false)
	registro := crearRegistroPrueba(t, conn, corredor)

	actualizado, err := ActualizarRegistro(conn, actorDe(analista), registro.ID,
		punteroStr("Título nuevo"), punteroStr("descripción"))
	assert.NoError(t, err)
	assert.Equal(t, "Título nuevo", actualizado.Titulo)
	assert.EqualValues(t, 1, contarAuditorias(conn, "Registro", registro.ID))

	// A no-op edit leaves no audit trail
	_, err = ActualizarRegistro(conn, actorDe(analista), registro.ID,
		punteroStr("Título nuevo"), nil)
	assert.NoError(t, err)
	assert.EqualValues(t, 1, contarAuditorias(conn, "Registro", registro.ID))

	_, err = ActualizarRegistro(conn, actorDe(analista), registro.ID, punteroStr(""), nil)
	assert.ErrorIs(t, err, ErrValidacion)

	_, err = ActualizarRegistro(conn, actorDe(corredor), registro.ID, punteroStr("x"), nil)
	assert.ErrorIs(t, err, ErrPermisoDenegado)
}

func TestValidarDocumento(t *testing.T) {
	casos := []struct {
		nombre  string
		archivo string
		tamano  int64
		valido  bool
	}{
		{"pdf válido", "certificado.pdf", 1024, true},
		{"xlsx válido", "datos.XLSX", 1024, true},
		{"csv válido", "datos.csv", MaxDocumentoSize, true},
		{"extensión prohibida", "script.exe", 1024, false},
		{"sin extensión", "archivo", 1024, false},
		{"demasiado grande", "grande.pdf", MaxDocumentoSize + 1, false},
	}

	for _, caso := range casos {
		t.Run(caso.nombre, func(t *testing.T) {
			err := ValidarDocumento(&multipart.FileHeader{Filename: caso.archivo, Size: caso.tamano})
			if caso.valido {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrValidacion)
			}
		})
	}
}
