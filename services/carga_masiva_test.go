package services

import (
	"bytes"
	"strings"
	"testing"

	"tax_flow_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/xuri/excelize/v2"
)

func servicioDePrueba() (*CalificacionService, *notificadorStub) {
	stub := &notificadorStub{}
	return NewCalificacionService(&DocumentCalificacionStore{}, stub), stub
}

func TestCargaMasivaCSV(t *testing.T) {
	conn := setupTestDB(t)
	svc, _ := servicioDePrueba()
	analista := crearUsuarioPrueba(t, conn, models.RolAnalista, false)
	registro := crearRegistroPrueba(t, conn, analista)

	csv := "registro_id,rut,tipo_certificado,periodo,monto\n" +
		registro.ID + ",12345678-9,RENTA_ANUAL,2026-01,1500000\n" +
		registro.ID + ",98765432-1,RENTA_ANUAL,2026-02,2000000\n"

	resultado, err := svc.CargaMasivaCSV(conn, actorDe(analista), strings.NewReader(csv))
	assert.NoError(t, err)
	assert.Equal(t, 2, resultado.TotalProcesadas)
	assert.Equal(t, 2, resultado.Exitosas)
	assert.Zero(t, resultado.Fallidas)
	assert.Empty(t, resultado.Errores)

	// Imported rows go through the regular creation path
	creadas, err := svc.Listar(conn, actorDe(analista), FiltrosCalificacion{RegistroID: registro.ID})
	assert.NoError(t, err)
	assert.Len(t, creadas, 2)
	for _, c := range creadas {
		assert.Equal(t, models.EstadoBorrador, c.Estado)
		assert.EqualValues(t, 1, contarAuditorias(conn, "Calificacion", c.ID))
	}
}

func TestCargaMasivaCSVFilasInvalidasNoDetienenLaCarga(t *testing.T) {
	conn := setupTestDB(t)
	svc, _ := servicioDePrueba()
	analista := crearUsuarioPrueba(t, conn, models.RolAnalista, false)
	registro := crearRegistroPrueba(t, conn, analista)

	csv := "registro_id,rut,tipo_certificado,periodo,monto\n" +
		registro.ID + ",,RENTA_ANUAL,2026-01,100\n" + // missing rut
		registro.ID + ",1-9,RENTA_ANUAL,2026-01,no-numerico\n" + // bad monto
		"no-existe,1-9,RENTA_ANUAL,2026-01,100\n" + // unknown registro
		registro.ID + ",1-9,RENTA_ANUAL,2026-01,100\n" // valid

	resultado, err := svc.CargaMasivaCSV(conn, actorDe(analista), strings.NewReader(csv))
	assert.NoError(t, err)
	assert.Equal(t, 4, resultado.TotalProcesadas)
	assert.Equal(t, 1, resultado.Exitosas)
	assert.Equal(t, 3, resultado.Fallidas)
	assert.Len(t, resultado.Errores, 3)
	assert.Contains(t, resultado.Errores[0], "Fila 2")
	assert.Contains(t, resultado.Errores[0], "rut")
	assert.Contains(t, resultado.Errores[1], "no es numérico")
	assert.Contains(t, resultado.Errores[2], "Fila 4")
}

func TestCargaMasivaCSVEncabezadoInvalido(t *testing.T) {
	conn := setupTestDB(t)
	svc, _ := servicioDePrueba()
	analista := crearUsuarioPrueba(t, conn, models.RolAnalista, false)

	csv := "registro_id,rut\nx,y\n"
	_, err := svc.CargaMasivaCSV(conn, actorDe(analista), strings.NewReader(csv))
	assert.ErrorIs(t, err, ErrValidacion)
	assert.Contains(t, err.Error(), "tipo_certificado")
}

func TestCargaMasivaCSVRequierePermiso(t *testing.T) {
	conn := setupTestDB(t)
	svc, _ := servicioDePrueba()
	auditor := crearUsuarioPrueba(t, conn, models.RolAuditor, false)

	_, err := svc.CargaMasivaCSV(conn, actorDe(auditor), strings.NewReader(""))
	assert.ErrorIs(t, err, ErrPermisoDenegado)
}

func TestCargaMasivaXLSXConPlantilla(t *testing.T) {
	conn := setupTestDB(t)
	svc, _ := servicioDePrueba()
	analista := crearUsuarioPrueba(t, conn, models.RolAnalista, false)
	registro := crearRegistroPrueba(t, conn, analista)

	// Fill the generated template with real rows, replacing the example
	buf, err := GenerarPlantillaCarga()
	assert.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	assert.NoError(t, err)
	f.SetCellValue("Calificaciones", "A2", registro.ID)
	f.SetCellValue("Calificaciones", "B2", "12345678-9")
	f.SetCellValue("Calificaciones", "C2", "RENTA_ANUAL")
	f.SetCellValue("Calificaciones", "D2", "2026-08")
	f.SetCellValue("Calificaciones", "E2", 750000)
	relleno, err := f.WriteToBuffer()
	assert.NoError(t, err)
	f.Close()

	resultado, err := svc.CargaMasivaXLSX(conn, actorDe(analista), bytes.NewReader(relleno.Bytes()))
	assert.NoError(t, err)
	assert.Equal(t, 1, resultado.TotalProcesadas)
	assert.Equal(t, 1, resultado.Exitosas)
	assert.Empty(t, resultado.Errores)

	creadas, err := svc.Listar(conn, actorDe(analista), FiltrosCalificacion{RegistroID: registro.ID})
	assert.NoError(t, err)
	assert.Len(t, creadas, 1)
	assert.Equal(t, float64(750000), creadas[0].Monto)
}

func TestCargaMasivaXLSXArchivoInvalido(t *testing.T) {
	conn := setupTestDB(t)
	svc, _ := servicioDePrueba()
	analista := crearUsuarioPrueba(t, conn, models.RolAnalista, false)

	_, err := svc.CargaMasivaXLSX(conn, actorDe(analista), strings.NewReader("esto no es un xlsx"))
	assert.ErrorIs(t, err, ErrValidacion)
}

func TestGenerarPlantillaCarga(t *testing.T) {
	buf, err := GenerarPlantillaCarga()
	assert.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	assert.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Instrucciones", "Calificaciones"}, f.GetSheetList())

	filas, err := f.GetRows("Calificaciones")
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, len(filas), 2)
	assert.Equal(t, "registro_id*", filas[0][0])
	assert.Equal(t, "monto*", filas[0][4])
}
