package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"strconv"
	"strings"

	"tax_flow_app_go/models"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// columnasCarga are the required columns of a bulk import, in order
var columnasCarga = []string{"registro_id", "rut", "tipo_certificado", "periodo", "monto"}

// ResultadoCarga summarizes a bulk import run
type ResultadoCarga struct {
	TotalProcesadas int      `json:"total_procesadas"`
	Exitosas        int      `json:"exitosas"`
	Fallidas        int      `json:"fallidas"`
	Errores         []string `json:"errores"`
}

// GenerarPlantillaCarga builds the XLSX template users fill in for bulk
// calificación imports: an instructions sheet plus the data sheet with
// headers and one example row.
func GenerarPlantillaCarga() (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetInstrucciones := "Instrucciones"
	f.SetSheetName("Sheet1", sheetInstrucciones)

	f.SetCellValue(sheetInstrucciones, "A1", "Carga masiva de calificaciones")
	f.SetCellValue(sheetInstrucciones, "A3", "Consideraciones:")
	f.SetCellValue(sheetInstrucciones, "A4", "- Todas las columnas marcadas con * son obligatorias")
	f.SetCellValue(sheetInstrucciones, "A5", "- registro_id debe corresponder a un registro existente")
	f.SetCellValue(sheetInstrucciones, "A6", "- monto debe ser numérico, sin separadores de miles")
	f.SetCellValue(sheetInstrucciones, "A7", "- Las calificaciones se crean en estado BORRADOR")
	f.SetCellValue(sheetInstrucciones, "A8", "- Las filas con errores se informan y no detienen el resto de la carga")

	tituloStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	f.SetCellStyle(sheetInstrucciones, "A1", "A1", tituloStyle)
	f.SetColWidth(sheetInstrucciones, "A", "A", 80)

	sheetDatos := "Calificaciones"
	f.NewSheet(sheetDatos)
	for i, columna := range columnasCarga {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetDatos, cell, columna+"*")
	}
	f.SetColWidth(sheetDatos, "A", "E", 24)

	f.SetCellValue(sheetDatos, "A2", "00000000-0000-0000-0000-000000000000")
	f.SetCellValue(sheetDatos, "B2", "12345678-9")
	f.SetCellValue(sheetDatos, "C2", "RENTA_ANUAL")
	f.SetCellValue(sheetDatos, "D2", "2026-08")
	f.SetCellValue(sheetDatos, "E2", 1500000)

	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	f.SetCellStyle(sheetDatos, "A1", "E1", headerStyle)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel buffer: %w", err)
	}
	return buf, nil
}

// filaCarga is one parsed data row of a bulk import
type filaCarga struct {
	numero          int // 1-based row number in the source file
	registroID      string
	rut             string
	tipoCertificado string
	periodo         string
	monto           float64
}

// CargaMasivaCSV imports calificaciones from a CSV file. The first row
// must name the required columns; each data row creates one calificación
// in BORRADOR through the regular creation path, so history, audit and
// permissions apply identically to manual creation. Bad rows are
// reported and skipped.
func (s *CalificacionService) CargaMasivaCSV(conn *gorm.DB, actor AuthContext, file io.Reader) (*ResultadoCarga, error) {
	if err := AutorizarActor(actor, PermisoCrearCalificacion); err != nil {
		return nil, err
	}

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	encabezado, err := reader.Read()
	if err != nil {
		return nil, validacion("no se pudo leer el encabezado del CSV")
	}
	indices, err := mapearColumnas(encabezado)
	if err != nil {
		return nil, err
	}

	resultado := &ResultadoCarga{Errores: []string{}}
	numeroFila := 1
	for {
		registro, err := reader.Read()
		if err == io.EOF {
			break
		}
		numeroFila++
		if err != nil {
			resultado.Fallidas++
			resultado.Errores = append(resultado.Errores, fmt.Sprintf("Fila %d: CSV malformado: %v", numeroFila, err))
			continue
		}

		celdas := make([]string, len(columnasCarga))
		for i, columna := range columnasCarga {
			idx := indices[columna]
			if idx < len(registro) {
				celdas[i] = registro[idx]
			}
		}
		s.procesarFila(conn, actor, celdas, numeroFila, resultado)
	}

	return resultado, nil
}

// CargaMasivaXLSX imports calificaciones from the XLSX template. The data
// lives in the last sheet; the instructions sheet, if present, is skipped.
func (s *CalificacionService) CargaMasivaXLSX(conn *gorm.DB, actor AuthContext, file io.Reader) (*ResultadoCarga, error) {
	if err := AutorizarActor(actor, PermisoCrearCalificacion); err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, validacion("no se pudo abrir el archivo XLSX")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, validacion("el archivo XLSX no contiene hojas")
	}
	sheetDatos := sheets[len(sheets)-1]

	filas, err := f.GetRows(sheetDatos)
	if err != nil {
		return nil, fmt.Errorf("failed to read data sheet: %w", err)
	}
	if len(filas) == 0 {
		return nil, validacion("la hoja de datos está vacía")
	}

	indices, err := mapearColumnas(filas[0])
	if err != nil {
		return nil, err
	}

	resultado := &ResultadoCarga{Errores: []string{}}
	for i, fila := range filas[1:] {
		numeroFila := i + 2
		if filaVacia(fila) {
			continue
		}

		celdas := make([]string, len(columnasCarga))
		for j, columna := range columnasCarga {
			idx := indices[columna]
			if idx < len(fila) {
				celdas[j] = fila[idx]
			}
		}
		s.procesarFila(conn, actor, celdas, numeroFila, resultado)
	}

	return resultado, nil
}

// procesarFila validates one parsed row and creates the calificación.
// Row-level failures land in the result; they never abort the run.
func (s *CalificacionService) procesarFila(conn *gorm.DB, actor AuthContext, celdas []string, numeroFila int, resultado *ResultadoCarga) {
	resultado.TotalProcesadas++

	fila, err := validarFila(celdas, numeroFila)
	if err != nil {
		resultado.Fallidas++
		resultado.Errores = append(resultado.Errores, err.Error())
		return
	}

	_, err = s.Crear(conn, actor, CrearCalificacionInput{
		RegistroID:      fila.registroID,
		TipoCertificado: fila.tipoCertificado,
		Rut:             fila.rut,
		Periodo:         fila.periodo,
		Monto:           fila.monto,
	})
	if err != nil {
		resultado.Fallidas++
		resultado.Errores = append(resultado.Errores, fmt.Sprintf("Fila %d: %v", numeroFila, err))
		return
	}
	resultado.Exitosas++
}

func validarFila(celdas []string, numeroFila int) (*filaCarga, error) {
	fila := &filaCarga{
		numero:          numeroFila,
		registroID:      strings.TrimSpace(celdas[0]),
		rut:             strings.TrimSpace(celdas[1]),
		tipoCertificado: strings.TrimSpace(celdas[2]),
		periodo:         strings.TrimSpace(celdas[3]),
	}

	faltantes := []string{}
	if fila.registroID == "" {
		faltantes = append(faltantes, "registro_id")
	}
	if fila.rut == "" {
		faltantes = append(faltantes, "rut")
	}
	if fila.tipoCertificado == "" {
		faltantes = append(faltantes, "tipo_certificado")
	}
	if fila.periodo == "" {
		faltantes = append(faltantes, "periodo")
	}
	if len(faltantes) > 0 {
		return nil, fmt.Errorf("Fila %d: faltan columnas obligatorias: %s", numeroFila, strings.Join(faltantes, ", "))
	}

	montoRaw := strings.TrimSpace(celdas[4])
	if montoRaw == "" {
		return nil, fmt.Errorf("Fila %d: falta columna obligatoria: monto", numeroFila)
	}
	monto, err := strconv.ParseFloat(montoRaw, 64)
	if err != nil {
		return nil, fmt.Errorf("Fila %d: monto %q no es numérico", numeroFila, montoRaw)
	}
	fila.monto = monto

	return fila, nil
}

// mapearColumnas resolves header names (case-insensitive, with or without
// the trailing * the template adds) to their column index
func mapearColumnas(encabezado []string) (map[string]int, error) {
	indices := map[string]int{}
	for i, nombre := range encabezado {
		limpio := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(nombre), "*"))
		indices[limpio] = i
	}

	faltantes := []string{}
	for _, columna := range columnasCarga {
		if _, ok := indices[columna]; !ok {
			faltantes = append(faltantes, columna)
		}
	}
	if len(faltantes) > 0 {
		return nil, validacion("faltan columnas obligatorias en el encabezado: %s", strings.Join(faltantes, ", "))
	}
	return indices, nil
}

// ArchivarCargaMasiva keeps the raw import file in the certificate store
// and writes the summary audit entry for the run. Archiving failures are
// logged; the import result already committed and stands either way.
func ArchivarCargaMasiva(ctx context.Context, conn *gorm.DB, storage StorageProvider, actor AuthContext, fileHeader *multipart.FileHeader, resultado *ResultadoCarga) {
	rutaStorage := ""
	if src, err := fileHeader.Open(); err == nil {
		contentType := fileHeader.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		key := GenerateCargaMasivaKey(actor.ActorID, fileHeader.Filename)
		if subido, err := storage.UploadReader(ctx, src, key, contentType, fileHeader.Size); err != nil {
			log.Printf("[CARGA] Failed to archive import file %s: %v", fileHeader.Filename, err)
		} else {
			rutaStorage = subido.Key
		}
		src.Close()
	}

	err := RegistrarAuditoria(conn, actor, models.AccionCreate, "CargaMasiva", fileHeader.Filename,
		fmt.Sprintf("Carga masiva: %d filas procesadas, %d exitosas, %d fallidas",
			resultado.TotalProcesadas, resultado.Exitosas, resultado.Fallidas),
		map[string]interface{}{
			"archivo":      fileHeader.Filename,
			"ruta_storage": rutaStorage,
			"errores":      len(resultado.Errores),
		})
	if err != nil {
		log.Printf("[CARGA] Failed to audit import of %s: %v", fileHeader.Filename, err)
	}
}

func filaVacia(fila []string) bool {
	for _, celda := range fila {
		if strings.TrimSpace(celda) != "" {
			return false
		}
	}
	return true
}
