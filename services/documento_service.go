package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"tax_flow_app_go/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	// MaxDocumentoSize is the upload size limit (10MB)
	MaxDocumentoSize = 10 * 1024 * 1024
)

// extensionesDocumento are the accepted certificate formats
var extensionesDocumento = []string{".pdf", ".csv", ".xlsx"}

// ValidarDocumento checks size and extension of an uploaded certificate
func ValidarDocumento(fileHeader *multipart.FileHeader) error {
	if fileHeader.Size > MaxDocumentoSize {
		return validacion("el archivo supera el tamaño máximo de 10MB")
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	for _, permitida := range extensionesDocumento {
		if ext == permitida {
			return nil
		}
	}
	return validacion("formato no permitido. Formatos aceptados: PDF, CSV, XLSX")
}

// SubirDocumento stores the uploaded file, records its metadata with the
// sha256 integrity hash and writes a CREATE audit entry. The registro must
// exist; corredores can only attach documents to their own registros.
func SubirDocumento(
	ctx context.Context,
	conn *gorm.DB,
	storage StorageProvider,
	actor AuthContext,
	registroID string,
	calificacionID string,
	tipoDocumento string,
	fileHeader *multipart.FileHeader,
) (*models.Documento, error) {
	if err := AutorizarActor(actor, PermisoEditarCalificacion); err != nil {
		return nil, err
	}
	if err := ValidarDocumento(fileHeader); err != nil {
		return nil, err
	}

	var registro models.Registro
	if err := conn.First(&registro, "id = ?", registroID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, noEncontrado("registro %s no existe", registroID)
		}
		return nil, err
	}
	if !actor.Puede(PermisoVerTodosRegistros) && registro.UsuarioID != actor.ActorID {
		return nil, permisoDenegado("no puede adjuntar documentos a registros de otros usuarios")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, src); err != nil {
		return nil, fmt.Errorf("failed to hash file: %w", err)
	}
	hashIntegridad := hex.EncodeToString(hasher.Sum(nil))

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to reset file pointer: %w", err)
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := GenerateRegistroDocumentKey(registroID, fileHeader.Filename)
	resultado, err := storage.UploadReader(ctx, src, key, contentType, fileHeader.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	documento := &models.Documento{
		RegistroID:     registroID,
		CalificacionID: ptrIfNotEmpty(calificacionID),
		TipoDocumento:  tipoDocumento,
		RutaStorage:    resultado.Key,
		HashIntegridad: hashIntegridad,
		Estado:         models.DocumentoCargado,
		CreadoPor:      actor.Usuario,
		Metadata: datatypes.JSONMap{
			"nombre_original": fileHeader.Filename,
			"tamano":          fileHeader.Size,
			"content_type":    contentType,
		},
	}

	err = conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(documento).Error; err != nil {
			return err
		}
		return RegistrarAuditoria(tx, actor, models.AccionCreate, "Documento", documento.ID,
			fmt.Sprintf("Documento %s cargado para registro %s", tipoDocumento, registroID),
			map[string]interface{}{"hash_integridad": hashIntegridad})
	})
	if err != nil {
		// The row never landed; drop the orphaned file
		_ = storage.Delete(ctx, resultado.Key)
		return nil, err
	}

	return documento, nil
}

// DescargarDocumento returns a reader over the stored file after verifying
// the actor can see the owning registro
func DescargarDocumento(ctx context.Context, conn *gorm.DB, storage StorageProvider, actor AuthContext, documentoID string) (io.ReadCloser, string, *models.Documento, error) {
	var documento models.Documento
	if err := conn.First(&documento, "id = ?", documentoID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", nil, noEncontrado("documento %s no existe", documentoID)
		}
		return nil, "", nil, err
	}

	var registro models.Registro
	if err := conn.First(&registro, "id = ?", documento.RegistroID).Error; err != nil {
		return nil, "", nil, err
	}
	if !actor.Puede(PermisoVerTodosRegistros) && registro.UsuarioID != actor.ActorID {
		return nil, "", nil, permisoDenegado("no puede descargar documentos de registros de otros usuarios")
	}

	reader, contentType, err := storage.Get(ctx, documento.RutaStorage)
	if err != nil {
		return nil, "", nil, err
	}
	return reader, contentType, &documento, nil
}

// ListarDocumentos lists the documents attached to a registro
func ListarDocumentos(conn *gorm.DB, actor AuthContext, registroID string) ([]models.Documento, error) {
	var registro models.Registro
	if err := conn.First(&registro, "id = ?", registroID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, noEncontrado("registro %s no existe", registroID)
		}
		return nil, err
	}
	if !actor.Puede(PermisoVerTodosRegistros) && registro.UsuarioID != actor.ActorID {
		return nil, permisoDenegado("no puede ver documentos de registros de otros usuarios")
	}

	var documentos []models.Documento
	err := conn.Where("registro_id = ?", registroID).
		Order("created_at DESC").
		Find(&documentos).Error
	return documentos, err
}
