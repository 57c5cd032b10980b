package services

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every service returns one of these kinds (usually
// wrapped with context via %w) so handlers can map them to a stable
// status classification without inspecting messages.
var (
	// ErrNoEncontrado: the referenced entity does not exist
	ErrNoEncontrado = errors.New("recurso no encontrado")
	// ErrTransicionInvalida: the requested state edge is not permitted
	ErrTransicionInvalida = errors.New("transición de estado no permitida")
	// ErrValidacion: missing or malformed required fields
	ErrValidacion = errors.New("error de validación")
	// ErrPermisoDenegado: the actor's role lacks the capability
	ErrPermisoDenegado = errors.New("permiso denegado")
	// ErrConflicto: duplicate or unique-constraint violation
	ErrConflicto = errors.New("conflicto con el estado actual")
)

func noEncontrado(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNoEncontrado, fmt.Sprintf(format, args...))
}

func validacion(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidacion, fmt.Sprintf(format, args...))
}

func permisoDenegado(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrPermisoDenegado, fmt.Sprintf(format, args...))
}

func conflicto(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflicto, fmt.Sprintf(format, args...))
}
