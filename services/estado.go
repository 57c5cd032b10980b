package services

import (
	"fmt"
	"tax_flow_app_go/models"
)

// transicionesPermitidas is the single authoritative adjacency table for
// calificación state transitions. Both store adapters consult it through
// ValidarTransicion; APROBADA and RECHAZADA are terminal, HISTORICA has
// no edges in either direction.
var transicionesPermitidas = map[models.EstadoCalificacion][]models.EstadoCalificacion{
	models.EstadoBorrador:  {models.EstadoPendiente},
	models.EstadoPendiente: {models.EstadoAprobada, models.EstadoObservada, models.EstadoRechazada},
	models.EstadoObservada: {models.EstadoBorrador, models.EstadoPendiente},
	models.EstadoAprobada:  {},
	models.EstadoRechazada: {},
	models.EstadoHistorica: {},
}

// EstadoValido reports whether the estado is one of the declared states
func EstadoValido(estado models.EstadoCalificacion) bool {
	_, ok := transicionesPermitidas[estado]
	return ok
}

// EstadoFinal reports whether no transition can leave the estado
func EstadoFinal(estado models.EstadoCalificacion) bool {
	destinos, ok := transicionesPermitidas[estado]
	return ok && len(destinos) == 0
}

// ValidarTransicion checks whether the edge actual→destino is in the
// adjacency table. It is a pure function with no side effects: unknown
// states, self-transitions and edges from terminal states are rejected
// with ErrTransicionInvalida.
func ValidarTransicion(actual, destino models.EstadoCalificacion) error {
	if !EstadoValido(actual) {
		return fmt.Errorf("%w: estado de origen desconocido %q", ErrTransicionInvalida, actual)
	}
	if !EstadoValido(destino) {
		return fmt.Errorf("%w: estado de destino desconocido %q", ErrTransicionInvalida, destino)
	}
	for _, permitido := range transicionesPermitidas[actual] {
		if destino == permitido {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrTransicionInvalida, actual, destino)
}

// TransicionesDesde returns the permitted target states from the given
// estado, in table order. Unknown states yield an empty slice.
func TransicionesDesde(estado models.EstadoCalificacion) []models.EstadoCalificacion {
	destinos := transicionesPermitidas[estado]
	out := make([]models.EstadoCalificacion, len(destinos))
	copy(out, destinos)
	return out
}
