package services

import (
	"testing"

	"tax_flow_app_go/models"

	"github.com/stretchr/testify/assert"
)

var todosLosEstados = []models.EstadoCalificacion{
	models.EstadoBorrador,
	models.EstadoPendiente,
	models.EstadoAprobada,
	models.EstadoObservada,
	models.EstadoRechazada,
	models.EstadoHistorica,
}

func TestValidarTransicionPermitidas(t *testing.T) {
	permitidas := [][2]models.EstadoCalificacion{
		{models.EstadoBorrador, models.EstadoPendiente},
		{models.EstadoPendiente, models.EstadoAprobada},
		{models.EstadoPendiente, models.EstadoObservada},
		{models.EstadoPendiente, models.EstadoRechazada},
		{models.EstadoObservada, models.EstadoBorrador},
		{models.EstadoObservada, models.EstadoPendiente},
	}
	for _, par := range permitidas {
		assert.NoError(t, ValidarTransicion(par[0], par[1]), "%s -> %s debería permitirse", par[0], par[1])
	}
}

func TestValidarTransicionRechazaTodoLoDemas(t *testing.T) {
	permitidas := map[[2]models.EstadoCalificacion]bool{
		{models.EstadoBorrador, models.EstadoPendiente}:  true,
		{models.EstadoPendiente, models.EstadoAprobada}:  true,
		{models.EstadoPendiente, models.EstadoObservada}: true,
		{models.EstadoPendiente, models.EstadoRechazada}: true,
		{models.EstadoObservada, models.EstadoBorrador}:  true,
		{models.EstadoObservada, models.EstadoPendiente}: true,
	}

	for _, desde := range todosLosEstados {
		for _, hacia := range todosLosEstados {
			if permitidas[[2]models.EstadoCalificacion{desde, hacia}] {
				continue
			}
			err := ValidarTransicion(desde, hacia)
			assert.ErrorIs(t, err, ErrTransicionInvalida, "%s -> %s debería rechazarse", desde, hacia)
		}
	}
}

func TestValidarTransicionEstadosDesconocidos(t *testing.T) {
	err := ValidarTransicion("INVENTADO", models.EstadoPendiente)
	assert.ErrorIs(t, err, ErrTransicionInvalida)

	err = ValidarTransicion(models.EstadoBorrador, "INVENTADO")
	assert.ErrorIs(t, err, ErrTransicionInvalida)
}

func TestEstadoFinal(t *testing.T) {
	assert.True(t, EstadoFinal(models.EstadoAprobada))
	assert.True(t, EstadoFinal(models.EstadoRechazada))
	assert.True(t, EstadoFinal(models.EstadoHistorica))
	assert.False(t, EstadoFinal(models.EstadoBorrador))
	assert.False(t, EstadoFinal(models.EstadoPendiente))
	assert.False(t, EstadoFinal(models.EstadoObservada))
	assert.False(t, EstadoFinal("INVENTADO"))
}

func TestTransicionesDesde(t *testing.T) {
	assert.Equal(t,
		[]models.EstadoCalificacion{models.EstadoAprobada, models.EstadoObservada, models.EstadoRechazada},
		TransicionesDesde(models.EstadoPendiente))
	assert.Empty(t, TransicionesDesde(models.EstadoAprobada))
	assert.Empty(t, TransicionesDesde("INVENTADO"))
}
