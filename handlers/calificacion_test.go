package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func setupEcho(method, path string, body io.Reader) (*echo.Echo, echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return e, c, rec
}

func TestEnviarValidacionPayloadInvalido(t *testing.T) {
	h := &Handler{}
	_, c, rec := setupEcho(http.MethodPost, "/api/calificaciones/c-1/enviar-validacion", strings.NewReader("{no es json"))
	c.SetParamNames("id")
	c.SetParamValues("c-1")

	assert.NoError(t, h.EnviarValidacion(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "payload inválido")
}

func TestTransicionarPayloadInvalido(t *testing.T) {
	h := &Handler{}
	_, c, rec := setupEcho(http.MethodPost, "/api/calificaciones/c-1/transicion", strings.NewReader("{no es json"))
	c.SetParamNames("id")
	c.SetParamValues("c-1")

	assert.NoError(t, h.TransicionarCalificacion(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "payload inválido")
}

func TestResolverEstadoInvalido(t *testing.T) {
	h := &Handler{}
	_, c, rec := setupEcho(http.MethodPost, "/api/calificaciones/c-1/resolver", strings.NewReader(`{"estado":"BORRADOR"}`))
	c.SetParamNames("id")
	c.SetParamValues("c-1")

	assert.NoError(t, h.ResolverCalificacion(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "estado de resolución inválido")
}
