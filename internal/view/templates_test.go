package view

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderPage(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	err = engine.Render(rr, "pages/login.html", TemplateData{
		Title:     "Iniciar sesión",
		CSRFToken: "tok",
		Data: struct {
			Form   struct{ Identifier, Password, Role string }
			Roles  []string
			Errors map[string]string
		}{Roles: []string{"Estudiante"}},
	})
	require.NoError(t, err)
	assert.Contains(t, rr.Body.String(), "Iniciar sesión")
	assert.Contains(t, rr.Body.String(), "Estudiante")
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
}
