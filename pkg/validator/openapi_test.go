package validator

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"voice-dialogue-demo/backend/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schema = `openapi: 3.0.3
info: {title: test, version: "1"}
paths:
  /api/v1/mood:
    post:
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              required: [mood_name]
              properties:
                mood_name: {type: string, minLength: 1}
      responses:
        "201": {description: Created}
`

func newEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	path := filepath.Join(t.TempDir(), "openapi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(schema), 0o600))

	v, err := NewOpenAPIValidator(path)
	require.NoError(t, err)

	r := gin.New()
	r.Use(errors.ErrorHandler(), v.Middleware())
	r.POST("/api/v1/mood", func(c *gin.Context) {
		var body map[string]any
		require.NoError(t, c.ShouldBindJSON(&body))
		c.JSON(http.StatusCreated, body)
	})
	r.GET("/undocumented", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestMiddlewareRejectsInvalidBody(t *testing.T) {
	r := newEngine(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/mood", strings.NewReader(`{"mood_prompt":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "SCHEMA_VIOLATION")
}

func TestMiddlewarePassesValidBody(t *testing.T) {
	r := newEngine(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/mood", strings.NewReader(`{"mood_name":"calm"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"mood_name":"calm"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/undocumented", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewOpenAPIValidatorMissingFile(t *testing.T) {
	_, err := NewOpenAPIValidator(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
