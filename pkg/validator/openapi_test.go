package validator

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "newsflow/backend/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupValidatedEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	v, err := NewOpenAPIValidator()
	require.NoError(t, err)

	r := gin.New()
	r.Use(apperrors.ErrorHandler())
	r.Use(v.Middleware())

	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) }
	r.POST("/api/stories", ok)
	r.DELETE("/api/stories", ok)
	r.POST("/api/stories/:storyId/messages", ok)
	r.GET("/", ok)
	return r
}

func TestValidatorAcceptsValidJSON(t *testing.T) {
	r := setupValidatedEngine(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/stories", strings.NewReader(`{"title":"Budget Vote","participants":["Ana"]}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestValidatorRejectsMissingFields(t *testing.T) {
	r := setupValidatedEngine(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/stories/abc/messages", strings.NewReader(`{"author":"You"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), apperrors.CodeValidation)
}

func TestValidatorRejectsMissingQuery(t *testing.T) {
	r := setupValidatedEngine(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodDelete, "/api/stories", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidatorSkipsMultipartAndUnknownRoutes(t *testing.T) {
	r := setupValidatedEngine(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("author", "You"))
	require.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/stories/abc/messages", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
