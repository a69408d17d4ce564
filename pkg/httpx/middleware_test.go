package httpx

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/mfreeman451/firmwave/pkg/logger"
)

func TestCommonMiddlewareCORS(t *testing.T) {
	called := false

	handler := CommonMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true

		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/devices", http.NoBody))

	assert.True(t, called)
	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestCommonMiddlewarePreflight(t *testing.T) {
	handler := CommonMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("preflight must not reach the handler")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/api/devices", http.NoBody))

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer

	log := logger.NewWriter(&buf, zerolog.DebugLevel)

	handler := LoggingMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/weather", http.NoBody))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, buf.String(), `"status":500`)
	assert.Contains(t, buf.String(), `"path":"/api/weather"`)
	assert.Contains(t, buf.String(), `"level":"warn"`)
}
