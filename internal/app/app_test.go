package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080},
		Security: config.SecurityConfig{
			EnableCORS:     true,
			AllowedOrigins: []string{"http://localhost:5173"},
			RateLimit:      config.RateLimitConfig{Enabled: false},
		},
		Logging: config.LoggingConfig{Level: "error", Format: "json"},
		Upload:  config.UploadConfig{MaxSizeBytes: 1 << 20},
		Cache:   config.CacheConfig{Tables: 4},
	}
}

func TestNewApplicationWithConfig(t *testing.T) {
	app, err := NewApplicationWithConfig(testConfig())
	require.NoError(t, err)

	assert.NotNil(t, app.Router)
	assert.NotNil(t, app.Service)
	assert.Equal(t, ":8080", app.Server.Addr)
}

func TestRouterEndpoints(t *testing.T) {
	app, err := NewApplicationWithConfig(testConfig())
	require.NoError(t, err)

	t.Run("health", func(t *testing.T) {
		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), VERSION)
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})

	t.Run("metrics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "go_goroutines")
	})

	t.Run("erp disabled", func(t *testing.T) {
		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/erp/test", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("unknown route", func(t *testing.T) {
		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
