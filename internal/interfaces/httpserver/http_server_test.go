package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"jan-server/services/newsletter-api/internal/config"
	"jan-server/services/newsletter-api/internal/interfaces/httpserver/handlers"
	"jan-server/services/newsletter-api/internal/interfaces/httpserver/middlewares"
	"jan-server/services/newsletter-api/internal/interfaces/httpserver/routes"
)

func newTestServer(ready ReadinessProbe) *HttpServer {
	cfg := &config.Config{ServiceName: "newsletter-api", Environment: "test"}
	provider := handlers.NewProvider(nil, nil, nil, zerolog.Nop())
	return New(cfg, zerolog.Nop(), provider, nil, ready)
}

func serve(s *HttpServer, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestCoreRoutes(t *testing.T) {
	s := newTestServer(func(context.Context) error { return nil })

	for _, path := range []string{"/", "/healthz", "/readyz", "/metrics"} {
		w := serve(s, path)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.NotEmpty(t, w.Header().Get(middlewares.RequestIDHeader), path)
	}
}

func TestReadyz_ReportsProbeFailure(t *testing.T) {
	s := newTestServer(func(context.Context) error { return errors.New("connection refused") })

	w := serve(s, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestPublish_RejectsEmptySubmission(t *testing.T) {
	s := newTestServer(nil)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/newsletters", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCoreRoutes_BypassAPIAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	cfg := &config.Config{ServiceName: "newsletter-api"}
	provider := handlers.NewProvider(nil, nil, nil, zerolog.Nop())
	denyAll := func(c *gin.Context) {
		c.AbortWithStatus(http.StatusUnauthorized)
	}
	registerCoreRoutes(engine, cfg, routes.NewProvider(provider), func(context.Context) error { return nil }, denyAll)

	for _, path := range []string{"/", "/healthz", "/readyz", "/metrics"} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/deliveries/queue", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
