package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	newsletterapidocs "jan-server/services/newsletter-api/docs/swagger"
	"jan-server/services/newsletter-api/internal/config"
	"jan-server/services/newsletter-api/internal/infrastructure/auth"
	"jan-server/services/newsletter-api/internal/interfaces/httpserver/handlers"
	"jan-server/services/newsletter-api/internal/interfaces/httpserver/middlewares"
	"jan-server/services/newsletter-api/internal/interfaces/httpserver/routes"
)

const readinessTimeout = 2 * time.Second

// ReadinessProbe reports whether the service can take traffic.
type ReadinessProbe func(ctx context.Context) error

// HttpServer wraps the gin engine with graceful shutdown helpers.
type HttpServer struct {
	cfg         *config.Config
	engine      *gin.Engine
	log         zerolog.Logger
	handlerProv *handlers.Provider
	routeProv   *routes.Provider
}

// New constructs the HTTP server with default middleware and routes.
func New(cfg *config.Config, log zerolog.Logger, handlerProvider *handlers.Provider, authValidator *auth.Validator, ready ReadinessProbe) *HttpServer {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	newsletterapidocs.SwaggerInfo.BasePath = "/"

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())
	engine.Use(middlewares.RequestIDMiddleware())
	engine.Use(middlewares.MetricsMiddleware())

	routeProvider := routes.NewProvider(handlerProvider)
	registerCoreRoutes(engine, cfg, routeProvider, ready, authValidator.Middleware())

	return &HttpServer{
		cfg:         cfg,
		engine:      engine,
		log:         log.With().Str("component", "http-server").Logger(),
		handlerProv: handlerProvider,
		routeProv:   routeProvider,
	}
}

// Handler exposes the engine, mainly for tests.
func (s *HttpServer) Handler() http.Handler {
	return s.engine
}

// Run starts the HTTP listener and handles graceful shutdown via context cancellation.
func (s *HttpServer) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr()).Msg("HTTP server listening")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("HTTP server error")
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.log.Info().Msg("Context cancelled, shutting down HTTP server")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// registerCoreRoutes leaves probes, metrics and docs outside apiAuth so
// orchestrators can reach them without credentials.
func registerCoreRoutes(engine *gin.Engine, cfg *config.Config, routeProvider *routes.Provider, ready ReadinessProbe, apiAuth gin.HandlerFunc) {
	engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": cfg.ServiceName,
			"status":  "ok",
		})
	})

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	engine.GET("/readyz", func(c *gin.Context) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
			defer cancel()
			if err := ready(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routeProvider.Register(engine, apiAuth)
}
