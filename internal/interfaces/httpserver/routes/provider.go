package routes

import (
	"github.com/gin-gonic/gin"

	"jan-server/services/newsletter-api/internal/interfaces/httpserver/handlers"
	v1 "jan-server/services/newsletter-api/internal/interfaces/httpserver/routes/v1"
)

// Provider groups versioned route registrars.
type Provider struct {
	V1 *v1.Routes
}

// NewProvider builds the route provider.
func NewProvider(handlerProvider *handlers.Provider) *Provider {
	return &Provider{
		V1: v1.NewRoutes(handlerProvider),
	}
}

// Register attaches every route version to the engine. middleware guards the
// versioned API only.
func (p *Provider) Register(engine *gin.Engine, middleware ...gin.HandlerFunc) {
	p.V1.Register(engine, middleware...)
}
