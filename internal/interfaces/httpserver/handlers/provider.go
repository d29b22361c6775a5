package handlers

import (
	"github.com/rs/zerolog"

	"jan-server/services/newsletter-api/internal/domain/newsletter"
)

// Provider wires all HTTP handlers for dependency injection.
type Provider struct {
	Newsletter *NewsletterHandler
}

// NewProvider constructs the handler provider with domain services.
func NewProvider(gateway IdempotentExecutor, newsletterService newsletter.Service, queue QueueInspector, log zerolog.Logger) *Provider {
	return &Provider{
		Newsletter: NewNewsletterHandler(gateway, newsletterService, queue, log),
	}
}
