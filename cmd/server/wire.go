//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"

	"jan-server/services/newsletter-api/internal/config"
	"jan-server/services/newsletter-api/internal/domain/idempotency"
	"jan-server/services/newsletter-api/internal/domain/newsletter"
	"jan-server/services/newsletter-api/internal/domain/subscriber"
	domaintx "jan-server/services/newsletter-api/internal/domain/transaction"
	"jan-server/services/newsletter-api/internal/infrastructure/auth"
	"jan-server/services/newsletter-api/internal/infrastructure/database/transaction"
	"jan-server/services/newsletter-api/internal/infrastructure/logger"
	"jan-server/services/newsletter-api/internal/infrastructure/queue"
	idempotencyrepo "jan-server/services/newsletter-api/internal/infrastructure/repository/idempotency"
	newsletterrepo "jan-server/services/newsletter-api/internal/infrastructure/repository/newsletter"
	subscriberrepo "jan-server/services/newsletter-api/internal/infrastructure/repository/subscriber"
	"jan-server/services/newsletter-api/internal/interfaces/httpserver"
	"jan-server/services/newsletter-api/internal/interfaces/httpserver/handlers"
)

var databaseSet = wire.NewSet(
	newDatabaseConfig,
	newGormDB,
	transaction.NewDatabase,
	wire.Bind(new(domaintx.Transactor), new(*transaction.Database)),
)

var idempotencySet = wire.NewSet(
	idempotencyrepo.NewPostgresRepository,
	wire.Bind(new(idempotency.Repository), new(*idempotencyrepo.PostgresRepository)),
	newIdempotencyConfig,
	idempotency.NewGateway,
	wire.Bind(new(handlers.IdempotentExecutor), new(*idempotency.Gateway)),
)

var newsletterSet = wire.NewSet(
	newIssueRepository,
	wire.Bind(new(newsletter.Repository), new(*newsletterrepo.CachedRepository)),
	subscriberrepo.NewPostgresRepository,
	wire.Bind(new(subscriber.Source), new(*subscriberrepo.PostgresRepository)),
	newsletter.NewService,
)

var deliverySet = wire.NewSet(
	queue.NewPostgresQueue,
	wire.Bind(new(handlers.QueueInspector), new(*queue.PostgresQueue)),
	newEmbeddedPool,
)

// BuildApplication assembles the newsletter service with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		databaseSet,
		idempotencySet,
		newsletterSet,
		deliverySet,
		newAuthValidator,
		newReadinessProbe,
		handlers.NewProvider,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}

func newAuthValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*auth.Validator, error) {
	return auth.NewValidator(ctx, cfg, log)
}
