package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"jan-server/services/newsletter-api/internal/config"
	"jan-server/services/newsletter-api/internal/domain/delivery"
	"jan-server/services/newsletter-api/internal/domain/idempotency"
	"jan-server/services/newsletter-api/internal/domain/newsletter"
	"jan-server/services/newsletter-api/internal/infrastructure/auth"
	"jan-server/services/newsletter-api/internal/infrastructure/database"
	"jan-server/services/newsletter-api/internal/infrastructure/database/transaction"
	"jan-server/services/newsletter-api/internal/infrastructure/emailclient"
	"jan-server/services/newsletter-api/internal/infrastructure/logger"
	"jan-server/services/newsletter-api/internal/infrastructure/observability"
	"jan-server/services/newsletter-api/internal/infrastructure/queue"
	idempotencyrepo "jan-server/services/newsletter-api/internal/infrastructure/repository/idempotency"
	newsletterrepo "jan-server/services/newsletter-api/internal/infrastructure/repository/newsletter"
	subscriberrepo "jan-server/services/newsletter-api/internal/infrastructure/repository/subscriber"
	"jan-server/services/newsletter-api/internal/infrastructure/telemetry"
	"jan-server/services/newsletter-api/internal/interfaces/httpserver"
	"jan-server/services/newsletter-api/internal/interfaces/httpserver/handlers"
	"jan-server/services/newsletter-api/internal/worker"
)

const issueCacheSize = 1024

// @title Newsletter API
// @version 1.0
// @description Publishes newsletter issues to confirmed subscribers with idempotent submissions
// @BasePath /
type Application struct {
	httpServer *httpserver.HttpServer
	pool       *worker.Pool
	log        zerolog.Logger
}

// NewApplication assembles the runnable parts. pool is nil when the embedded
// worker is disabled.
func NewApplication(httpServer *httpserver.HttpServer, pool *worker.Pool, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		pool:       pool,
		log:        log,
	}
}

// Start runs the HTTP server and the embedded worker pool until ctx is cancelled.
func (a *Application) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.httpServer.Run(gctx)
	})
	if a.pool != nil {
		g.Go(func() error {
			return a.pool.Run(gctx)
		})
	}
	return g.Wait()
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	db, err := newGormDB(ctx, newDatabaseConfig(cfg), log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize database")
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Error().Err(err).Msg("close database")
		}
	}()

	authValidator, err := auth.NewValidator(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize auth validator")
	}
	defer authValidator.Close()

	txDB := transaction.NewDatabase(db)
	gateway := idempotency.NewGateway(txDB, idempotencyrepo.NewPostgresRepository(txDB), newIdempotencyConfig(cfg), log)
	issueRepository, err := newIssueRepository(txDB)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize issue repository")
	}
	newsletterService := newsletter.NewService(txDB, issueRepository, subscriberrepo.NewPostgresRepository(txDB), log)
	deliveryQueue := queue.NewPostgresQueue(txDB, log)

	pool, err := newEmbeddedPool(cfg, txDB, deliveryQueue, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize worker pool")
	}

	handlerProvider := handlers.NewProvider(gateway, newsletterService, deliveryQueue, log)
	httpServer := httpserver.New(cfg, log, handlerProvider, authValidator, newReadinessProbe(db))
	app := NewApplication(httpServer, pool, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}

func newDatabaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		DSN:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	}
}

func newGormDB(ctx context.Context, cfg database.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(ctx, db, log); err != nil {
		return nil, err
	}
	return db, nil
}

func newIdempotencyConfig(cfg *config.Config) idempotency.Config {
	return idempotency.Config{ReclaimAfter: cfg.IdempotencyReclaimAfter}
}

func newIssueRepository(txDB *transaction.Database) (*newsletterrepo.CachedRepository, error) {
	return newsletterrepo.NewCachedRepository(newsletterrepo.NewPostgresRepository(txDB), txDB, issueCacheSize)
}

func newReadinessProbe(db *gorm.DB) httpserver.ReadinessProbe {
	return func(ctx context.Context) error {
		return database.Ping(ctx, db)
	}
}

func newDeliveryExecutor(cfg *config.Config, txDB *transaction.Database, q *queue.PostgresQueue, log zerolog.Logger) (*delivery.Executor, error) {
	sender, err := emailclient.NewClient(emailclient.Config{
		BaseURL:            cfg.EmailBaseURL,
		Sender:             cfg.EmailSender,
		AuthToken:          cfg.EmailAuthToken,
		Timeout:            cfg.EmailTimeout,
		RateLimit:          cfg.EmailRateLimit,
		RateBurst:          cfg.EmailRateBurst,
		BreakerMaxFailures: cfg.EmailBreakerFailures,
		BreakerCooldown:    cfg.EmailBreakerCooldown,
	}, log)
	if err != nil {
		return nil, err
	}

	sanitizer := telemetry.NewSanitizer(telemetry.PIILevel(cfg.TelemetryPIILevel), cfg.ServiceName+"/"+cfg.Environment)
	return delivery.NewExecutor(txDB, q, sender, delivery.Config{
		SendTimeout:     cfg.WorkerTaskTimeout,
		RedactRecipient: sanitizer.SanitizeEmail,
		RedactText:      sanitizer.SanitizeText,
	}, log), nil
}

// newEmbeddedPool returns nil when the embedded worker is disabled.
func newEmbeddedPool(cfg *config.Config, txDB *transaction.Database, q *queue.PostgresQueue, log zerolog.Logger) (*worker.Pool, error) {
	if !cfg.WorkerEnabled {
		log.Info().Msg("embedded delivery worker disabled")
		return nil, nil
	}
	executor, err := newDeliveryExecutor(cfg, txDB, q, log)
	if err != nil {
		return nil, err
	}
	return newWorkerPool(cfg, executor, log)
}

func newWorkerPool(cfg *config.Config, executor *delivery.Executor, log zerolog.Logger) (*worker.Pool, error) {
	instr, err := worker.NewInstrumenter()
	if err != nil {
		return nil, err
	}
	return worker.NewPool(executor, instr, worker.Config{
		WorkerCount:     cfg.WorkerCount,
		PollInterval:    cfg.WorkerPollInterval,
		RetryInterval:   cfg.WorkerRetryInterval,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, log), nil
}
