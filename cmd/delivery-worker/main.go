package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	gormlogger "gorm.io/gorm/logger"

	"jan-server/services/newsletter-api/internal/config"
	"jan-server/services/newsletter-api/internal/domain/delivery"
	"jan-server/services/newsletter-api/internal/infrastructure/database"
	"jan-server/services/newsletter-api/internal/infrastructure/database/transaction"
	"jan-server/services/newsletter-api/internal/infrastructure/emailclient"
	"jan-server/services/newsletter-api/internal/infrastructure/logger"
	"jan-server/services/newsletter-api/internal/infrastructure/observability"
	"jan-server/services/newsletter-api/internal/infrastructure/queue"
	"jan-server/services/newsletter-api/internal/infrastructure/telemetry"
	"jan-server/services/newsletter-api/internal/worker"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "delivery-worker",
	Short: "Drains the newsletter delivery queue",
	Long: `delivery-worker sends queued newsletter emails without serving HTTP,
so delivery can be scaled apart from the API.

Examples:
  delivery-worker run        # poll the queue until SIGINT/SIGTERM
  delivery-worker drain      # deliver until the queue is empty, then exit
  delivery-worker depth      # print the number of queued deliveries`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the worker pool until signalled",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd.Context(), config.Load, func(ctx context.Context, rt *workerRuntime) error {
			executor, err := rt.newExecutor(nil)
			if err != nil {
				return err
			}
			instr, err := worker.NewInstrumenter()
			if err != nil {
				return fmt.Errorf("initialize worker instruments: %w", err)
			}
			pool := worker.NewPool(executor, instr, worker.Config{
				WorkerCount:     rt.cfg.WorkerCount,
				PollInterval:    rt.cfg.WorkerPollInterval,
				RetryInterval:   rt.cfg.WorkerRetryInterval,
				ShutdownTimeout: rt.cfg.ShutdownTimeout,
			}, rt.log)
			return pool.Run(ctx)
		})
	},
}

var drainMaxFailures int

var drainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Deliver queued emails until the queue is empty",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd.Context(), config.Load, func(ctx context.Context, rt *workerRuntime) error {
			d := &drainer{
				maxFailures:   drainMaxFailures,
				retryInterval: rt.cfg.WorkerRetryInterval,
				log:           rt.log,
			}
			executor, err := rt.newExecutor(d.recordFailure)
			if err != nil {
				return err
			}
			d.runner = executor
			return d.run(ctx)
		})
	},
}

var depthCmd = &cobra.Command{
	Use:   "depth",
	Short: "Print the number of queued deliveries",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd.Context(), config.LoadReadOnly, func(ctx context.Context, rt *workerRuntime) error {
			depth, err := rt.queue.Depth(ctx)
			if err != nil {
				return fmt.Errorf("read queue depth: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), depth)
			return nil
		})
	},
}

func init() {
	drainCmd.Flags().IntVar(&drainMaxFailures, "max-failures", 10, "Give up after this many transient failures (0 never gives up)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(drainCmd)
	rootCmd.AddCommand(depthCmd)
}

type workerRuntime struct {
	cfg   *config.Config
	log   zerolog.Logger
	txDB  *transaction.Database
	queue *queue.PostgresQueue
}

// newExecutor connects the email provider. Only commands that send call it.
func (rt *workerRuntime) newExecutor(onFailure func(delivery.Failure)) (*delivery.Executor, error) {
	sender, err := emailclient.NewClient(emailclient.Config{
		BaseURL:            rt.cfg.EmailBaseURL,
		Sender:             rt.cfg.EmailSender,
		AuthToken:          rt.cfg.EmailAuthToken,
		Timeout:            rt.cfg.EmailTimeout,
		RateLimit:          rt.cfg.EmailRateLimit,
		RateBurst:          rt.cfg.EmailRateBurst,
		BreakerMaxFailures: rt.cfg.EmailBreakerFailures,
		BreakerCooldown:    rt.cfg.EmailBreakerCooldown,
	}, rt.log)
	if err != nil {
		return nil, fmt.Errorf("initialize email client: %w", err)
	}

	sanitizer := telemetry.NewSanitizer(telemetry.PIILevel(rt.cfg.TelemetryPIILevel), rt.cfg.ServiceName+"/"+rt.cfg.Environment)
	return delivery.NewExecutor(rt.txDB, rt.queue, sender, delivery.Config{
		SendTimeout:     rt.cfg.WorkerTaskTimeout,
		RedactRecipient: sanitizer.SanitizeEmail,
		RedactText:      sanitizer.SanitizeText,
		OnFailure:       onFailure,
	}, rt.log), nil
}

// withRuntime loads configuration, connects the database, and runs fn until
// it returns or the process is signalled.
func withRuntime(parent context.Context, loadConfig func() (*config.Config, error), fn func(ctx context.Context, rt *workerRuntime) error) error {
	if parent == nil {
		parent = context.Background()
	}
	loadEnvFiles()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := logger.New(cfg).With().Str("process", "delivery-worker").Logger()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	db, err := database.Connect(database.Config{
		DSN:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Error().Err(err).Msg("close database")
		}
	}()

	if err := database.AutoMigrate(ctx, db, log); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	txDB := transaction.NewDatabase(db)
	rt := &workerRuntime{
		cfg:   cfg,
		log:   log,
		txDB:  txDB,
		queue: queue.NewPostgresQueue(txDB, log),
	}
	if err := fn(ctx, rt); err != nil {
		return err
	}
	log.Info().Msg("delivery worker exited cleanly")
	return nil
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
