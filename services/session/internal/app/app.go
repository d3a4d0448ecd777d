package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/akulebyakin/sdc-cloud-sports-coaching/pkg/database"
	"github.com/akulebyakin/sdc-cloud-sports-coaching/pkg/health"
	"github.com/akulebyakin/sdc-cloud-sports-coaching/pkg/httpclient"
	pkgkafka "github.com/akulebyakin/sdc-cloud-sports-coaching/pkg/kafka"
	"github.com/akulebyakin/sdc-cloud-sports-coaching/services/session/internal/client"
	"github.com/akulebyakin/sdc-cloud-sports-coaching/services/session/internal/config"
	"github.com/akulebyakin/sdc-cloud-sports-coaching/services/session/internal/event"
	handler "github.com/akulebyakin/sdc-cloud-sports-coaching/services/session/internal/handler/http"
	"github.com/akulebyakin/sdc-cloud-sports-coaching/services/session/internal/migrations"
	"github.com/akulebyakin/sdc-cloud-sports-coaching/services/session/internal/repository/postgres"
	"github.com/akulebyakin/sdc-cloud-sports-coaching/services/session/internal/service"
)

// App wires together all dependencies and runs the session service.
type App struct {
	cfg         *config.Config
	logger      *slog.Logger
	pool        *pgxpool.Pool
	redis       *redis.Client
	newConsumer func() *pkgkafka.Consumer
	dlq         *pkgkafka.DLQProducer
	notifier    *client.Notifier
	httpServer  *http.Server

	consumerMu sync.Mutex
	consumer   *pkgkafka.Consumer
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// PostgreSQL connection pool.
	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}

	pool, err := database.NewPostgresPoolWithLogger(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.String("database", cfg.PostgresDB),
	)

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	// Redis-backed dedup ledger for processed review events.
	redisClient, err := database.NewRedisClient(ctx, database.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	dedupStore := pkgkafka.NewRedisIdempotencyStore(redisClient, cfg.DedupTTL)

	// Repositories and services.
	sessionRepo := postgres.NewSessionRepository(pool)
	userRepo := postgres.NewUserRepository(pool)

	// Coach notification worker behind a circuit breaker.
	cbClient := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.DefaultConfig()),
		httpclient.DefaultCircuitBreakerConfig("coach-service"),
		logger,
	)
	coachClient := client.NewCoachClient(cbClient, cfg.CoachServiceURL, cfg.NotifyTimeout, logger)
	notifier := client.NewNotifier(coachClient, client.NotifierConfig{
		QueueSize: cfg.NotifyQueueSize,
		Attempts:  cfg.NotifyAttempts,
		Backoff:   cfg.NotifyBackoff,
	}, logger)

	ratingService := service.NewRatingService(sessionRepo, userRepo, notifier, logger)
	sessionService := service.NewSessionService(sessionRepo, logger)
	userService := service.NewUserService(userRepo, logger)

	// Kafka consumer with DLQ and the dedup ledger. Built through a factory:
	// a consumer that halts on an uncommitted message closes its reader, so
	// the supervision loop needs a fresh one to resume.
	dlq := pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
	consumerHandler := event.NewConsumerHandler(ratingService, logger)
	newConsumer := func() *pkgkafka.Consumer {
		return event.NewReviewConsumer(cfg.KafkaBrokers, cfg.ConsumerMaxRetries, consumerHandler, dedupStore, dlq, logger)
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	// Redis only backs the dedup ledger; without it events are still
	// processed, just without replay protection.
	healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	// A broker outage stalls review propagation but the HTTP API keeps
	// serving, so readiness only degrades.
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
	})

	router := handler.NewRouter(sessionService, userService, healthHandler, logger, cfg.PprofAllowedCIDRs)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:         cfg,
		logger:      logger,
		pool:        pool,
		redis:       redisClient,
		newConsumer: newConsumer,
		dlq:         dlq,
		notifier:    notifier,
		httpServer:  httpServer,
	}, nil
}

// nextConsumer builds a fresh consumer for the supervision loop and records
// it so Shutdown can close the live reader.
func (a *App) nextConsumer() pkgkafka.Starter {
	c := a.newConsumer()
	a.consumerMu.Lock()
	a.consumer = c
	a.consumerMu.Unlock()
	return c
}

// Run starts the HTTP server, the notifier worker, and the Kafka consumer,
// then blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.notifier.Start(ctx)

	go func() {
		err := pkgkafka.RunWithRestart(ctx, a.cfg.ConsumerRestartDelay, a.logger, a.nextConsumer)
		if err != nil {
			a.logger.Error("kafka consumer stopped", slog.String("error", err.Error()))
		}
	}()

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	a.consumerMu.Lock()
	consumer := a.consumer
	a.consumerMu.Unlock()
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
		}
	}

	if err := a.dlq.Close(); err != nil {
		a.logger.Error("dlq producer close error", slog.String("error", err.Error()))
	}

	// Let the notifier drain pending coach notifications.
	a.notifier.Close()

	if err := a.redis.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return nil
}
