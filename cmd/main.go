package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"customer-registry/internal/api"
	mw "customer-registry/internal/api/middleware"
	"customer-registry/internal/batch"
	"customer-registry/internal/config"
	"customer-registry/internal/domain/customer"
	"customer-registry/internal/event"
	"customer-registry/internal/infrastructure/database/postgres"
	"customer-registry/internal/infrastructure/logging"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
)

const (
	defaultAuditSchedule = "*/30 * * * *"
	rabbitMQRetryCount   = 5
)

// @title Customer Registry API
// @version 1.0
// @description Customers and their addresses. Every customer keeps exactly one primary address.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, logger := initializeApp()

	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	dbPool := initializeDatabase(appCtx, cfg, logger)
	defer closeDatabase(dbPool, logger)

	publisher, closePublisher := initializePublisher(cfg, logger)
	defer closePublisher()

	customerRepo := postgres.NewCustomerRepository(dbPool, logger)
	customerService := customer.NewCustomerService(customerRepo, publisher, logger)

	auditJob := batch.NewPrimaryAddressAuditJob(customerRepo, logger)
	cronScheduler := startBatchJobs(cfg, logger, auditJob)

	rateLimiter, closeRateLimiter := initializeRateLimiter(appCtx, cfg, logger)
	defer closeRateLimiter()

	router := api.SetupRouter(rateLimiter, customerService, cfg, logger)

	srv, serverErrors, shutdownChan := startServer(cfg, router, logger)
	handleShutdown(srv, cronScheduler, shutdownChan, serverErrors, logger)
}

func initializeApp() (*config.Config, *slog.Logger) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.Logger)
	logger.Info("Application starting...", "log_level", cfg.Logger.Level)

	return cfg, logger
}

func initializeDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) *pgxpool.Pool {
	logger.Info("Initializing database connection pool...")
	dbPool, err := postgres.NewConnectionPool(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}

	if err := prepareSchema(ctx, dbPool, cfg.Database, logger); err != nil {
		logger.Error("Database schema is not usable", "error", err)
		dbPool.Close()
		os.Exit(1)
	}
	return dbPool
}

func prepareSchema(ctx context.Context, dbPool *pgxpool.Pool, cfg config.DatabaseConfig, logger *slog.Logger) error {
	if cfg.AutoMigrate {
		if err := postgres.RunMigrations(dbPool, logger); err != nil {
			return err
		}
	}
	if cfg.RequireCascade {
		if err := postgres.VerifyCascade(ctx, dbPool, logger); err != nil {
			return err
		}
	}
	return nil
}

func closeDatabase(dbPool *pgxpool.Pool, logger *slog.Logger) {
	logger.Info("Closing database connection pool...")
	dbPool.Close()
}

// initializePublisher falls back to logging events when RabbitMQ is disabled
// or unreachable, so the registry keeps serving writes.
func initializePublisher(cfg *config.Config, logger *slog.Logger) (event.Publisher, func()) {
	if !cfg.RabbitMQ.Enabled {
		logger.Info("RabbitMQ disabled, domain events will be logged only.")
		return event.NewLogPublisher(logger), func() {}
	}

	conn, err := connectRabbitMQ(rabbitMQURI(cfg.RabbitMQ), logger)
	if err != nil {
		logger.Error("RabbitMQ unavailable, falling back to log publisher", slog.Any("error", err))
		return event.NewLogPublisher(logger), func() {}
	}

	publisher, err := event.NewRabbitMQEventPublisher(conn, cfg.RabbitMQ.ExchangeName, logger)
	if err != nil {
		logger.Error("Failed to initialize RabbitMQ publisher, falling back to log publisher", slog.Any("error", err))
		conn.Close()
		return event.NewLogPublisher(logger), func() {}
	}

	return publisher, func() {
		logger.Info("Closing RabbitMQ connection...")
		if err := publisher.Close(); err != nil {
			logger.Error("Failed to close RabbitMQ connection", slog.Any("error", err))
		}
	}
}

func rabbitMQURI(cfg config.RabbitMQConfig) string {
	if cfg.Username != "" && cfg.Password != "" {
		return fmt.Sprintf("amqp://%s:%s@%s:%d/", cfg.Username, cfg.Password, cfg.Host, cfg.Port)
	}
	return fmt.Sprintf("amqp://%s:%d/", cfg.Host, cfg.Port)
}

func connectRabbitMQ(uri string, logger *slog.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	for i := 1; i <= rabbitMQRetryCount; i++ {
		conn, err = amqp.Dial(uri)
		if err == nil {
			logger.Info("Successfully connected to RabbitMQ")

			go func() {
				blockChan := conn.NotifyBlocked(make(chan amqp.Blocking))
				closeChan := conn.NotifyClose(make(chan *amqp.Error, 1))

				select {
				case b := <-blockChan:
					logger.Warn("RabbitMQ Connection Blocked", "reason", b.Reason)
				case e := <-closeChan:
					if e != nil {
						logger.Error("RabbitMQ Connection Closed", slog.Any("error", e))
					}
				}
			}()

			return conn, nil
		}
		logger.Warn("Failed to connect to RabbitMQ, retrying...",
			slog.Int("attempt", i),
			slog.Int("max_attempts", rabbitMQRetryCount),
			slog.Any("error", err),
		)
		time.Sleep(time.Duration(i*2) * time.Second)
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", rabbitMQRetryCount, err)
}

// initializeRateLimiter prefers the shared Redis limiter and falls back to
// per-instance buckets when Redis is disabled or unreachable.
func initializeRateLimiter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (mw.RateLimiter, func()) {
	if !cfg.Server.RateLimit.Enabled || !cfg.Redis.Enabled {
		return mw.NewRateLimiterMiddleware(ctx, cfg.Server.RateLimit, logger), func() {}
	}

	redisClient, err := initializeRedisClient(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Error("Redis unavailable, falling back to in-memory rate limiter", slog.Any("error", err))
		return mw.NewRateLimiterMiddleware(ctx, cfg.Server.RateLimit, logger), func() {}
	}

	return mw.NewRedisRateLimiterMiddleware(cfg.Server.RateLimit, redisClient, logger), func() {
		logger.Info("Closing Redis client connection...")
		if err := redisClient.Close(); err != nil {
			logger.Error("Failed to close Redis client", slog.Any("error", err))
		}
	}
}

func initializeRedisClient(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	logger.Info("Initializing Redis client...", "addr", cfg.Addr)
	if cfg.Addr == "" {
		return nil, errors.New("redis address is not configured")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
	}

	logger.Info("Redis client connected successfully.", "addr", cfg.Addr, "db", cfg.DB)
	return rdb, nil
}

func startServer(cfg *config.Config, router http.Handler, logger *slog.Logger) (*http.Server, <-chan error, <-chan os.Signal) {
	logger.Info("Setting up HTTP server...", "port", cfg.Server.Port)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Server listening on port %d", cfg.Server.Port))
		err := srv.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			serverErrors <- err
		} else {
			logger.Info("Server closed gracefully.")
			serverErrors <- nil
		}
	}()
	return srv, serverErrors, shutdownChan
}

func handleShutdown(srv *http.Server, cronScheduler *cron.Cron, shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) {
	logger.Info("Shutdown handler started. Waiting for signal or server error...")

	var triggerReason string
	select {
	case sig := <-shutdownChan:
		triggerReason = "signal: " + sig.String()
		logger.Info("Shutdown signal received.", "signal", sig.String())
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server exited unexpectedly before signal", "error", err)
			os.Exit(1)
		}
		triggerReason = "server exited"
		logger.Info("Server goroutine finished before signal.", "error", err)
	}

	logger.Info("Starting graceful shutdown...", "trigger", triggerReason)

	logger.Info("Stopping cron scheduler...")
	cronCtx := cronScheduler.Stop()
	select {
	case <-cronCtx.Done():
		logger.Info("Cron scheduler stopped gracefully.")
	case <-time.After(15 * time.Second):
		logger.Warn("Cron scheduler shutdown timed out.")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	logger.Info("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", "error", err)
		if err := srv.Close(); err != nil {
			logger.Error("HTTP server forced close failed", "error", err)
		}
	} else {
		logger.Info("HTTP server gracefully stopped.")
	}

	logger.Info("Waiting for server goroutine to confirm exit...")
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Server goroutine exited with unexpected error after shutdown", "error", err)
		} else {
			logger.Info("Server goroutine confirmed exit.")
		}
	case <-time.After(5 * time.Second):
		logger.Warn("Timed out waiting for server goroutine confirmation.")
	}

	logger.Info("Application shutdown process complete.")
}

func auditJobTimeout(cfg config.BatchConfig) time.Duration {
	if cfg.PrimaryAuditTimeout <= 0 {
		return time.Minute
	}
	return cfg.PrimaryAuditTimeout * time.Second
}

func startBatchJobs(cfg *config.Config, logger *slog.Logger, auditJob *batch.PrimaryAddressAuditJob) *cron.Cron {
	logger.Info("Initializing batch job scheduler...")
	c := cron.New()

	scheduleSpec := cfg.Batch.PrimaryAuditSchedule
	if scheduleSpec == "" {
		scheduleSpec = defaultAuditSchedule
		logger.Warn("Primary address audit schedule not configured, using default", "schedule", scheduleSpec)
	}
	jobTimeout := auditJobTimeout(cfg.Batch)

	jobID, err := c.AddJob(scheduleSpec, cron.FuncJob(func() {
		jobLogger := logger.With("job_name", "PrimaryAddressAudit")
		jobLogger.Info("Cron triggered: Running primary address audit job.")

		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		if runErr := auditJob.Run(ctx); runErr != nil {
			jobLogger.Error("Primary address audit job finished with error", slog.Any("error", runErr))
		}
	}))
	if err != nil {
		logger.Error("Failed to schedule primary address audit job", "schedule", scheduleSpec, slog.Any("error", err))
	} else {
		logger.Info("Scheduled primary address audit job", "schedule", scheduleSpec, "job_id", jobID)
	}

	c.Start()
	logger.Info("Cron scheduler started.")
	return c
}
