package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"customer-registry/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultMaxConns = 10

	cascadeConstraintSQL = `
        SELECT COUNT(*)
        FROM pg_constraint
        WHERE contype = 'f'
          AND conrelid = 'addresses'::regclass
          AND confrelid = 'customers'::regclass
          AND confdeltype = 'c'`
)

type pinger interface {
	Ping(ctx context.Context) error
}

func NewConnectionPool(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is empty in configuration")
	}

	poolConfig, err := configurePool(cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("Connecting to PostgreSQL database...")
	dbpool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := verifyConnection(ctx, dbpool, logger); err != nil {
		dbpool.Close()
		return nil, err
	}

	logger.Info("Successfully connected to PostgreSQL database.", "host", poolConfig.ConnConfig.Host, "db", poolConfig.ConnConfig.Database)
	return dbpool, nil
}

// configurePool applies pool sizing and the per-session timeouts that keep
// a stuck unit of work from holding customer locks forever.
func configurePool(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config from URL: %w", err)
	}

	poolConfig.MaxConns = defaultMaxConns
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	if cfg.StatementTimeout > 0 {
		ms := strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
		poolConfig.ConnConfig.RuntimeParams["statement_timeout"] = ms
		poolConfig.ConnConfig.RuntimeParams["idle_in_transaction_session_timeout"] = ms
	}

	return poolConfig, nil
}

func verifyConnection(ctx context.Context, dbpool pinger, logger *slog.Logger) error {
	logger.Info("Pinging database...")
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := dbpool.Ping(pingCtx); err != nil {
		logger.Error("Failed to ping database", "error", err)
		return fmt.Errorf("failed to ping database on connect: %w", err)
	}

	return nil
}

// VerifyCascade fails unless the addresses foreign key deletes with its
// customer. Without it a customer delete could strand addresses.
func VerifyCascade(ctx context.Context, db DBPool, logger *slog.Logger) error {
	var count int
	if err := db.QueryRow(ctx, cascadeConstraintSQL).Scan(&count); err != nil {
		logger.Error("Failed to inspect foreign key constraints", "error", err)
		return fmt.Errorf("failed to inspect foreign key constraints: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("addresses.customer_id is not declared ON DELETE CASCADE")
	}
	logger.Info("Verified cascading delete from customers to addresses")
	return nil
}
