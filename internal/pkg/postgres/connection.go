package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ZertGraf/pr-readiness/internal/pkg/logger"
)

type Connection struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
	config *Config
}

func New(logger *logger.Logger, config *Config) (*Connection, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid postgres config: %w", err)
	}
	return &Connection{
		config: config,
		logger: logger.Component("database/postgres"),
	}, nil
}

// Connect opens the pool and pings it, retrying with exponential backoff
// while the server refuses connections.
func (c *Connection) Connect(ctx context.Context) error {
	cfg, err := pgxpool.ParseConfig(c.config.DSN())
	if err != nil {
		return fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	cfg.MaxConns = c.config.MaxConns
	cfg.MinConns = c.config.MinConns
	cfg.MaxConnLifetime = c.config.MaxConnLifetime
	cfg.MaxConnIdleTime = c.config.MaxConnIdleTime
	cfg.HealthCheckPeriod = c.config.HealthCheckPeriod

	policy := backoff.NewExponentialBackOff()
	if c.config.ConnectBackoff > 0 {
		policy.InitialInterval = c.config.ConnectBackoff
	}
	policy.MaxInterval = 10 * time.Second

	attempt := 0
	pool, err := backoff.RetryWithData(func() (*pgxpool.Pool, error) {
		attempt++
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to create postgres pool: %w", err))
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			c.logger.Warn("postgres not reachable yet",
				"attempt", attempt,
				"dsn", c.config.Redacted(),
				"error", err)
			return nil, fmt.Errorf("failed to ping postgres: %w", err)
		}
		return pool, nil
	}, backoff.WithContext(backoff.WithMaxRetries(policy, c.config.ConnectRetries), ctx))
	if err != nil {
		return err
	}

	c.pool = pool

	c.logger.Info("postgres connection established",
		"host", c.config.Host,
		"database", c.config.Database,
		"max_conns", c.config.MaxConns,
		"attempts", attempt)

	return nil
}

func (c *Connection) Pool() *pgxpool.Pool {
	if c.pool == nil {
		panic("postgres connection not established, call Connect() first")
	}
	return c.pool
}

func (c *Connection) Close() {
	if c.pool != nil {
		c.pool.Close()
	}
}

func (c *Connection) Health(ctx context.Context) error {
	if c.pool == nil {
		return fmt.Errorf("postgres pool not initialized")
	}
	return c.pool.Ping(ctx)
}
