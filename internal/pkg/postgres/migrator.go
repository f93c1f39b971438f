package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/tern/v2/migrate"

	"github.com/ZertGraf/pr-readiness/internal/pkg/logger"
	"github.com/ZertGraf/pr-readiness/migrations"
)

type MigrationConfig struct {
	Timeout   time.Duration `json:"timeout"`
	TableName string        `json:"table_name"`
	Enabled   bool          `json:"enabled"`
}

// Migrator applies the embedded schema migrations with tern.
type Migrator struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
	config *MigrationConfig
}

func NewMigrator(pool *pgxpool.Pool, config *MigrationConfig, logger *logger.Logger) *Migrator {
	return &Migrator{
		pool:   pool,
		logger: logger.Component("postgres/migrator"),
		config: config,
	}
}

// withMigrator hands fn a tern migrator bound to one pooled connection.
func (m *Migrator) withMigrator(ctx context.Context, load bool, fn func(*migrate.Migrator) error) error {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	migrator, err := migrate.NewMigrator(ctx, conn.Conn(), m.config.TableName)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if load {
		if err := migrator.LoadMigrations(migrations.MigrationFiles); err != nil {
			return fmt.Errorf("load migrations: %w", err)
		}
	}

	return fn(migrator)
}

func (m *Migrator) RunMigrations(ctx context.Context) error {
	if !m.config.Enabled {
		m.logger.Info("migrations disabled, skipping")
		return nil
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, m.config.Timeout)
	defer cancel()

	return m.withMigrator(ctx, true, func(migrator *migrate.Migrator) error {
		current, err := migrator.GetCurrentVersion(ctx)
		if err != nil {
			return fmt.Errorf("get current version: %w", err)
		}

		latest := int32(len(migrator.Migrations))
		if current >= latest {
			m.logger.Info("schema up to date", "version", current)
			return nil
		}

		for _, pending := range migrator.Migrations[current:] {
			m.logger.Debug("pending migration", "sequence", pending.Sequence, "name", pending.Name)
		}

		migrator.OnStart = func(sequence int32, name, direction, _ string) {
			m.logger.Info("applying migration", "sequence", sequence, "name", name, "direction", direction)
		}

		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}

		m.logger.Info("migrations applied",
			"from_version", current,
			"to_version", latest,
			"duration", time.Since(start))
		return nil
	})
}

func (m *Migrator) CurrentVersion(ctx context.Context) (int32, error) {
	var version int32
	err := m.withMigrator(ctx, false, func(migrator *migrate.Migrator) error {
		var err error
		version, err = migrator.GetCurrentVersion(ctx)
		return err
	})
	return version, err
}

func (m *Migrator) Health(ctx context.Context) error {
	if _, err := m.CurrentVersion(ctx); err != nil {
		return fmt.Errorf("migration health check failed: %w", err)
	}
	return nil
}
