package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ZertGraf/pr-readiness/internal/pkg/logger"
)

type Connection struct {
	db     *gorm.DB
	logger *logger.Logger
	config *Config
}

func New(logger *logger.Logger, config *Config) (*Connection, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sqlite config: %w", err)
	}
	return &Connection{
		config: config,
		logger: logger.Component("database/sqlite"),
	}, nil
}

func (c *Connection) Connect(ctx context.Context) error {
	dsn := c.config.Path
	if !c.config.inMemory() {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return fmt.Errorf("create sqlite directory: %w", err)
		}
		dsn += "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  newGormLogger(c.logger, time.Duration(c.config.SlowQuery)*time.Millisecond),
	})
	if err != nil {
		return fmt.Errorf("open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sqlite handle: %w", err)
	}

	// sqlite allows one writer; an in-memory database also lives in a single connection
	sqlDB.SetMaxOpenConns(1)

	if err = sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("failed to ping sqlite: %w", err)
	}

	c.db = db
	c.logger.Info("sqlite database opened", "path", c.config.Path)
	return nil
}

func (c *Connection) DB() *gorm.DB {
	if c.db == nil {
		panic("sqlite connection not established, call Connect() first")
	}
	return c.db
}

func (c *Connection) Close() {
	if c.db == nil {
		return
	}
	if sqlDB, err := c.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			c.logger.Warn("failed to close sqlite database", "error", err)
		}
	}
}

func (c *Connection) Health(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("sqlite database not initialized")
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
