package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	. "github.com/go-ozzo/ozzo-validation"
	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverSQLite   = "sqlite"
)

type Config struct {
	// application settings
	Environment string `env:"ENVIRONMENT" env-default:"development"`
	ServiceName string `env:"SERVICE_NAME" env-default:"pr-readiness"`

	// logging configuration
	LogLevel     string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat    string `env:"LOG_FORMAT" env-default:"text"`
	LogAddSource bool   `env:"LOG_ADD_SOURCE" env-default:"false"`

	// storage backend, postgres or sqlite
	StorageDriver string `env:"STORAGE_DRIVER" env-default:"postgres"`
	SQLitePath    string `env:"SQLITE_PATH" env-default:"data/pr-readiness.db"`
	SQLiteSlowMS  int64  `env:"SQLITE_SLOW_QUERY_MS" env-default:"200"`

	// database connection settings
	DatabaseHost     string `env:"DATABASE_HOST" env-default:"localhost"`
	DatabasePort     int    `env:"DATABASE_PORT" env-default:"5432"`
	DatabaseUser     string `env:"DATABASE_USER" env-default:"postgres"`
	DatabasePassword string `env:"DATABASE_PASSWORD"`
	DatabaseName     string `env:"DATABASE_NAME" env-default:"postgres"`
	DatabaseSchema   string `env:"DATABASE_SCHEMA" env-default:"public"`
	DatabaseSSLMode  string `env:"DATABASE_SSL_MODE" env-default:"require"`

	// database connection pool settings
	DatabaseMaxConns          int32         `env:"DATABASE_MAX_CONNS" env-default:"25"`
	DatabaseMinConns          int32         `env:"DATABASE_MIN_CONNS" env-default:"5"`
	DatabaseMaxConnLifetime   time.Duration `env:"DATABASE_MAX_CONN_LIFETIME" env-default:"1h"`
	DatabaseMaxConnIdleTime   time.Duration `env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
	DatabaseHealthCheckPeriod time.Duration `env:"DATABASE_HEALTH_CHECK_PERIOD" env-default:"1m"`
	DatabaseConnectTimeout    time.Duration `env:"DATABASE_CONNECT_TIMEOUT" env-default:"30s"`
	DatabaseConnectRetries    uint64        `env:"DATABASE_CONNECT_RETRIES" env-default:"5"`
	DatabaseConnectBackoff    time.Duration `env:"DATABASE_CONNECT_BACKOFF" env-default:"1s"`

	// database migrations settings
	DatabaseMigrationEnabled bool          `env:"DATABASE_MIGRATION_ENABLED" env-default:"true"`
	DatabaseMigrationTimeout time.Duration `env:"DATABASE_MIGRATION_TIMEOUT" env-default:"5m"`
	DatabaseMigrationTable   string        `env:"DATABASE_MIGRATION_TABLE" env-default:"schema_version"`

	// github api client
	GitHubToken          string        `env:"GITHUB_TOKEN"`
	GitHubBaseURL        string        `env:"GITHUB_BASE_URL" env-default:"https://api.github.com/"`
	GitHubRequestTimeout time.Duration `env:"GITHUB_REQUEST_TIMEOUT" env-default:"15s"`
	GitHubMaxRetries     uint64        `env:"GITHUB_MAX_RETRIES" env-default:"2"`
	GitHubRetryBaseDelay time.Duration `env:"GITHUB_RETRY_BASE_DELAY" env-default:"500ms"`
	GitHubRetryMaxDelay  time.Duration `env:"GITHUB_RETRY_MAX_DELAY" env-default:"5s"`

	// tracking policies
	RetainClosed    bool          `env:"RETAIN_CLOSED" env-default:"false"`
	StorePartial    bool          `env:"STORE_PARTIAL" env-default:"true"`
	MaxBatchRefresh int           `env:"MAX_BATCH_REFRESH" env-default:"30"`
	ReadinessTTL    time.Duration `env:"READINESS_CACHE_TTL" env-default:"10m"`
	TimelineTTL     time.Duration `env:"TIMELINE_CACHE_TTL" env-default:"30m"`

	// per client limit on readiness endpoints
	ReadinessRateLimit  int           `env:"READINESS_RATE_LIMIT" env-default:"30"`
	ReadinessRateWindow time.Duration `env:"READINESS_RATE_WINDOW" env-default:"1m"`

	// http server configuration
	ServerHost           string        `env:"SERVER_HOST" env-default:"0.0.0.0"`
	ServerPort           int           `env:"SERVER_PORT" env-default:"8081"`
	ServerReadTimeout    time.Duration `env:"SERVER_READ_TIMEOUT" env-default:"30s"`
	ServerWriteTimeout   time.Duration `env:"SERVER_WRITE_TIMEOUT" env-default:"60s"`
	ServerIdleTimeout    time.Duration `env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`
	ServerRequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" env-default:"45s"`
	CORSAllowOrigin      string        `env:"CORS_ALLOW_ORIGIN" env-default:"*"`
}

func New() (*Config, error) {
	var cfg Config

	// read from .env file if exists (optional)
	if err := cleanenv.ReadConfig(".env", &cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read dotenv file: %w", err)
	}

	// read from environment variables (required)
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return ValidateStruct(c,
		Field(&c.StorageDriver, Required, In(StorageDriverPostgres, StorageDriverSQLite)),
		Field(&c.SQLitePath, By(c.requiredFor(StorageDriverSQLite))),
		Field(&c.DatabasePassword, By(c.requiredFor(StorageDriverPostgres))),
		Field(&c.MaxBatchRefresh, Required, Min(1), Max(100)),
		Field(&c.ReadinessTTL, Min(time.Duration(0)), Max(24*time.Hour)),
		Field(&c.TimelineTTL, Min(time.Duration(0)), Max(24*time.Hour)),
		Field(&c.ReadinessRateLimit, Required, Min(1)),
		Field(&c.ReadinessRateWindow, Required, Min(time.Second)),
		Field(&c.ServerPort, Required, Min(1), Max(65535)),
	)
}

// requiredFor makes a string setting mandatory only for the given storage driver.
func (c *Config) requiredFor(driver string) RuleFunc {
	return func(value interface{}) error {
		if c.StorageDriver != driver {
			return nil
		}
		if s, _ := value.(string); s == "" {
			return errors.New("cannot be blank")
		}
		return nil
	}
}
