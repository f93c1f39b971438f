package bootstrap

import (
	"context"
	"fmt"

	"github.com/ZertGraf/pr-readiness/internal/api"
	"github.com/ZertGraf/pr-readiness/internal/api/handler"
	"github.com/ZertGraf/pr-readiness/internal/github"
	"github.com/ZertGraf/pr-readiness/internal/pkg/config"
	"github.com/ZertGraf/pr-readiness/internal/pkg/logger"
	"github.com/ZertGraf/pr-readiness/internal/pkg/postgres"
	"github.com/ZertGraf/pr-readiness/internal/pkg/sqlite"
	"github.com/ZertGraf/pr-readiness/internal/readiness"
	"github.com/ZertGraf/pr-readiness/internal/repository"
	"github.com/ZertGraf/pr-readiness/internal/service"
)

// database is the part of a storage connection the application manages.
type database interface {
	Health(ctx context.Context) error
	Close()
}

type Application struct {
	Config *config.Config
	Logger *logger.Logger

	Postgres *postgres.Connection
	Migrator *postgres.Migrator
	SQLite   *sqlite.Connection
	database database

	GitHub     *github.Client
	Aggregator *readiness.Aggregator

	PRRepo    repository.PRRepository
	PRService *service.PRService

	PRHandler     *handler.PRHandler
	SystemHandler *handler.SystemHandler

	HTTPServer *api.HTTPServer
}

func New() (*Application, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		AddSource: cfg.LogAddSource,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	gh, err := github.New(&github.Config{
		Token:          cfg.GitHubToken,
		BaseURL:        cfg.GitHubBaseURL,
		Timeout:        cfg.GitHubRequestTimeout,
		MaxRetries:     cfg.GitHubMaxRetries,
		RetryBaseDelay: cfg.GitHubRetryBaseDelay,
		RetryMaxDelay:  cfg.GitHubRetryMaxDelay,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create github client: %w", err)
	}

	app := &Application{
		Config: cfg,
		Logger: log,
		GitHub: gh,
	}

	switch cfg.StorageDriver {
	case config.StorageDriverSQLite:
		app.SQLite, err = sqlite.New(log, &sqlite.Config{
			Path:      cfg.SQLitePath,
			SlowQuery: cfg.SQLiteSlowMS,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create sqlite connection: %w", err)
		}
		app.database = app.SQLite
	default:
		app.Postgres, err = postgres.New(log, &postgres.Config{
			Host:              cfg.DatabaseHost,
			Port:              cfg.DatabasePort,
			Username:          cfg.DatabaseUser,
			Password:          cfg.DatabasePassword,
			Database:          cfg.DatabaseName,
			Schema:            cfg.DatabaseSchema,
			SSLMode:           cfg.DatabaseSSLMode,
			MaxConns:          cfg.DatabaseMaxConns,
			MinConns:          cfg.DatabaseMinConns,
			MaxConnLifetime:   cfg.DatabaseMaxConnLifetime,
			MaxConnIdleTime:   cfg.DatabaseMaxConnIdleTime,
			HealthCheckPeriod: cfg.DatabaseHealthCheckPeriod,
			ConnectTimeout:    cfg.DatabaseConnectTimeout,
			ConnectRetries:    cfg.DatabaseConnectRetries,
			ConnectBackoff:    cfg.DatabaseConnectBackoff,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres connection: %w", err)
		}
		app.database = app.Postgres
	}

	return app, nil
}

// Init connects storage and starts the HTTP server. On failure everything
// opened so far is released before the error is returned.
func (app *Application) Init(ctx context.Context) (err error) {
	app.Logger.Info("initializing application", "storage", app.Config.StorageDriver)

	defer func() {
		if err != nil {
			app.release()
		}
	}()

	if err = app.initStorage(ctx); err != nil {
		return err
	}

	if app.Config.GitHubToken == "" {
		app.Logger.Warn("GITHUB_TOKEN not set, github allows 60 unauthenticated requests per hour")
	}

	app.Aggregator = readiness.NewAggregator(app.GitHub, app.Logger)

	app.PRService = service.NewPRService(app.PRRepo, app.Aggregator,
		service.Policy{
			RetainClosed:    app.Config.RetainClosed,
			StorePartial:    app.Config.StorePartial,
			MaxBatchRefresh: app.Config.MaxBatchRefresh,
		},
		service.CacheConfig{
			TTL:         app.Config.ReadinessTTL,
			TimelineTTL: app.Config.TimelineTTL,
			Capacity:    10_000,
		},
		app.Logger,
	)

	app.PRHandler = handler.NewPRHandler(app.PRService, app.Logger)
	app.SystemHandler = handler.NewSystemHandler(app, app.GitHub, app.Config.StorageDriver, app.Logger)

	app.HTTPServer = api.NewHTTPServer(&api.ServerConfig{
		Host:            app.Config.ServerHost,
		Port:            app.Config.ServerPort,
		ReadTimeout:     app.Config.ServerReadTimeout,
		WriteTimeout:    app.Config.ServerWriteTimeout,
		IdleTimeout:     app.Config.ServerIdleTimeout,
		RequestTimeout:  app.Config.ServerRequestTimeout,
		AllowOrigin:     app.Config.CORSAllowOrigin,
		ReadinessLimit:  app.Config.ReadinessRateLimit,
		ReadinessWindow: app.Config.ReadinessRateWindow,
	},
		app.PRHandler,
		app.SystemHandler,
		app.Logger,
	)

	if err = app.HTTPServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start http server: %w", err)
	}

	app.Logger.Info("application initialized successfully")
	return nil
}

// initStorage connects the configured driver, brings its schema up to date
// and builds the repository on top of it.
func (app *Application) initStorage(ctx context.Context) error {
	if app.SQLite != nil {
		if err := app.SQLite.Connect(ctx); err != nil {
			return fmt.Errorf("sqlite connection failed: %w", err)
		}

		repo := repository.NewSQLitePRRepo(app.SQLite.DB(), app.Logger)
		if err := repo.Migrate(ctx); err != nil {
			return fmt.Errorf("sqlite migration failed: %w", err)
		}
		app.PRRepo = repo
		return nil
	}

	if err := app.Postgres.Connect(ctx); err != nil {
		return fmt.Errorf("postgres connection failed: %w", err)
	}

	app.Migrator = postgres.NewMigrator(app.Postgres.Pool(), &postgres.MigrationConfig{
		Timeout:   app.Config.DatabaseMigrationTimeout,
		TableName: app.Config.DatabaseMigrationTable,
		Enabled:   app.Config.DatabaseMigrationEnabled,
	}, app.Logger)

	if err := app.Migrator.RunMigrations(ctx); err != nil {
		return fmt.Errorf("database migrations failed: %w", err)
	}

	app.PRRepo = repository.NewPRRepo(app.Postgres.Pool(), app.Logger)
	return nil
}

func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("shutting down application")

	if app.HTTPServer != nil {
		if err := app.HTTPServer.Stop(ctx); err != nil {
			app.Logger.Error("error stopping http server", "error", err)
		}
	}

	app.release()

	app.Logger.Info("application shutdown completed")
	return nil
}

// release stops the service caches and closes the database.
func (app *Application) release() {
	if app.PRService != nil {
		app.PRService.Close()
	}
	app.database.Close()
}

// Health checks the database and, for postgres, the migration table.
func (app *Application) Health(ctx context.Context) error {
	if err := app.database.Health(ctx); err != nil {
		return fmt.Errorf("%s health check failed: %w", app.Config.StorageDriver, err)
	}
	if app.Migrator != nil {
		if err := app.Migrator.Health(ctx); err != nil {
			return fmt.Errorf("migrator health check failed: %w", err)
		}
	}
	return nil
}
