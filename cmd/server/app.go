package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/phrazzld/taskdeck-api/internal/cache"
	"github.com/phrazzld/taskdeck-api/internal/config"
	"github.com/phrazzld/taskdeck-api/internal/platform/metrics"
	"github.com/phrazzld/taskdeck-api/internal/platform/postgres"
	"github.com/phrazzld/taskdeck-api/internal/service"
	"github.com/phrazzld/taskdeck-api/internal/service/auth"
)

// application holds the wired dependencies of the running server.
type application struct {
	config *config.Config
	logger *slog.Logger

	db          *sql.DB
	redisClient redis.UniversalClient

	registry *prometheus.Registry
	metrics  *metrics.Metrics
	cache    *cache.Cache

	jwtService      auth.JWTService
	taskService     service.TaskService
	categoryService service.CategoryService
}

// newApplication wires the stores, cache, and services from configuration.
// The database is migrated to the current schema before any service touches
// it.
func newApplication(cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	db, err := setupDatabase(cfg, logger)
	if err != nil {
		return nil, err
	}
	app.db = db

	if err := postgres.RunMigrations(context.Background(), db, logger); err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	app.registry = prometheus.NewRegistry()
	app.metrics = metrics.New(app.registry)

	backend, err := app.setupCacheBackend()
	if err != nil {
		app.cleanup()
		return nil, err
	}
	app.cache = cache.New(backend, logger, app.metrics)

	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}

	taskStore := postgres.NewTaskStore(db, logger)
	statsStore := postgres.NewStatsStore(db, logger)
	categoryStore := postgres.NewCategoryStore(db, logger)

	app.taskService, err = service.NewTaskService(db, taskStore, statsStore, app.cache, app.metrics, logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	app.categoryService, err = service.NewCategoryService(categoryStore, app.cache, logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create category service: %w", err)
	}

	return app, nil
}

// setupCacheBackend selects Redis when configured, otherwise the in-process
// memory backend.
func (app *application) setupCacheBackend() (cache.Backend, error) {
	if app.config.Cache.RedisURL == "" {
		app.logger.Info("Using in-process cache backend")
		return cache.NewMemoryBackend(), nil
	}

	opts, err := redis.ParseURL(app.config.Cache.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	app.redisClient = client
	app.logger.Info("Using Redis cache backend")
	return cache.NewRedisBackend(client, app.config.Cache.KeyPrefix), nil
}

// run starts the HTTP server and blocks until shutdown.
func (app *application) run(ctx context.Context) error {
	return app.startHTTPServer(ctx, app.setupRouter())
}

// cleanup releases held connections. Safe to call with partially wired
// dependencies.
func (app *application) cleanup() {
	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			app.logger.Error("Failed to close redis client", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Failed to close database connection", "error", err)
		}
	}
}
