package container

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"visitstats/internal/config"
	"visitstats/internal/metrics"
	"visitstats/internal/repository"
	"visitstats/internal/service"
	"visitstats/pkg/database"
	"visitstats/pkg/logger"
	"visitstats/pkg/redis"
)

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *logger.Logger
	Registry    *prometheus.Registry
	Metrics     metrics.Sink
	RedisClient *redis.Client
	DB          *database.PostgresDB
	Store       repository.VisitStore
	Services    *service.Services
}

// New creates a new dependency injection container and opens the configured store
func New(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*Container, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c := &Container{
		Config:   cfg,
		Logger:   logger,
		Registry: registry,
		Metrics:  metrics.NewPrometheusSink(registry, logger),
	}

	store, err := c.openStore(ctx)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.Store = store

	logger.WithField("backend", cfg.StoreBackend).Info("Visit store initialized successfully")

	c.Services = &service.Services{
		Visitor: service.NewVisitorService(store, logger, service.VisitorOptions{
			SaveInterval: cfg.SaveInterval,
			Location:     cfg.Timezone,
			Metrics:      c.Metrics,
		}),
	}

	return c, nil
}

// openStore builds the VisitStore selected by STORE_BACKEND
func (c *Container) openStore(ctx context.Context) (repository.VisitStore, error) {
	cfg := c.Config

	switch cfg.StoreBackend {
	case repository.BackendFile:
		return repository.NewFileStore(cfg.StateFile)

	case repository.BackendSQLite:
		return repository.NewSQLiteStore(ctx, cfg.SQLitePath)

	case repository.BackendPostgres:
		db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		c.DB = db
		return repository.NewPostgresStore(ctx, db)

	case repository.BackendRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required for the redis backend")
		}
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, c.Logger.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		c.RedisClient = client
		return repository.NewRedisStore(client), nil
	}

	return nil, fmt.Errorf("unknown STORE_BACKEND %q (want file, sqlite, postgres or redis)", cfg.StoreBackend)
}

// GetVisitorService returns the visitor service
func (c *Container) GetVisitorService() service.VisitorService {
	return c.Services.Visitor
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// HealthChecks returns a probe per networked dependency in use
func (c *Container) HealthChecks() map[string]HealthCheck {
	checks := make(map[string]HealthCheck)
	if c.RedisClient != nil {
		checks["redis"] = c.RedisClient.Health
	}
	if c.DB != nil {
		checks["postgres"] = c.DB.Health
	}
	return checks
}

// Close releases the store and any connections the container opened
func (c *Container) Close() error {
	var firstErr error
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			firstErr = fmt.Errorf("close store: %w", err)
		}
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close redis: %w", err)
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}
	return firstErr
}
