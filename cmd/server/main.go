// Package main is the entry point for the API server.
// It loads configuration, connects PostgreSQL and the cache, wires the
// services and serves HTTP until it receives SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arbitra/internal/config"
	"arbitra/internal/events"
	"arbitra/internal/handlers"
	"arbitra/internal/middleware"
	"arbitra/internal/repositories"
	"arbitra/internal/repositories/cache"
	"arbitra/internal/routes"
	"arbitra/internal/services/apikey"
	"arbitra/internal/services/dispute"
	"arbitra/internal/services/notification"
	"arbitra/internal/services/reminder"
	"arbitra/internal/services/stats"

	"gorm.io/gorm"
)

// store is what both the case and statistics services need from the cache.
type store interface {
	dispute.Cache
	HealthCheck(ctx context.Context) error
	Close() error
}

func main() {
	config.LoadEnv()
	cfg := config.Load()

	level := slog.LevelInfo
	if !config.IsProduction() {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if err := run(cfg); err != nil {
		slog.Error("server stopped", "module", "main", "operation", "run", "outcome", "failure", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	if cfg.JWTSecret == "" {
		slog.Warn("JWT_SECRET is empty, bearer tokens are disabled", "module", "main")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repositories.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := repositories.Close(db); err != nil {
			slog.Warn("failed to close database", "module", "main", "error", err)
		}
	}()
	if err := repositories.Migrate(db); err != nil {
		return err
	}

	caseCache := openCache(ctx, cfg)
	defer caseCache.Close()

	dispatcher := notification.NewDispatcher(newSender(cfg), notification.DispatcherConfig{
		Workers:   cfg.Email.Workers,
		QueueSize: cfg.Email.Queue,
		Timeout:   cfg.Email.Timeout,
	})
	defer dispatcher.Close()

	publisher := newPublisher(cfg)
	defer publisher.Close()

	disputeRepo := repositories.NewDisputeRepository(db)
	disputeService := dispute.NewService(disputeRepo, caseCache, dispatcher, publisher, dispute.Config{CaseTTL: cfg.CaseCacheTTL})
	statsService := stats.NewService(repositories.NewStatsRepository(db), caseCache, cfg.StatsCacheTTL)
	keyService := apikey.NewService(repositories.NewAPIKeyRepository(db))

	go reminder.NewSweeper(disputeRepo, dispatcher).Schedule(ctx)

	app := routes.NewApp(routes.AppConfig{
		CORSOrigins:    cfg.CORSOrigins,
		RateLimitMax:   cfg.RateLimitMax,
		AccessLog:      !config.IsProduction(),
		TrustedProxies: cfg.TrustedProxies,
	})
	routes.SetupRoutes(app, routes.Deps{
		Disputes: disputeService,
		Stats:    statsService,
		Keys:     keyService,
		Auth:     middleware.NewAuthMiddleware(keyService, cfg.JWTSecret),
		Health:   healthChecks(db, caseCache),
	})

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "module", "main", "operation", "listen", "port", cfg.Port)
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down", "module", "main", "operation", "shutdown")
	if err := app.ShutdownWithTimeout(15 * time.Second); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// openCache prefers Redis and falls back to the in-process cache when Redis
// is not configured or unreachable at startup.
func openCache(ctx context.Context, cfg *config.Config) store {
	if !cfg.Redis.Enabled() {
		slog.Info("REDIS_HOST not set, using in-memory cache", "module", "main", "operation", "cache")
		return cache.NewMemoryCache()
	}

	client := cache.NewRedisClient(&cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	redisCache := cache.NewCacheService(client, cfg.CaseCacheTTL)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := redisCache.HealthCheck(pingCtx); err != nil {
		slog.Warn("redis unreachable, using in-memory cache",
			"module", "main",
			"operation", "cache",
			"outcome", "degraded",
			"error", err,
		)
		_ = redisCache.Close()
		return cache.NewMemoryCache()
	}
	slog.Info("redis connected", "module", "main", "operation", "cache", "outcome", "success")
	return redisCache
}

func newSender(cfg *config.Config) notification.Sender {
	if cfg.Email.APIURL == "" {
		return notification.LogSender{}
	}
	return notification.NewHTTPSender(cfg.Email.APIURL, cfg.Email.Token, cfg.Email.Sender, cfg.Email.Timeout)
}

func newPublisher(cfg *config.Config) events.Publisher {
	if len(cfg.Kafka.Brokers) == 0 {
		return events.NoopPublisher{}
	}
	publisher, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err != nil {
		slog.Warn("kafka publisher disabled", "module", "main", "operation", "events", "error", err)
		return events.NoopPublisher{}
	}
	return publisher
}

func healthChecks(db *gorm.DB, c store) map[string]handlers.Check {
	return map[string]handlers.Check{
		"database": func(ctx context.Context) error { return repositories.Ping(ctx, db) },
		"cache":    c.HealthCheck,
	}
}
