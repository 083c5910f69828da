package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/relayforge/novu-bridge/internal/config"
	"github.com/relayforge/novu-bridge/internal/handler"
	"github.com/relayforge/novu-bridge/internal/infra/postgresql"
	"github.com/relayforge/novu-bridge/internal/infra/postgresql/migrations"
	infraredis "github.com/relayforge/novu-bridge/internal/infra/redis"
	"github.com/relayforge/novu-bridge/internal/observability"
	"github.com/relayforge/novu-bridge/internal/provider"
	"github.com/relayforge/novu-bridge/internal/repository"
	"github.com/relayforge/novu-bridge/internal/service"
	"github.com/relayforge/novu-bridge/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	rateLimiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.TriggerRateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	novu, err := provider.NewNovuProvider(cfg.NovuAPIKey, cfg.NovuServerURL)
	if err != nil {
		logger.Fatal("novu provider initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	logs := repository.NewGormLogRepo(db)

	statusService, err := service.NewStatusService(logs, cfg.IngestConcurrency, logger, metrics)
	if err != nil {
		logger.Fatal("status service initialization failed", zap.Error(err))
	}

	notificationService, err := service.NewNotificationService(novu, rateLimiter, logger, metrics)
	if err != nil {
		logger.Fatal("notification service initialization failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	handler.RegisterHealthRoutes(app, sqlDB, rdb)

	if err := handler.RegisterWebhookRoutes(app, statusService, cfg.WebhookSecret); err != nil {
		logger.Fatal("webhook route registration failed", zap.Error(err))
	}
	if err := handler.RegisterNotificationRoutes(app, notificationService); err != nil {
		logger.Fatal("notification route registration failed", zap.Error(err))
	}
	if err := handler.RegisterLogRoutes(app, logs); err != nil {
		logger.Fatal("log route registration failed", zap.Error(err))
	}

	go func() {
		logger.Info("novu-bridge api started", zap.Int("port", cfg.APIPort))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := app.Shutdown(); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}
