package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/relayforge/novu-bridge/internal/config"
	"github.com/relayforge/novu-bridge/internal/infra/postgresql"
	"github.com/relayforge/novu-bridge/internal/infra/postgresql/migrations"
	"github.com/relayforge/novu-bridge/internal/observability"
	"github.com/relayforge/novu-bridge/internal/queue"
	"github.com/relayforge/novu-bridge/internal/repository"
	"github.com/relayforge/novu-bridge/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.RabbitMQURL == "" {
		log.Fatal("RABBITMQ_URL is required for the consumer")
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

	rabbit, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer rabbit.Close()

	metrics := observability.NewMetrics()
	logs := repository.NewGormLogRepo(db)

	statusService, err := service.NewStatusService(logs, cfg.IngestConcurrency, logger, metrics)
	if err != nil {
		logger.Fatal("status service initialization failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := queue.NewRabbitMQConsumer(rabbit, cfg.IngestConcurrency, logger)

	logger.Info("novu-bridge consumer started", zap.String("queue", queue.EventsQueue))

	err = consumer.Consume(ctx, queue.EventsQueue, func(ctx context.Context, payload []byte) error {
		_, err := statusService.Ingest(ctx, payload)
		return err
	})
	if err != nil {
		logger.Fatal("consumer stopped", zap.Error(err))
	}

	logger.Info("consumer shut down")
}
