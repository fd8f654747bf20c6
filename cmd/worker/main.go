package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"replyflow/config"
	"replyflow/internal/db"
	"replyflow/internal/dispatch"
	"replyflow/internal/event"
	"replyflow/internal/mqhandler"
	"replyflow/internal/redis"
	"replyflow/internal/repository"
	"replyflow/internal/service"
	"replyflow/internal/util"
	"replyflow/pkg/mq"
)

func main() {
	logger := util.NewLogger()
	defer logger.Sync()

	cfg := config.Load()

	pool, err := db.NewConnection(cfg.DB, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	rdb := redis.NewRedisClient(cfg.Redis)
	defer rdb.Close()

	deduper := util.NewDeduper(rdb, 24*time.Hour)
	retries := util.NewRetryCounter(rdb, 1*time.Hour)

	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		logger.Fatal("Failed to connect to MQ", zap.Error(err))
	}
	defer publisher.Close()

	if err := publisher.SetupDLQ(event.EmailReceived); err != nil {
		logger.Fatal("Failed to set up DLQ", zap.Error(err))
	}

	consumer, err := mq.NewConsumer(cfg.MQ.URL, mqhandler.QueueName, event.EmailReceived, logger)
	if err != nil {
		logger.Fatal("Failed to create consumer", zap.Error(err))
	}
	defer consumer.Close()

	emailRepo := repository.NewEmailRepository(pool)
	ruleRepo := repository.NewRuleRepository(pool)
	historyRepo := repository.NewHistoryRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)

	providerDispatcher := dispatch.NewProviderDispatcher(cfg.Provider, cfg.Provider.From, logger)

	pipeline := service.NewPipeline(
		ruleRepo,
		historyRepo,
		notificationRepo,
		settingsRepo,
		providerDispatcher,
		logger,
	)

	handler := mqhandler.NewEmailReceivedHandler(
		emailRepo,
		pipeline,
		deduper,
		retries,
		publisher,
		logger,
	)
	consumer.SetHandler(handler.Handle)

	go func() {
		if err := consumer.StartConsuming(); err != nil {
			logger.Fatal("Consumer stopped", zap.Error(err))
		}
	}()

	logger.Info("Reply worker started",
		zap.String("queue", mqhandler.QueueName),
		zap.String("routing_key", event.EmailReceived),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()

	logger.Info("Shutting down")
}
