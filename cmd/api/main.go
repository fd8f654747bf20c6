package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"replyflow/config"
	"replyflow/internal/api"
	"replyflow/internal/db"
	"replyflow/internal/repository"
	"replyflow/internal/service"
	"replyflow/internal/util"
	"replyflow/pkg/mq"
	"replyflow/pkg/outbox"
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

	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		logger.Fatal("Failed to connect to MQ", zap.Error(err))
	}
	defer publisher.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	outboxRepo := outbox.NewRepository(pool)
	dispatcher := outbox.NewDispatcher(outboxRepo, publisher, logger).
		WithInterval(1 * time.Second)
	go dispatcher.Start(ctx)

	userRepo := repository.NewUserRepository(pool)
	emailRepo := repository.NewEmailRepository(pool)
	ruleRepo := repository.NewRuleRepository(pool)
	historyRepo := repository.NewHistoryRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)

	authService := service.NewAuthService(userRepo, cfg.JWT.Secret)
	ruleService := service.NewRuleService(ruleRepo)
	ingestService := service.NewIngestService(pool, emailRepo, outboxRepo)

	handlers := api.Handlers{
		Auth:          api.NewAuthHandler(authService, logger),
		Rules:         api.NewRuleHandler(ruleService, logger),
		Mail:          api.NewMailHandler(ingestService, emailRepo, logger),
		History:       api.NewHistoryHandler(historyRepo, logger),
		Notifications: api.NewNotificationHandler(notificationRepo, logger),
		Settings:      api.NewSettingsHandler(settingsRepo, logger),
	}

	router := api.NewRouter(handlers, pool, cfg.JWT.Secret)

	logger.Info("API server starting", zap.String("port", cfg.Server.Port))
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal("Server exited", zap.Error(err))
	}
}
