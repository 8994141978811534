package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"newsportal/internal/adapters/httpapi"
	"newsportal/internal/adapters/repo"
	"newsportal/internal/infra/cache"
	"newsportal/internal/infra/config"
	"newsportal/internal/infra/db"
	infrahttp "newsportal/internal/infra/http"
	"newsportal/internal/infra/log"
	"newsportal/internal/infra/metrics"
	"newsportal/internal/infra/queue"
	"newsportal/internal/usecase/accounts"
	"newsportal/internal/usecase/articles"
	"newsportal/internal/usecase/categories"
	"newsportal/internal/usecase/notify"
	"newsportal/internal/usecase/subscriptions"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)
	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := time.LoadLocation(cfg.TZ)
	if err != nil {
		logger.Fatal().Err(err).Str("tz", cfg.TZ).Msg("api: неизвестная таймзона")
	}

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: подключение к postgres")
	}
	defer pool.Close()

	storage := repo.NewPostgres(pool)
	if err := storage.ApplySchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("api: применение схемы")
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	articleCache := cache.NewRedis(redisClient)

	notifQueue, closeQueue, err := queue.New(cfg.AMQPURL, redisClient, cfg.Queues.Notifications)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: подключение к очереди уведомлений")
	}
	defer func() {
		if err := closeQueue(); err != nil {
			logger.Error().Err(err).Msg("api: закрытие очереди")
		}
	}()

	dispatcher := notify.NewDispatcher(storage, storage, storage, storage, storage, notifQueue, logger, cfg.BaseURL)

	accountsSvc := accounts.NewService(storage, dispatcher, logger, cfg.Mail.WelcomeVariant)
	articlesSvc := articles.NewService(storage, storage, storage, storage, storage, articleCache, dispatcher, logger, loc,
		time.Duration(cfg.Cache.ArticleTTLSeconds)*time.Second,
		time.Duration(cfg.Cache.PageTTLSeconds)*time.Second)
	categoriesSvc := categories.NewService(storage, storage)
	subscriptionsSvc := subscriptions.NewService(storage, storage, storage, dispatcher, logger)

	server := infrahttp.NewServer(logger)
	handler := httpapi.NewHandler(accountsSvc, articlesSvc, categoriesSvc, subscriptionsSvc, cfg.JWTSecret, logger)
	handler.Mount(server.Router)

	go func() {
		if err := server.Start(":" + strconv.Itoa(cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("api: сервер остановлен")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("api: завершение работы")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: graceful shutdown не удался")
	}
}
