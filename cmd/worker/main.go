package main

import (
	"context"
	"errors"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"newsportal/internal/adapters/mailer"
	"newsportal/internal/domain"
	"newsportal/internal/infra/config"
	"newsportal/internal/infra/log"
	"newsportal/internal/infra/metrics"
	"newsportal/internal/infra/queue"
	"newsportal/internal/usecase/delivery"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)
	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	notifQueue, closeQueue, err := queue.New(cfg.AMQPURL, redisClient, cfg.Queues.Notifications)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: подключение к очереди уведомлений")
	}
	defer func() {
		if err := closeQueue(); err != nil {
			logger.Error().Err(err).Msg("worker: закрытие очереди")
		}
	}()

	metrics.StartServer(ctx, logger, ":"+strconv.Itoa(cfg.Port))

	svc := delivery.NewService(notifQueue, newMailer(cfg, logger), logger)
	logger.Info().Msg("worker: запущен")
	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("worker: остановлен с ошибкой")
	}
	logger.Info().Msg("worker: завершение работы")
}

// newMailer выбирает транспорт писем: SMTP, если задан SMTP_HOST,
// иначе письма пишутся в лог.
func newMailer(cfg config.AppConfig, logger zerolog.Logger) domain.Mailer {
	if cfg.SMTP.Host == "" {
		logger.Info().Msg("SMTP_HOST не задан, письма пишутся в лог")
		return mailer.NewConsole(logger)
	}
	return mailer.NewSMTP(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
}
