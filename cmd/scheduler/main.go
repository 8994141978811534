package main

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"newsportal/internal/adapters/repo"
	"newsportal/internal/infra/config"
	"newsportal/internal/infra/db"
	"newsportal/internal/infra/log"
	"newsportal/internal/infra/metrics"
	"newsportal/internal/infra/queue"
	"newsportal/internal/usecase/notify"
)

const tickInterval = time.Minute

// retryAge — возраст статей в состоянии Created, после которого рассылка
// добирается повторным прогоном.
const retryAge = 5 * time.Minute

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)
	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := time.LoadLocation(cfg.TZ)
	if err != nil {
		logger.Fatal().Err(err).Str("tz", cfg.TZ).Msg("scheduler: неизвестная таймзона")
	}
	hour, minute, err := parseClock(cfg.Digest.At)
	if err != nil {
		logger.Fatal().Err(err).Str("at", cfg.Digest.At).Msg("scheduler: некорректное время дайджеста")
	}

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler: подключение к postgres")
	}
	defer pool.Close()

	storage := repo.NewPostgres(pool)
	if err := storage.ApplySchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("scheduler: применение схемы")
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	notifQueue, closeQueue, err := queue.New(cfg.AMQPURL, redisClient, cfg.Queues.Notifications)
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler: подключение к очереди уведомлений")
	}
	defer func() {
		if err := closeQueue(); err != nil {
			logger.Error().Err(err).Msg("scheduler: закрытие очереди")
		}
	}()

	dispatcher := notify.NewDispatcher(storage, storage, storage, storage, storage, notifQueue, logger, cfg.BaseURL)

	metrics.StartServer(ctx, logger, ":"+strconv.Itoa(cfg.Port))
	logger.Info().
		Int("weekday", cfg.Digest.Weekday).
		Str("at", cfg.Digest.At).
		Str("tz", cfg.TZ).
		Msg("scheduler: запущен")

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("scheduler: завершение работы")
			return
		case <-ticker.C:
			now := time.Now().In(loc)
			// Прогон повторяется каждый тик до успеха: обработанный слот
			// захвачен и превращает вызов в no-op, неудачный возвращается.
			slot := lastSlot(now, time.Weekday(cfg.Digest.Weekday), hour, minute)
			if err := dispatcher.RunWeeklyDigest(ctx, slot.UTC()); err != nil {
				logger.Error().Err(err).Time("slot", slot).Msg("scheduler: прогон дайджеста не удался")
			}
			dispatcher.RetryUnnotified(ctx, now.Add(-retryAge).UTC())
		}
	}
}

// lastSlot возвращает последний запланированный момент дайджеста, не
// превышающий now.
func lastSlot(now time.Time, weekday time.Weekday, hour, minute int) time.Time {
	slot := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	slot = slot.AddDate(0, 0, int(weekday-now.Weekday()))
	if slot.After(now) {
		slot = slot.AddDate(0, 0, -7)
	}
	return slot
}

func parseClock(value string) (int, int, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(value, "%d:%d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("разбор времени %q: %w", value, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("время %q вне диапазона", value)
	}
	return hour, minute, nil
}
