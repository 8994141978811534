package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"newsportal/internal/domain"
	"newsportal/internal/infra/metrics"
)

// receiveBackoff — пауза после сбоя чтения, чтобы не крутить цикл впустую
// при лежащей очереди.
const receiveBackoff = time.Second

// Service доставляет письма из очереди уведомлений.
// Текст письма составлен до постановки в очередь, поэтому воркер только
// отправляет; повторная доставка даёт идентичное письмо.
type Service struct {
	queue  domain.NotificationQueue
	mailer domain.Mailer
	log    zerolog.Logger
}

// NewService создаёт воркер доставки.
func NewService(queue domain.NotificationQueue, mailer domain.Mailer, log zerolog.Logger) *Service {
	return &Service{queue: queue, mailer: mailer, log: log}
}

// Run обрабатывает очередь до отмены контекста.
func (s *Service) Run(ctx context.Context) error {
	for {
		job, ack, err := s.queue.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			s.log.Error().Err(err).Msg("delivery: чтение из очереди")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(receiveBackoff):
			}
			continue
		}
		s.handle(job, ack)
	}
}

func (s *Service) handle(job domain.NotificationJob, ack domain.NotificationAckFunc) {
	if err := s.mailer.Send(job.Recipient, job.Subject, job.Body); err != nil {
		metrics.MailSendErrorsTotal.Inc()
		s.log.Error().Err(err).Str("job", job.ID).Str("kind", string(job.Kind)).Msg("delivery: отправка не удалась")
		if err := ack(false); err != nil {
			s.log.Error().Err(err).Str("job", job.ID).Msg("delivery: возврат задачи в очередь")
		}
		return
	}
	if err := ack(true); err != nil {
		s.log.Error().Err(err).Str("job", job.ID).Msg("delivery: подтверждение задачи")
	}
	s.log.Debug().Str("job", job.ID).Str("kind", string(job.Kind)).Str("to", job.Recipient).Msg("delivery: письмо отправлено")
}
