package domain

import (
	"context"
	"time"
)

// NotificationKind описывает тип письма.
type NotificationKind string

const (
	NotificationWelcome      NotificationKind = "welcome"
	NotificationArticle      NotificationKind = "article_notification"
	NotificationLimitWarning NotificationKind = "limit_warning"
	NotificationWeeklyDigest NotificationKind = "weekly_digest"
	NotificationSubscription NotificationKind = "subscription"
)

// NotificationJob содержит готовое к отправке письмо.
// Тело составляется до постановки в очередь, поэтому повторная доставка
// приводит лишь к повторной отправке того же текста.
type NotificationJob struct {
	ID          string           `json:"job_id,omitempty"`
	Kind        NotificationKind `json:"kind"`
	Recipient   string           `json:"recipient"`
	Subject     string           `json:"subject"`
	Body        string           `json:"body"`
	RequestedAt time.Time        `json:"requested_at"`
}

// NotificationAckFunc подтверждает обработку или запрашивает повторную доставку.
type NotificationAckFunc func(success bool) error

// NotificationQueue описывает внешнюю очередь задач.
// Гарантия доставки at-least-once принадлежит очереди, не ядру.
type NotificationQueue interface {
	Enqueue(ctx context.Context, job NotificationJob) error
	Receive(ctx context.Context) (NotificationJob, NotificationAckFunc, error)
}

// DigestSlotRepo отвечает за идемпотентность еженедельного запуска.
type DigestSlotRepo interface {
	// AcquireSlot помечает слот расписания занятым и возвращает true,
	// если запись была создана. Повторный вызов для того же слота
	// возвращает false без ошибки.
	AcquireSlot(scheduledFor time.Time) (bool, error)
	// ReleaseSlot возвращает слот после неудачного прогона, чтобы
	// следующий запуск повторил работу. Дубль дайджеста допустим,
	// потеря — нет.
	ReleaseSlot(scheduledFor time.Time) error
	// Watermark возвращает конец последнего обработанного окна дайджеста.
	Watermark() (time.Time, error)
	// AdvanceWatermark сдвигает окно после успешного прогона.
	AdvanceWatermark(to time.Time) error
}
