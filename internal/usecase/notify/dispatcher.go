package notify

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"newsportal/internal/domain"
	"newsportal/internal/infra/metrics"
)

// Dispatcher решает, какие уведомления ставить в очередь и когда.
// Повторы доставки — ответственность внешней очереди, не диспетчера.
type Dispatcher struct {
	articles   domain.ArticleRepo
	categories domain.CategoryRepo
	profiles   domain.ProfileRepo
	subs       domain.SubscriptionRepo
	slots      domain.DigestSlotRepo
	queue      domain.NotificationQueue
	log        zerolog.Logger
	baseURL    string
}

// NewDispatcher создаёт диспетчер уведомлений.
func NewDispatcher(articles domain.ArticleRepo, categories domain.CategoryRepo, profiles domain.ProfileRepo, subs domain.SubscriptionRepo, slots domain.DigestSlotRepo, queue domain.NotificationQueue, log zerolog.Logger, baseURL string) *Dispatcher {
	return &Dispatcher{
		articles:   articles,
		categories: categories,
		profiles:   profiles,
		subs:       subs,
		slots:      slots,
		queue:      queue,
		log:        log,
		baseURL:    baseURL,
	}
}

func newJob(kind domain.NotificationKind, recipient string, msg Message) domain.NotificationJob {
	return domain.NotificationJob{
		ID:          uuid.NewString(),
		Kind:        kind,
		Recipient:   recipient,
		Subject:     msg.Subject,
		Body:        msg.Body,
		RequestedAt: time.Now().UTC(),
	}
}

func (d *Dispatcher) enqueue(ctx context.Context, job domain.NotificationJob) error {
	if err := d.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("постановка задачи %s: %w", job.Kind, err)
	}
	metrics.IncNotificationEnqueued(string(job.Kind))
	return nil
}

// FanOutArticle рассылает уведомление о статье каждому подписчику рубрики.
// Снимок подписчиков берётся на момент вызова. Статья помечается Notified
// только после успешной постановки всех задач; частичный сбой оставляет её
// в состоянии Created для повторного прогона (дубликаты допустимы, потери нет).
func (d *Dispatcher) FanOutArticle(ctx context.Context, article domain.Article) error {
	category, err := d.categories.GetCategory(article.CategoryID)
	if err != nil {
		return fmt.Errorf("получение рубрики: %w", err)
	}
	author, err := d.profiles.GetProfile(article.AuthorID)
	if err != nil {
		return fmt.Errorf("получение автора: %w", err)
	}
	subscribers, err := d.subs.Subscribers(article.CategoryID)
	if err != nil {
		return fmt.Errorf("снимок подписчиков: %w", err)
	}

	for _, subscriber := range subscribers {
		msg := ComposeArticleNotification(ArticleContext{
			Title:      article.Title,
			AuthorName: author.DisplayName,
			Category:   category.Name,
			Content:    article.Content,
			Permalink:  ArticleURL(d.baseURL, article.ID),
		})
		if err := d.enqueue(ctx, newJob(domain.NotificationArticle, subscriber.Email, msg)); err != nil {
			return err
		}
	}

	if err := d.articles.MarkNotified(article.ID, time.Now().UTC()); err != nil {
		return fmt.Errorf("фиксация рассылки: %w", err)
	}
	return nil
}

// RetryUnnotified повторяет рассылку для статей, застрявших в состоянии Created.
func (d *Dispatcher) RetryUnnotified(ctx context.Context, olderThan time.Time) {
	stuck, err := d.articles.ListUnnotified(olderThan)
	if err != nil {
		d.log.Error().Err(err).Msg("dispatch: выборка неразосланных статей")
		return
	}
	for _, article := range stuck {
		if err := d.FanOutArticle(ctx, article); err != nil {
			d.log.Error().Err(err).Int64("article", article.ID).Msg("dispatch: повторная рассылка не удалась")
		}
	}
}

// SendWelcome ставит приветственное письмо с ссылкой активации.
func (d *Dispatcher) SendWelcome(ctx context.Context, profile domain.Profile, variant int) error {
	msg := ComposeWelcome(WelcomeContext{
		DisplayName:   profile.DisplayName,
		ActivationURL: ActivationURL(d.baseURL, profile.ActivationToken),
		Variant:       variant,
	})
	return d.enqueue(ctx, newJob(domain.NotificationWelcome, profile.Email, msg))
}

// SendLimitWarning ставит предупреждение о лимите. Вызывается на каждую
// заблокированную попытку, без дедупликации в пределах дня.
func (d *Dispatcher) SendLimitWarning(ctx context.Context, profile domain.Profile, reservation domain.PostReservation, resetAt time.Time) error {
	msg := ComposeLimitWarning(LimitContext{
		DisplayName: profile.DisplayName,
		GroupName:   reservation.Plan.Name,
		Used:        reservation.Used,
		Limit:       reservation.Plan.PostDailyLimit,
		ResetAt:     resetAt,
	})
	return d.enqueue(ctx, newJob(domain.NotificationLimitWarning, profile.Email, msg))
}

// SendSubscriptionConfirmation ставит подтверждение подписки на рубрику.
func (d *Dispatcher) SendSubscriptionConfirmation(ctx context.Context, profile domain.Profile, category domain.Category) error {
	msg := ComposeSubscription(profile.DisplayName, category.Name)
	return d.enqueue(ctx, newJob(domain.NotificationSubscription, profile.Email, msg))
}

// RunWeeklyDigest выполняет еженедельный прогон дайджеста для слота расписания.
// Прогон идемпотентен: повторный вызов для успешно обработанного слота ничего
// не делает. При сбое слот возвращается, чтобы следующий запуск повторил
// прогон: дубль дайджеста допустим, потеря — нет. Водяной знак сдвигается
// только после успешной постановки всех задач.
func (d *Dispatcher) RunWeeklyDigest(ctx context.Context, slot time.Time) error {
	acquired, err := d.slots.AcquireSlot(slot)
	if err != nil {
		return fmt.Errorf("захват слота: %w", err)
	}
	if !acquired {
		d.log.Info().Time("slot", slot).Msg("digest: слот уже обработан")
		return nil
	}

	start := time.Now()
	defer func() {
		metrics.DigestBuildSeconds.Observe(time.Since(start).Seconds())
	}()

	if err := d.runDigest(ctx, slot); err != nil {
		metrics.DigestRunsTotal.WithLabelValues("error").Inc()
		if releaseErr := d.slots.ReleaseSlot(slot); releaseErr != nil {
			d.log.Error().Err(releaseErr).Time("slot", slot).Msg("digest: слот не возвращён, прогон будет потерян")
		}
		return err
	}
	metrics.DigestRunsTotal.WithLabelValues("success").Inc()
	return nil
}

func (d *Dispatcher) runDigest(ctx context.Context, slot time.Time) error {
	watermark, err := d.slots.Watermark()
	if err != nil {
		return fmt.Errorf("чтение водяного знака: %w", err)
	}
	if watermark.IsZero() {
		watermark = slot.Add(-7 * 24 * time.Hour)
	}

	categories, err := d.categories.ListCategories()
	if err != nil {
		return fmt.Errorf("список рубрик: %w", err)
	}
	categoryNames := make(map[int64]string, len(categories))
	for _, c := range categories {
		categoryNames[c.ID] = c.Name
	}

	readers, err := d.subs.ListSubscribedProfiles()
	if err != nil {
		return fmt.Errorf("выборка подписчиков: %w", err)
	}

	for _, reader := range readers {
		groups, err := d.buildDigestGroups(reader.CategoryIDs, categoryNames, watermark, slot)
		if err != nil {
			return err
		}
		// Пустые дайджесты не отправляются.
		if len(groups) == 0 {
			continue
		}
		msg := ComposeWeeklyDigest(DigestContext{
			DisplayName: reader.Profile.DisplayName,
			From:        watermark,
			To:          slot,
			Groups:      groups,
		})
		if err := d.enqueue(ctx, newJob(domain.NotificationWeeklyDigest, reader.Profile.Email, msg)); err != nil {
			return err
		}
	}

	if err := d.slots.AdvanceWatermark(slot); err != nil {
		return fmt.Errorf("сдвиг водяного знака: %w", err)
	}
	return nil
}

// buildDigestGroups собирает новые статьи окна (from, to] по рубрикам пользователя.
// Внутри рубрики статьи идут по дате публикации по убыванию.
func (d *Dispatcher) buildDigestGroups(categoryIDs []int64, categoryNames map[int64]string, from, to time.Time) ([]DigestGroup, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}
	published, err := d.articles.ListPublishedBetween(categoryIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf("выборка статей для дайджеста: %w", err)
	}
	if len(published) == 0 {
		return nil, nil
	}

	byCategory := make(map[int64][]domain.Article)
	for _, article := range published {
		byCategory[article.CategoryID] = append(byCategory[article.CategoryID], article)
	}

	groups := make([]DigestGroup, 0, len(byCategory))
	for _, categoryID := range categoryIDs {
		articles, ok := byCategory[categoryID]
		if !ok {
			continue
		}
		sort.SliceStable(articles, func(i, j int) bool {
			return articles[i].PublishedAt.After(articles[j].PublishedAt)
		})
		group := DigestGroup{Category: categoryNames[categoryID]}
		for _, article := range articles {
			group.Items = append(group.Items, DigestEntry{
				Title:   article.Title,
				Summary: Truncate(article.Content, summaryLimit),
				Link:    ArticleURL(d.baseURL, article.ID),
			})
		}
		groups = append(groups, group)
	}
	return groups, nil
}
