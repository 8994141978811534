package subscriptions

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"newsportal/internal/domain"
)

// Notifier — часть диспетчера, нужная сервису подписок.
type Notifier interface {
	SendSubscriptionConfirmation(ctx context.Context, profile domain.Profile, category domain.Category) error
}

// Service управляет подписками пользователей на рубрики.
type Service struct {
	subs       domain.SubscriptionRepo
	categories domain.CategoryRepo
	profiles   domain.ProfileRepo
	notifier   Notifier
	log        zerolog.Logger
}

// NewService создаёт сервис подписок.
func NewService(subs domain.SubscriptionRepo, categories domain.CategoryRepo, profiles domain.ProfileRepo, notifier Notifier, log zerolog.Logger) *Service {
	return &Service{subs: subs, categories: categories, profiles: profiles, notifier: notifier, log: log}
}

// Subscribe подписывает пользователя на рубрику. Повторная подписка — no-op:
// подтверждение отправляется только при создании новой записи.
func (s *Service) Subscribe(ctx context.Context, profileID, categoryID int64) error {
	category, err := s.categories.GetCategory(categoryID)
	if err != nil {
		return fmt.Errorf("получение рубрики: %w", err)
	}
	created, err := s.subs.Subscribe(profileID, categoryID)
	if err != nil {
		return fmt.Errorf("создание подписки: %w", err)
	}
	if !created {
		return nil
	}
	profile, err := s.profiles.GetProfile(profileID)
	if err != nil {
		return fmt.Errorf("получение профиля: %w", err)
	}
	if err := s.notifier.SendSubscriptionConfirmation(ctx, profile, category); err != nil {
		s.log.Error().Err(err).Int64("profile", profileID).Msg("subscriptions: подтверждение не поставлено")
	}
	return nil
}

// Unsubscribe отписывает пользователя. Отписка неподписанного — no-op.
func (s *Service) Unsubscribe(ctx context.Context, profileID, categoryID int64) error {
	if err := s.subs.Unsubscribe(profileID, categoryID); err != nil {
		return fmt.Errorf("удаление подписки: %w", err)
	}
	return nil
}

// List возвращает рубрики, на которые подписан пользователь.
func (s *Service) List(ctx context.Context, profileID int64) ([]domain.Category, error) {
	categories, err := s.subs.ListSubscriptions(profileID)
	if err != nil {
		return nil, fmt.Errorf("список подписок: %w", err)
	}
	return categories, nil
}
