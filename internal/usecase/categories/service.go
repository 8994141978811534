package categories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"newsportal/internal/domain"
)

// ErrNameEmpty возвращается при создании рубрики без имени.
var ErrNameEmpty = errors.New("имя рубрики не задано")

// ErrForbidden возвращается, когда рубриками управляет не администратор.
var ErrForbidden = errors.New("управление рубриками доступно только администратору")

// Service управляет рубриками портала.
type Service struct {
	categories domain.CategoryRepo
	profiles   domain.ProfileRepo
}

// NewService создаёт сервис рубрик.
func NewService(categories domain.CategoryRepo, profiles domain.ProfileRepo) *Service {
	return &Service{categories: categories, profiles: profiles}
}

// Create создаёт рубрику. Имя уникально на уровне хранилища.
func (s *Service) Create(ctx context.Context, actorID int64, name string) (domain.Category, error) {
	if err := s.requireAdmin(actorID); err != nil {
		return domain.Category{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Category{}, ErrNameEmpty
	}
	category, err := s.categories.CreateCategory(name)
	if err != nil {
		return domain.Category{}, fmt.Errorf("создание рубрики: %w", err)
	}
	return category, nil
}

// List возвращает все рубрики.
func (s *Service) List(ctx context.Context) ([]domain.Category, error) {
	return s.categories.ListCategories()
}

// Delete удаляет рубрику. Удаление блокируется, пока на рубрику
// ссылаются статьи: хранилище возвращает domain.ErrCategoryInUse.
func (s *Service) Delete(ctx context.Context, actorID, categoryID int64) error {
	if err := s.requireAdmin(actorID); err != nil {
		return err
	}
	if err := s.categories.DeleteCategory(categoryID); err != nil {
		return fmt.Errorf("удаление рубрики: %w", err)
	}
	return nil
}

func (s *Service) requireAdmin(actorID int64) error {
	actor, err := s.profiles.GetProfile(actorID)
	if err != nil {
		return fmt.Errorf("получение профиля: %w", err)
	}
	if !actor.Admin {
		return ErrForbidden
	}
	return nil
}
