package categories

import (
	"context"
	"errors"
	"testing"

	"newsportal/internal/domain"
)

type stubCatalog struct {
	created []string
	deleted []int64
	inUse   map[int64]bool
}

func (s *stubCatalog) CreateCategory(name string) (domain.Category, error) {
	s.created = append(s.created, name)
	return domain.Category{ID: int64(len(s.created)), Name: name}, nil
}

func (s *stubCatalog) GetCategory(id int64) (domain.Category, error) {
	return domain.Category{ID: id}, nil
}

func (s *stubCatalog) ListCategories() ([]domain.Category, error) { return nil, nil }

func (s *stubCatalog) DeleteCategory(id int64) error {
	if s.inUse[id] {
		return domain.ErrCategoryInUse
	}
	s.deleted = append(s.deleted, id)
	return nil
}

type stubProfiles struct {
	admins map[int64]bool
}

func (s *stubProfiles) CreateProfile(p domain.Profile) (domain.Profile, error) { return p, nil }
func (s *stubProfiles) GetProfile(id int64) (domain.Profile, error) {
	return domain.Profile{ID: id, Admin: s.admins[id]}, nil
}
func (s *stubProfiles) GetProfileByEmail(string) (domain.Profile, error) {
	return domain.Profile{}, domain.ErrNotFound
}
func (s *stubProfiles) ActivateByToken(string) (domain.Profile, error) {
	return domain.Profile{}, domain.ErrNotFound
}
func (s *stubProfiles) UpdateProfile(domain.Profile) error     { return nil }
func (s *stubProfiles) SetGroup(int64, domain.UserGroup) error { return nil }

func TestCreateRequiresAdmin(t *testing.T) {
	catalog := &stubCatalog{}
	svc := NewService(catalog, &stubProfiles{admins: map[int64]bool{1: true}})

	if _, err := svc.Create(context.Background(), 2, "Спорт"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("ожидали ErrForbidden, получили %v", err)
	}
	if _, err := svc.Create(context.Background(), 1, "   "); !errors.Is(err, ErrNameEmpty) {
		t.Fatalf("ожидали ErrNameEmpty, получили %v", err)
	}
	category, err := svc.Create(context.Background(), 1, "  Спорт  ")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if category.Name != "Спорт" {
		t.Fatalf("имя рубрики должно быть обрезано, получили %q", category.Name)
	}
}

func TestDeleteBlockedWhileReferenced(t *testing.T) {
	catalog := &stubCatalog{inUse: map[int64]bool{1: true}}
	svc := NewService(catalog, &stubProfiles{admins: map[int64]bool{1: true}})

	if err := svc.Delete(context.Background(), 2, 1); !errors.Is(err, ErrForbidden) {
		t.Fatalf("удаление доступно только администратору, получили %v", err)
	}
	if err := svc.Delete(context.Background(), 1, 1); !errors.Is(err, domain.ErrCategoryInUse) {
		t.Fatalf("рубрика со статьями не удаляется, получили %v", err)
	}
	if err := svc.Delete(context.Background(), 1, 2); err != nil {
		t.Fatalf("пустая рубрика удаляется: %v", err)
	}
	if len(catalog.deleted) != 1 || catalog.deleted[0] != 2 {
		t.Fatalf("ожидали удаление рубрики 2, получили %v", catalog.deleted)
	}
}
