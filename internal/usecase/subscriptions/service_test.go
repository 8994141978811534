package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"newsportal/internal/domain"
)

type memSubs struct {
	active map[string]bool
}

func newMemSubs() *memSubs {
	return &memSubs{active: map[string]bool{}}
}

func subKey(profileID, categoryID int64) string {
	return fmt.Sprintf("%d_%d", profileID, categoryID)
}

func (m *memSubs) Subscribe(profileID, categoryID int64) (bool, error) {
	key := subKey(profileID, categoryID)
	if m.active[key] {
		return false, nil
	}
	m.active[key] = true
	return true, nil
}

func (m *memSubs) Unsubscribe(profileID, categoryID int64) error {
	delete(m.active, subKey(profileID, categoryID))
	return nil
}

func (m *memSubs) Subscribers(int64) ([]domain.Profile, error) { return nil, nil }
func (m *memSubs) ListSubscriptions(int64) ([]domain.Category, error) {
	return nil, nil
}
func (m *memSubs) ListSubscribedProfiles() ([]domain.ProfileSubscriptions, error) {
	return nil, nil
}

type stubCatalog struct{}

func (stubCatalog) CreateCategory(name string) (domain.Category, error) {
	return domain.Category{Name: name}, nil
}
func (stubCatalog) GetCategory(id int64) (domain.Category, error) {
	if id != 1 {
		return domain.Category{}, domain.ErrNotFound
	}
	return domain.Category{ID: 1, Name: "Спорт"}, nil
}
func (stubCatalog) ListCategories() ([]domain.Category, error) { return nil, nil }
func (stubCatalog) DeleteCategory(int64) error                 { return nil }

type stubProfiles struct{}

func (stubProfiles) CreateProfile(p domain.Profile) (domain.Profile, error) { return p, nil }
func (stubProfiles) GetProfile(id int64) (domain.Profile, error) {
	return domain.Profile{ID: id, Email: "user@example.com", DisplayName: "Анна"}, nil
}
func (stubProfiles) GetProfileByEmail(string) (domain.Profile, error) {
	return domain.Profile{}, domain.ErrNotFound
}
func (stubProfiles) ActivateByToken(string) (domain.Profile, error) {
	return domain.Profile{}, domain.ErrNotFound
}
func (stubProfiles) UpdateProfile(domain.Profile) error     { return nil }
func (stubProfiles) SetGroup(int64, domain.UserGroup) error { return nil }

type confirmationCounter struct {
	sent int
}

func (c *confirmationCounter) SendSubscriptionConfirmation(context.Context, domain.Profile, domain.Category) error {
	c.sent++
	return nil
}

func TestSubscribeIdempotent(t *testing.T) {
	subs := newMemSubs()
	counter := &confirmationCounter{}
	svc := NewService(subs, stubCatalog{}, stubProfiles{}, counter, zerolog.Nop())

	if err := svc.Subscribe(context.Background(), 1, 1); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if counter.sent != 1 {
		t.Fatalf("ожидали подтверждение при создании подписки")
	}
	if err := svc.Subscribe(context.Background(), 1, 1); err != nil {
		t.Fatalf("повторная подписка — no-op: %v", err)
	}
	if counter.sent != 1 {
		t.Fatalf("повторная подписка не должна слать подтверждение, отправлено %d", counter.sent)
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	subs := newMemSubs()
	counter := &confirmationCounter{}
	svc := NewService(subs, stubCatalog{}, stubProfiles{}, counter, zerolog.Nop())

	if err := svc.Unsubscribe(context.Background(), 1, 1); err != nil {
		t.Fatalf("отписка неподписанного — no-op: %v", err)
	}

	if err := svc.Subscribe(context.Background(), 1, 1); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if err := svc.Unsubscribe(context.Background(), 1, 1); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	// Подписка после отписки снова считается новой.
	if err := svc.Subscribe(context.Background(), 1, 1); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if counter.sent != 2 {
		t.Fatalf("ожидали подтверждение на каждую новую подписку, отправлено %d", counter.sent)
	}
}

func TestSubscribeUnknownCategory(t *testing.T) {
	svc := NewService(newMemSubs(), stubCatalog{}, stubProfiles{}, &confirmationCounter{}, zerolog.Nop())

	err := svc.Subscribe(context.Background(), 1, 99)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("ожидали ErrNotFound для неизвестной рубрики, получили %v", err)
	}
}
