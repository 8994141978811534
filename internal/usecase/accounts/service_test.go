package accounts

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"newsportal/internal/domain"
)

type memProfiles struct {
	nextID   int64
	byID     map[int64]domain.Profile
	groupSet map[int64]domain.UserGroup
}

func newMemProfiles() *memProfiles {
	return &memProfiles{byID: map[int64]domain.Profile{}, groupSet: map[int64]domain.UserGroup{}}
}

func (m *memProfiles) CreateProfile(p domain.Profile) (domain.Profile, error) {
	for _, existing := range m.byID {
		if existing.Email == p.Email {
			return domain.Profile{}, domain.ErrDuplicate
		}
	}
	m.nextID++
	p.ID = m.nextID
	m.byID[p.ID] = p
	return p, nil
}

func (m *memProfiles) GetProfile(id int64) (domain.Profile, error) {
	p, ok := m.byID[id]
	if !ok {
		return domain.Profile{}, domain.ErrNotFound
	}
	return p, nil
}

func (m *memProfiles) GetProfileByEmail(email string) (domain.Profile, error) {
	for _, p := range m.byID {
		if p.Email == email {
			return p, nil
		}
	}
	return domain.Profile{}, domain.ErrNotFound
}

func (m *memProfiles) ActivateByToken(token string) (domain.Profile, error) {
	for id, p := range m.byID {
		if p.ActivationToken == token && token != "" {
			p.Active = true
			p.ActivationToken = ""
			m.byID[id] = p
			return p, nil
		}
	}
	return domain.Profile{}, domain.ErrNotFound
}

func (m *memProfiles) UpdateProfile(p domain.Profile) error {
	m.byID[p.ID] = p
	return nil
}

func (m *memProfiles) SetGroup(profileID int64, group domain.UserGroup) error {
	p, ok := m.byID[profileID]
	if !ok {
		return domain.ErrNotFound
	}
	p.Group = group
	m.byID[profileID] = p
	m.groupSet[profileID] = group
	return nil
}

type welcomeRecorder struct {
	profiles []domain.Profile
	variants []int
}

func (r *welcomeRecorder) SendWelcome(_ context.Context, profile domain.Profile, variant int) error {
	r.profiles = append(r.profiles, profile)
	r.variants = append(r.variants, variant)
	return nil
}

func TestRegisterCreatesInactiveBasicProfile(t *testing.T) {
	profiles := newMemProfiles()
	recorder := &welcomeRecorder{}
	svc := NewService(profiles, recorder, zerolog.Nop(), 2)

	profile, err := svc.Register(context.Background(), "User@Example.com", "secret-password", "")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if profile.Active {
		t.Fatalf("новая учётная запись должна быть неактивной")
	}
	if profile.Group != domain.UserGroupBasic {
		t.Fatalf("новый пользователь попадает в группу basic, получили %s", profile.Group)
	}
	if profile.Email != "user@example.com" {
		t.Fatalf("email приводится к нижнему регистру, получили %q", profile.Email)
	}
	if profile.DisplayName != "user" {
		t.Fatalf("имя по умолчанию берётся из email, получили %q", profile.DisplayName)
	}
	if profile.ActivationToken == "" {
		t.Fatalf("ожидали одноразовый токен активации")
	}
	if profile.PasswordHash == "secret-password" || profile.PasswordHash == "" {
		t.Fatalf("пароль должен храниться в виде хэша")
	}
	if len(recorder.profiles) != 1 || recorder.variants[0] != 2 {
		t.Fatalf("ожидали одно приветственное письмо с вариантом 2")
	}
}

func TestRegisterRejectsWeakInput(t *testing.T) {
	svc := NewService(newMemProfiles(), &welcomeRecorder{}, zerolog.Nop(), 1)

	cases := []struct{ email, password string }{
		{"", "secret-password"},
		{"not-an-email", "secret-password"},
		{"user@example.com", "short"},
	}
	for i, c := range cases {
		if _, err := svc.Register(context.Background(), c.email, c.password, ""); !errors.Is(err, ErrWeakInput) {
			t.Fatalf("случай %d: ожидали ErrWeakInput, получили %v", i, err)
		}
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := NewService(newMemProfiles(), &welcomeRecorder{}, zerolog.Nop(), 1)

	if _, err := svc.Register(context.Background(), "user@example.com", "secret-password", ""); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if _, err := svc.Register(context.Background(), "USER@example.com", "secret-password", ""); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("ожидали ErrEmailTaken, получили %v", err)
	}
}

func TestActivateThenLogin(t *testing.T) {
	profiles := newMemProfiles()
	svc := NewService(profiles, &welcomeRecorder{}, zerolog.Nop(), 1)

	registered, err := svc.Register(context.Background(), "user@example.com", "secret-password", "Анна")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	if _, err := svc.Login(context.Background(), "user@example.com", "secret-password"); !errors.Is(err, ErrNotActivated) {
		t.Fatalf("вход до активации запрещён, получили %v", err)
	}

	if _, err := svc.Activate(context.Background(), "wrong-token"); err == nil {
		t.Fatalf("активация по чужому токену должна падать")
	}
	activated, err := svc.Activate(context.Background(), registered.ActivationToken)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !activated.Active {
		t.Fatalf("после активации учётная запись активна")
	}
	// Токен одноразовый.
	if _, err := svc.Activate(context.Background(), registered.ActivationToken); err == nil {
		t.Fatalf("повторная активация по тому же токену должна падать")
	}

	if _, err := svc.Login(context.Background(), "user@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("ожидали ErrInvalidCredentials, получили %v", err)
	}
	logged, err := svc.Login(context.Background(), "User@Example.com", "secret-password")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if logged.ID != registered.ID {
		t.Fatalf("вход должен возвращать тот же профиль")
	}
}

func TestSetGroupAdminOnly(t *testing.T) {
	profiles := newMemProfiles()
	profiles.byID[1] = domain.Profile{ID: 1, Email: "admin@example.com", Admin: true}
	profiles.byID[2] = domain.Profile{ID: 2, Email: "user@example.com", Group: domain.UserGroupBasic}
	profiles.nextID = 2
	svc := NewService(profiles, &welcomeRecorder{}, zerolog.Nop(), 1)

	if err := svc.SetGroup(context.Background(), 2, 2, domain.UserGroupPremium); !errors.Is(err, ErrForbidden) {
		t.Fatalf("смена группы доступна только администратору, получили %v", err)
	}
	if err := svc.SetGroup(context.Background(), 1, 2, domain.UserGroup("PREMIUM")); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if profiles.groupSet[2] != domain.UserGroupPremium {
		t.Fatalf("имя группы нормализуется, получили %s", profiles.groupSet[2])
	}
}
