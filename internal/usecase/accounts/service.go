package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"newsportal/internal/domain"
)

// ErrInvalidCredentials возвращается при неверной паре email/пароль.
var ErrInvalidCredentials = errors.New("неверный email или пароль")

// ErrNotActivated возвращается при входе без активации учётной записи.
var ErrNotActivated = errors.New("учётная запись не активирована")

// ErrEmailTaken возвращается при регистрации на занятый email.
var ErrEmailTaken = errors.New("email уже зарегистрирован")

// ErrWeakInput возвращается при некорректных данных регистрации.
var ErrWeakInput = errors.New("email и пароль обязательны")

// ErrForbidden возвращается при смене группы не администратором.
var ErrForbidden = errors.New("смена группы доступна только администратору")

// Notifier — часть диспетчера, нужная сервису учётных записей.
type Notifier interface {
	SendWelcome(ctx context.Context, profile domain.Profile, variant int) error
}

// Service управляет регистрацией, активацией и входом.
type Service struct {
	profiles       domain.ProfileRepo
	notifier       Notifier
	log            zerolog.Logger
	welcomeVariant int
}

// NewService создаёт сервис учётных записей.
func NewService(profiles domain.ProfileRepo, notifier Notifier, log zerolog.Logger, welcomeVariant int) *Service {
	return &Service{profiles: profiles, notifier: notifier, log: log, welcomeVariant: welcomeVariant}
}

// Register создаёт неактивный профиль в группе Basic и ставит приветственное
// письмо с одноразовой ссылкой активации.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (domain.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") || len(password) < 8 {
		return domain.Profile{}, ErrWeakInput
	}
	if _, err := s.profiles.GetProfileByEmail(email); err == nil {
		return domain.Profile{}, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("хэширование пароля: %w", err)
	}
	if strings.TrimSpace(displayName) == "" {
		displayName = strings.Split(email, "@")[0]
	}

	profile := domain.Profile{
		Email:           email,
		DisplayName:     strings.TrimSpace(displayName),
		Group:           domain.UserGroupBasic,
		PasswordHash:    string(hash),
		Active:          false,
		ActivationToken: uuid.NewString(),
	}
	saved, err := s.profiles.CreateProfile(profile)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return domain.Profile{}, ErrEmailTaken
		}
		return domain.Profile{}, fmt.Errorf("создание профиля: %w", err)
	}

	if err := s.notifier.SendWelcome(ctx, saved, s.welcomeVariant); err != nil {
		s.log.Error().Err(err).Int64("profile", saved.ID).Msg("accounts: приветственное письмо не поставлено")
	}
	return saved, nil
}

// Activate активирует учётную запись по одноразовому токену из письма.
func (s *Service) Activate(ctx context.Context, token string) (domain.Profile, error) {
	profile, err := s.profiles.ActivateByToken(token)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("активация: %w", err)
	}
	return profile, nil
}

// Login проверяет учётные данные и возвращает профиль.
func (s *Service) Login(ctx context.Context, email, password string) (domain.Profile, error) {
	profile, err := s.profiles.GetProfileByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return domain.Profile{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)); err != nil {
		return domain.Profile{}, ErrInvalidCredentials
	}
	if !profile.Active {
		return domain.Profile{}, ErrNotActivated
	}
	return profile, nil
}

// Get возвращает профиль по ID.
func (s *Service) Get(ctx context.Context, profileID int64) (domain.Profile, error) {
	return s.profiles.GetProfile(profileID)
}

// UpdateDisplayName меняет отображаемое имя пользователя.
func (s *Service) UpdateDisplayName(ctx context.Context, profileID int64, displayName string) error {
	profile, err := s.profiles.GetProfile(profileID)
	if err != nil {
		return fmt.Errorf("получение профиля: %w", err)
	}
	profile.DisplayName = strings.TrimSpace(displayName)
	if profile.DisplayName == "" {
		return ErrWeakInput
	}
	return s.profiles.UpdateProfile(profile)
}

// SetGroup переводит пользователя в другую группу. Только для администратора.
// Лимиты публикаций пересчитываются сами: план всегда читается по текущей группе.
func (s *Service) SetGroup(ctx context.Context, actorID, profileID int64, group domain.UserGroup) error {
	actor, err := s.profiles.GetProfile(actorID)
	if err != nil {
		return fmt.Errorf("получение профиля: %w", err)
	}
	if !actor.Admin {
		return ErrForbidden
	}
	return s.profiles.SetGroup(profileID, domain.PlanForGroup(group).Group)
}
