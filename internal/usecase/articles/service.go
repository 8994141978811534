package articles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"newsportal/internal/domain"
	"newsportal/internal/infra/cache"
	"newsportal/internal/infra/metrics"
)

// ErrValidation возвращается при некорректном вводе; такие запросы никогда
// не доходят до очереди уведомлений.
var ErrValidation = errors.New("все поля должны быть заполнены корректно")

// ErrPostLimit возвращается при превышении суточного лимита публикаций.
// Это не сбой: запись блокируется, а автору ставится предупреждение.
var ErrPostLimit = errors.New("превышен суточный лимит публикаций")

// ErrForbidden возвращается, когда статью меняет не автор и не администратор.
var ErrForbidden = errors.New("недостаточно прав")

// ErrFrozenFields возвращается при попытке сменить тип или рубрику статьи
// после того, как по ней разосланы уведомления.
var ErrFrozenFields = errors.New("тип и рубрика статьи заморожены после рассылки")

// ErrNotFound возвращается, когда статья не найдена.
var ErrNotFound = errors.New("статья не найдена")

// Notifier — часть диспетчера уведомлений, нужная сервису статей.
type Notifier interface {
	FanOutArticle(ctx context.Context, article domain.Article) error
	SendLimitWarning(ctx context.Context, profile domain.Profile, reservation domain.PostReservation, resetAt time.Time) error
}

// Service реализует бизнес-логику статей: создание с лимитом публикаций,
// правку с заморозкой полей, кэширование и поиск.
type Service struct {
	articles   domain.ArticleRepo
	categories domain.CategoryRepo
	profiles   domain.ProfileRepo
	counters   domain.PostCounterRepo
	ratings    domain.RatingRepo
	cache      domain.Cache
	notifier   Notifier
	log        zerolog.Logger
	loc        *time.Location
	articleTTL time.Duration
	pageTTL    time.Duration
}

// NewService создаёт сервис статей.
func NewService(articles domain.ArticleRepo, categories domain.CategoryRepo, profiles domain.ProfileRepo, counters domain.PostCounterRepo, ratings domain.RatingRepo, articleCache domain.Cache, notifier Notifier, log zerolog.Logger, loc *time.Location, articleTTL, pageTTL time.Duration) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		articles:   articles,
		categories: categories,
		profiles:   profiles,
		counters:   counters,
		ratings:    ratings,
		cache:      articleCache,
		notifier:   notifier,
		log:        log,
		loc:        loc,
		articleTTL: articleTTL,
		pageTTL:    pageTTL,
	}
}

// CreateInput — данные новой статьи.
type CreateInput struct {
	Title      string
	Content    string
	CategoryID int64
	Type       domain.ArticleType
}

// UpdateInput — данные правки статьи.
type UpdateInput struct {
	Title      string
	Content    string
	CategoryID int64
	Type       domain.ArticleType
}

// Create публикует статью. Счётчик публикаций инкрементируется атомарно
// на стороне хранилища; на заблокированную попытку ставится ровно одно
// предупреждение. Сбой постановки уведомлений не отменяет создание:
// статья остаётся в состоянии Created и добирается повторным прогоном.
func (s *Service) Create(ctx context.Context, authorID int64, input CreateInput) (domain.Article, error) {
	if err := validateInput(input.Title, input.Content, input.CategoryID, input.Type); err != nil {
		return domain.Article{}, err
	}
	if _, err := s.categories.GetCategory(input.CategoryID); err != nil {
		return domain.Article{}, fmt.Errorf("%w: рубрика не найдена", ErrValidation)
	}

	author, err := s.profiles.GetProfile(authorID)
	if err != nil {
		return domain.Article{}, fmt.Errorf("получение автора: %w", err)
	}

	now := time.Now().In(s.loc)
	day := now.Format("2006-01-02")
	reservation, err := s.counters.ReservePost(author.ID, day, domain.PostLimitFor(author.Group))
	if err != nil {
		return domain.Article{}, fmt.Errorf("резервирование публикации: %w", err)
	}
	if !reservation.Allowed {
		metrics.PostLimitExceededTotal.Inc()
		resetAt := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc).AddDate(0, 0, 1)
		if err := s.notifier.SendLimitWarning(ctx, author, reservation, resetAt); err != nil {
			s.log.Error().Err(err).Int64("author", author.ID).Msg("articles: предупреждение о лимите не поставлено")
		}
		return domain.Article{}, ErrPostLimit
	}

	article := domain.Article{
		Title:       strings.TrimSpace(input.Title),
		Content:     input.Content,
		CategoryID:  input.CategoryID,
		AuthorID:    author.ID,
		Type:        input.Type,
		PublishedAt: now.UTC(),
	}
	saved, err := s.articles.CreateArticle(article)
	if err != nil {
		return domain.Article{}, fmt.Errorf("сохранение статьи: %w", err)
	}
	metrics.ArticlesCreatedTotal.Inc()

	s.evictPages()

	if err := s.notifier.FanOutArticle(ctx, saved); err != nil {
		s.log.Error().Err(err).Int64("article", saved.ID).Msg("articles: рассылка отложена до повторного прогона")
	}
	return saved, nil
}

// Update правит статью. После рассылки уведомлений тип и рубрика неизменяемы,
// чтобы текст уведомлений не расходился с тем, что было анонсировано.
// Кэш статьи вытесняется синхронно до подтверждения записи.
func (s *Service) Update(ctx context.Context, editorID, articleID int64, input UpdateInput) (domain.Article, error) {
	if err := validateInput(input.Title, input.Content, input.CategoryID, input.Type); err != nil {
		return domain.Article{}, err
	}
	article, err := s.articles.GetArticle(articleID)
	if err != nil {
		return domain.Article{}, ErrNotFound
	}
	if err := s.authorize(editorID, article); err != nil {
		return domain.Article{}, err
	}
	if article.Notified() && (input.Type != article.Type || input.CategoryID != article.CategoryID) {
		return domain.Article{}, ErrFrozenFields
	}

	if err := s.evictArticle(articleID); err != nil {
		return domain.Article{}, fmt.Errorf("вытеснение кэша: %w", err)
	}

	article.Title = strings.TrimSpace(input.Title)
	article.Content = input.Content
	article.CategoryID = input.CategoryID
	article.Type = input.Type
	article.UpdatedAt = time.Now().UTC()
	if err := s.articles.UpdateArticle(article); err != nil {
		return domain.Article{}, fmt.Errorf("обновление статьи: %w", err)
	}
	s.evictPages()
	return article, nil
}

// Delete удаляет статью автора или по праву администратора.
func (s *Service) Delete(ctx context.Context, editorID, articleID int64) error {
	article, err := s.articles.GetArticle(articleID)
	if err != nil {
		return ErrNotFound
	}
	if err := s.authorize(editorID, article); err != nil {
		return err
	}
	if err := s.evictArticle(articleID); err != nil {
		return fmt.Errorf("вытеснение кэша: %w", err)
	}
	if err := s.articles.DeleteArticle(articleID); err != nil {
		return fmt.Errorf("удаление статьи: %w", err)
	}
	s.evictPages()
	return nil
}

// Get возвращает статью, отдавая кэшированную копию в пределах TTL.
func (s *Service) Get(ctx context.Context, articleID int64) (domain.Article, error) {
	key := articleCacheKey(articleID)
	if data, err := s.cache.Get(key); err == nil {
		var cached domain.Article
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
	} else if !errors.Is(err, cache.ErrMiss) {
		s.log.Warn().Err(err).Msg("articles: кэш недоступен")
	}

	article, err := s.articles.GetArticle(articleID)
	if err != nil {
		return domain.Article{}, ErrNotFound
	}
	if rating, err := s.ratings.ArticleRating(articleID); err == nil {
		article.Rating = rating
	}

	if data, err := json.Marshal(article); err == nil {
		if err := s.cache.Set(key, data, s.articleTTL); err != nil {
			s.log.Warn().Err(err).Msg("articles: запись в кэш не удалась")
		}
	}
	return article, nil
}

// Page — страница списка статей.
type Page struct {
	Articles []domain.Article `json:"articles"`
	Total    int              `json:"total"`
}

// List возвращает страницу статей, кэшируя её на короткий TTL.
func (s *Service) List(ctx context.Context, pageNumber, perPage int) (Page, error) {
	if pageNumber < 1 {
		pageNumber = 1
	}
	if perPage <= 0 {
		perPage = 10
	}
	key := pageCacheKey(pageNumber, perPage)
	if data, err := s.cache.Get(key); err == nil {
		var cached Page
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
	}

	list, total, err := s.articles.ListArticles(perPage, (pageNumber-1)*perPage)
	if err != nil {
		return Page{}, fmt.Errorf("список статей: %w", err)
	}
	page := Page{Articles: list, Total: total}
	// Страницу в кэш пишет один запрос на окно TTL, остальные читают базу.
	if err := s.cache.Once(pageBuilderKey(pageNumber, perPage), s.pageTTL, func() error {
		data, err := json.Marshal(page)
		if err != nil {
			return err
		}
		return s.cache.Set(key, data, s.pageTTL)
	}); err != nil {
		s.log.Warn().Err(err).Msg("articles: запись страничного кэша не удалась")
	}
	return page, nil
}

// Search ищет статьи по фильтру без кэширования.
func (s *Service) Search(ctx context.Context, filter domain.ArticleFilter, pageNumber, perPage int) ([]domain.Article, error) {
	if pageNumber < 1 {
		pageNumber = 1
	}
	if perPage <= 0 {
		perPage = 10
	}
	found, err := s.articles.SearchArticles(filter, perPage, (pageNumber-1)*perPage)
	if err != nil {
		return nil, fmt.Errorf("поиск статей: %w", err)
	}
	return found, nil
}

// Rate сохраняет оценку и возвращает новый агрегированный рейтинг статьи.
func (s *Service) Rate(ctx context.Context, profileID, articleID int64, value int) (float64, error) {
	if value < 1 || value > 5 {
		return 0, fmt.Errorf("%w: оценка должна быть от 1 до 5", ErrValidation)
	}
	if _, err := s.articles.GetArticle(articleID); err != nil {
		return 0, ErrNotFound
	}
	if err := s.ratings.UpsertRating(domain.Rating{ArticleID: articleID, ProfileID: profileID, Value: value}); err != nil {
		return 0, fmt.Errorf("сохранение оценки: %w", err)
	}
	if err := s.evictArticle(articleID); err != nil {
		s.log.Warn().Err(err).Msg("articles: кэш статьи не вытеснен после оценки")
	}
	rating, err := s.ratings.ArticleRating(articleID)
	if err != nil {
		return 0, fmt.Errorf("агрегация рейтинга: %w", err)
	}
	return rating, nil
}

func (s *Service) authorize(editorID int64, article domain.Article) error {
	editor, err := s.profiles.GetProfile(editorID)
	if err != nil {
		return fmt.Errorf("получение редактора: %w", err)
	}
	// Права всегда проверяются по текущей группе, без кэширования.
	if editor.ID != article.AuthorID && !editor.Admin {
		return ErrForbidden
	}
	return nil
}

func (s *Service) evictArticle(articleID int64) error {
	return s.cache.Delete(articleCacheKey(articleID))
}

// evictPages сбрасывает первую страницу списка вместе с её строителем.
// Остальные страницы доживают свой TTL: устаревание в пределах окна
// допускается дизайном.
func (s *Service) evictPages() {
	for _, key := range []string{pageCacheKey(1, 10), pageBuilderKey(1, 10)} {
		if err := s.cache.Delete(key); err != nil {
			s.log.Warn().Err(err).Msg("articles: страничный кэш не вытеснен")
		}
	}
}

func validateInput(title, content string, categoryID int64, articleType domain.ArticleType) error {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(content) == "" {
		return ErrValidation
	}
	if categoryID == 0 {
		return ErrValidation
	}
	if !articleType.Valid() {
		return fmt.Errorf("%w: неизвестный тип статьи", ErrValidation)
	}
	return nil
}

func articleCacheKey(articleID int64) string {
	return fmt.Sprintf("article_%d", articleID)
}

func pageCacheKey(page, perPage int) string {
	return fmt.Sprintf("articles_page_%d_%d", page, perPage)
}

// pageBuilderKey — SetNX-замок, пускающий в пересборку страницы один запрос.
func pageBuilderKey(page, perPage int) string {
	return pageCacheKey(page, perPage) + "_builder"
}
