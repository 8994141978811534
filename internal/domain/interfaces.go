package domain

import "time"

// ArticleRepo управляет статьями.
type ArticleRepo interface {
	CreateArticle(article Article) (Article, error)
	GetArticle(id int64) (Article, error)
	UpdateArticle(article Article) error
	DeleteArticle(id int64) error
	ListArticles(limit, offset int) ([]Article, int, error)
	SearchArticles(filter ArticleFilter, limit, offset int) ([]Article, error)
	// ListPublishedBetween возвращает статьи рубрик, опубликованные в (from, to].
	ListPublishedBetween(categoryIDs []int64, from, to time.Time) ([]Article, error)
	// ListUnnotified возвращает статьи в состоянии Created старше порога.
	ListUnnotified(olderThan time.Time) ([]Article, error)
	MarkNotified(articleID int64, at time.Time) error
}

// ArticleFilter описывает критерии поиска статей.
type ArticleFilter struct {
	Type       ArticleType
	CategoryID int64
	AuthorID   int64
	Text       string
}

// CategoryRepo управляет рубриками.
type CategoryRepo interface {
	CreateCategory(name string) (Category, error)
	GetCategory(id int64) (Category, error)
	ListCategories() ([]Category, error)
	// DeleteCategory удаляет рубрику; возвращает ErrCategoryInUse,
	// если на рубрику ссылаются статьи.
	DeleteCategory(id int64) error
}

// SubscriptionRepo управляет подписками на рубрики.
type SubscriptionRepo interface {
	Subscribe(profileID, categoryID int64) (bool, error)
	Unsubscribe(profileID, categoryID int64) error
	// Subscribers возвращает снимок подписчиков рубрики.
	Subscribers(categoryID int64) ([]Profile, error)
	ListSubscriptions(profileID int64) ([]Category, error)
	// ListSubscribedProfiles возвращает пользователей хотя бы с одной подпиской
	// вместе с идентификаторами их рубрик.
	ListSubscribedProfiles() ([]ProfileSubscriptions, error)
}

// ProfileSubscriptions — пользователь и рубрики, на которые он подписан.
type ProfileSubscriptions struct {
	Profile     Profile
	CategoryIDs []int64
}

// ProfileRepo управляет учётными записями.
type ProfileRepo interface {
	CreateProfile(profile Profile) (Profile, error)
	GetProfile(id int64) (Profile, error)
	GetProfileByEmail(email string) (Profile, error)
	ActivateByToken(token string) (Profile, error)
	UpdateProfile(profile Profile) error
	SetGroup(profileID int64, group UserGroup) error
}

// PostCounterRepo атомарно резервирует публикации.
type PostCounterRepo interface {
	// ReservePost выполняет compare-and-increment счётчика (profileID, day).
	// При limit <= 0 инкремент безусловный. Два конкурентных вызова не могут
	// одновременно занять последний оставшийся слот.
	ReservePost(profileID int64, day string, limit int) (PostReservation, error)
}

// RatingRepo управляет оценками статей.
type RatingRepo interface {
	UpsertRating(rating Rating) error
	// ArticleRating возвращает агрегированную оценку статьи.
	ArticleRating(articleID int64) (float64, error)
}

// Cache используется для страничного кэша и кэша статей с TTL.
type Cache interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Once(key string, ttl time.Duration, fn func() error) error
}

// Mailer отправляет составленные письма. Ошибка отправки ретраится очередью.
type Mailer interface {
	Send(to, subject, body string) error
}
