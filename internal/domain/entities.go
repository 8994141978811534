package domain

import "time"

// ArticleType различает новости и статьи.
type ArticleType string

const (
	ArticleTypeNews ArticleType = "news"
	ArticleTypePost ArticleType = "post"
)

// Valid проверяет, что тип статьи известен.
func (t ArticleType) Valid() bool {
	return t == ArticleTypeNews || t == ArticleTypePost
}

// Article описывает публикацию портала.
// Пока NotifiedAt не установлен, статья находится в состоянии Created;
// после успешной постановки всех уведомлений — в состоянии Notified.
type Article struct {
	ID          int64
	Title       string
	Content     string
	CategoryID  int64
	AuthorID    int64
	Type        ArticleType
	Rating      float64
	PublishedAt time.Time
	NotifiedAt  *time.Time
	UpdatedAt   time.Time
}

// Notified сообщает, разосланы ли уведомления по статье.
func (a Article) Notified() bool {
	return a.NotifiedAt != nil
}

// Category описывает рубрику, на которую подписываются пользователи.
type Category struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// Profile описывает учётную запись пользователя портала.
type Profile struct {
	ID              int64
	Email           string
	DisplayName     string
	Group           UserGroup
	Admin           bool
	PasswordHash    string
	Active          bool
	ActivationToken string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Rating хранит оценку статьи пользователем.
type Rating struct {
	ArticleID int64
	ProfileID int64
	Value     int
	CreatedAt time.Time
}
