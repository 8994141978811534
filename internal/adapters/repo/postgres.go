package repo

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"newsportal/internal/domain"
	"newsportal/internal/infra/metrics"
)

// Postgres реализует доменные репозитории на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.ArticleRepo      = (*Postgres)(nil)
	_ domain.CategoryRepo     = (*Postgres)(nil)
	_ domain.SubscriptionRepo = (*Postgres)(nil)
	_ domain.ProfileRepo      = (*Postgres)(nil)
	_ domain.PostCounterRepo  = (*Postgres)(nil)
	_ domain.RatingRepo       = (*Postgres)(nil)
	_ domain.DigestSlotRepo   = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

const articleColumns = `id, title, content, category_id, author_id, article_type, published_at, notified_at, updated_at`

func scanArticle(row pgx.Row) (domain.Article, error) {
	var (
		article  domain.Article
		notified sql.NullTime
	)
	err := row.Scan(&article.ID, &article.Title, &article.Content, &article.CategoryID, &article.AuthorID, &article.Type, &article.PublishedAt, &notified, &article.UpdatedAt)
	if err != nil {
		return domain.Article{}, err
	}
	if notified.Valid {
		ts := notified.Time
		article.NotifiedAt = &ts
	}
	return article, nil
}

// CreateArticle сохраняет статью и возвращает её с идентификатором.
func (p *Postgres) CreateArticle(article domain.Article) (domain.Article, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `
INSERT INTO articles (title, content, category_id, author_id, article_type, published_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+articleColumns+`
`, article.Title, article.Content, article.CategoryID, article.AuthorID, article.Type, article.PublishedAt)
	saved, err := scanArticle(row)
	metrics.ObserveNetworkRequest("postgres", "articles_insert", "articles", start, err)
	return saved, err
}

// GetArticle возвращает статью по ID.
func (p *Postgres) GetArticle(id int64) (domain.Article, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	article, err := scanArticle(p.pool.QueryRow(ctx, `
SELECT `+articleColumns+` FROM articles WHERE id=$1
`, id))
	metrics.ObserveNetworkRequest("postgres", "articles_get", "articles", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Article{}, domain.ErrNotFound
	}
	return article, err
}

// UpdateArticle обновляет изменяемые поля статьи.
func (p *Postgres) UpdateArticle(article domain.Article) error {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
UPDATE articles
SET title=$2, content=$3, category_id=$4, article_type=$5, updated_at=now()
WHERE id=$1
`, article.ID, article.Title, article.Content, article.CategoryID, article.Type)
	metrics.ObserveNetworkRequest("postgres", "articles_update", "articles", start, err)
	return err
}

// DeleteArticle удаляет статью.
func (p *Postgres) DeleteArticle(id int64) error {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `DELETE FROM articles WHERE id=$1`, id)
	metrics.ObserveNetworkRequest("postgres", "articles_delete", "articles", start, err)
	return err
}

// ListArticles возвращает страницу статей по дате публикации по убыванию.
func (p *Postgres) ListArticles(limit, offset int) ([]domain.Article, int, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT `+articleColumns+` FROM articles ORDER BY published_at DESC LIMIT $1 OFFSET $2
`, limit, offset)
	metrics.ObserveNetworkRequest("postgres", "articles_list", "articles", start, err)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, 0, err
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := p.pool.QueryRow(ctx, `SELECT count(*) FROM articles`).Scan(&total); err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}

// SearchArticles ищет статьи по фильтру.
func (p *Postgres) SearchArticles(filter domain.ArticleFilter, limit, offset int) ([]domain.Article, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	query := `SELECT ` + articleColumns + ` FROM articles WHERE 1=1`
	args := []any{}
	if filter.Type != "" {
		args = append(args, filter.Type)
		query += ` AND article_type=$` + strconv.Itoa(len(args))
	}
	if filter.CategoryID != 0 {
		args = append(args, filter.CategoryID)
		query += ` AND category_id=$` + strconv.Itoa(len(args))
	}
	if filter.AuthorID != 0 {
		args = append(args, filter.AuthorID)
		query += ` AND author_id=$` + strconv.Itoa(len(args))
	}
	if filter.Text != "" {
		args = append(args, "%"+filter.Text+"%")
		query += ` AND (title ILIKE $` + strconv.Itoa(len(args)) + ` OR content ILIKE $` + strconv.Itoa(len(args)) + `)`
	}
	args = append(args, limit)
	query += ` ORDER BY published_at DESC LIMIT $` + strconv.Itoa(len(args))
	args = append(args, offset)
	query += ` OFFSET $` + strconv.Itoa(len(args))

	start := time.Now()
	rows, err := p.pool.Query(ctx, query, args...)
	metrics.ObserveNetworkRequest("postgres", "articles_search", "articles", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

// ListPublishedBetween возвращает статьи рубрик, опубликованные в (from, to].
func (p *Postgres) ListPublishedBetween(categoryIDs []int64, from, to time.Time) ([]domain.Article, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT `+articleColumns+`
FROM articles
WHERE category_id = ANY($1) AND published_at > $2 AND published_at <= $3
ORDER BY published_at DESC
`, categoryIDs, from, to)
	metrics.ObserveNetworkRequest("postgres", "articles_published_between", "articles", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

// ListUnnotified возвращает статьи без отметки о рассылке старше порога.
func (p *Postgres) ListUnnotified(olderThan time.Time) ([]domain.Article, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT `+articleColumns+` FROM articles WHERE notified_at IS NULL AND published_at < $1
`, olderThan)
	metrics.ObserveNetworkRequest("postgres", "articles_unnotified", "articles", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

// MarkNotified фиксирует завершение рассылки по статье.
func (p *Postgres) MarkNotified(articleID int64, at time.Time) error {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `UPDATE articles SET notified_at=$2 WHERE id=$1`, articleID, at)
	metrics.ObserveNetworkRequest("postgres", "articles_mark_notified", "articles", start, err)
	return err
}

// CreateCategory создаёт рубрику с уникальным именем.
func (p *Postgres) CreateCategory(name string) (domain.Category, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	var category domain.Category
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO categories (name) VALUES ($1) RETURNING id, name, created_at
`, name).Scan(&category.ID, &category.Name, &category.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "categories_insert", "categories", start, err)
	if isUniqueViolation(err) {
		return domain.Category{}, domain.ErrDuplicate
	}
	return category, err
}

// GetCategory возвращает рубрику по ID.
func (p *Postgres) GetCategory(id int64) (domain.Category, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	var category domain.Category
	start := time.Now()
	err := p.pool.QueryRow(ctx, `SELECT id, name, created_at FROM categories WHERE id=$1`, id).
		Scan(&category.ID, &category.Name, &category.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "categories_get", "categories", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Category{}, domain.ErrNotFound
	}
	return category, err
}

// ListCategories возвращает все рубрики.
func (p *Postgres) ListCategories() ([]domain.Category, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `SELECT id, name, created_at FROM categories ORDER BY name`)
	metrics.ObserveNetworkRequest("postgres", "categories_list", "categories", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var category domain.Category
		if err := rows.Scan(&category.ID, &category.Name, &category.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

// DeleteCategory удаляет рубрику. Статьи ссылаются на рубрику через
// ON DELETE RESTRICT, поэтому удаление используемой рубрики блокируется.
func (p *Postgres) DeleteCategory(id int64) error {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `DELETE FROM categories WHERE id=$1`, id)
	metrics.ObserveNetworkRequest("postgres", "categories_delete", "categories", start, err)
	if isForeignKeyViolation(err) {
		return domain.ErrCategoryInUse
	}
	return err
}

// Subscribe создаёт подписку; повтор — no-op. Возвращает true при создании.
func (p *Postgres) Subscribe(profileID, categoryID int64) (bool, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	res, err := p.pool.Exec(ctx, `
INSERT INTO subscriptions (profile_id, category_id) VALUES ($1, $2)
ON CONFLICT (profile_id, category_id) DO NOTHING
`, profileID, categoryID)
	metrics.ObserveNetworkRequest("postgres", "subscriptions_insert", "subscriptions", start, err)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

// Unsubscribe удаляет подписку; отсутствие записи — no-op.
func (p *Postgres) Unsubscribe(profileID, categoryID int64) error {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
DELETE FROM subscriptions WHERE profile_id=$1 AND category_id=$2
`, profileID, categoryID)
	metrics.ObserveNetworkRequest("postgres", "subscriptions_delete", "subscriptions", start, err)
	return err
}

const profileColumns = `id, email, display_name, user_group, is_admin, password_hash, active, activation_token, created_at, updated_at`

func scanProfile(row pgx.Row) (domain.Profile, error) {
	var profile domain.Profile
	err := row.Scan(&profile.ID, &profile.Email, &profile.DisplayName, &profile.Group, &profile.Admin, &profile.PasswordHash, &profile.Active, &profile.ActivationToken, &profile.CreatedAt, &profile.UpdatedAt)
	return profile, err
}

// Subscribers возвращает снимок подписчиков рубрики на момент запроса.
func (p *Postgres) Subscribers(categoryID int64) ([]domain.Profile, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT `+prefixed("p", profileColumns)+`
FROM profiles p
JOIN subscriptions s ON s.profile_id = p.id
WHERE s.category_id = $1
`, categoryID)
	metrics.ObserveNetworkRequest("postgres", "subscriptions_subscribers", "subscriptions", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []domain.Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}

// ListSubscriptions возвращает рубрики, на которые подписан пользователь.
func (p *Postgres) ListSubscriptions(profileID int64) ([]domain.Category, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT c.id, c.name, c.created_at
FROM categories c
JOIN subscriptions s ON s.category_id = c.id
WHERE s.profile_id = $1
ORDER BY c.name
`, profileID)
	metrics.ObserveNetworkRequest("postgres", "subscriptions_list", "subscriptions", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var category domain.Category
		if err := rows.Scan(&category.ID, &category.Name, &category.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

// ListSubscribedProfiles возвращает пользователей хотя бы с одной подпиской.
func (p *Postgres) ListSubscribedProfiles() ([]domain.ProfileSubscriptions, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT `+prefixed("p", profileColumns)+`, array_agg(s.category_id ORDER BY s.category_id)
FROM profiles p
JOIN subscriptions s ON s.profile_id = p.id
GROUP BY p.id
`)
	metrics.ObserveNetworkRequest("postgres", "subscriptions_profiles", "subscriptions", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ProfileSubscriptions
	for rows.Next() {
		var (
			item domain.ProfileSubscriptions
			ids  []int64
		)
		if err := rows.Scan(&item.Profile.ID, &item.Profile.Email, &item.Profile.DisplayName, &item.Profile.Group, &item.Profile.Admin, &item.Profile.PasswordHash, &item.Profile.Active, &item.Profile.ActivationToken, &item.Profile.CreatedAt, &item.Profile.UpdatedAt, &ids); err != nil {
			return nil, err
		}
		item.CategoryIDs = ids
		result = append(result, item)
	}
	return result, rows.Err()
}

// CreateProfile сохраняет профиль.
func (p *Postgres) CreateProfile(profile domain.Profile) (domain.Profile, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	saved, err := scanProfile(p.pool.QueryRow(ctx, `
INSERT INTO profiles (email, display_name, user_group, is_admin, password_hash, active, activation_token)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+profileColumns+`
`, profile.Email, profile.DisplayName, profile.Group, profile.Admin, profile.PasswordHash, profile.Active, profile.ActivationToken))
	metrics.ObserveNetworkRequest("postgres", "profiles_insert", "profiles", start, err)
	if isUniqueViolation(err) {
		return domain.Profile{}, domain.ErrDuplicate
	}
	return saved, err
}

// GetProfile возвращает профиль по ID.
func (p *Postgres) GetProfile(id int64) (domain.Profile, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	profile, err := scanProfile(p.pool.QueryRow(ctx, `
SELECT `+profileColumns+` FROM profiles WHERE id=$1
`, id))
	metrics.ObserveNetworkRequest("postgres", "profiles_get", "profiles", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Profile{}, domain.ErrNotFound
	}
	return profile, err
}

// GetProfileByEmail возвращает профиль по email.
func (p *Postgres) GetProfileByEmail(email string) (domain.Profile, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	profile, err := scanProfile(p.pool.QueryRow(ctx, `
SELECT `+profileColumns+` FROM profiles WHERE email=$1
`, email))
	metrics.ObserveNetworkRequest("postgres", "profiles_get_by_email", "profiles", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Profile{}, domain.ErrNotFound
	}
	return profile, err
}

// ActivateByToken активирует профиль по одноразовому токену и гасит токен.
func (p *Postgres) ActivateByToken(token string) (domain.Profile, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	profile, err := scanProfile(p.pool.QueryRow(ctx, `
UPDATE profiles
SET active=TRUE, activation_token='', updated_at=now()
WHERE activation_token=$1 AND activation_token <> ''
RETURNING `+profileColumns+`
`, token))
	metrics.ObserveNetworkRequest("postgres", "profiles_activate", "profiles", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Profile{}, domain.ErrNotFound
	}
	return profile, err
}

// UpdateProfile обновляет отображаемые атрибуты профиля.
func (p *Postgres) UpdateProfile(profile domain.Profile) error {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
UPDATE profiles SET display_name=$2, updated_at=now() WHERE id=$1
`, profile.ID, profile.DisplayName)
	metrics.ObserveNetworkRequest("postgres", "profiles_update", "profiles", start, err)
	return err
}

// SetGroup переводит профиль в другую группу.
func (p *Postgres) SetGroup(profileID int64, group domain.UserGroup) error {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
UPDATE profiles SET user_group=$2, updated_at=now() WHERE id=$1
`, profileID, group)
	metrics.ObserveNetworkRequest("postgres", "profiles_set_group", "profiles", start, err)
	return err
}

// ReservePost атомарно резервирует публикацию за (profile, day).
// Условный инкремент выполняется одним оператором, поэтому два конкурентных
// запроса не могут одновременно занять последний слот.
func (p *Postgres) ReservePost(profileID int64, day string, limit int) (domain.PostReservation, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	if limit <= 0 {
		// Безлимитная группа: инкремент без проверки.
		var count int
		start := time.Now()
		err := p.pool.QueryRow(ctx, `
INSERT INTO post_counters (profile_id, day, count) VALUES ($1, $2, 1)
ON CONFLICT (profile_id, day) DO UPDATE SET count = post_counters.count + 1
RETURNING count
`, profileID, day).Scan(&count)
		metrics.ObserveNetworkRequest("postgres", "post_counters_reserve", "post_counters", start, err)
		if err != nil {
			return domain.PostReservation{}, err
		}
		return domain.PostReservation{Allowed: true, Used: count}, nil
	}

	var count int
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO post_counters (profile_id, day, count) VALUES ($1, $2, 1)
ON CONFLICT (profile_id, day) DO UPDATE SET count = post_counters.count + 1
WHERE post_counters.count < $3
RETURNING count
`, profileID, day, limit).Scan(&count)
	metrics.ObserveNetworkRequest("postgres", "post_counters_reserve", "post_counters", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		// Лимит исчерпан: счётчик не изменён, читаем текущее значение.
		var used int
		if err := p.pool.QueryRow(ctx, `
SELECT count FROM post_counters WHERE profile_id=$1 AND day=$2
`, profileID, day).Scan(&used); err != nil {
			return domain.PostReservation{}, err
		}
		return domain.PostReservation{Allowed: false, Used: used}, nil
	}
	if err != nil {
		return domain.PostReservation{}, err
	}
	return domain.PostReservation{Allowed: true, Used: count}, nil
}

// UpsertRating сохраняет или обновляет оценку статьи пользователем.
func (p *Postgres) UpsertRating(rating domain.Rating) error {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO ratings (article_id, profile_id, value) VALUES ($1, $2, $3)
ON CONFLICT (article_id, profile_id) DO UPDATE SET value = EXCLUDED.value
`, rating.ArticleID, rating.ProfileID, rating.Value)
	metrics.ObserveNetworkRequest("postgres", "ratings_upsert", "ratings", start, err)
	return err
}

// ArticleRating возвращает средний рейтинг статьи.
func (p *Postgres) ArticleRating(articleID int64) (float64, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	var rating float64
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT COALESCE(AVG(value), 0) FROM ratings WHERE article_id=$1
`, articleID).Scan(&rating)
	metrics.ObserveNetworkRequest("postgres", "ratings_avg", "ratings", start, err)
	return rating, err
}

// AcquireSlot помечает слот расписания занятым; повтор возвращает false.
func (p *Postgres) AcquireSlot(scheduledFor time.Time) (bool, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	res, err := p.pool.Exec(ctx, `
INSERT INTO digest_slots (scheduled_for) VALUES ($1)
ON CONFLICT (scheduled_for) DO NOTHING
`, scheduledFor)
	metrics.ObserveNetworkRequest("postgres", "digest_slots_acquire", "digest_slots", start, err)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

// ReleaseSlot возвращает слот после неудачного прогона.
func (p *Postgres) ReleaseSlot(scheduledFor time.Time) error {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `DELETE FROM digest_slots WHERE scheduled_for = $1`, scheduledFor)
	metrics.ObserveNetworkRequest("postgres", "digest_slots_release", "digest_slots", start, err)
	return err
}

// Watermark возвращает конец последнего обработанного окна дайджеста.
func (p *Postgres) Watermark() (time.Time, error) {
	ctx, cancel := p.connCtx()
	defer cancel()

	var watermark time.Time
	start := time.Now()
	err := p.pool.QueryRow(ctx, `SELECT watermark FROM digest_watermark WHERE id=1`).Scan(&watermark)
	metrics.ObserveNetworkRequest("postgres", "digest_watermark_get", "digest_watermark", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, nil
	}
	return watermark, err
}

// AdvanceWatermark сдвигает окно после успешного прогона дайджеста.
func (p *Postgres) AdvanceWatermark(to time.Time) error {
	ctx, cancel := p.connCtx()
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO digest_watermark (id, watermark) VALUES (1, $1)
ON CONFLICT (id) DO UPDATE SET watermark = EXCLUDED.watermark
`, to)
	metrics.ObserveNetworkRequest("postgres", "digest_watermark_advance", "digest_watermark", start, err)
	return err
}

// prefixed добавляет алиас таблицы к списку колонок.
func prefixed(alias, columns string) string {
	cols := strings.Split(columns, ", ")
	for i, col := range cols {
		cols[i] = alias + "." + col
	}
	return strings.Join(cols, ", ")
}
