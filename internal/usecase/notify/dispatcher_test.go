package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"newsportal/internal/domain"
)

type stubStore struct {
	categories map[int64]domain.Category
	profiles   map[int64]domain.Profile
	subs       map[int64][]domain.Profile
	readers    []domain.ProfileSubscriptions
	published  []domain.Article
	unnotified []domain.Article

	marked    []int64
	slots     map[time.Time]bool
	released  []time.Time
	watermark time.Time
	advanced  []time.Time
}

func newStubStore() *stubStore {
	return &stubStore{
		categories: map[int64]domain.Category{},
		profiles:   map[int64]domain.Profile{},
		subs:       map[int64][]domain.Profile{},
		slots:      map[time.Time]bool{},
	}
}

func (s *stubStore) CreateArticle(a domain.Article) (domain.Article, error) { return a, nil }
func (s *stubStore) GetArticle(int64) (domain.Article, error)              { return domain.Article{}, domain.ErrNotFound }
func (s *stubStore) UpdateArticle(domain.Article) error                    { return nil }
func (s *stubStore) DeleteArticle(int64) error                             { return nil }
func (s *stubStore) ListArticles(int, int) ([]domain.Article, int, error)  { return nil, 0, nil }
func (s *stubStore) SearchArticles(domain.ArticleFilter, int, int) ([]domain.Article, error) {
	return nil, nil
}
func (s *stubStore) ListPublishedBetween(categoryIDs []int64, from, to time.Time) ([]domain.Article, error) {
	want := map[int64]bool{}
	for _, id := range categoryIDs {
		want[id] = true
	}
	var out []domain.Article
	for _, a := range s.published {
		if want[a.CategoryID] && a.PublishedAt.After(from) && !a.PublishedAt.After(to) {
			out = append(out, a)
		}
	}
	return out, nil
}
func (s *stubStore) ListUnnotified(time.Time) ([]domain.Article, error) { return s.unnotified, nil }
func (s *stubStore) MarkNotified(articleID int64, _ time.Time) error {
	s.marked = append(s.marked, articleID)
	return nil
}

func (s *stubStore) CreateCategory(name string) (domain.Category, error) {
	return domain.Category{Name: name}, nil
}
func (s *stubStore) GetCategory(id int64) (domain.Category, error) {
	c, ok := s.categories[id]
	if !ok {
		return domain.Category{}, domain.ErrNotFound
	}
	return c, nil
}
func (s *stubStore) ListCategories() ([]domain.Category, error) {
	var out []domain.Category
	for _, c := range s.categories {
		out = append(out, c)
	}
	return out, nil
}
func (s *stubStore) DeleteCategory(int64) error { return nil }

func (s *stubStore) CreateProfile(p domain.Profile) (domain.Profile, error) { return p, nil }
func (s *stubStore) GetProfile(id int64) (domain.Profile, error) {
	p, ok := s.profiles[id]
	if !ok {
		return domain.Profile{}, domain.ErrNotFound
	}
	return p, nil
}
func (s *stubStore) GetProfileByEmail(string) (domain.Profile, error) {
	return domain.Profile{}, domain.ErrNotFound
}
func (s *stubStore) ActivateByToken(string) (domain.Profile, error) {
	return domain.Profile{}, domain.ErrNotFound
}
func (s *stubStore) UpdateProfile(domain.Profile) error           { return nil }
func (s *stubStore) SetGroup(int64, domain.UserGroup) error       { return nil }

func (s *stubStore) Subscribe(int64, int64) (bool, error) { return false, nil }
func (s *stubStore) Unsubscribe(int64, int64) error       { return nil }
func (s *stubStore) Subscribers(categoryID int64) ([]domain.Profile, error) {
	return s.subs[categoryID], nil
}
func (s *stubStore) ListSubscriptions(int64) ([]domain.Category, error) { return nil, nil }
func (s *stubStore) ListSubscribedProfiles() ([]domain.ProfileSubscriptions, error) {
	return s.readers, nil
}

func (s *stubStore) AcquireSlot(scheduledFor time.Time) (bool, error) {
	if s.slots[scheduledFor] {
		return false, nil
	}
	s.slots[scheduledFor] = true
	return true, nil
}
func (s *stubStore) ReleaseSlot(scheduledFor time.Time) error {
	delete(s.slots, scheduledFor)
	s.released = append(s.released, scheduledFor)
	return nil
}
func (s *stubStore) Watermark() (time.Time, error) { return s.watermark, nil }
func (s *stubStore) AdvanceWatermark(to time.Time) error {
	s.advanced = append(s.advanced, to)
	s.watermark = to
	return nil
}

type memQueue struct {
	jobs      []domain.NotificationJob
	fail      bool
	failAfter int
}

func (q *memQueue) Enqueue(_ context.Context, job domain.NotificationJob) error {
	if q.fail || (q.failAfter > 0 && len(q.jobs) >= q.failAfter) {
		return errors.New("очередь недоступна")
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *memQueue) Receive(context.Context) (domain.NotificationJob, domain.NotificationAckFunc, error) {
	return domain.NotificationJob{}, nil, errors.New("не используется")
}

func newTestDispatcher(store *stubStore, queue *memQueue) *Dispatcher {
	return NewDispatcher(store, store, store, store, store, queue, zerolog.Nop(), "http://localhost:8080")
}

func TestFanOutArticleOneJobPerSubscriber(t *testing.T) {
	store := newStubStore()
	store.categories[1] = domain.Category{ID: 1, Name: "Спорт"}
	store.profiles[10] = domain.Profile{ID: 10, DisplayName: "Автор", Email: "author@example.com"}
	store.subs[1] = []domain.Profile{
		{ID: 1, Email: "a@example.com"},
		{ID: 2, Email: "b@example.com"},
		{ID: 3, Email: "c@example.com"},
	}
	queue := &memQueue{}
	d := newTestDispatcher(store, queue)

	article := domain.Article{ID: 7, Title: "Матч", Content: "Отчёт", CategoryID: 1, AuthorID: 10}
	if err := d.FanOutArticle(context.Background(), article); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(queue.jobs) != 3 {
		t.Fatalf("ожидали по задаче на подписчика, получили %d", len(queue.jobs))
	}
	for _, job := range queue.jobs {
		if job.Kind != domain.NotificationArticle {
			t.Fatalf("неожиданный тип задачи: %s", job.Kind)
		}
		if job.Subject == "" || job.Body == "" {
			t.Fatalf("письмо должно быть составлено до постановки в очередь")
		}
	}
	if len(store.marked) != 1 || store.marked[0] != 7 {
		t.Fatalf("ожидали пометку статьи разосланной, получили %v", store.marked)
	}
}

func TestFanOutArticleNoSubscribers(t *testing.T) {
	store := newStubStore()
	store.categories[1] = domain.Category{ID: 1, Name: "Спорт"}
	store.profiles[10] = domain.Profile{ID: 10}
	queue := &memQueue{}
	d := newTestDispatcher(store, queue)

	if err := d.FanOutArticle(context.Background(), domain.Article{ID: 7, CategoryID: 1, AuthorID: 10}); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(queue.jobs) != 0 {
		t.Fatalf("без подписчиков задач быть не должно")
	}
	if len(store.marked) != 1 {
		t.Fatalf("статья без подписчиков всё равно считается разосланной")
	}
}

func TestFanOutReflectsSubscriptionChanges(t *testing.T) {
	store := newStubStore()
	store.categories[1] = domain.Category{ID: 1, Name: "Спорт"}
	store.profiles[10] = domain.Profile{ID: 10, DisplayName: "Автор"}
	reader := domain.Profile{ID: 1, Email: "a@example.com"}
	queue := &memQueue{}
	d := newTestDispatcher(store, queue)

	jobsFor := func(email string) int {
		var n int
		for _, job := range queue.jobs {
			if job.Recipient == email {
				n++
			}
		}
		return n
	}

	store.subs[1] = []domain.Profile{reader}
	if err := d.FanOutArticle(context.Background(), domain.Article{ID: 1, Title: "Первая", CategoryID: 1, AuthorID: 10}); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if jobsFor(reader.Email) != 1 {
		t.Fatalf("подписчик получает уведомление, задач %d", jobsFor(reader.Email))
	}

	// Отписка до публикации: следующая статья проходит мимо пользователя.
	store.subs[1] = nil
	if err := d.FanOutArticle(context.Background(), domain.Article{ID: 2, Title: "Вторая", CategoryID: 1, AuthorID: 10}); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if jobsFor(reader.Email) != 1 {
		t.Fatalf("после отписки новых задач быть не должно, задач %d", jobsFor(reader.Email))
	}

	// Повторная подписка до публикации восстанавливает ровно одно уведомление.
	store.subs[1] = []domain.Profile{reader}
	if err := d.FanOutArticle(context.Background(), domain.Article{ID: 3, Title: "Третья", CategoryID: 1, AuthorID: 10}); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if jobsFor(reader.Email) != 2 {
		t.Fatalf("после повторной подписки ожидали одно новое уведомление, всего %d", jobsFor(reader.Email))
	}
}

func TestFanOutArticlePartialFailureLeavesCreated(t *testing.T) {
	store := newStubStore()
	store.categories[1] = domain.Category{ID: 1, Name: "Спорт"}
	store.profiles[10] = domain.Profile{ID: 10}
	store.subs[1] = []domain.Profile{
		{ID: 1, Email: "a@example.com"},
		{ID: 2, Email: "b@example.com"},
	}
	queue := &memQueue{failAfter: 1}
	d := newTestDispatcher(store, queue)

	err := d.FanOutArticle(context.Background(), domain.Article{ID: 7, CategoryID: 1, AuthorID: 10})
	if err == nil {
		t.Fatalf("ожидали ошибку при частичном сбое очереди")
	}
	if len(store.marked) != 0 {
		t.Fatalf("при частичном сбое статья должна остаться неразосланной")
	}
	if len(queue.jobs) != 1 {
		t.Fatalf("успешно поставленные задачи не откатываются, получили %d", len(queue.jobs))
	}
}

func TestRetryUnnotified(t *testing.T) {
	store := newStubStore()
	store.categories[1] = domain.Category{ID: 1, Name: "Спорт"}
	store.profiles[10] = domain.Profile{ID: 10}
	store.subs[1] = []domain.Profile{{ID: 1, Email: "a@example.com"}}
	store.unnotified = []domain.Article{{ID: 7, CategoryID: 1, AuthorID: 10}}
	queue := &memQueue{}
	d := newTestDispatcher(store, queue)

	d.RetryUnnotified(context.Background(), time.Now())
	if len(queue.jobs) != 1 {
		t.Fatalf("ожидали добор рассылки, получили %d задач", len(queue.jobs))
	}
	if len(store.marked) != 1 {
		t.Fatalf("после добора статья помечается разосланной")
	}
}

func TestRunWeeklyDigestIdempotent(t *testing.T) {
	slot := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	store := newStubStore()
	store.categories[1] = domain.Category{ID: 1, Name: "Спорт"}
	store.readers = []domain.ProfileSubscriptions{
		{Profile: domain.Profile{ID: 1, Email: "a@example.com", DisplayName: "Анна"}, CategoryIDs: []int64{1}},
	}
	store.published = []domain.Article{
		{ID: 1, Title: "Матч", CategoryID: 1, PublishedAt: slot.Add(-time.Hour)},
	}
	queue := &memQueue{}
	d := newTestDispatcher(store, queue)

	if err := d.RunWeeklyDigest(context.Background(), slot); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(queue.jobs) != 1 {
		t.Fatalf("ожидали один дайджест, получили %d", len(queue.jobs))
	}
	if err := d.RunWeeklyDigest(context.Background(), slot); err != nil {
		t.Fatalf("повторный прогон не должен падать: %v", err)
	}
	if len(queue.jobs) != 1 {
		t.Fatalf("повторный прогон того же слота не должен ставить задачи")
	}
	if len(store.advanced) != 1 || !store.advanced[0].Equal(slot) {
		t.Fatalf("водяной знак должен сдвинуться ровно один раз: %v", store.advanced)
	}
}

func TestRunWeeklyDigestSkipsEmptyDigest(t *testing.T) {
	slot := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	store := newStubStore()
	store.categories[1] = domain.Category{ID: 1, Name: "Спорт"}
	store.readers = []domain.ProfileSubscriptions{
		{Profile: domain.Profile{ID: 1, Email: "a@example.com"}, CategoryIDs: []int64{1}},
	}
	queue := &memQueue{}
	d := newTestDispatcher(store, queue)

	if err := d.RunWeeklyDigest(context.Background(), slot); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(queue.jobs) != 0 {
		t.Fatalf("пустой дайджест не отправляется")
	}
	if len(store.advanced) != 1 {
		t.Fatalf("окно сдвигается и при пустом прогоне")
	}
}

func TestRunWeeklyDigestGroupsInSubscriptionOrder(t *testing.T) {
	slot := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	store := newStubStore()
	store.categories[1] = domain.Category{ID: 1, Name: "Спорт"}
	store.categories[2] = domain.Category{ID: 2, Name: "Культура"}
	store.readers = []domain.ProfileSubscriptions{
		{Profile: domain.Profile{ID: 1, Email: "a@example.com"}, CategoryIDs: []int64{2, 1}},
	}
	store.published = []domain.Article{
		{ID: 1, Title: "Старый матч", CategoryID: 1, PublishedAt: slot.Add(-48 * time.Hour)},
		{ID: 2, Title: "Свежий матч", CategoryID: 1, PublishedAt: slot.Add(-time.Hour)},
		{ID: 3, Title: "Премьера", CategoryID: 2, PublishedAt: slot.Add(-24 * time.Hour)},
	}
	queue := &memQueue{}
	d := newTestDispatcher(store, queue)

	if err := d.RunWeeklyDigest(context.Background(), slot); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(queue.jobs) != 1 {
		t.Fatalf("ожидали один дайджест, получили %d", len(queue.jobs))
	}
	body := queue.jobs[0].Body
	if strings.Index(body, "«Культура»") > strings.Index(body, "«Спорт»") {
		t.Fatalf("рубрики должны идти в порядке подписок пользователя: %q", body)
	}
	if strings.Index(body, "Свежий матч") > strings.Index(body, "Старый матч") {
		t.Fatalf("внутри рубрики статьи идут от новых к старым: %q", body)
	}
}

func TestRunWeeklyDigestFailureKeepsWatermark(t *testing.T) {
	slot := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	store := newStubStore()
	store.categories[1] = domain.Category{ID: 1, Name: "Спорт"}
	store.readers = []domain.ProfileSubscriptions{
		{Profile: domain.Profile{ID: 1, Email: "a@example.com"}, CategoryIDs: []int64{1}},
	}
	store.published = []domain.Article{
		{ID: 1, Title: "Матч", CategoryID: 1, PublishedAt: slot.Add(-time.Hour)},
	}
	queue := &memQueue{fail: true}
	d := newTestDispatcher(store, queue)

	if err := d.RunWeeklyDigest(context.Background(), slot); err == nil {
		t.Fatalf("ожидали ошибку при сбое очереди")
	}
	if len(store.advanced) != 0 {
		t.Fatalf("при сбое прогона водяной знак не сдвигается")
	}
	if len(store.released) != 1 || !store.released[0].Equal(slot) {
		t.Fatalf("неудачный прогон должен вернуть слот: %v", store.released)
	}
}

func TestRunWeeklyDigestRetriesAfterFailedRun(t *testing.T) {
	slot := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	store := newStubStore()
	store.categories[1] = domain.Category{ID: 1, Name: "Спорт"}
	store.readers = []domain.ProfileSubscriptions{
		{Profile: domain.Profile{ID: 1, Email: "a@example.com", DisplayName: "Анна"}, CategoryIDs: []int64{1}},
	}
	store.published = []domain.Article{
		{ID: 1, Title: "Матч", CategoryID: 1, PublishedAt: slot.Add(-time.Hour)},
	}
	queue := &memQueue{fail: true}
	d := newTestDispatcher(store, queue)

	if err := d.RunWeeklyDigest(context.Background(), slot); err == nil {
		t.Fatalf("ожидали ошибку при сбое очереди")
	}

	// Очередь восстановилась: повторный запуск того же слота добирает дайджест.
	queue.fail = false
	if err := d.RunWeeklyDigest(context.Background(), slot); err != nil {
		t.Fatalf("не ожидали ошибку после восстановления очереди: %v", err)
	}
	if len(queue.jobs) != 1 {
		t.Fatalf("дайджест слота не должен теряться после сбоя, получили %d задач", len(queue.jobs))
	}
	if len(store.advanced) != 1 || !store.advanced[0].Equal(slot) {
		t.Fatalf("водяной знак сдвигается после успешного повтора: %v", store.advanced)
	}
}
