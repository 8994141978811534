package notify

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Message — составленное письмо.
type Message struct {
	Subject string
	Body    string
}

// summaryLimit — фиксированная длина краткого содержания статьи в рунах.
const summaryLimit = 200

// WelcomeContext — данные приветственного письма.
type WelcomeContext struct {
	DisplayName   string
	ActivationURL string
	Variant       int
}

// ArticleContext — данные уведомления о новой статье.
type ArticleContext struct {
	Title      string
	AuthorName string
	Category   string
	Content    string
	Permalink  string
}

// LimitContext — данные предупреждения о лимите публикаций.
type LimitContext struct {
	DisplayName string
	GroupName   string
	Used        int
	Limit       int
	ResetAt     time.Time
}

// DigestGroup — рубрика дайджеста с позициями.
// Позиции должны быть отсортированы по дате публикации по убыванию.
type DigestGroup struct {
	Category string
	Items    []DigestEntry
}

// DigestEntry — позиция еженедельного дайджеста.
type DigestEntry struct {
	Title   string
	Summary string
	Link    string
}

// DigestContext — данные еженедельного дайджеста.
type DigestContext struct {
	DisplayName string
	From        time.Time
	To          time.Time
	Groups      []DigestGroup
}

// ComposeWelcome строит приветственное письмо с одноразовой ссылкой активации.
func ComposeWelcome(ctx WelcomeContext) Message {
	var b strings.Builder
	switch ctx.Variant {
	case 2:
		b.WriteString(fmt.Sprintf("Здравствуйте, %s!\n\n", ctx.DisplayName))
		b.WriteString("Рады видеть вас среди читателей новостного портала.\n")
	default:
		b.WriteString(fmt.Sprintf("Привет, %s!\n\n", ctx.DisplayName))
		b.WriteString("Добро пожаловать на новостной портал.\n")
	}
	b.WriteString("Для активации учётной записи перейдите по ссылке:\n")
	b.WriteString(ctx.ActivationURL + "\n")
	return Message{
		Subject: "Добро пожаловать на новостной портал",
		Body:    b.String(),
	}
}

// ComposeArticleNotification строит уведомление подписчику о новой статье.
func ComposeArticleNotification(ctx ArticleContext) Message {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("В рубрике «%s» вышла новая публикация.\n\n", ctx.Category))
	b.WriteString(fmt.Sprintf("%s\n", ctx.Title))
	b.WriteString(fmt.Sprintf("Автор: %s\n\n", ctx.AuthorName))
	b.WriteString(Truncate(ctx.Content, summaryLimit) + "\n\n")
	b.WriteString("Читать полностью: " + ctx.Permalink + "\n")
	return Message{
		Subject: fmt.Sprintf("Новая статья: %s", ctx.Title),
		Body:    b.String(),
	}
}

// ComposeLimitWarning строит предупреждение о превышении суточного лимита.
func ComposeLimitWarning(ctx LimitContext) Message {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Здравствуйте, %s!\n\n", ctx.DisplayName))
	b.WriteString(fmt.Sprintf("Вы не можете публиковать более %d постов в сутки (группа %s).\n", ctx.Limit, ctx.GroupName))
	b.WriteString(fmt.Sprintf("Сегодня опубликовано: %d.\n", ctx.Used))
	b.WriteString(fmt.Sprintf("Лимит обнулится %s.\n", ctx.ResetAt.Format("02.01.2006 15:04")))
	return Message{
		Subject: "Превышен лимит публикаций",
		Body:    b.String(),
	}
}

// ComposeSubscription строит подтверждение подписки на рубрику.
func ComposeSubscription(displayName, category string) Message {
	return Message{
		Subject: fmt.Sprintf("Подписка на рубрику «%s»", category),
		Body: fmt.Sprintf("Здравствуйте, %s!\n\nВы подписались на рубрику «%s» и будете получать уведомления о новых публикациях.\n",
			displayName, category),
	}
}

// ComposeWeeklyDigest строит еженедельный дайджест по рубрикам.
// Порядок групп и позиций берётся из контекста как есть.
func ComposeWeeklyDigest(ctx DigestContext) Message {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Здравствуйте, %s!\n\n", ctx.DisplayName))
	b.WriteString(fmt.Sprintf("Новые публикации за неделю (%s — %s):\n",
		ctx.From.Format("02.01.2006"), ctx.To.Format("02.01.2006")))
	for _, group := range ctx.Groups {
		if len(group.Items) == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("\n«%s»\n", group.Category))
		for _, item := range group.Items {
			b.WriteString(fmt.Sprintf("- %s\n", item.Title))
			if item.Summary != "" {
				b.WriteString("  " + item.Summary + "\n")
			}
			b.WriteString("  " + item.Link + "\n")
		}
	}
	return Message{
		Subject: "Еженедельный дайджест новостей",
		Body:    b.String(),
	}
}

// Truncate обрезает текст до limit рун с многоточием.
func Truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "…"
}

// ArticleURL строит постоянную ссылку на статью.
func ArticleURL(baseURL string, articleID int64) string {
	return fmt.Sprintf("%s/news/%d", strings.TrimRight(baseURL, "/"), articleID)
}

// ActivationURL строит одноразовую ссылку активации учётной записи.
func ActivationURL(baseURL, token string) string {
	return fmt.Sprintf("%s/activate/%s", strings.TrimRight(baseURL, "/"), token)
}
