package mailer

import (
	"github.com/rs/zerolog"

	"newsportal/internal/domain"
)

// ConsoleMailer пишет письма в лог вместо отправки. Для dev-окружения.
type ConsoleMailer struct {
	log zerolog.Logger
}

var _ domain.Mailer = (*ConsoleMailer)(nil)

// NewConsole создаёт консольный транспорт.
func NewConsole(log zerolog.Logger) *ConsoleMailer {
	return &ConsoleMailer{log: log}
}

// Send логирует письмо.
func (m *ConsoleMailer) Send(to, subject, body string) error {
	m.log.Info().Str("to", to).Str("subject", subject).Msg(body)
	return nil
}
