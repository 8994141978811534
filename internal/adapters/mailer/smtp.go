package mailer

import (
	"fmt"
	"mime"
	"net/smtp"
	"strings"
	"time"

	"newsportal/internal/domain"
	"newsportal/internal/infra/metrics"
)

// SMTPMailer отправляет письма через внешний SMTP-сервер.
// Ошибка отправки не ретраится здесь: повтор — ответственность очереди.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

var _ domain.Mailer = (*SMTPMailer)(nil)

// NewSMTP создаёт почтовый транспорт.
func NewSMTP(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{host: host, port: port, username: username, password: password, from: from}
}

// Send отправляет письмо одному получателю.
func (m *SMTPMailer) Send(to, subject, body string) error {
	msg := buildMessage(m.from, to, subject, body)
	addr := fmt.Sprintf("%s:%d", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	start := time.Now()
	err := smtp.SendMail(addr, auth, m.from, []string{to}, msg)
	metrics.ObserveNetworkRequest("smtp", "send", m.host, start, err)
	if err != nil {
		return fmt.Errorf("отправка письма: %w", err)
	}
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
