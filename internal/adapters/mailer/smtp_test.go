package mailer

import (
	"strings"
	"testing"
)

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("news@newsportal.local", "user@example.com", "Тема письма", "Тело\nписьма"))

	headers, body, found := strings.Cut(msg, "\r\n\r\n")
	if !found {
		t.Fatalf("ожидали пустую строку между заголовками и телом")
	}
	if !strings.Contains(headers, "From: news@newsportal.local") {
		t.Fatalf("нет заголовка From: %q", headers)
	}
	if !strings.Contains(headers, "To: user@example.com") {
		t.Fatalf("нет заголовка To: %q", headers)
	}
	if !strings.Contains(headers, "charset=utf-8") {
		t.Fatalf("ожидали кодировку utf-8 в заголовках")
	}
	if strings.Contains(headers, "Subject: Тема письма") {
		t.Fatalf("не-ASCII тема должна кодироваться")
	}
	if !strings.HasPrefix(body, "Тело\n") {
		t.Fatalf("тело письма искажено: %q", body)
	}
}
