package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestSMTPMailer_NotConfigured(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{})
	if err := m.Deliver(context.Background(), Message{To: "ada@example.com"}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("want ErrNotConfigured, got %v", err)
	}
	if m.cfg.Port != 587 {
		t.Errorf("default port = %d, want 587", m.cfg.Port)
	}
}

func TestSMTPMailer_Build(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", From: "shop@example.com", FromName: "Afriquize Delights"})

	em, err := m.build(Message{To: "ada@example.com", Subject: "Hi", HTML: "<p>hi</p>", Text: "hi"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	to := em.GetToString()
	if len(to) != 1 || !strings.Contains(to[0], "ada@example.com") {
		t.Errorf("To = %v", to)
	}
	from := em.GetFromString()
	if len(from) != 1 || !strings.Contains(from[0], "Afriquize Delights") || !strings.Contains(from[0], "shop@example.com") {
		t.Errorf("From = %v", from)
	}

	if _, err := m.build(Message{To: "not an address"}); err == nil {
		t.Error("invalid recipient accepted")
	}
}
