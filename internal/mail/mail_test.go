package mail

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestPasswordReset(t *testing.T) {
	m := PasswordReset("ann@example.com", "ann", "http://localhost/reset_password/abc")

	if m.Subject != "[Seshat] Reset Your Password" {
		t.Errorf("subject = %q", m.Subject)
	}
	if m.From != DefaultSender {
		t.Errorf("from = %q", m.From)
	}
	if len(m.To) != 1 || m.To[0] != "ann@example.com" {
		t.Errorf("to = %v", m.To)
	}
	if !strings.Contains(m.Text, "http://localhost/reset_password/abc") || !strings.Contains(m.Text, "Dear ann") {
		t.Errorf("body missing link or greeting: %q", m.Text)
	}
}

func TestMessageBytes(t *testing.T) {
	m := Message{From: "a@x.io", To: []string{"b@x.io", "c@x.io"}, Subject: "hi", Text: "line1\nline2"}
	date := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	raw := string(m.Bytes(date))

	for _, want := range []string{
		"From: a@x.io\r\n",
		"To: b@x.io, c@x.io\r\n",
		"Subject: hi\r\n",
		"Date: Tue, 02 Jan 2024 03:04:05 +0000\r\n",
		"\r\n\r\nline1\r\nline2",
	} {
		if !strings.Contains(raw, want) {
			t.Errorf("message missing %q:\n%s", want, raw)
		}
	}
}

func TestSMTP_NoRecipients(t *testing.T) {
	s := NewSMTP(SMTPConfig{Host: "localhost"})
	if err := s.Send(context.Background(), Message{From: DefaultSender}); err == nil {
		t.Fatal("expected error without recipients")
	}
	if s.addr != "localhost:25" {
		t.Errorf("addr = %q", s.addr)
	}
	if s.auth != nil {
		t.Error("auth must be nil without credentials")
	}
}

func TestSMTP_CanceledContext(t *testing.T) {
	s := NewSMTP(SMTPConfig{Host: "localhost", Port: 2525, Username: "u", Password: "p"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Send(ctx, Message{From: DefaultSender, To: []string{"a@x.io"}}); err == nil {
		t.Fatal("expected context error")
	}
}

func TestLog_Send(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := NewLog(zap.New(core))

	if err := l.Send(context.Background(), PasswordReset("ann@example.com", "ann", "link")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if entries[0].ContextMap()["subject"] != "[Seshat] Reset Your Password" {
		t.Errorf("unexpected fields %v", entries[0].ContextMap())
	}
}
