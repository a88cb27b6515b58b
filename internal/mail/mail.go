// Package mail sends transactional email.
package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultSender is the From address of every seshat email.
const DefaultSender = "noreply@getseshat.app"

// Message is a plain-text email.
type Message struct {
	From    string
	To      []string
	Subject string
	Text    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// PasswordReset builds the reset instructions for a user.
func PasswordReset(to, username, link string) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", username)
	b.WriteString("To reset your password click on the following link:\n\n")
	b.WriteString(link + "\n\n")
	b.WriteString("If you have not requested a password reset simply ignore this message.\n\n")
	b.WriteString("Sincerely,\n\nThe Seshat Team\n")
	return Message{
		From:    DefaultSender,
		To:      []string{to},
		Subject: "[Seshat] Reset Your Password",
		Text:    b.String(),
	}
}

// SMTPConfig holds SMTP relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// SMTP sends mail through an SMTP relay.
type SMTP struct {
	addr string
	auth smtp.Auth
}

// NewSMTP creates an SMTP mailer. Credentials are optional.
func NewSMTP(cfg SMTPConfig) *SMTP {
	port := cfg.Port
	if port == 0 {
		port = 25
	}
	s := &SMTP{addr: net.JoinHostPort(cfg.Host, strconv.Itoa(port))}
	if cfg.Username != "" {
		s.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return s
}

// Send implements Mailer.
func (s *SMTP) Send(ctx context.Context, m Message) error {
	if len(m.To) == 0 {
		return errors.New("mail: no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := smtp.SendMail(s.addr, s.auth, m.From, m.To, m.Bytes(time.Now())); err != nil {
		return fmt.Errorf("send mail to %s: %w", strings.Join(m.To, ","), err)
	}
	return nil
}

// Bytes renders m as an RFC 5322 message.
func (m Message) Bytes(date time.Time) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", m.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(m.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", m.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", date.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(m.Text, "\n", "\r\n"))
	return b.Bytes()
}

// Log writes messages to the logger instead of sending them.
// Used when no SMTP host is configured.
type Log struct {
	logger *zap.Logger
}

// NewLog creates a log-only mailer.
func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

// Send implements Mailer.
func (l *Log) Send(_ context.Context, m Message) error {
	l.logger.Info("mail not sent, no smtp configured",
		zap.String("from", m.From),
		zap.Strings("to", m.To),
		zap.String("subject", m.Subject),
		zap.String("body", m.Text),
	)
	return nil
}
