// Package notify delivers reminder e-mails.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/smtp"
	"strconv"

	"github.com/jordan-wright/email"

	applog "tagihan/internal/log"
)

// Message is one outgoing e-mail.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// SMTPConfig holds the SMTP relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender sends mail through an SMTP relay with PLAIN auth.
type SMTPSender struct {
	cfg  SMTPConfig
	send func(e *email.Email, addr string, auth smtp.Auth) error
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{
		cfg: cfg,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	if m.To == "" {
		return errors.New("send email: missing recipient")
	}
	e := s.build(m)

	addr := s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if err := s.send(e, addr, auth); err != nil {
		slog.ErrorContext(ctx, "Failed to send email", applog.FieldComponent, applog.ComponentNotify, "to", m.To, applog.FieldError, err)
		return fmt.Errorf("send email to %s: %w", m.To, err)
	}
	slog.InfoContext(ctx, "Email sent", applog.FieldComponent, applog.ComponentNotify, "to", m.To, "subject", m.Subject)
	return nil
}

func (s *SMTPSender) build(m Message) *email.Email {
	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = []string{m.To}
	e.Subject = m.Subject
	if m.TextBody != "" {
		e.Text = []byte(m.TextBody)
	}
	if m.HTMLBody != "" {
		e.HTML = []byte(m.HTMLBody)
	}
	return e
}

// LogSender writes messages to the log instead of delivering them. It is
// used when no SMTP relay is configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, m Message) error {
	slog.InfoContext(ctx, "Email delivery disabled, message logged",
		applog.FieldComponent, applog.ComponentNotify,
		"to", m.To,
		"subject", m.Subject,
		"body", m.TextBody)
	return nil
}
