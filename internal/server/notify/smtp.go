package notify

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"
)

// SMTPConfig holds the mail relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPNotifier sends emails through an SMTP relay.
type SMTPNotifier struct {
	from      string
	dialer    sender
	templates Templates
}

func NewSMTPNotifier(cfg SMTPConfig, templates Templates) *SMTPNotifier {
	return &SMTPNotifier{
		from:      cfg.From,
		dialer:    gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		templates: templates,
	}
}

func (n *SMTPNotifier) SendVerification(ctx context.Context, to, name, token string) error {
	return n.send(ctx, n.templates.Verification(to, name, token))
}

func (n *SMTPNotifier) SendPasswordReset(ctx context.Context, to, name, token string, expires time.Time) error {
	return n.send(ctx, n.templates.PasswordReset(to, name, token, expires))
}

func (n *SMTPNotifier) SendTemporaryPassword(ctx context.Context, to, name, password string) error {
	return n.send(ctx, n.templates.TemporaryPassword(to, name, password))
}

func (n *SMTPNotifier) send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	if err := n.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
