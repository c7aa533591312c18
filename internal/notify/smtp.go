package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

const defaultTimeout = 15 * time.Second

// SMTPConfig configures SMTPMailer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// From is the sender address; FromName is shown as the display name.
	From     string
	FromName string
}

// SMTPMailer sends mail through an SMTP relay (e.g. Gmail with an app password).
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer returns a mailer for cfg. Port 465 uses implicit TLS; other ports require STARTTLS.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPMailer{cfg: cfg}
}

// Deliver sends msg. Does not log the body, which carries one-time secrets.
func (m *SMTPMailer) Deliver(ctx context.Context, msg Message) error {
	if m.cfg.Host == "" || m.cfg.From == "" {
		return ErrNotConfigured
	}
	em, err := m.build(msg)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTimeout(defaultTimeout),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	if m.cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("notify: smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, em); err != nil {
		return fmt.Errorf("notify: send: %w", err)
	}
	return nil
}

func (m *SMTPMailer) build(msg Message) (*mail.Msg, error) {
	em := mail.NewMsg()
	if m.cfg.FromName != "" {
		if err := em.FromFormat(m.cfg.FromName, m.cfg.From); err != nil {
			return nil, fmt.Errorf("notify: from: %w", err)
		}
	} else if err := em.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("notify: from: %w", err)
	}
	if err := em.To(msg.To); err != nil {
		return nil, fmt.Errorf("notify: to: %w", err)
	}
	em.Subject(msg.Subject)
	em.SetBodyString(mail.TypeTextHTML, msg.HTML)
	if msg.Text != "" {
		em.AddAlternativeString(mail.TypeTextPlain, msg.Text)
	}
	return em, nil
}
