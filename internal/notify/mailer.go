// Package notify delivers account lifecycle email: verification links and codes,
// password reset links and admin messages. Delivery goes over SMTP, or into an
// in-memory outbox in development.
package notify

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by a Mailer that has no transport configured.
var ErrNotConfigured = errors.New("notify: mail transport not configured")

// Message is one outgoing email.
type Message struct {
	To      string
	Subject string
	HTML    string
	// Text is the plain-text alternative; optional.
	Text string
}

// Mailer delivers a message or reports why it could not.
type Mailer interface {
	Deliver(ctx context.Context, msg Message) error
}

// MailerFunc adapts a function to Mailer.
type MailerFunc func(ctx context.Context, msg Message) error

func (f MailerFunc) Deliver(ctx context.Context, msg Message) error { return f(ctx, msg) }
