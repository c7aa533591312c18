// Package service is the account lifecycle: staged registration, email verification,
// login, password recovery and the sweep of stale pending registrations.
package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"afriquize-delights/backend/internal/account/repository"
	"afriquize-delights/backend/internal/logging"
	"afriquize-delights/backend/internal/notify"
	"afriquize-delights/backend/internal/security"
	"afriquize-delights/backend/internal/telemetry"
)

const (
	minPasswordLen  = 6
	deliveryTimeout = 15 * time.Second
	instrumentation = "afriquize-delights/backend/internal/account/service"
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// SessionIssuer signs session tokens for logged-in accounts.
type SessionIssuer interface {
	Issue(accountID, email, role string) (string, time.Time, error)
}

// Options are the lifetimes the service enforces. Zero values take the defaults.
type Options struct {
	// VerificationTTL is how long a verification token and code stay valid (default 10m).
	VerificationTTL time.Duration
	// ResetTTL is how long a password reset token stays valid (default 10m).
	ResetTTL time.Duration
	// PendingTTL is the age after which the sweep removes a pending registration (default 7 days).
	PendingTTL time.Duration
}

func (o Options) withDefaults() Options {
	if o.VerificationTTL <= 0 {
		o.VerificationTTL = 10 * time.Minute
	}
	if o.ResetTTL <= 0 {
		o.ResetTTL = 10 * time.Minute
	}
	if o.PendingTTL <= 0 {
		o.PendingTTL = 7 * 24 * time.Hour
	}
	return o
}

// Service implements the account lifecycle operations.
type Service struct {
	store    repository.Store
	hasher   PasswordHasher
	sessions SessionIssuer
	mailer   notify.Mailer
	composer *notify.Composer
	events   telemetry.EventEmitter
	log      logging.Logger
	opts     Options
	now      func() time.Time

	tracer trace.Tracer
	ops    metric.Int64Counter
}

// Option customizes a Service.
type Option func(*Service)

// WithEvents sets the sink for lifecycle events.
func WithEvents(e telemetry.EventEmitter) Option {
	return func(s *Service) {
		if e != nil {
			s.events = e
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock replaces time.Now. Used by tests to drive expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns a Service. store, hasher, sessions, mailer and composer are required.
func New(
	store repository.Store,
	hasher PasswordHasher,
	sessions SessionIssuer,
	mailer notify.Mailer,
	composer *notify.Composer,
	opts Options,
	options ...Option,
) *Service {
	s := &Service{
		store:    store,
		hasher:   hasher,
		sessions: sessions,
		mailer:   mailer,
		composer: composer,
		events:   telemetry.Nop{},
		log:      logging.Nop(),
		opts:     opts.withDefaults(),
		now:      time.Now,
		tracer:   otel.Tracer(instrumentation),
	}
	for _, o := range options {
		o(s)
	}
	ops, err := otel.Meter(instrumentation).Int64Counter(
		"account.operations",
		metric.WithDescription("Account lifecycle operations by outcome"),
	)
	if err != nil {
		s.log.Warn(context.Background(), "account: operations counter unavailable", "error", err)
	}
	s.ops = ops
	return s
}

// start opens a span for op. The returned func ends it, recording err's kind on the span
// and the operations counter.
func (s *Service) start(ctx context.Context, op string) (context.Context, func(err error)) {
	ctx, span := s.tracer.Start(ctx, "account."+op)
	return ctx, func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = KindOf(err).String()
			span.SetStatus(codes.Error, PublicMessage(err))
			if KindOf(err) == KindInternal || KindOf(err) == KindDelivery {
				span.RecordError(err)
			}
		}
		span.SetAttributes(attribute.String("account.outcome", outcome))
		span.End()
		if s.ops != nil {
			s.ops.Add(ctx, 1, metric.WithAttributes(
				attribute.String("op", op),
				attribute.String("outcome", outcome),
			))
		}
	}
}

func (s *Service) emit(ev *telemetry.Event) {
	telemetry.EmitAsync(s.events, s.log, ev)
}

// deliver sends msg with its own deadline so a slow mail server cannot hold the caller.
func (s *Service) deliver(ctx context.Context, msg notify.Message) error {
	ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()
	return s.mailer.Deliver(ctx, msg)
}

func (s *Service) nowUTC() time.Time {
	return s.now().UTC()
}

// validatePassword enforces the rule shared by registration and reset: not blank, at least
// six characters, and within bcrypt's 72-byte limit.
func validatePassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return validationError("Invalid password")
	}
	if utf8.RuneCountInString(password) < minPasswordLen {
		return validationError("Password must be at least 6 characters long")
	}
	if len(password) > security.MaxPasswordBytes {
		return validationError("Password must be at most 72 bytes long")
	}
	return nil
}

func validEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func isDuplicate(err error) bool {
	return errors.Is(err, repository.ErrDuplicate)
}
