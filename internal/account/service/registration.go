package service

import (
	"context"

	"github.com/google/uuid"

	"afriquize-delights/backend/internal/account/domain"
	"afriquize-delights/backend/internal/telemetry"
)

const duplicateMessage = "Email or Username already exists"

// Registration is the summary returned for a new pending registration.
type Registration struct {
	ID       string
	Email    string
	Username string
}

// Availability reports whether an email or username is already taken.
// Field is "email", "username" or "both" when Exists is true.
type Availability struct {
	Exists bool
	Field  string
}

// Register stages a registration until the email is verified. No account is created and
// no email is sent; the caller requests verification separately.
func (s *Service) Register(ctx context.Context, email, username, password string) (res *Registration, err error) {
	ctx, end := s.start(ctx, "register")
	defer func() { end(err) }()

	email = domain.NormalizeEmail(email)
	username = domain.NormalizeUsername(username)
	if email == "" || username == "" || password == "" {
		return nil, validationError("Email, username, and password are required")
	}
	if !validEmail(email) {
		return nil, validationError("Invalid email format.")
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	conflict, err := s.conflicts(ctx, email, username)
	if err != nil {
		s.log.Error(ctx, "register: conflict lookup failed", "email", email, "error", err)
		return nil, internalError("Internal server error", err)
	}
	if conflict.Exists {
		return nil, conflictError(duplicateMessage)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.log.Error(ctx, "register: hash password failed", "email", email, "error", err)
		return nil, internalError("Internal server error", err)
	}
	p := &domain.PendingRegistration{
		ID:           uuid.New().String(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    s.nowUTC(),
	}
	if err := p.Validate(); err != nil {
		return nil, internalError("Internal server error", err)
	}
	if err := s.store.Repos().Pending.Create(ctx, p); err != nil {
		if isDuplicate(err) {
			return nil, conflictError(duplicateMessage)
		}
		s.log.Error(ctx, "register: create pending registration failed", "email", email, "error", err)
		return nil, internalError("Internal server error", err)
	}

	s.log.Info(ctx, "register: pending registration created", "email", email)
	ev := telemetry.NewEvent(telemetry.EventRegistered, email, p.CreatedAt)
	ev.AccountID = p.ID
	s.emit(ev)
	return &Registration{ID: p.ID, Email: p.Email, Username: p.Username}, nil
}

// CheckAvailability reports whether email or username is taken by an account or a pending
// registration. Either argument may be empty, not both. It never writes.
func (s *Service) CheckAvailability(ctx context.Context, email, username string) (res *Availability, err error) {
	ctx, end := s.start(ctx, "check_availability")
	defer func() { end(err) }()

	email = domain.NormalizeEmail(email)
	username = domain.NormalizeUsername(username)
	if email == "" && username == "" {
		return nil, validationError("Email and username are required")
	}
	a, err := s.conflicts(ctx, email, username)
	if err != nil {
		s.log.Error(ctx, "check availability: lookup failed", "email", email, "error", err)
		return nil, internalError("Internal server error", err)
	}
	return &a, nil
}

func (s *Service) conflicts(ctx context.Context, email, username string) (Availability, error) {
	repos := s.store.Repos()
	pc, err := repos.Pending.Conflicts(ctx, email, username)
	if err != nil {
		return Availability{}, err
	}
	ac, err := repos.Accounts.Conflicts(ctx, email, username)
	if err != nil {
		return Availability{}, err
	}
	c := pc.Merge(ac)
	switch {
	case c.Email && c.Username:
		return Availability{Exists: true, Field: "both"}, nil
	case c.Email:
		return Availability{Exists: true, Field: "email"}, nil
	case c.Username:
		return Availability{Exists: true, Field: "username"}, nil
	}
	return Availability{}, nil
}
