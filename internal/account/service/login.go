package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"afriquize-delights/backend/internal/account/domain"
	"afriquize-delights/backend/internal/security"
	"afriquize-delights/backend/internal/telemetry"
)

// LoginResult holds the session token issued by Login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	AccountID string
	Email     string
	Role      domain.Role
}

// Login checks the password for email and issues a session token. An unknown email is
// NotFound; a wrong password is Unauthorized.
func (s *Service) Login(ctx context.Context, email, password string) (res *LoginResult, err error) {
	ctx, end := s.start(ctx, "login")
	defer func() { end(err) }()

	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, validationError("Please provide email and password")
	}
	if strings.TrimSpace(password) == "" {
		return nil, validationError("Invalid password")
	}

	acc, err := s.store.Repos().Accounts.GetByEmail(ctx, email)
	if err != nil {
		s.log.Error(ctx, "login: account lookup failed", "email", email, "error", err)
		return nil, internalError("Internal server error", err)
	}
	now := s.nowUTC()
	if acc == nil {
		s.emit(telemetry.NewEvent(telemetry.EventLoginFailed, email, now).With("reason", "not_found"))
		return nil, notFoundError("Email not found")
	}
	if err := s.hasher.Compare(acc.PasswordHash, password); err != nil {
		if !errors.Is(err, security.ErrPasswordMismatch) {
			s.log.Warn(ctx, "login: stored hash unusable", "email", email, "error", err)
		}
		ev := telemetry.NewEvent(telemetry.EventLoginFailed, email, now).With("reason", "bad_password")
		ev.AccountID = acc.ID
		s.emit(ev)
		return nil, unauthorizedError("Invalid password")
	}

	token, expiresAt, err := s.sessions.Issue(acc.ID, acc.Email, string(acc.Role))
	if err != nil {
		s.log.Error(ctx, "login: issue session token failed", "email", email, "error", err)
		return nil, internalError("Internal server error", err)
	}

	ev := telemetry.NewEvent(telemetry.EventLogin, email, now).With("role", string(acc.Role))
	ev.AccountID = acc.ID
	s.emit(ev)
	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		AccountID: acc.ID,
		Email:     acc.Email,
		Role:      acc.Role,
	}, nil
}
