package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"afriquize-delights/backend/internal/account/domain"
)

// SendAdminEmail mails a free-form message from the business to one address.
func (s *Service) SendAdminEmail(ctx context.Context, to, subject, body string) (err error) {
	ctx, end := s.start(ctx, "send_admin_email")
	defer func() { end(err) }()

	to = domain.NormalizeEmail(to)
	subject = strings.TrimSpace(subject)
	if to == "" || subject == "" || strings.TrimSpace(body) == "" {
		return validationError("Missing email, subject, or message.")
	}
	if !validEmail(to) {
		return validationError("Invalid email format.")
	}
	msg, err := s.composer.AdminMessage(to, subject, body)
	if err != nil {
		return internalError("Internal server error", err)
	}
	if err := s.deliver(ctx, msg); err != nil {
		s.log.Error(ctx, "admin email: delivery failed", "to", to, "error", err)
		return deliveryError("Error sending email.", err)
	}
	s.log.Info(ctx, "admin email: sent", "to", to)
	return nil
}

// Ping checks the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// EnsureAdmin creates a verified admin account unless one with email already exists.
// Reports whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, email, username, password string) (created bool, err error) {
	ctx, end := s.start(ctx, "ensure_admin")
	defer func() { end(err) }()

	email = domain.NormalizeEmail(email)
	username = domain.NormalizeUsername(username)
	if email == "" || username == "" || password == "" {
		return false, validationError("Email, username, and password are required")
	}
	if !validEmail(email) {
		return false, validationError("Invalid email format.")
	}
	if err := validatePassword(password); err != nil {
		return false, err
	}

	repos := s.store.Repos()
	existing, err := repos.Accounts.GetByEmail(ctx, email)
	if err != nil {
		return false, internalError("Internal server error", err)
	}
	if existing != nil {
		return false, nil
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, internalError("Internal server error", err)
	}
	err = repos.Accounts.Create(ctx, &domain.Account{
		ID:           uuid.New().String(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Verified:     true,
		Role:         domain.RoleAdmin,
		CreatedAt:    s.nowUTC(),
	})
	if err != nil {
		if isDuplicate(err) {
			return false, conflictError(duplicateMessage)
		}
		return false, internalError("Internal server error", err)
	}
	s.log.Info(ctx, "admin account created", "email", email)
	return true, nil
}
