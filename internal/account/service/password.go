package service

import (
	"context"

	"afriquize-delights/backend/internal/account/domain"
	"afriquize-delights/backend/internal/account/repository"
	"afriquize-delights/backend/internal/security"
	"afriquize-delights/backend/internal/telemetry"
)

// RequestPasswordReset stores a reset token fingerprint for an existing account, replacing
// any earlier one, and mails the reset link.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (err error) {
	ctx, end := s.start(ctx, "request_password_reset")
	defer func() { end(err) }()

	email = domain.NormalizeEmail(email)
	if email == "" {
		return validationError("Email is required.")
	}
	if !validEmail(email) {
		return validationError("Invalid email format.")
	}

	repos := s.store.Repos()
	acc, err := repos.Accounts.GetByEmail(ctx, email)
	if err != nil {
		s.log.Error(ctx, "request password reset: account lookup failed", "email", email, "error", err)
		return internalError("Internal server error.", err)
	}
	if acc == nil {
		return notFoundError("User not found.")
	}

	token, err := security.NewOpaqueToken()
	if err != nil {
		return internalError("Internal server error.", err)
	}
	now := s.nowUTC()
	rec := &domain.PasswordResetRecord{
		Email:            email,
		TokenFingerprint: security.Fingerprint(token),
		ExpiresAt:        now.Add(s.opts.ResetTTL),
	}
	if err := repos.Resets.Upsert(ctx, rec); err != nil {
		s.log.Error(ctx, "request password reset: store record failed", "email", email, "error", err)
		return internalError("Internal server error.", err)
	}

	msg, err := s.composer.PasswordReset(email, token, s.opts.ResetTTL)
	if err != nil {
		return internalError("Internal server error.", err)
	}
	if err := s.deliver(ctx, msg); err != nil {
		s.log.Error(ctx, "request password reset: delivery failed", "email", email, "error", err)
		return deliveryError("Error sending password reset email.", err)
	}

	ev := telemetry.NewEvent(telemetry.EventPasswordResetRequested, email, now)
	ev.AccountID = acc.ID
	s.emit(ev)
	return nil
}

// ResetPassword replaces the password of the account the token was issued for and consumes
// the token. The lookup, update and delete share one transaction with the reset row locked,
// so a token authenticates at most one reset.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) (err error) {
	ctx, end := s.start(ctx, "reset_password")
	defer func() { end(err) }()

	if token == "" || newPassword == "" {
		return validationError("Missing token or password.")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		s.log.Error(ctx, "reset password: hash failed", "error", err)
		return internalError("Server error.", err)
	}

	now := s.nowUTC()
	var email string
	err = s.store.WithTx(ctx, func(ctx context.Context, r repository.Repos) error {
		rec, err := r.Resets.GetByFingerprint(ctx, security.Fingerprint(token))
		if err != nil {
			return err
		}
		if rec == nil || rec.Expired(now) {
			return invalidOrExpiredError("Invalid or expired token.")
		}
		updated, err := r.Accounts.UpdatePasswordHash(ctx, rec.Email, hash)
		if err != nil {
			return err
		}
		if !updated {
			return invalidOrExpiredError("Invalid or expired token.")
		}
		email = rec.Email
		return r.Resets.DeleteByEmail(ctx, rec.Email)
	})
	if err != nil {
		if KindOf(err) == KindInternal {
			s.log.Error(ctx, "reset password: transaction failed", "error", err)
		}
		return asLifecycle(err, "Server error.")
	}

	s.log.Info(ctx, "reset password: password updated", "email", email)
	s.emit(telemetry.NewEvent(telemetry.EventPasswordReset, email, now))
	return nil
}
