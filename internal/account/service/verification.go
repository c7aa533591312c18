package service

import (
	"context"
	"errors"
	"strings"

	"afriquize-delights/backend/internal/account/domain"
	"afriquize-delights/backend/internal/account/repository"
	"afriquize-delights/backend/internal/security"
	"afriquize-delights/backend/internal/telemetry"
)

// LoginRedirect is where clients go after a successful verification.
const LoginRedirect = "/login"

// VerifyStatus is the outcome of a successful VerifyEmail.
type VerifyStatus string

const (
	// StatusVerified means the pending registration was promoted to an account.
	StatusVerified VerifyStatus = "verified"
	// StatusAlreadyVerified means the account already existed; it is verified and left in place.
	StatusAlreadyVerified VerifyStatus = "already_verified"
)

// VerifyInput carries the email and exactly one of Token or Code.
type VerifyInput struct {
	Email string
	Token string
	Code  string
}

// VerifyResult is returned by VerifyEmail on success.
type VerifyResult struct {
	Status    VerifyStatus
	Message   string
	Redirect  string
	AccountID string
}

// IssueVerification stores a fresh token fingerprint and 6-digit code for email, replacing
// any outstanding ones, then mails both. If delivery fails the record is kept and a
// delivery error is returned.
func (s *Service) IssueVerification(ctx context.Context, email string) (err error) {
	ctx, end := s.start(ctx, "issue_verification")
	defer func() { end(err) }()

	email = domain.NormalizeEmail(email)
	if email == "" {
		return validationError("Email is required.")
	}
	if !validEmail(email) {
		return validationError("Invalid email format.")
	}

	token, err := security.NewOpaqueToken()
	if err != nil {
		return internalError("Error sending verification email.", err)
	}
	code, err := security.NewNumericCode()
	if err != nil {
		return internalError("Error sending verification email.", err)
	}
	now := s.nowUTC()
	rec := &domain.VerificationRecord{
		Email:            email,
		TokenFingerprint: security.Fingerprint(token),
		Code:             code,
		ExpiresAt:        now.Add(s.opts.VerificationTTL),
	}
	if err := s.store.Repos().Verifications.Upsert(ctx, rec); err != nil {
		s.log.Error(ctx, "issue verification: store record failed", "email", email, "error", err)
		return internalError("Error sending verification email.", err)
	}

	msg, err := s.composer.Verification(email, token, code, s.opts.VerificationTTL)
	if err != nil {
		s.log.Error(ctx, "issue verification: compose failed", "email", email, "error", err)
		return internalError("Error sending verification email.", err)
	}
	if err := s.deliver(ctx, msg); err != nil {
		s.log.Error(ctx, "issue verification: delivery failed", "email", email, "error", err)
		return deliveryError("Error sending verification email.", err)
	}

	s.log.Info(ctx, "issue verification: sent", "email", email)
	s.emit(telemetry.NewEvent(telemetry.EventVerificationIssued, email, now))
	return nil
}

// VerifyEmail proves ownership of an email with a token or code and promotes the pending
// registration to a verified account. All reads and writes run in one transaction holding
// a per-email lock, so concurrent attempts for the same email run one after another and
// converge on a single account.
func (s *Service) VerifyEmail(ctx context.Context, in VerifyInput) (res *VerifyResult, err error) {
	ctx, end := s.start(ctx, "verify_email")
	defer func() { end(err) }()

	email := domain.NormalizeEmail(in.Email)
	in.Token = strings.TrimSpace(in.Token)
	in.Code = strings.TrimSpace(in.Code)
	if email == "" || (in.Token == "" && in.Code == "") {
		return nil, validationError("Missing verification details.")
	}
	if in.Token != "" && in.Code != "" {
		return nil, validationError("Provide either a token or a code, not both.")
	}

	now := s.nowUTC()
	err = s.store.WithTx(ctx, func(ctx context.Context, r repository.Repos) error {
		if err := r.Locks.LockEmail(ctx, email); err != nil {
			return err
		}
		rec, err := r.Verifications.GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if rec == nil {
			// A concurrent attempt may already have consumed the record; that attempt's
			// account stands in for this one. Answering already_verified without checking
			// the secret tells the caller the email has an account, which check-user
			// discloses anyway.
			acc, err := r.Accounts.GetByEmail(ctx, email)
			if err != nil {
				return err
			}
			if acc != nil && acc.Verified {
				res = alreadyVerified(acc)
				return nil
			}
			return invalidOrExpiredError("Invalid or expired token/code.")
		}
		if rec.Expired(now) || !matches(rec, in) {
			return invalidOrExpiredError("Invalid or expired token/code.")
		}

		pending, err := r.Pending.GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		acc, err := r.Accounts.GetByEmail(ctx, email)
		if err != nil {
			return err
		}

		if acc != nil {
			fallback := ""
			if pending != nil {
				fallback = pending.PasswordHash
			}
			if err := r.Accounts.MarkVerified(ctx, email, fallback); err != nil {
				return err
			}
			if err := cleanup(ctx, r, email); err != nil {
				return err
			}
			res = alreadyVerified(acc)
			return nil
		}

		if pending == nil {
			return notFoundError("Pending user not found or already verified.")
		}
		if pending.PasswordHash == "" {
			return internalError("Pending user has no password saved.", errors.New("pending registration without password hash"))
		}
		promoted, err := r.Accounts.Promote(ctx, &domain.Account{
			ID:           pending.ID,
			Email:        pending.Email,
			Username:     pending.Username,
			PasswordHash: pending.PasswordHash,
			Verified:     true,
			Role:         domain.RoleUser,
			CreatedAt:    now,
		})
		if err != nil {
			if isDuplicate(err) {
				return conflictError(duplicateMessage)
			}
			return err
		}
		if err := cleanup(ctx, r, email); err != nil {
			return err
		}
		res = &VerifyResult{
			Status:    StatusVerified,
			Message:   "Email verified successfully!",
			Redirect:  LoginRedirect,
			AccountID: promoted.ID,
		}
		return nil
	})
	if err != nil {
		if KindOf(err) == KindInternal {
			s.log.Error(ctx, "verify email: transaction failed", "email", email, "error", err)
		}
		return nil, asLifecycle(err, "Error verifying email.")
	}

	s.log.Info(ctx, "verify email: verified", "email", email, "status", string(res.Status))
	ev := telemetry.NewEvent(telemetry.EventVerified, email, now).With("status", string(res.Status)).With("method", method(in))
	ev.AccountID = res.AccountID
	s.emit(ev)
	return res, nil
}

func alreadyVerified(acc *domain.Account) *VerifyResult {
	return &VerifyResult{
		Status:    StatusAlreadyVerified,
		Message:   "Email already verified. You can log in now.",
		Redirect:  LoginRedirect,
		AccountID: acc.ID,
	}
}

func matches(rec *domain.VerificationRecord, in VerifyInput) bool {
	if in.Token != "" {
		return security.FingerprintMatches(in.Token, rec.TokenFingerprint)
	}
	return security.CodeEqual(in.Code, rec.Code)
}

func method(in VerifyInput) string {
	if in.Token != "" {
		return "token"
	}
	return "code"
}

func cleanup(ctx context.Context, r repository.Repos, email string) error {
	if err := r.Pending.DeleteByEmail(ctx, email); err != nil {
		return err
	}
	return r.Verifications.DeleteByEmail(ctx, email)
}
