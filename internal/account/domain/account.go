// Package domain holds the account lifecycle entities: pending registrations, accounts and
// the one-time verification and reset records.
package domain

import (
	"errors"
	"strings"
	"time"
)

// Role is the privilege level of an account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Account is a verified (or legacy) user record that can log in.
// PasswordHash may be empty for legacy rows; such accounts cannot log in.
type Account struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	Verified     bool
	Role         Role
	CreatedAt    time.Time
}

// Validate validates the account for persistence. Returns an error describing the first failure.
func (a *Account) Validate() error {
	if a.ID == "" {
		return errors.New("id is required")
	}
	if a.Email == "" {
		return errors.New("email is required")
	}
	if a.Username == "" {
		return errors.New("username is required")
	}
	if a.Role == "" {
		a.Role = RoleUser
	}
	if a.Role != RoleUser && a.Role != RoleAdmin {
		return errors.New("role must be user or admin")
	}
	return nil
}

// PendingRegistration is a registration awaiting email verification.
// Its ID becomes the Account ID when the email is verified.
type PendingRegistration struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Validate validates the pending registration for persistence.
func (p *PendingRegistration) Validate() error {
	if p.ID == "" {
		return errors.New("id is required")
	}
	if p.Email == "" {
		return errors.New("email is required")
	}
	if p.Username == "" {
		return errors.New("username is required")
	}
	if p.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	return nil
}

// VerificationRecord holds the outstanding email verification secrets for one email.
// Only the token fingerprint is stored; the code is stored as issued.
type VerificationRecord struct {
	Email            string
	TokenFingerprint string
	Code             string
	ExpiresAt        time.Time
}

// Expired reports whether the record is no longer usable at now.
func (v *VerificationRecord) Expired(now time.Time) bool {
	return !now.Before(v.ExpiresAt)
}

// PasswordResetRecord holds the outstanding password reset token fingerprint for one email.
type PasswordResetRecord struct {
	Email            string
	TokenFingerprint string
	ExpiresAt        time.Time
}

// Expired reports whether the record is no longer usable at now.
func (r *PasswordResetRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// NormalizeEmail trims and lower-cases an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// NormalizeUsername trims surrounding whitespace; usernames keep their case.
func NormalizeUsername(username string) string {
	return strings.TrimSpace(username)
}
