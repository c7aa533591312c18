// Package repository persists the account lifecycle tables. Lookups return (nil, nil)
// when the row does not exist; errors are reserved for storage failures.
package repository

import (
	"context"
	"errors"
	"time"

	"afriquize-delights/backend/internal/account/domain"
)

// ErrDuplicate is returned when an insert collides with an existing email or username.
var ErrDuplicate = errors.New("duplicate email or username")

// Conflict reports which identifiers are already taken.
type Conflict struct {
	Email    bool
	Username bool
}

// Any reports whether either identifier is taken.
func (c Conflict) Any() bool { return c.Email || c.Username }

// Merge ORs two conflicts together.
func (c Conflict) Merge(o Conflict) Conflict {
	return Conflict{Email: c.Email || o.Email, Username: c.Username || o.Username}
}

// PendingRepository stores registrations awaiting verification, keyed by email.
type PendingRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.PendingRegistration, error)
	Conflicts(ctx context.Context, email, username string) (Conflict, error)
	Create(ctx context.Context, p *domain.PendingRegistration) error
	DeleteByEmail(ctx context.Context, email string) error
	// DeleteCreatedBefore removes registrations created strictly before cutoff and returns how many.
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// AccountRepository stores accounts, keyed by email.
type AccountRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	Conflicts(ctx context.Context, email, username string) (Conflict, error)
	Create(ctx context.Context, a *domain.Account) error
	// Promote inserts a as a verified account. If an account with the same email exists,
	// it is marked verified instead and returned unchanged otherwise.
	Promote(ctx context.Context, a *domain.Account) (*domain.Account, error)
	// MarkVerified sets verified on the account. When the stored password hash is empty and
	// fallbackHash is not, the fallback is stored.
	MarkVerified(ctx context.Context, email, fallbackHash string) error
	// UpdatePasswordHash replaces the password hash. Returns false if no account has email.
	UpdatePasswordHash(ctx context.Context, email, hash string) (bool, error)
}

// VerificationRepository stores at most one verification record per email.
type VerificationRepository interface {
	// Upsert inserts the record or replaces the existing one for the same email.
	Upsert(ctx context.Context, v *domain.VerificationRecord) error
	GetByEmail(ctx context.Context, email string) (*domain.VerificationRecord, error)
	DeleteByEmail(ctx context.Context, email string) error
}

// PasswordResetRepository stores at most one reset record per email.
type PasswordResetRepository interface {
	// Upsert inserts the record or replaces the existing one for the same email.
	Upsert(ctx context.Context, r *domain.PasswordResetRecord) error
	// GetByFingerprint returns the record whose token fingerprint matches. Inside a
	// transaction the row stays locked until commit.
	GetByFingerprint(ctx context.Context, fingerprint string) (*domain.PasswordResetRecord, error)
	DeleteByEmail(ctx context.Context, email string) error
}

// EmailLocker serializes transactions that touch the same email.
type EmailLocker interface {
	// LockEmail blocks until no other transaction holds the lock for email. The lock is
	// released when the surrounding transaction ends. Outside a transaction it is a no-op.
	LockEmail(ctx context.Context, email string) error
}

// Repos is the set of repositories bound to one handle (pool or transaction).
type Repos struct {
	Pending       PendingRepository
	Accounts      AccountRepository
	Verifications VerificationRepository
	Resets        PasswordResetRepository
	Locks         EmailLocker
}

// Store vends repositories and runs units of work atomically.
type Store interface {
	// Repos returns repositories that run each call on its own.
	Repos() Repos
	// WithTx runs fn with repositories bound to one transaction. fn's changes are committed
	// when it returns nil and discarded otherwise.
	WithTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
	Ping(ctx context.Context) error
}
