package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"afriquize-delights/backend/internal/account/domain"
	"afriquize-delights/backend/internal/db"
)

const pgUniqueViolation = "23505"

// PostgresStore implements Store over database/sql with the pgx driver.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore returns a Store that uses the given pool for persistence.
func NewPostgresStore(conn *sql.DB) *PostgresStore {
	return &PostgresStore{db: conn}
}

func (s *PostgresStore) Repos() Repos {
	return pgRepos(s.db, false)
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error {
	return db.WithTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		return fn(ctx, pgRepos(tx, true))
	})
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func pgRepos(q db.DBTX, inTx bool) Repos {
	return Repos{
		Pending:       &PostgresPendingRepository{q: q},
		Accounts:      &PostgresAccountRepository{q: q},
		Verifications: &PostgresVerificationRepository{q: q},
		Resets:        &PostgresPasswordResetRepository{q: q, inTx: inTx},
		Locks:         &pgEmailLocker{q: q, inTx: inTx},
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// PostgresPendingRepository persists pending_registrations.
type PostgresPendingRepository struct {
	q db.DBTX
}

func (r *PostgresPendingRepository) GetByEmail(ctx context.Context, email string) (*domain.PendingRegistration, error) {
	var p domain.PendingRegistration
	err := r.q.QueryRowContext(ctx,
		`SELECT id, email, username, password_hash, created_at FROM pending_registrations WHERE email = $1`,
		email,
	).Scan(&p.ID, &p.Email, &p.Username, &p.PasswordHash, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PostgresPendingRepository) Conflicts(ctx context.Context, email, username string) (Conflict, error) {
	return queryConflict(ctx, r.q,
		`SELECT COALESCE(bool_or(email = $1), FALSE), COALESCE(bool_or(username = $2), FALSE)
		 FROM pending_registrations WHERE email = $1 OR username = $2`,
		email, username)
}

// Create inserts the registration. Returns ErrDuplicate if the email or username is already pending.
func (r *PostgresPendingRepository) Create(ctx context.Context, p *domain.PendingRegistration) error {
	if err := p.Validate(); err != nil {
		return err
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO pending_registrations (id, email, username, password_hash, created_at) VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.Email, p.Username, p.PasswordHash, p.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *PostgresPendingRepository) DeleteByEmail(ctx context.Context, email string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM pending_registrations WHERE email = $1`, email)
	return err
}

func (r *PostgresPendingRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM pending_registrations WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PostgresAccountRepository persists accounts.
type PostgresAccountRepository struct {
	q db.DBTX
}

const accountColumns = `id, email, username, COALESCE(password_hash, ''), verified, role, created_at`

func scanAccount(row *sql.Row) (*domain.Account, error) {
	var a domain.Account
	var role string
	if err := row.Scan(&a.ID, &a.Email, &a.Username, &a.PasswordHash, &a.Verified, &role, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Role = domain.Role(role)
	return &a, nil
}

func (r *PostgresAccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	a, err := scanAccount(r.q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func (r *PostgresAccountRepository) Conflicts(ctx context.Context, email, username string) (Conflict, error) {
	return queryConflict(ctx, r.q,
		`SELECT COALESCE(bool_or(email = $1), FALSE), COALESCE(bool_or(username = $2), FALSE)
		 FROM accounts WHERE email = $1 OR username = $2`,
		email, username)
}

// Create inserts the account as given. Returns ErrDuplicate on an email or username collision.
func (r *PostgresAccountRepository) Create(ctx context.Context, a *domain.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO accounts (id, email, username, password_hash, verified, role, created_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)`,
		a.ID, a.Email, a.Username, a.PasswordHash, a.Verified, string(a.Role), a.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// Promote inserts a verified account or marks the existing one for the email verified.
// Returns ErrDuplicate if the username belongs to a different account.
func (r *PostgresAccountRepository) Promote(ctx context.Context, a *domain.Account) (*domain.Account, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	out, err := scanAccount(r.q.QueryRowContext(ctx,
		`INSERT INTO accounts (id, email, username, password_hash, verified, role, created_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), TRUE, $5, $6)
		 ON CONFLICT (email) DO UPDATE SET verified = TRUE
		 RETURNING `+accountColumns,
		a.ID, a.Email, a.Username, a.PasswordHash, string(a.Role), a.CreatedAt,
	))
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	return out, err
}

func (r *PostgresAccountRepository) MarkVerified(ctx context.Context, email, fallbackHash string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE accounts
		 SET verified = TRUE,
		     password_hash = CASE WHEN COALESCE(password_hash, '') = '' THEN NULLIF($2, '') ELSE password_hash END
		 WHERE email = $1`,
		email, fallbackHash,
	)
	return err
}

func (r *PostgresAccountRepository) UpdatePasswordHash(ctx context.Context, email, hash string) (bool, error) {
	res, err := r.q.ExecContext(ctx, `UPDATE accounts SET password_hash = $2 WHERE email = $1`, email, hash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// PostgresVerificationRepository persists email_verifications.
type PostgresVerificationRepository struct {
	q db.DBTX
}

func (r *PostgresVerificationRepository) Upsert(ctx context.Context, v *domain.VerificationRecord) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO email_verifications (email, token_fingerprint, code, expires_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (email) DO UPDATE SET token_fingerprint = EXCLUDED.token_fingerprint, code = EXCLUDED.code, expires_at = EXCLUDED.expires_at`,
		v.Email, v.TokenFingerprint, v.Code, v.ExpiresAt,
	)
	return err
}

func (r *PostgresVerificationRepository) GetByEmail(ctx context.Context, email string) (*domain.VerificationRecord, error) {
	var v domain.VerificationRecord
	err := r.q.QueryRowContext(ctx,
		`SELECT email, token_fingerprint, code, expires_at FROM email_verifications WHERE email = $1`,
		email,
	).Scan(&v.Email, &v.TokenFingerprint, &v.Code, &v.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func (r *PostgresVerificationRepository) DeleteByEmail(ctx context.Context, email string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM email_verifications WHERE email = $1`, email)
	return err
}

// PostgresPasswordResetRepository persists password_resets.
type PostgresPasswordResetRepository struct {
	q    db.DBTX
	inTx bool
}

func (r *PostgresPasswordResetRepository) Upsert(ctx context.Context, rec *domain.PasswordResetRecord) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO password_resets (email, token_fingerprint, expires_at) VALUES ($1, $2, $3)
		 ON CONFLICT (email) DO UPDATE SET token_fingerprint = EXCLUDED.token_fingerprint, expires_at = EXCLUDED.expires_at`,
		rec.Email, rec.TokenFingerprint, rec.ExpiresAt,
	)
	return err
}

func (r *PostgresPasswordResetRepository) GetByFingerprint(ctx context.Context, fingerprint string) (*domain.PasswordResetRecord, error) {
	query := `SELECT email, token_fingerprint, expires_at FROM password_resets WHERE token_fingerprint = $1`
	if r.inTx {
		query += ` FOR UPDATE`
	}
	var rec domain.PasswordResetRecord
	err := r.q.QueryRowContext(ctx, query, fingerprint).Scan(&rec.Email, &rec.TokenFingerprint, &rec.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *PostgresPasswordResetRepository) DeleteByEmail(ctx context.Context, email string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM password_resets WHERE email = $1`, email)
	return err
}

type pgEmailLocker struct {
	q    db.DBTX
	inTx bool
}

// LockEmail takes a transaction-scoped advisory lock keyed by the email's hash.
func (l *pgEmailLocker) LockEmail(ctx context.Context, email string) error {
	if !l.inTx {
		return nil
	}
	_, err := l.q.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, email)
	return err
}

func queryConflict(ctx context.Context, q db.DBTX, query, email, username string) (Conflict, error) {
	var c Conflict
	if err := q.QueryRowContext(ctx, query, email, username).Scan(&c.Email, &c.Username); err != nil {
		return Conflict{}, err
	}
	return c, nil
}
