package repository

import (
	"context"
	"sync"
	"time"

	"afriquize-delights/backend/internal/account/domain"
)

// MemoryStore is an in-process Store for development and tests. Transactions
// run one at a time against a copy of the state that replaces it on commit.
type MemoryStore struct {
	mu sync.Mutex
	st *memState
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{st: newMemState()}
}

type memState struct {
	pending       map[string]domain.PendingRegistration
	accounts      map[string]domain.Account
	verifications map[string]domain.VerificationRecord
	resets        map[string]domain.PasswordResetRecord
}

func newMemState() *memState {
	return &memState{
		pending:       make(map[string]domain.PendingRegistration),
		accounts:      make(map[string]domain.Account),
		verifications: make(map[string]domain.VerificationRecord),
		resets:        make(map[string]domain.PasswordResetRecord),
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.pending {
		c.pending[k] = v
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.verifications {
		c.verifications[k] = v
	}
	for k, v := range s.resets {
		c.resets[k] = v
	}
	return c
}

// memHandle runs a repository call against either the live state (taking the
// store lock) or a transaction's private copy (lock already held).
type memHandle struct {
	store *MemoryStore
	tx    *memState
}

func (h *memHandle) do(fn func(st *memState) error) error {
	if h.tx != nil {
		return fn(h.tx)
	}
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return fn(h.store.st)
}

func (s *MemoryStore) Repos() Repos {
	return memRepos(&memHandle{store: s})
}

func (s *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.st.clone()
	if err := fn(ctx, memRepos(&memHandle{store: s, tx: work})); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func memRepos(h *memHandle) Repos {
	return Repos{
		Pending:       memPending{h},
		Accounts:      memAccounts{h},
		Verifications: memVerifications{h},
		Resets:        memResets{h},
		Locks:         memLocker{},
	}
}

type memPending struct{ h *memHandle }

func (r memPending) GetByEmail(_ context.Context, email string) (*domain.PendingRegistration, error) {
	var out *domain.PendingRegistration
	_ = r.h.do(func(st *memState) error {
		if p, ok := st.pending[email]; ok {
			out = &p
		}
		return nil
	})
	return out, nil
}

func (r memPending) Conflicts(_ context.Context, email, username string) (Conflict, error) {
	var c Conflict
	_ = r.h.do(func(st *memState) error {
		for _, p := range st.pending {
			c.Email = c.Email || p.Email == email
			c.Username = c.Username || p.Username == username
		}
		return nil
	})
	return c, nil
}

func (r memPending) Create(_ context.Context, p *domain.PendingRegistration) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return r.h.do(func(st *memState) error {
		for _, existing := range st.pending {
			if existing.Email == p.Email || existing.Username == p.Username {
				return ErrDuplicate
			}
		}
		st.pending[p.Email] = *p
		return nil
	})
}

func (r memPending) DeleteByEmail(_ context.Context, email string) error {
	return r.h.do(func(st *memState) error {
		delete(st.pending, email)
		return nil
	})
}

func (r memPending) DeleteCreatedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := r.h.do(func(st *memState) error {
		for email, p := range st.pending {
			if p.CreatedAt.Before(cutoff) {
				delete(st.pending, email)
				n++
			}
		}
		return nil
	})
	return n, err
}

type memAccounts struct{ h *memHandle }

func (r memAccounts) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	var out *domain.Account
	_ = r.h.do(func(st *memState) error {
		if a, ok := st.accounts[email]; ok {
			out = &a
		}
		return nil
	})
	return out, nil
}

func (r memAccounts) Conflicts(_ context.Context, email, username string) (Conflict, error) {
	var c Conflict
	_ = r.h.do(func(st *memState) error {
		for _, a := range st.accounts {
			c.Email = c.Email || a.Email == email
			c.Username = c.Username || a.Username == username
		}
		return nil
	})
	return c, nil
}

func (r memAccounts) Create(_ context.Context, a *domain.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	return r.h.do(func(st *memState) error {
		for _, existing := range st.accounts {
			if existing.Email == a.Email || existing.Username == a.Username {
				return ErrDuplicate
			}
		}
		st.accounts[a.Email] = *a
		return nil
	})
}

func (r memAccounts) Promote(_ context.Context, a *domain.Account) (*domain.Account, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	var out domain.Account
	err := r.h.do(func(st *memState) error {
		if existing, ok := st.accounts[a.Email]; ok {
			existing.Verified = true
			st.accounts[a.Email] = existing
			out = existing
			return nil
		}
		for _, existing := range st.accounts {
			if existing.Username == a.Username {
				return ErrDuplicate
			}
		}
		out = *a
		out.Verified = true
		st.accounts[a.Email] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r memAccounts) MarkVerified(_ context.Context, email, fallbackHash string) error {
	return r.h.do(func(st *memState) error {
		a, ok := st.accounts[email]
		if !ok {
			return nil
		}
		a.Verified = true
		if a.PasswordHash == "" {
			a.PasswordHash = fallbackHash
		}
		st.accounts[email] = a
		return nil
	})
}

func (r memAccounts) UpdatePasswordHash(_ context.Context, email, hash string) (bool, error) {
	var found bool
	err := r.h.do(func(st *memState) error {
		a, ok := st.accounts[email]
		if !ok {
			return nil
		}
		a.PasswordHash = hash
		st.accounts[email] = a
		found = true
		return nil
	})
	return found, err
}

type memVerifications struct{ h *memHandle }

func (r memVerifications) Upsert(_ context.Context, v *domain.VerificationRecord) error {
	return r.h.do(func(st *memState) error {
		st.verifications[v.Email] = *v
		return nil
	})
}

func (r memVerifications) GetByEmail(_ context.Context, email string) (*domain.VerificationRecord, error) {
	var out *domain.VerificationRecord
	_ = r.h.do(func(st *memState) error {
		if v, ok := st.verifications[email]; ok {
			out = &v
		}
		return nil
	})
	return out, nil
}

func (r memVerifications) DeleteByEmail(_ context.Context, email string) error {
	return r.h.do(func(st *memState) error {
		delete(st.verifications, email)
		return nil
	})
}

type memResets struct{ h *memHandle }

func (r memResets) Upsert(_ context.Context, rec *domain.PasswordResetRecord) error {
	return r.h.do(func(st *memState) error {
		st.resets[rec.Email] = *rec
		return nil
	})
}

func (r memResets) GetByFingerprint(_ context.Context, fingerprint string) (*domain.PasswordResetRecord, error) {
	var out *domain.PasswordResetRecord
	_ = r.h.do(func(st *memState) error {
		for _, rec := range st.resets {
			if rec.TokenFingerprint == fingerprint {
				rec := rec
				out = &rec
				return nil
			}
		}
		return nil
	})
	return out, nil
}

func (r memResets) DeleteByEmail(_ context.Context, email string) error {
	return r.h.do(func(st *memState) error {
		delete(st.resets, email)
		return nil
	})
}

// memLocker is a no-op: MemoryStore transactions are already serialized.
type memLocker struct{}

func (memLocker) LockEmail(context.Context, string) error { return nil }
