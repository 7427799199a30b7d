package account

import (
	"context"
	"sync"
)

// MemoryRepository is a concurrency-safe in-memory account store used by unit
// tests and the in-memory transaction store.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]Account
}

// NewMemoryRepository constructs an in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{nextID: 1, byID: make(map[int64]Account)}
}

// Create inserts an account, enforcing the same uniqueness rules the Postgres
// schema carries.
func (r *MemoryRepository) Create(_ context.Context, acct Account) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID {
		if existing.MobileNumber == acct.MobileNumber || existing.WalletID == acct.WalletID {
			return Account{}, ErrDuplicate
		}
		if acct.Email != "" && existing.Email == acct.Email {
			return Account{}, ErrDuplicate
		}
		if acct.AadharNumber != "" && existing.AadharNumber == acct.AadharNumber {
			return Account{}, ErrDuplicate
		}
		if acct.PANCard != "" && existing.PANCard == acct.PANCard {
			return Account{}, ErrDuplicate
		}
	}

	acct.ID = r.nextID
	r.nextID++
	r.byID[acct.ID] = acct
	return acct, nil
}

// Get fetches an account by id.
func (r *MemoryRepository) Get(_ context.Context, id int64) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acct, ok := r.byID[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return acct, nil
}

// FindByMobile fetches an account by mobile number.
func (r *MemoryRepository) FindByMobile(_ context.Context, mobile string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, acct := range r.byID {
		if acct.MobileNumber == mobile {
			return acct, nil
		}
	}
	return Account{}, ErrNotFound
}

// FindByWalletID fetches an account by wallet identifier.
func (r *MemoryRepository) FindByWalletID(_ context.Context, walletID string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, acct := range r.byID {
		if acct.WalletID == walletID {
			return acct, nil
		}
	}
	return Account{}, ErrNotFound
}

// WalletIDExists reports whether the wallet identifier is already assigned.
func (r *MemoryRepository) WalletIDExists(ctx context.Context, walletID string) (bool, error) {
	if _, err := r.FindByWalletID(ctx, walletID); err == nil {
		return true, nil
	}
	return false, nil
}

// ApplyDelta adjusts the balance under the repository lock so concurrent
// deltas never interleave.
func (r *MemoryRepository) ApplyDelta(_ context.Context, id int64, delta int64) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	acct, ok := r.byID[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	if acct.Balance+delta < 0 {
		return Account{}, ErrInsufficientFunds
	}
	acct.Balance += delta
	r.byID[id] = acct
	return acct, nil
}

// UpdatePasswordHash replaces the stored login credential hash.
func (r *MemoryRepository) UpdatePasswordHash(_ context.Context, id int64, hash []byte) error {
	return r.updateHash(id, func(a *Account) { a.PasswordHash = hash })
}

// UpdatePINHash replaces the stored PIN hash.
func (r *MemoryRepository) UpdatePINHash(_ context.Context, id int64, hash []byte) error {
	return r.updateHash(id, func(a *Account) { a.PINHash = hash })
}

func (r *MemoryRepository) updateHash(id int64, apply func(*Account)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	apply(&acct)
	r.byID[id] = acct
	return nil
}

// Snapshot copies the current account state. Used by the in-memory
// transaction store to implement rollback.
func (r *MemoryRepository) Snapshot() map[int64]Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := make(map[int64]Account, len(r.byID))
	for id, acct := range r.byID {
		snap[id] = acct
	}
	return snap
}

// Restore replaces the account state with a previously taken snapshot.
func (r *MemoryRepository) Restore(snap map[int64]Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[int64]Account, len(snap))
	for id, acct := range snap {
		r.byID[id] = acct
	}
}
