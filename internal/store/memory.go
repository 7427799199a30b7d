package store

import (
	"context"
	"sync"

	"github.com/abhiramsakaray/twinpay-backend/internal/account"
	"github.com/abhiramsakaray/twinpay-backend/internal/ledger"
)

// Memory implements Store in memory for unit tests. WithinTx serializes all
// units of work behind one mutex and rolls back via snapshot on failure, so
// the all-or-nothing contract matches the Postgres implementation.
type Memory struct {
	mu       sync.Mutex
	accounts *account.MemoryRepository
	ledger   *ledger.InMemoryStore
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		accounts: account.NewMemoryRepository(),
		ledger:   ledger.NewInMemory(),
	}
}

// Accounts returns the in-memory account repository.
func (s *Memory) Accounts() account.Repository { return s.accounts }

// Ledger returns the in-memory ledger store.
func (s *Memory) Ledger() ledger.Store { return s.ledger }

// WithinTx runs fn exclusively, restoring the pre-transaction state when fn
// fails.
func (s *Memory) WithinTx(_ context.Context, fn func(tx Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accountSnap := s.accounts.Snapshot()
	records, numbers := s.ledger.Snapshot()

	if err := fn(&memoryTx{accounts: s.accounts, ledger: s.ledger}); err != nil {
		s.accounts.Restore(accountSnap)
		s.ledger.Restore(records, numbers)
		return err
	}
	return nil
}

// memoryTx is the scoped view handed to WithinTx callbacks. It reuses the
// underlying repositories; exclusivity comes from the store mutex.
type memoryTx struct {
	accounts *account.MemoryRepository
	ledger   *ledger.InMemoryStore
}

func (s *memoryTx) Accounts() account.Repository { return s.accounts }
func (s *memoryTx) Ledger() ledger.Store         { return s.ledger }

func (s *memoryTx) WithinTx(_ context.Context, fn func(tx Store) error) error {
	return fn(s)
}
