package ledger

import (
	"context"
	"sort"
	"sync"
)

// InMemoryStore is a concurrency-safe in-memory ledger used by unit tests and
// the in-memory transaction store.
type InMemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	records []Transaction
	numbers map[string]struct{}
}

// NewInMemory creates an empty in-memory ledger store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{nextID: 1, numbers: make(map[string]struct{})}
}

// Append records a transaction, enforcing number uniqueness.
func (s *InMemoryStore) Append(_ context.Context, tx Transaction) (Transaction, error) {
	if err := validate(tx); err != nil {
		return Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.numbers[tx.Number]; exists {
		return Transaction{}, ErrDuplicateNumber
	}

	tx.ID = s.nextID
	s.nextID++
	s.numbers[tx.Number] = struct{}{}
	s.records = append(s.records, tx)
	return tx, nil
}

// ListByAccount returns the account's history, newest first; records sharing
// a timestamp keep the later append first.
func (s *InMemoryStore) ListByAccount(_ context.Context, accountID int64) ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var list []Transaction
	for _, tx := range s.records {
		if tx.AccountID == accountID {
			list = append(list, tx)
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].Timestamp.Equal(list[j].Timestamp) {
			return list[i].Timestamp.After(list[j].Timestamp)
		}
		return list[i].ID > list[j].ID
	})
	return list, nil
}

// FindCounterpart resolves the other leg of a transfer group.
func (s *InMemoryStore) FindCounterpart(_ context.Context, groupID string, kind Kind) (Transaction, error) {
	if groupID == "" {
		return Transaction{}, ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tx := range s.records {
		if tx.GroupID == groupID && tx.Kind == kind {
			return tx, nil
		}
	}
	return Transaction{}, ErrNotFound
}

// Snapshot copies the current ledger state for rollback support.
func (s *InMemoryStore) Snapshot() ([]Transaction, map[string]struct{}) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]Transaction, len(s.records))
	copy(records, s.records)
	numbers := make(map[string]struct{}, len(s.numbers))
	for n := range s.numbers {
		numbers[n] = struct{}{}
	}
	return records, numbers
}

// Restore replaces the ledger state with a previously taken snapshot.
func (s *InMemoryStore) Restore(records []Transaction, numbers map[string]struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
	s.numbers = numbers
}
