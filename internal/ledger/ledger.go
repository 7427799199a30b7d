package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrDuplicateNumber occurs when a transaction number collides with an
	// existing record. Callers regenerate the number and retry.
	ErrDuplicateNumber = errors.New("duplicate transaction number")

	// ErrNotFound occurs when no record matches the lookup.
	ErrNotFound = errors.New("transaction not found")

	// ErrInvalidRecord occurs when a record misses required fields or carries
	// a non-positive amount.
	ErrInvalidRecord = errors.New("invalid ledger record")
)

// Kind classifies a ledger record.
type Kind string

const (
	KindDeposit     Kind = "deposit"
	KindWithdraw    Kind = "withdraw"
	KindTransferOut Kind = "transfer_out"
	KindTransferIn  Kind = "transfer_in"
)

// Counterpart returns the paired kind for a transfer leg, or empty for
// non-transfer kinds.
func (k Kind) Counterpart() Kind {
	switch k {
	case KindTransferOut:
		return KindTransferIn
	case KindTransferIn:
		return KindTransferOut
	default:
		return ""
	}
}

// Transaction is an immutable ledger record. Transfer legs carry a shared
// GroupID linking the transfer_out to its transfer_in; it is empty for
// deposits and withdrawals.
type Transaction struct {
	ID        int64
	AccountID int64
	Number    string
	Kind      Kind
	Amount    int64
	GroupID   string
	Timestamp time.Time
}

// Store is the append-only ledger contract implemented by backends. Records
// are never mutated or deleted once appended.
type Store interface {
	// Append persists a record, failing with ErrDuplicateNumber when the
	// transaction number is already taken.
	Append(ctx context.Context, tx Transaction) (Transaction, error)

	// ListByAccount returns the account's records ordered by timestamp
	// descending, most recently appended first within equal timestamps.
	ListByAccount(ctx context.Context, accountID int64) ([]Transaction, error)

	// FindCounterpart resolves the other leg of a transfer group.
	FindCounterpart(ctx context.Context, groupID string, kind Kind) (Transaction, error)
}

func validate(tx Transaction) error {
	if tx.Number == "" || tx.Kind == "" || tx.Amount <= 0 || tx.AccountID == 0 {
		return ErrInvalidRecord
	}
	return nil
}
