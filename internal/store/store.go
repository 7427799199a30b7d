package store

import (
	"context"
	"errors"

	"github.com/abhiramsakaray/twinpay-backend/internal/account"
	"github.com/abhiramsakaray/twinpay-backend/internal/ledger"
)

// ErrTimeout occurs when a transactional unit of work exceeds the store's
// bounded timeout. Callers may retry the whole operation.
var ErrTimeout = errors.New("store operation timed out")

// Store bundles the account and ledger stores behind one transaction
// boundary. WithinTx hands the callback a transaction-scoped Store: every
// account mutation and ledger append made through it commits or rolls back as
// a single unit. WithinTx must not be nested.
type Store interface {
	Accounts() account.Repository
	Ledger() ledger.Store
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
