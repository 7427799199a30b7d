package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgx behaviour the store needs. Both *pgxpool.Pool and
// pgx.Tx satisfy it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists ledger records in PostgreSQL. The transactions table
// carries a unique constraint on the transaction number; violations surface
// as ErrDuplicateNumber so the engine can retry with a fresh number.
type PostgresStore struct {
	db DB
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const transactionColumns = `id, account_id, transaction_number, kind, amount, group_id, timestamp`

// Append inserts an immutable ledger record.
func (s *PostgresStore) Append(ctx context.Context, tx Transaction) (Transaction, error) {
	if err := validate(tx); err != nil {
		return Transaction{}, err
	}

	row := s.db.QueryRow(ctx, `INSERT INTO transactions
        (account_id, transaction_number, kind, amount, group_id, timestamp)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING `+transactionColumns,
		tx.AccountID, tx.Number, string(tx.Kind), tx.Amount, tx.GroupID, tx.Timestamp.UTC())

	created, err := scanTransaction(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Transaction{}, ErrDuplicateNumber
		}
		return Transaction{}, err
	}
	return created, nil
}

// ListByAccount returns the account's history, newest first.
func (s *PostgresStore) ListByAccount(ctx context.Context, accountID int64) ([]Transaction, error) {
	rows, err := s.db.Query(ctx, `SELECT `+transactionColumns+`
        FROM transactions WHERE account_id = $1
        ORDER BY timestamp DESC, id DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, tx)
	}
	return list, rows.Err()
}

// FindCounterpart resolves the other leg of a transfer group.
func (s *PostgresStore) FindCounterpart(ctx context.Context, groupID string, kind Kind) (Transaction, error) {
	if groupID == "" {
		return Transaction{}, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+transactionColumns+`
        FROM transactions WHERE group_id = $1 AND kind = $2`, groupID, string(kind))
	tx, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrNotFound
	}
	return tx, err
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var (
		tx        Transaction
		kind      string
		timestamp time.Time
	)
	if err := row.Scan(&tx.ID, &tx.AccountID, &tx.Number, &kind, &tx.Amount, &tx.GroupID, &timestamp); err != nil {
		return Transaction{}, err
	}
	tx.Kind = Kind(kind)
	tx.Timestamp = timestamp.UTC()
	return tx, nil
}
