package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abhiramsakaray/twinpay-backend/internal/account"
	"github.com/abhiramsakaray/twinpay-backend/internal/ledger"
)

// Postgres implements Store on a pgx connection pool. Reads outside WithinTx
// run against the pool; WithinTx wraps a database transaction with a bounded
// timeout so no unit of work blocks indefinitely.
type Postgres struct {
	pool      *pgxpool.Pool
	txTimeout time.Duration
	accounts  *account.PostgresRepository
	ledger    *ledger.PostgresStore
}

// NewPostgres builds a Postgres-backed store. txTimeout bounds each WithinTx
// unit of work; zero disables the bound.
func NewPostgres(pool *pgxpool.Pool, txTimeout time.Duration) *Postgres {
	return &Postgres{
		pool:      pool,
		txTimeout: txTimeout,
		accounts:  account.NewPostgresRepository(pool),
		ledger:    ledger.NewPostgresStore(pool),
	}
}

// Accounts returns the pool-scoped account repository.
func (s *Postgres) Accounts() account.Repository { return s.accounts }

// Ledger returns the pool-scoped ledger store.
func (s *Postgres) Ledger() ledger.Store { return s.ledger }

// WithinTx runs fn inside a database transaction. Row locks taken by the
// transaction-scoped repositories are held until commit or rollback.
func (s *Postgres) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return timeoutOr(ctx, err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	scoped := &postgresTx{
		accounts: account.NewPostgresRepository(tx),
		ledger:   ledger.NewPostgresStore(tx),
	}
	if err := fn(scoped); err != nil {
		return timeoutOr(ctx, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return timeoutOr(ctx, err)
	}
	return nil
}

// postgresTx is the transaction-scoped view handed to WithinTx callbacks.
type postgresTx struct {
	accounts *account.PostgresRepository
	ledger   *ledger.PostgresStore
}

func (s *postgresTx) Accounts() account.Repository { return s.accounts }
func (s *postgresTx) Ledger() ledger.Store         { return s.ledger }

// WithinTx on an already scoped store runs fn in the surrounding transaction.
func (s *postgresTx) WithinTx(_ context.Context, fn func(tx Store) error) error {
	return fn(s)
}

func timeoutOr(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}
