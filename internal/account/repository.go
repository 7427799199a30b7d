package account

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound occurs when no account matches the lookup key.
	ErrNotFound = errors.New("account not found")

	// ErrInsufficientFunds occurs when a negative delta would drive the
	// balance below zero. The balance is left untouched.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicate indicates a unique constraint (mobile number, wallet id,
	// email, Aadhaar or PAN) was violated on create.
	ErrDuplicate = errors.New("duplicate account data")
)

// Repository persists accounts and their balances.
type Repository interface {
	Create(ctx context.Context, acct Account) (Account, error)
	Get(ctx context.Context, id int64) (Account, error)
	FindByMobile(ctx context.Context, mobile string) (Account, error)
	FindByWalletID(ctx context.Context, walletID string) (Account, error)
	WalletIDExists(ctx context.Context, walletID string) (bool, error)
	ApplyDelta(ctx context.Context, id int64, delta int64) (Account, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash []byte) error
	UpdatePINHash(ctx context.Context, id int64, hash []byte) error
}

// DB is the subset of pgx behaviour the repository needs. Both *pgxpool.Pool
// and pgx.Tx satisfy it, so the same repository serves pooled reads and
// transaction-scoped mutations.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores accounts in PostgreSQL.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountColumns = `id, mobile_number, full_name, wallet_id, password_hash, pin_hash,
        balance, email, aadhar_number, pan_card, date_of_birth, address, created_at`

// Create inserts a new account and returns it with the assigned id.
func (r *PostgresRepository) Create(ctx context.Context, acct Account) (Account, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO accounts
        (mobile_number, full_name, wallet_id, password_hash, pin_hash, balance,
         email, aadhar_number, pan_card, date_of_birth, address, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING `+accountColumns,
		acct.MobileNumber, acct.FullName, acct.WalletID, acct.PasswordHash, acct.PINHash,
		acct.Balance, acct.Email, acct.AadharNumber, acct.PANCard, acct.DateOfBirth,
		acct.Address, acct.CreatedAt.UTC())
	created, err := scanAccount(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Account{}, ErrDuplicate
		}
		return Account{}, err
	}
	return created, nil
}

// Get fetches an account by id.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanNotFound(row)
}

// FindByMobile fetches an account by mobile number.
func (r *PostgresRepository) FindByMobile(ctx context.Context, mobile string) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE mobile_number = $1`, mobile)
	return scanNotFound(row)
}

// FindByWalletID fetches an account by wallet identifier.
func (r *PostgresRepository) FindByWalletID(ctx context.Context, walletID string) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE wallet_id = $1`, walletID)
	return scanNotFound(row)
}

// WalletIDExists reports whether the wallet identifier is already assigned.
func (r *PostgresRepository) WalletIDExists(ctx context.Context, walletID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE wallet_id = $1)`, walletID).Scan(&exists)
	return exists, err
}

// ApplyDelta adjusts the balance by delta in a single guarded statement. The
// update acquires the row lock, so concurrent deltas on one account serialize
// and none are lost. A delta that would leave the balance negative fails with
// ErrInsufficientFunds without mutating the row.
func (r *PostgresRepository) ApplyDelta(ctx context.Context, id int64, delta int64) (Account, error) {
	row := r.db.QueryRow(ctx, `UPDATE accounts SET balance = balance + $2
        WHERE id = $1 AND balance + $2 >= 0
        RETURNING `+accountColumns, id, delta)
	acct, err := scanAccount(row)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Account{}, err
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return Account{}, err
	}
	if !exists {
		return Account{}, ErrNotFound
	}
	return Account{}, ErrInsufficientFunds
}

// UpdatePasswordHash replaces the stored login credential hash.
func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id int64, hash []byte) error {
	return r.updateHash(ctx, `UPDATE accounts SET password_hash = $1 WHERE id = $2`, id, hash)
}

// UpdatePINHash replaces the stored PIN hash.
func (r *PostgresRepository) UpdatePINHash(ctx context.Context, id int64, hash []byte) error {
	return r.updateHash(ctx, `UPDATE accounts SET pin_hash = $1 WHERE id = $2`, id, hash)
}

func (r *PostgresRepository) updateHash(ctx context.Context, query string, id int64, hash []byte) error {
	cmd, err := r.db.Exec(ctx, query, hash, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		a         Account
		createdAt time.Time
	)
	if err := row.Scan(&a.ID, &a.MobileNumber, &a.FullName, &a.WalletID, &a.PasswordHash,
		&a.PINHash, &a.Balance, &a.Email, &a.AadharNumber, &a.PANCard, &a.DateOfBirth,
		&a.Address, &createdAt); err != nil {
		return Account{}, err
	}
	a.CreatedAt = createdAt.UTC()
	return a, nil
}

func scanNotFound(row pgx.Row) (Account, error) {
	acct, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	return acct, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
