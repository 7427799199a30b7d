package transactions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/abhiramsakaray/twinpay-backend/internal/account"
	"github.com/abhiramsakaray/twinpay-backend/internal/idgen"
	"github.com/abhiramsakaray/twinpay-backend/internal/ledger"
	"github.com/abhiramsakaray/twinpay-backend/internal/notification"
	"github.com/abhiramsakaray/twinpay-backend/internal/store"
)

var (
	// ErrInvalidAmount occurs when an operation amount is not positive.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrPINRequired occurs when a PIN-guarded operation is called without one.
	ErrPINRequired = errors.New("pin is required")

	// ErrInvalidPIN occurs when the provided PIN does not match the stored hash.
	ErrInvalidPIN = errors.New("invalid pin")

	// ErrRecipientNotFound occurs when no account owns the recipient wallet id.
	ErrRecipientNotFound = errors.New("recipient not found")

	// ErrSelfTransfer occurs when sender and recipient are the same account.
	ErrSelfTransfer = errors.New("cannot transfer to yourself")

	// ErrTransient occurs when transaction number collisions persist past the
	// retry bound. The operation had no effect and may be retried.
	ErrTransient = errors.New("transient ledger contention, retry")
)

// maxNumberAttempts bounds transparent retries on transaction number collisions.
const maxNumberAttempts = 3

// Service is the transaction engine: it orchestrates deposits, withdrawals
// and transfers as atomic units combining a balance mutation with ledger
// appends, and resolves transfer history.
type Service struct {
	store     store.Store
	notifier  notification.Notifier
	newNumber func(accountID int64) string
}

// NewService constructs the engine over a transactional store.
func NewService(st store.Store, notifier notification.Notifier) *Service {
	return &Service{store: st, notifier: notifier, newNumber: idgen.TransactionNumber}
}

// Receipt describes a committed operation.
type Receipt struct {
	TransactionNumber string
	Timestamp         time.Time
	NewBalance        int64
}

// TransferReceipt extends Receipt with the resolved recipient.
type TransferReceipt struct {
	Receipt
	RecipientWalletID string
}

// Deposit credits the account and appends a deposit record atomically.
func (s *Service) Deposit(ctx context.Context, accountID, amount int64) (Receipt, error) {
	if amount <= 0 {
		return Receipt{}, ErrInvalidAmount
	}

	var receipt Receipt
	err := s.withNumberRetry(func() error {
		return s.store.WithinTx(ctx, func(tx store.Store) error {
			acct, err := tx.Accounts().ApplyDelta(ctx, accountID, amount)
			if err != nil {
				return err
			}
			rec, err := tx.Ledger().Append(ctx, ledger.Transaction{
				AccountID: accountID,
				Number:    s.newNumber(accountID),
				Kind:      ledger.KindDeposit,
				Amount:    amount,
				Timestamp: operationTime(),
			})
			if err != nil {
				return err
			}
			receipt = Receipt{TransactionNumber: rec.Number, Timestamp: rec.Timestamp, NewBalance: acct.Balance}
			return nil
		})
	})
	return receipt, err
}

// Withdraw debits the account after PIN verification and appends a withdraw
// record atomically. The balance check and debit happen inside the same
// transaction scope, so a concurrent debit cannot slip between them.
func (s *Service) Withdraw(ctx context.Context, accountID, amount int64, pin string) (Receipt, error) {
	if amount <= 0 {
		return Receipt{}, ErrInvalidAmount
	}

	acct, err := s.store.Accounts().Get(ctx, accountID)
	if err != nil {
		return Receipt{}, err
	}
	if err := verifyPIN(acct, pin); err != nil {
		return Receipt{}, err
	}

	var receipt Receipt
	err = s.withNumberRetry(func() error {
		return s.store.WithinTx(ctx, func(tx store.Store) error {
			updated, err := tx.Accounts().ApplyDelta(ctx, accountID, -amount)
			if err != nil {
				return err
			}
			rec, err := tx.Ledger().Append(ctx, ledger.Transaction{
				AccountID: accountID,
				Number:    s.newNumber(accountID),
				Kind:      ledger.KindWithdraw,
				Amount:    amount,
				Timestamp: operationTime(),
			})
			if err != nil {
				return err
			}
			receipt = Receipt{TransactionNumber: rec.Number, Timestamp: rec.Timestamp, NewBalance: updated.Balance}
			return nil
		})
	})
	return receipt, err
}

// Transfer moves funds to the account owning recipientWalletID. Both balance
// mutations and both ledger legs (transfer_out/transfer_in, shared timestamp
// and group id) commit as one unit; a debit without its matching credit is
// never observable. Accounts are locked in ascending id order so crossing
// transfers between the same pair cannot deadlock.
func (s *Service) Transfer(ctx context.Context, senderID int64, recipientWalletID string, amount int64, pin string) (TransferReceipt, error) {
	if amount <= 0 {
		return TransferReceipt{}, ErrInvalidAmount
	}

	sender, err := s.store.Accounts().Get(ctx, senderID)
	if err != nil {
		return TransferReceipt{}, err
	}
	if err := verifyPIN(sender, pin); err != nil {
		return TransferReceipt{}, err
	}

	recipient, err := s.store.Accounts().FindByWalletID(ctx, recipientWalletID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return TransferReceipt{}, ErrRecipientNotFound
		}
		return TransferReceipt{}, err
	}
	if recipient.ID == sender.ID {
		return TransferReceipt{}, ErrSelfTransfer
	}

	groupID := uuid.NewString()

	var receipt TransferReceipt
	err = s.withNumberRetry(func() error {
		return s.store.WithinTx(ctx, func(tx store.Store) error {
			senderBalance, err := applyTransferDeltas(ctx, tx, sender.ID, recipient.ID, amount)
			if err != nil {
				return err
			}

			ts := operationTime()
			outRec, err := tx.Ledger().Append(ctx, ledger.Transaction{
				AccountID: sender.ID,
				Number:    s.newNumber(sender.ID),
				Kind:      ledger.KindTransferOut,
				Amount:    amount,
				GroupID:   groupID,
				Timestamp: ts,
			})
			if err != nil {
				return err
			}
			if _, err := tx.Ledger().Append(ctx, ledger.Transaction{
				AccountID: recipient.ID,
				Number:    s.newNumber(recipient.ID),
				Kind:      ledger.KindTransferIn,
				Amount:    amount,
				GroupID:   groupID,
				Timestamp: ts,
			}); err != nil {
				return err
			}

			receipt = TransferReceipt{
				Receipt:           Receipt{TransactionNumber: outRec.Number, Timestamp: outRec.Timestamp, NewBalance: senderBalance},
				RecipientWalletID: recipient.WalletID,
			}
			return nil
		})
	})
	if err != nil {
		return TransferReceipt{}, err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindTransferCredit,
			Destination: recipient.MobileNumber,
			Body:        fmt.Sprintf("You received %d from %s", amount, sender.WalletID),
		})
	}

	return receipt, nil
}

// applyTransferDeltas debits the sender and credits the recipient, acquiring
// the two row locks in ascending account id order. Returns the sender's
// post-debit balance.
func applyTransferDeltas(ctx context.Context, tx store.Store, senderID, recipientID, amount int64) (int64, error) {
	if senderID < recipientID {
		updated, err := tx.Accounts().ApplyDelta(ctx, senderID, -amount)
		if err != nil {
			return 0, err
		}
		if _, err := tx.Accounts().ApplyDelta(ctx, recipientID, amount); err != nil {
			return 0, err
		}
		return updated.Balance, nil
	}

	if _, err := tx.Accounts().ApplyDelta(ctx, recipientID, amount); err != nil {
		return 0, err
	}
	updated, err := tx.Accounts().ApplyDelta(ctx, senderID, -amount)
	if err != nil {
		return 0, err
	}
	return updated.Balance, nil
}

// Balance returns the current balance after PIN re-verification. The PIN
// check is a step-up authorization distinct from the caller's session.
func (s *Service) Balance(ctx context.Context, accountID int64, pin string) (int64, error) {
	acct, err := s.store.Accounts().Get(ctx, accountID)
	if err != nil {
		return 0, err
	}
	if err := verifyPIN(acct, pin); err != nil {
		return 0, err
	}
	return acct.Balance, nil
}

func (s *Service) withNumberRetry(attempt func() error) error {
	for i := 0; i < maxNumberAttempts; i++ {
		err := attempt()
		if err == nil {
			return nil
		}
		if !errors.Is(err, ledger.ErrDuplicateNumber) {
			return err
		}
	}
	return ErrTransient
}

func verifyPIN(acct account.Account, pin string) error {
	if pin == "" {
		return ErrPINRequired
	}
	if bcrypt.CompareHashAndPassword(acct.PINHash, []byte(pin)) != nil {
		return ErrInvalidPIN
	}
	return nil
}

// operationTime is the logical timestamp recorded on ledger entries. Postgres
// stores microseconds, so truncate up front to keep transfer legs comparable.
func operationTime() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
