package transactions

import (
	"context"
	"errors"
	"time"

	"github.com/abhiramsakaray/twinpay-backend/internal/ledger"
)

// HistoryEntry is one ledger record enriched with the counterparty's wallet
// id when the record is a transfer leg.
type HistoryEntry struct {
	TransactionNumber    string
	Kind                 ledger.Kind
	Amount               int64
	Timestamp            time.Time
	CounterpartyWalletID string
}

// History lists the account's transactions newest first. Transfer legs are
// resolved to their counterpart via the shared transfer group id and carry
// the counterpart account's wallet id; a missing counterpart (which the
// atomic transfer commit rules out) simply leaves the field empty.
func (s *Service) History(ctx context.Context, accountID int64) ([]HistoryEntry, error) {
	records, err := s.store.Ledger().ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(records))
	for _, rec := range records {
		entry := HistoryEntry{
			TransactionNumber: rec.Number,
			Kind:              rec.Kind,
			Amount:            rec.Amount,
			Timestamp:         rec.Timestamp,
		}

		if counterKind := rec.Kind.Counterpart(); counterKind != "" {
			walletID, err := s.counterpartyWalletID(ctx, rec.GroupID, counterKind)
			if err != nil {
				return nil, err
			}
			entry.CounterpartyWalletID = walletID
		}

		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *Service) counterpartyWalletID(ctx context.Context, groupID string, kind ledger.Kind) (string, error) {
	counter, err := s.store.Ledger().FindCounterpart(ctx, groupID, kind)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	acct, err := s.store.Accounts().Get(ctx, counter.AccountID)
	if err != nil {
		return "", err
	}
	return acct.WalletID, nil
}
