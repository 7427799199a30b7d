package transactions

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/abhiramsakaray/twinpay-backend/internal/account"
	"github.com/abhiramsakaray/twinpay-backend/internal/ledger"
	"github.com/abhiramsakaray/twinpay-backend/internal/notification"
	"github.com/abhiramsakaray/twinpay-backend/internal/store"
)

const testPIN = "1234"

type testNotifier struct {
	mu   sync.Mutex
	last notification.Message
}

func (n *testNotifier) Send(_ context.Context, msg notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.last = msg
	return nil
}

func newTestAccount(t *testing.T, st store.Store, mobile, walletID string, balance int64) account.Account {
	t.Helper()
	pinHash, err := bcrypt.GenerateFromPassword([]byte(testPIN), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash pin: %v", err)
	}
	acct, err := st.Accounts().Create(context.Background(), account.Account{
		MobileNumber: mobile,
		FullName:     "Test User",
		WalletID:     walletID,
		PINHash:      pinHash,
		Balance:      balance,
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return acct
}

func TestDepositAddsAmountAndAppendsRecord(t *testing.T) {
	st := store.NewMemory()
	svc := NewService(st, nil)
	acct := newTestAccount(t, st, "+919900112233", "alice@twinpay", 1_000)
	ctx := context.Background()

	receipt, err := svc.Deposit(ctx, acct.ID, 500)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if receipt.NewBalance != 1_500 {
		t.Fatalf("expected balance 1500, got %d", receipt.NewBalance)
	}
	if receipt.TransactionNumber == "" {
		t.Fatal("expected a transaction number")
	}

	records, _ := st.Ledger().ListByAccount(ctx, acct.ID)
	if len(records) != 1 || records[0].Kind != ledger.KindDeposit || records[0].Amount != 500 {
		t.Fatalf("unexpected ledger records: %+v", records)
	}
}

func TestDepositRejectsNonPositiveAmount(t *testing.T) {
	st := store.NewMemory()
	svc := NewService(st, nil)
	acct := newTestAccount(t, st, "+919900112233", "alice@twinpay", 0)

	for _, amount := range []int64{0, -100} {
		if _, err := svc.Deposit(context.Background(), acct.ID, amount); err != ErrInvalidAmount {
			t.Fatalf("amount %d: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestWithdrawRequiresValidPIN(t *testing.T) {
	st := store.NewMemory()
	svc := NewService(st, nil)
	acct := newTestAccount(t, st, "+919900112233", "alice@twinpay", 1_000)
	ctx := context.Background()

	if _, err := svc.Withdraw(ctx, acct.ID, 100, ""); err != ErrPINRequired {
		t.Fatalf("expected ErrPINRequired, got %v", err)
	}
	if _, err := svc.Withdraw(ctx, acct.ID, 100, "9999"); err != ErrInvalidPIN {
		t.Fatalf("expected ErrInvalidPIN, got %v", err)
	}

	current, _ := st.Accounts().Get(ctx, acct.ID)
	if current.Balance != 1_000 {
		t.Fatalf("balance mutated on rejected withdrawal: %d", current.Balance)
	}
}

func TestWithdrawInsufficientFundsIsNoOp(t *testing.T) {
	st := store.NewMemory()
	svc := NewService(st, nil)
	acct := newTestAccount(t, st, "+919900112233", "alice@twinpay", 100)
	ctx := context.Background()

	if _, err := svc.Withdraw(ctx, acct.ID, 150, testPIN); !errors.Is(err, account.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	current, _ := st.Accounts().Get(ctx, acct.ID)
	if current.Balance != 100 {
		t.Fatalf("expected balance unchanged at 100, got %d", current.Balance)
	}
	records, _ := st.Ledger().ListByAccount(ctx, acct.ID)
	if len(records) != 0 {
		t.Fatalf("no record should be appended on failure, got %+v", records)
	}
}

func TestTransferConservesBalanceAndLinksLegs(t *testing.T) {
	st := store.NewMemory()
	notifier := &testNotifier{}
	svc := NewService(st, notifier)
	sender := newTestAccount(t, st, "+919900112233", "alice@twinpay", 5_000)
	recipient := newTestAccount(t, st, "+919900445566", "bob@twinpay", 700)
	ctx := context.Background()

	receipt, err := svc.Transfer(ctx, sender.ID, "bob@twinpay", 2_000, testPIN)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if receipt.NewBalance != 3_000 {
		t.Fatalf("expected sender balance 3000, got %d", receipt.NewBalance)
	}
	if receipt.RecipientWalletID != "bob@twinpay" {
		t.Fatalf("unexpected recipient wallet id %s", receipt.RecipientWalletID)
	}

	senderNow, _ := st.Accounts().Get(ctx, sender.ID)
	recipientNow, _ := st.Accounts().Get(ctx, recipient.ID)
	if senderNow.Balance+recipientNow.Balance != 5_700 {
		t.Fatalf("total balance not conserved: %d + %d", senderNow.Balance, recipientNow.Balance)
	}

	outRecords, _ := st.Ledger().ListByAccount(ctx, sender.ID)
	inRecords, _ := st.Ledger().ListByAccount(ctx, recipient.ID)
	if len(outRecords) != 1 || len(inRecords) != 1 {
		t.Fatalf("expected exactly one leg per account, got %d and %d", len(outRecords), len(inRecords))
	}
	out, in := outRecords[0], inRecords[0]
	if out.Kind != ledger.KindTransferOut || in.Kind != ledger.KindTransferIn {
		t.Fatalf("unexpected kinds: %s, %s", out.Kind, in.Kind)
	}
	if out.Amount != in.Amount || out.Amount != 2_000 {
		t.Fatalf("legs disagree on amount: %d vs %d", out.Amount, in.Amount)
	}
	if !out.Timestamp.Equal(in.Timestamp) {
		t.Fatalf("legs disagree on timestamp: %v vs %v", out.Timestamp, in.Timestamp)
	}
	if out.GroupID == "" || out.GroupID != in.GroupID {
		t.Fatalf("legs not linked by group id: %q vs %q", out.GroupID, in.GroupID)
	}
	if out.Number == in.Number {
		t.Fatal("legs must carry distinct transaction numbers")
	}

	if notifier.last.Kind != notification.KindTransferCredit {
		t.Fatalf("expected transfer credit notification, got %+v", notifier.last)
	}
}

func TestTransferToUnknownWallet(t *testing.T) {
	st := store.NewMemory()
	svc := NewService(st, nil)
	sender := newTestAccount(t, st, "+919900112233", "alice@twinpay", 1_000)

	if _, err := svc.Transfer(context.Background(), sender.ID, "ghost@twinpay", 100, testPIN); err != ErrRecipientNotFound {
		t.Fatalf("expected ErrRecipientNotFound, got %v", err)
	}
}

func TestSelfTransferRejected(t *testing.T) {
	st := store.NewMemory()
	svc := NewService(st, nil)
	sender := newTestAccount(t, st, "+919900112233", "alice@twinpay", 1_000)
	ctx := context.Background()

	if _, err := svc.Transfer(ctx, sender.ID, "alice@twinpay", 100, testPIN); err != ErrSelfTransfer {
		t.Fatalf("expected ErrSelfTransfer, got %v", err)
	}

	current, _ := st.Accounts().Get(ctx, sender.ID)
	if current.Balance != 1_000 {
		t.Fatalf("self transfer mutated balance: %d", current.Balance)
	}
}

func TestTransferInsufficientFundsLeavesNoTrace(t *testing.T) {
	st := store.NewMemory()
	svc := NewService(st, nil)
	sender := newTestAccount(t, st, "+919900112233", "alice@twinpay", 50)
	recipient := newTestAccount(t, st, "+919900445566", "bob@twinpay", 0)
	ctx := context.Background()

	if _, err := svc.Transfer(ctx, sender.ID, "bob@twinpay", 100, testPIN); !errors.Is(err, account.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	recipientNow, _ := st.Accounts().Get(ctx, recipient.ID)
	if recipientNow.Balance != 0 {
		t.Fatalf("recipient credited despite failure: %d", recipientNow.Balance)
	}
	outRecords, _ := st.Ledger().ListByAccount(ctx, sender.ID)
	inRecords, _ := st.Ledger().ListByAccount(ctx, recipient.ID)
	if len(outRecords) != 0 || len(inRecords) != 0 {
		t.Fatalf("records persisted on failed transfer: %+v %+v", outRecords, inRecords)
	}
}

func TestDepositRetriesOnNumberCollision(t *testing.T) {
	st := store.NewMemory()
	svc := NewService(st, nil)
	acct := newTestAccount(t, st, "+919900112233", "alice@twinpay", 0)
	ctx := context.Background()

	const taken = "20250101000000000000AAAA0001"
	const fresh = "20250101000000000001BBBB0001"
	if _, err := st.Ledger().Append(ctx, ledger.Transaction{
		AccountID: acct.ID,
		Number:    taken,
		Kind:      ledger.KindDeposit,
		Amount:    10,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	var calls int
	svc.newNumber = func(int64) string {
		calls++
		if calls == 1 {
			return taken
		}
		return fresh
	}

	receipt, err := svc.Deposit(ctx, acct.ID, 500)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if receipt.TransactionNumber != fresh {
		t.Fatalf("expected regenerated number %s, got %s", fresh, receipt.TransactionNumber)
	}
	if calls != 2 {
		t.Fatalf("expected 2 number generations, got %d", calls)
	}

	current, _ := st.Accounts().Get(ctx, acct.ID)
	if current.Balance != 500 {
		t.Fatalf("delta must apply exactly once across retries, balance %d", current.Balance)
	}
	records, _ := st.Ledger().ListByAccount(ctx, acct.ID)
	if len(records) != 2 {
		t.Fatalf("expected seed plus deposit record, got %d", len(records))
	}
}

func TestDepositNumberCollisionExhaustion(t *testing.T) {
	st := store.NewMemory()
	svc := NewService(st, nil)
	acct := newTestAccount(t, st, "+919900112233", "alice@twinpay", 0)
	ctx := context.Background()

	const taken = "20250101000000000000AAAA0001"
	if _, err := st.Ledger().Append(ctx, ledger.Transaction{
		AccountID: acct.ID,
		Number:    taken,
		Kind:      ledger.KindDeposit,
		Amount:    10,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	var calls int
	svc.newNumber = func(int64) string {
		calls++
		return taken
	}

	if _, err := svc.Deposit(ctx, acct.ID, 500); !errors.Is(err, ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
	if calls != maxNumberAttempts {
		t.Fatalf("expected %d attempts, got %d", maxNumberAttempts, calls)
	}

	current, _ := st.Accounts().Get(ctx, acct.ID)
	if current.Balance != 0 {
		t.Fatalf("exhausted retry must leave the balance untouched, got %d", current.Balance)
	}
	records, _ := st.Ledger().ListByAccount(ctx, acct.ID)
	if len(records) != 1 {
		t.Fatalf("expected only the seed record, got %d", len(records))
	}
}

func TestConcurrentDepositsSumExactly(t *testing.T) {
	st := store.NewMemory()
	svc := NewService(st, nil)
	acct := newTestAccount(t, st, "+919900112233", "alice@twinpay", 1_000)
	ctx := context.Background()

	const workers = 30
	var total int64
	var wg sync.WaitGroup
	for i := 1; i <= workers; i++ {
		amount := int64(i * 10)
		total += amount
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Deposit(ctx, acct.ID, amount); err != nil {
				t.Errorf("deposit: %v", err)
			}
		}()
	}
	wg.Wait()

	current, _ := st.Accounts().Get(ctx, acct.ID)
	if current.Balance != 1_000+total {
		t.Fatalf("expected balance %d, got %d", 1_000+total, current.Balance)
	}
	records, _ := st.Ledger().ListByAccount(ctx, acct.ID)
	if len(records) != workers {
		t.Fatalf("expected %d records, got %d", workers, len(records))
	}
	numbers := make(map[string]struct{}, len(records))
	for _, rec := range records {
		numbers[rec.Number] = struct{}{}
	}
	if len(numbers) != workers {
		t.Fatalf("transaction numbers not pairwise unique: %d of %d", len(numbers), workers)
	}
}

func TestCrossingTransfersDoNotDeadlock(t *testing.T) {
	st := store.NewMemory()
	svc := NewService(st, nil)
	a := newTestAccount(t, st, "+919900112233", "alice@twinpay", 10_000)
	b := newTestAccount(t, st, "+919900445566", "bob@twinpay", 10_000)
	ctx := context.Background()

	const rounds = 20
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			if _, err := svc.Transfer(ctx, a.ID, "bob@twinpay", 100, testPIN); err != nil {
				t.Errorf("a->b transfer: %v", err)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			if _, err := svc.Transfer(ctx, b.ID, "alice@twinpay", 100, testPIN); err != nil {
				t.Errorf("b->a transfer: %v", err)
			}
		}
	}()
	wg.Wait()

	aNow, _ := st.Accounts().Get(ctx, a.ID)
	bNow, _ := st.Accounts().Get(ctx, b.ID)
	if aNow.Balance+bNow.Balance != 20_000 {
		t.Fatalf("total balance not conserved: %d + %d", aNow.Balance, bNow.Balance)
	}
}

func TestBalanceRequiresPINStepUp(t *testing.T) {
	st := store.NewMemory()
	svc := NewService(st, nil)
	acct := newTestAccount(t, st, "+919900112233", "alice@twinpay", 2_500)
	ctx := context.Background()

	if _, err := svc.Balance(ctx, acct.ID, ""); err != ErrPINRequired {
		t.Fatalf("expected ErrPINRequired, got %v", err)
	}
	if _, err := svc.Balance(ctx, acct.ID, "0000"); err != ErrInvalidPIN {
		t.Fatalf("expected ErrInvalidPIN, got %v", err)
	}

	balance, err := svc.Balance(ctx, acct.ID, testPIN)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 2_500 {
		t.Fatalf("expected 2500, got %d", balance)
	}
}

func TestHistoryResolvesTransferCounterparties(t *testing.T) {
	st := store.NewMemory()
	svc := NewService(st, nil)
	alice := newTestAccount(t, st, "+919900112233", "alice@twinpay", 1_000)
	bob := newTestAccount(t, st, "+919900445566", "bob@twinpay", 0)
	ctx := context.Background()

	if _, err := svc.Deposit(ctx, alice.ID, 300); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := svc.Transfer(ctx, alice.ID, "bob@twinpay", 400, testPIN); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	aliceHistory, err := svc.History(ctx, alice.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(aliceHistory) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(aliceHistory))
	}
	if aliceHistory[0].Kind != ledger.KindTransferOut || aliceHistory[0].CounterpartyWalletID != "bob@twinpay" {
		t.Fatalf("unexpected newest entry: %+v", aliceHistory[0])
	}
	if aliceHistory[1].Kind != ledger.KindDeposit || aliceHistory[1].CounterpartyWalletID != "" {
		t.Fatalf("unexpected deposit entry: %+v", aliceHistory[1])
	}

	bobHistory, err := svc.History(ctx, bob.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(bobHistory) != 1 || bobHistory[0].Kind != ledger.KindTransferIn || bobHistory[0].CounterpartyWalletID != "alice@twinpay" {
		t.Fatalf("unexpected recipient history: %+v", bobHistory)
	}
}

func TestWalletScenario(t *testing.T) {
	st := store.NewMemory()
	svc := NewService(st, nil)
	a := newTestAccount(t, st, "+919900112233", "alice@twinpay", 100)
	b := newTestAccount(t, st, "+919900445566", "bob@twinpay", 0)
	ctx := context.Background()

	if _, err := svc.Withdraw(ctx, a.ID, 150, testPIN); !errors.Is(err, account.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	current, _ := st.Accounts().Get(ctx, a.ID)
	if current.Balance != 100 {
		t.Fatalf("expected 100 after failed withdrawal, got %d", current.Balance)
	}

	receipt, err := svc.Withdraw(ctx, a.ID, 50, testPIN)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if receipt.NewBalance != 50 {
		t.Fatalf("expected 50 after withdrawal, got %d", receipt.NewBalance)
	}

	transfer, err := svc.Transfer(ctx, a.ID, "bob@twinpay", 30, testPIN)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if transfer.NewBalance != 20 {
		t.Fatalf("expected sender balance 20, got %d", transfer.NewBalance)
	}
	bNow, _ := st.Accounts().Get(ctx, b.ID)
	if bNow.Balance != 30 {
		t.Fatalf("expected recipient balance 30, got %d", bNow.Balance)
	}

	records, _ := st.Ledger().ListByAccount(ctx, a.ID)
	if len(records) != 2 {
		t.Fatalf("expected withdraw + transfer_out records, got %+v", records)
	}
}
