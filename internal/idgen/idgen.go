package idgen

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

var (
	// ErrEmailRequired occurs when the name-based wallet identifier is taken
	// and no email was provided to derive a fallback.
	ErrEmailRequired = errors.New("email required when wallet id based on full name is taken")

	// ErrWalletIDTaken indicates both the name-based and email-based
	// candidates are already in use.
	ErrWalletIDTaken = errors.New("wallet id based on email is also taken")
)

// WalletIDSuffix is appended to every derived wallet identifier.
const WalletIDSuffix = "@twinpay"

const suffixAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// TransactionNumber derives a collision-resistant transaction number from the
// current time (microsecond precision), a random suffix and the zero-padded
// account id. Uniqueness is still enforced by the ledger store; callers must
// regenerate and retry on a collision.
func TransactionNumber(accountID int64) string {
	now := time.Now().UTC()
	var b strings.Builder
	b.WriteString(now.Format("20060102150405"))
	fmt.Fprintf(&b, "%06d", now.Nanosecond()/1000)
	for i := 0; i < 4; i++ {
		b.WriteByte(suffixAlphabet[rand.Intn(len(suffixAlphabet))])
	}
	fmt.Fprintf(&b, "%04d", accountID)
	return b.String()
}

// ExistsFunc reports whether a candidate wallet identifier is already taken.
type ExistsFunc func(ctx context.Context, walletID string) (bool, error)

// WalletID derives a wallet identifier from the normalized full name. If that
// candidate is taken it falls back to the email local part; if both are taken
// the derivation is rejected. Normalization is deterministic: lowercase with
// whitespace stripped for names, lowercase with dots stripped for email local
// parts.
func WalletID(ctx context.Context, fullName, email string, exists ExistsFunc) (string, error) {
	candidate := normalizeName(fullName) + WalletIDSuffix

	taken, err := exists(ctx, candidate)
	if err != nil {
		return "", err
	}
	if !taken {
		return candidate, nil
	}

	if email == "" {
		return "", ErrEmailRequired
	}

	candidate = normalizeEmailLocal(email) + WalletIDSuffix
	taken, err = exists(ctx, candidate)
	if err != nil {
		return "", err
	}
	if taken {
		return "", ErrWalletIDTaken
	}
	return candidate, nil
}

func normalizeName(fullName string) string {
	return strings.ToLower(strings.Join(strings.Fields(fullName), ""))
}

func normalizeEmailLocal(email string) string {
	local := email
	if at := strings.Index(email, "@"); at >= 0 {
		local = email[:at]
	}
	return strings.ReplaceAll(strings.ToLower(local), ".", "")
}
