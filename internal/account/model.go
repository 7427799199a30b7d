package account

import "time"

// Account represents a registered wallet owner and their balance state. The
// balance is held in paise and is mutated only through Repository.ApplyDelta.
type Account struct {
	ID           int64
	MobileNumber string
	FullName     string
	WalletID     string
	PasswordHash []byte
	PINHash      []byte
	Balance      int64
	Email        string
	AadharNumber string
	PANCard      string
	DateOfBirth  *time.Time
	Address      string
	CreatedAt    time.Time
}
