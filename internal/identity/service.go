package identity

import (
	"context"
	"errors"
	"regexp"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/abhiramsakaray/twinpay-backend/internal/account"
	"github.com/abhiramsakaray/twinpay-backend/internal/idgen"
)

var (
	// ErrInvalidCredentials occurs when login credentials do not match.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrMobileRegistered occurs when the mobile number is already in use.
	ErrMobileRegistered = errors.New("mobile number already registered")

	// ErrIncorrectPassword occurs when the current password check fails on a
	// password change.
	ErrIncorrectPassword = errors.New("incorrect current password")

	// ErrIncorrectPIN occurs when the current PIN check fails on a PIN change.
	ErrIncorrectPIN = errors.New("incorrect current pin")

	// ErrMobileFormat rejects malformed mobile numbers.
	ErrMobileFormat = errors.New("invalid mobile number format")

	// ErrPINFormat rejects PINs that are not exactly 4 digits.
	ErrPINFormat = errors.New("pin must be 4 digits")

	// ErrAadharFormat rejects Aadhaar numbers that are not 12 digits.
	ErrAadharFormat = errors.New("aadhar number must be 12 digits")

	// ErrPANFormat rejects malformed PAN card numbers.
	ErrPANFormat = errors.New("invalid pan card format")

	// ErrPasswordRequired rejects empty passwords.
	ErrPasswordRequired = errors.New("password is required")
)

var (
	mobilePattern = regexp.MustCompile(`^\+?1?\d{10,14}$`)
	pinPattern    = regexp.MustCompile(`^\d{4}$`)
	aadharPattern = regexp.MustCompile(`^\d{12}$`)
	panPattern    = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
)

// Service manages account registration and credential lifecycle. Balances are
// owned by the transaction engine; this service never touches them beyond the
// zero opening balance.
type Service struct {
	repo account.Repository
}

// NewService creates a new identity service.
func NewService(repo account.Repository) *Service {
	return &Service{repo: repo}
}

// RegisterInput captures data required to open an account.
type RegisterInput struct {
	MobileNumber string
	FullName     string
	Password     string
	PIN          string
	Email        string
	AadharNumber string
	PANCard      string
	DateOfBirth  *time.Time
	Address      string
}

// Register validates the input, derives a wallet identifier, hashes both
// secrets and opens the account with a zero balance.
func (s *Service) Register(ctx context.Context, input RegisterInput) (account.Account, error) {
	if err := validateRegisterInput(input); err != nil {
		return account.Account{}, err
	}

	if _, err := s.repo.FindByMobile(ctx, input.MobileNumber); err == nil {
		return account.Account{}, ErrMobileRegistered
	} else if !errors.Is(err, account.ErrNotFound) {
		return account.Account{}, err
	}

	walletID, err := idgen.WalletID(ctx, input.FullName, input.Email, s.repo.WalletIDExists)
	if err != nil {
		return account.Account{}, err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return account.Account{}, err
	}
	pinHash, err := bcrypt.GenerateFromPassword([]byte(input.PIN), bcrypt.DefaultCost)
	if err != nil {
		return account.Account{}, err
	}

	return s.repo.Create(ctx, account.Account{
		MobileNumber: input.MobileNumber,
		FullName:     input.FullName,
		WalletID:     walletID,
		PasswordHash: passwordHash,
		PINHash:      pinHash,
		Balance:      0,
		Email:        input.Email,
		AadharNumber: input.AadharNumber,
		PANCard:      input.PANCard,
		DateOfBirth:  input.DateOfBirth,
		Address:      input.Address,
		CreatedAt:    time.Now().UTC(),
	})
}

// Authenticate verifies the mobile number and password.
func (s *Service) Authenticate(ctx context.Context, mobile, password string) (account.Account, error) {
	acct, err := s.repo.FindByMobile(ctx, mobile)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return account.Account{}, ErrInvalidCredentials
		}
		return account.Account{}, err
	}
	if bcrypt.CompareHashAndPassword(acct.PasswordHash, []byte(password)) != nil {
		return account.Account{}, ErrInvalidCredentials
	}
	return acct, nil
}

// Profile returns the account for the authenticated principal.
func (s *Service) Profile(ctx context.Context, accountID int64) (account.Account, error) {
	return s.repo.Get(ctx, accountID)
}

// ChangePassword swaps the login credential after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, accountID int64, current, next string) error {
	if next == "" {
		return ErrPasswordRequired
	}
	acct, err := s.repo.Get(ctx, accountID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword(acct.PasswordHash, []byte(current)) != nil {
		return ErrIncorrectPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePasswordHash(ctx, accountID, hash)
}

// ChangePIN swaps the transaction PIN after verifying the current one.
func (s *Service) ChangePIN(ctx context.Context, accountID int64, current, next string) error {
	if !pinPattern.MatchString(next) {
		return ErrPINFormat
	}
	acct, err := s.repo.Get(ctx, accountID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword(acct.PINHash, []byte(current)) != nil {
		return ErrIncorrectPIN
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePINHash(ctx, accountID, hash)
}

func validateRegisterInput(input RegisterInput) error {
	if !mobilePattern.MatchString(input.MobileNumber) {
		return ErrMobileFormat
	}
	if !pinPattern.MatchString(input.PIN) {
		return ErrPINFormat
	}
	if input.Password == "" {
		return ErrPasswordRequired
	}
	if input.AadharNumber != "" && !aadharPattern.MatchString(input.AadharNumber) {
		return ErrAadharFormat
	}
	if input.PANCard != "" && !panPattern.MatchString(input.PANCard) {
		return ErrPANFormat
	}
	return nil
}
