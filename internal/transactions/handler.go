package transactions

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/abhiramsakaray/twinpay-backend/internal/account"
	"github.com/abhiramsakaray/twinpay-backend/internal/store"
)

// Handler exposes money movement endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a transactions HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type depositRequest struct {
	Amount int64 `json:"amount"`
}

type withdrawRequest struct {
	Amount int64  `json:"amount"`
	PIN    string `json:"pin"`
}

type transferRequest struct {
	RecipientWalletID string `json:"recipient_wallet_id"`
	Amount            int64  `json:"amount"`
	PIN               string `json:"pin"`
}

// Deposit credits the authenticated account.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	var req depositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	accountID, _ := c.Locals("account_id").(int64)

	receipt, err := h.service.Deposit(c.UserContext(), accountID, req.Amount)
	if err != nil {
		return mapTransactionError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message":            "deposit successful",
		"transaction_number": receipt.TransactionNumber,
		"timestamp":          receipt.Timestamp.Format(time.RFC3339Nano),
		"balance":            receipt.NewBalance,
	})
}

// Withdraw debits the authenticated account after PIN verification.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	var req withdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	accountID, _ := c.Locals("account_id").(int64)

	receipt, err := h.service.Withdraw(c.UserContext(), accountID, req.Amount, req.PIN)
	if err != nil {
		return mapTransactionError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message":            "withdrawal successful",
		"transaction_number": receipt.TransactionNumber,
		"timestamp":          receipt.Timestamp.Format(time.RFC3339Nano),
		"balance":            receipt.NewBalance,
	})
}

// Transfer moves funds from the authenticated account to another wallet.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	accountID, _ := c.Locals("account_id").(int64)

	receipt, err := h.service.Transfer(c.UserContext(), accountID, req.RecipientWalletID, req.Amount, req.PIN)
	if err != nil {
		return mapTransactionError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message":            "transfer successful",
		"transaction_number": receipt.TransactionNumber,
		"timestamp":          receipt.Timestamp.Format(time.RFC3339Nano),
		"balance":            receipt.NewBalance,
		"recipient":          receipt.RecipientWalletID,
	})
}

// Balance returns the current balance after PIN verification.
func (h *Handler) Balance(c *fiber.Ctx) error {
	accountID, _ := c.Locals("account_id").(int64)
	pin := c.Query("pin")

	balance, err := h.service.Balance(c.UserContext(), accountID, pin)
	if err != nil {
		return mapTransactionError(err)
	}
	return c.JSON(fiber.Map{"balance": balance})
}

type historyEntryResponse struct {
	TransactionNumber string `json:"transaction_number"`
	Kind              string `json:"kind"`
	Amount            int64  `json:"amount"`
	Timestamp         string `json:"timestamp"`
	Counterparty      string `json:"counterparty,omitempty"`
}

// History lists the authenticated account's transactions, newest first.
func (h *Handler) History(c *fiber.Ctx) error {
	accountID, _ := c.Locals("account_id").(int64)

	entries, err := h.service.History(c.UserContext(), accountID)
	if err != nil {
		return mapTransactionError(err)
	}
	out := make([]historyEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyEntryResponse{
			TransactionNumber: e.TransactionNumber,
			Kind:              string(e.Kind),
			Amount:            e.Amount,
			Timestamp:         e.Timestamp.Format(time.RFC3339Nano),
			Counterparty:      e.CounterpartyWalletID,
		})
	}
	return c.JSON(fiber.Map{"transactions": out})
}

func mapTransactionError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrPINRequired), errors.Is(err, ErrSelfTransfer):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, account.ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, "insufficient funds")
	case errors.Is(err, ErrInvalidPIN):
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrRecipientNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, account.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "account not found")
	case errors.Is(err, ErrTransient), errors.Is(err, store.ErrTimeout):
		return fiber.NewError(http.StatusServiceUnavailable, "please retry")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
