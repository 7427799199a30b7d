package identity

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/abhiramsakaray/twinpay-backend/internal/account"
	"github.com/abhiramsakaray/twinpay-backend/internal/idgen"
)

// Handler exposes account registration and profile endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	MobileNumber string `json:"mobile_number"`
	FullName     string `json:"full_name"`
	Password     string `json:"password"`
	PIN          string `json:"pin"`
	Email        string `json:"email"`
	AadharNumber string `json:"aadhar_number"`
	PANCard      string `json:"pan_card"`
	DateOfBirth  string `json:"date_of_birth"`
	Address      string `json:"address"`
}

type profileResponse struct {
	MobileNumber string `json:"mobile_number"`
	FullName     string `json:"full_name"`
	WalletID     string `json:"wallet_id"`
	Email        string `json:"email,omitempty"`
	AadharNumber string `json:"aadhar_number,omitempty"`
	PANCard      string `json:"pan_card,omitempty"`
	DateOfBirth  string `json:"date_of_birth,omitempty"`
	Address      string `json:"address,omitempty"`
	CreatedAt    string `json:"created_at"`
}

func toProfileResponse(acct account.Account) profileResponse {
	resp := profileResponse{
		MobileNumber: acct.MobileNumber,
		FullName:     acct.FullName,
		WalletID:     acct.WalletID,
		Email:        acct.Email,
		AadharNumber: acct.AadharNumber,
		PANCard:      acct.PANCard,
		Address:      acct.Address,
		CreatedAt:    acct.CreatedAt.Format(time.RFC3339),
	}
	if acct.DateOfBirth != nil {
		resp.DateOfBirth = acct.DateOfBirth.Format("2006-01-02")
	}
	return resp
}

// Register handles account onboarding.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	input := RegisterInput{
		MobileNumber: req.MobileNumber,
		FullName:     req.FullName,
		Password:     req.Password,
		PIN:          req.PIN,
		Email:        req.Email,
		AadharNumber: req.AadharNumber,
		PANCard:      req.PANCard,
		Address:      req.Address,
	}
	if req.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", req.DateOfBirth)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "date_of_birth must be YYYY-MM-DD")
		}
		input.DateOfBirth = &dob
	}

	acct, err := h.service.Register(c.UserContext(), input)
	if err != nil {
		switch {
		case errors.Is(err, ErrMobileRegistered), errors.Is(err, idgen.ErrWalletIDTaken), errors.Is(err, account.ErrDuplicate):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.Is(err, ErrMobileFormat), errors.Is(err, ErrPINFormat),
			errors.Is(err, ErrAadharFormat), errors.Is(err, ErrPANFormat),
			errors.Is(err, ErrPasswordRequired), errors.Is(err, idgen.ErrEmailRequired):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message":   "registration successful",
		"wallet_id": acct.WalletID,
	})
}

// Profile returns the authenticated account's details.
func (h *Handler) Profile(c *fiber.Ctx) error {
	accountID, _ := c.Locals("account_id").(int64)
	acct, err := h.service.Profile(c.UserContext(), accountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "account not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(toProfileResponse(acct))
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword rotates the login credential.
func (h *Handler) ChangePassword(c *fiber.Ctx) error {
	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	accountID, _ := c.Locals("account_id").(int64)
	if err := h.service.ChangePassword(c.UserContext(), accountID, req.CurrentPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, ErrIncorrectPassword):
			return fiber.NewError(http.StatusUnauthorized, err.Error())
		case errors.Is(err, ErrPasswordRequired):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(fiber.Map{"message": "password updated"})
}

type changePINRequest struct {
	CurrentPIN string `json:"current_pin"`
	NewPIN     string `json:"new_pin"`
}

// ChangePIN rotates the transaction PIN.
func (h *Handler) ChangePIN(c *fiber.Ctx) error {
	var req changePINRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	accountID, _ := c.Locals("account_id").(int64)
	if err := h.service.ChangePIN(c.UserContext(), accountID, req.CurrentPIN, req.NewPIN); err != nil {
		switch {
		case errors.Is(err, ErrIncorrectPIN):
			return fiber.NewError(http.StatusUnauthorized, err.Error())
		case errors.Is(err, ErrPINFormat):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(fiber.Map{"message": "pin updated"})
}
