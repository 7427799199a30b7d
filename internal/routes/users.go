package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/abhiramsakaray/twinpay-backend/internal/identity"
	"github.com/abhiramsakaray/twinpay-backend/internal/transactions"
)

// RegisterUserRoutes wires authenticated account management endpoints.
func RegisterUserRoutes(router fiber.Router, ids *identity.Handler, tx *transactions.Handler) {
	users := router.Group("/users")
	users.Get("/profile", ids.Profile)
	users.Post("/change-password", ids.ChangePassword)
	users.Post("/change-pin", ids.ChangePIN)
	users.Get("/balance", tx.Balance)
}
