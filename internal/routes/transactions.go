package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/abhiramsakaray/twinpay-backend/internal/transactions"
)

// RegisterTransactionRoutes wires authenticated money movement endpoints.
func RegisterTransactionRoutes(router fiber.Router, tx *transactions.Handler) {
	group := router.Group("/transactions")
	group.Post("/deposit", tx.Deposit)
	group.Post("/withdraw", tx.Withdraw)
	group.Post("/transfer", tx.Transfer)
	group.Get("", tx.History)
}
