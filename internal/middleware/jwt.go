package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/abhiramsakaray/twinpay-backend/internal/account"
	"github.com/abhiramsakaray/twinpay-backend/internal/auth"
	"github.com/abhiramsakaray/twinpay-backend/internal/config"
)

// AccountIDKey is the request-local key carrying the authenticated account id.
const AccountIDKey = "account_id"

// JWTAuth validates bearer tokens and resolves the authenticated account. The
// token subject is the registered mobile number.
func JWTAuth(cfg config.Config, repo account.Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])

		claims, err := auth.ParseAndVerifyHS256(tokenStr, []byte(cfg.JWTSecret))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "could not validate credentials")
		}
		mobile, _ := claims["sub"].(string)
		if mobile == "" {
			return fiber.NewError(http.StatusUnauthorized, "could not validate credentials")
		}

		acct, err := repo.FindByMobile(c.UserContext(), mobile)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "could not validate credentials")
		}

		c.Locals(AccountIDKey, acct.ID)
		return c.Next()
	}
}
