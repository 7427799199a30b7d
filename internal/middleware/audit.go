package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Audit writes one structured log line per API request. Money movement flows
// through these routes, so the line carries everything needed to reconstruct
// who did what when: method, path, status, duration and the request id.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		requestID, _ := c.Locals(requestIDHeader).(string)
		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", c.Response().StatusCode()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", requestID),
		}

		if err != nil {
			logger.Error("wallet api request", append(attrs, slog.Any("error", err))...)
			return err
		}
		logger.Info("wallet api request", attrs...)
		return nil
	}
}
