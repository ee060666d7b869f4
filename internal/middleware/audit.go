package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Audit writes one log line per request with outcome and timing. This is the
// audit trail for wallet mutations, keyed by the request identifier.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		id, _ := c.Locals(requestIDKey).(string)
		attrs := []any{
			slog.String(requestIDKey, id),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", c.Response().StatusCode()),
			slog.Duration("latency", time.Since(start)),
		}
		if err != nil {
			logger.Error("request failed", append(attrs, slog.Any("error", err))...)
			return err
		}
		logger.Info("request handled", attrs...)
		return nil
	}
}
