package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RequestID attaches an identifier to every request, honoring one supplied by
// the caller. Mutation submissions carry it through the audit log so a fund,
// withdraw or transfer can be traced end to end.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			c.Set(requestIDHeader, id)
		}
		c.Locals(requestIDKey, id)
		return c.Next()
	}
}
