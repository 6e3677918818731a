package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// OperationTimeout pone un deadline al contexto de usuario de cada petición.
// El Ledger respeta ese deadline y revierte la transacción si vence.
func OperationTimeout(d time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if d <= 0 {
			return c.Next()
		}
		ctx, cancel := context.WithTimeout(c.UserContext(), d)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}
