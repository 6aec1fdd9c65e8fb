package middleware

import "github.com/gofiber/fiber/v2"

// Noop passes the request straight through. It anchors the middleware
// package's wiring contract and test setup.
func Noop() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Next()
	}
}
