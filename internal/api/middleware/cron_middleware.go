package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CronSecret guards the sweep trigger endpoints with a shared bearer token.
// An empty secret leaves the endpoints open.
func CronSecret(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return c.Next()
		}

		token, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			return unauthorized(c, "Unauthorized")
		}
		return c.Next()
	}
}
