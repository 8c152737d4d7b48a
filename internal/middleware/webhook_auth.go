package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

const webhookSecretHeader = "X-Webhook-Secret"

// WebhookAuth verifies the shared secret the platform gateways attach to
// every forwarded command. An empty configured secret disables the check,
// which is only acceptable in development.
func WebhookAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return c.Next()
		}
		presented := c.Get(webhookSecretHeader)
		if subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
			return fiber.NewError(http.StatusUnauthorized, "invalid webhook secret")
		}
		return c.Next()
	}
}
