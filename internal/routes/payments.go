package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/SendrPay/SendrPay-sub002/internal/payments"
)

// RegisterPaymentRoutes wires the initiate/confirm/decline payment flow.
func RegisterPaymentRoutes(r fiber.Router, h *payments.Handler, rateLimiter fiber.Handler) {
	r.Post("/payments/initiate", rateLimiter, h.Initiate)
	r.Post("/payments/confirm", h.Confirm)
	r.Post("/payments/decline", h.Decline)
}
