package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/SendrPay/SendrPay-sub002/internal/linking"
)

// RegisterLinkingRoutes wires the cross-platform account linking flow.
func RegisterLinkingRoutes(r fiber.Router, h *linking.Handler) {
	r.Post("/links/propose", h.Propose)
	r.Post("/links/merge", h.Merge)
}
