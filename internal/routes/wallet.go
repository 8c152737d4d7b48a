package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/SendrPay/SendrPay-sub002/internal/wallet"
)

// RegisterWalletRoutes wires wallet balance lookups.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Get("/wallets/:user_id/balance", h.Balance)
}
