package wallet

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/SendrPay/SendrPay-sub002/internal/chain"
)

// Handler exposes wallet metadata and balance endpoints.
type Handler struct {
	service *Service
	chain   chain.Client
}

// NewHandler constructs a wallet handler.
func NewHandler(service *Service, client chain.Client) *Handler {
	return &Handler{service: service, chain: client}
}

// Balance reports the on-ledger balance of a user's active wallet.
func (h *Handler) Balance(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("user_id"), 10, 64)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid user id")
	}

	w, err := h.service.Active(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			return fiber.NewError(http.StatusNotFound, "no active wallet")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	balance, err := h.chain.GetBalance(c.UserContext(), w.Address)
	if err != nil {
		return fiber.NewError(http.StatusBadGateway, "balance lookup failed")
	}

	return c.JSON(fiber.Map{
		"wallet_id": w.ID,
		"address":   w.Address,
		"balance":   balance,
	})
}
