package payments

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/SendrPay/SendrPay-sub002/internal/identity"
	"github.com/SendrPay/SendrPay-sub002/internal/token"
	"github.com/SendrPay/SendrPay-sub002/internal/transfer"
	"github.com/SendrPay/SendrPay-sub002/internal/vault"
)

// Handler exposes payment endpoints to the platform gateways.
type Handler struct {
	service *Service
}

// NewHandler constructs a payment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type initiateRequest struct {
	Platform    string `json:"platform"`
	PayerHandle string `json:"payer_handle"`
	Target      string `json:"target"`
	Amount      int64  `json:"amount"`
	Ticker      string `json:"ticker"`
	Note        string `json:"note"`
}

// Initiate quotes a payment and holds it for confirmation.
func (h *Handler) Initiate(c *fiber.Ctx) error {
	var req initiateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	platform, err := identity.ParsePlatform(req.Platform)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	quote, err := h.service.Initiate(c.UserContext(), InitiateInput{
		Platform:    platform,
		PayerHandle: req.PayerHandle,
		Target:      req.Target,
		Amount:      req.Amount,
		Ticker:      req.Ticker,
		Note:        req.Note,
	})
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidTarget):
			return fiber.NewError(http.StatusBadRequest, "invalid payment target")
		case errors.Is(err, identity.ErrUserNotFound):
			return fiber.NewError(http.StatusNotFound, "recipient not found on either platform")
		case errors.Is(err, ErrSelfPayment):
			return fiber.NewError(http.StatusBadRequest, "cannot pay yourself")
		case errors.Is(err, token.ErrUnknownToken):
			return fiber.NewError(http.StatusBadRequest, "unknown token")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"pending_id":   quote.PendingID,
		"payee":        quote.PayeeHandle,
		"amount":       quote.Amount,
		"fee":          quote.Fee,
		"net":          quote.Net,
		"ticker":       quote.Ticker,
	})
}

type confirmRequest struct {
	PendingID string `json:"pending_id"`
}

// Confirm settles a held payment. An indeterminate outcome is surfaced as
// 202 pending verification, never as sent or failed.
func (h *Handler) Confirm(c *fiber.Ctx) error {
	var req confirmRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.PendingID == "" {
		return fiber.NewError(http.StatusBadRequest, "missing pending_id")
	}

	res, err := h.service.Confirm(c.UserContext(), req.PendingID)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownPending):
			return fiber.NewError(http.StatusNotFound, "unknown or expired pending payment")
		case errors.Is(err, transfer.ErrInsufficientFunds):
			return fiber.NewError(http.StatusBadRequest, "insufficient funds")
		case errors.Is(err, transfer.ErrIndeterminate):
			return c.Status(http.StatusAccepted).JSON(fiber.Map{
				"status":    "pending verification",
				"signature": res.Signature,
			})
		case errors.Is(err, transfer.ErrSettlementFailed):
			return fiber.NewError(http.StatusBadGateway, "settlement failed, no funds moved")
		case errors.Is(err, vault.ErrIntegrityViolation):
			return fiber.NewError(http.StatusInternalServerError, "wallet key integrity check failed")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"status":    string(res.Status),
		"signature": res.Signature,
		"amount":    res.Amount,
		"fee":       res.Fee,
		"net":       res.Net,
		"top_up":    res.TopUp,
		"ticker":    res.Ticker,
	})
}

// Decline discards a held payment.
func (h *Handler) Decline(c *fiber.Ctx) error {
	var req confirmRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.service.Decline(c.UserContext(), req.PendingID); err != nil {
		if errors.Is(err, ErrUnknownPending) {
			return fiber.NewError(http.StatusNotFound, "unknown or expired pending payment")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "declined"})
}
