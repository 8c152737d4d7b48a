package linking

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/SendrPay/SendrPay-sub002/internal/identity"
)

// Handler exposes the account-linking endpoints.
type Handler struct {
	coordinator *Coordinator
	resolver    *identity.Resolver
}

// NewHandler constructs a linking handler.
func NewHandler(coordinator *Coordinator, resolver *identity.Resolver) *Handler {
	return &Handler{coordinator: coordinator, resolver: resolver}
}

type proposeRequest struct {
	Platform string `json:"platform"`
	Handle   string `json:"handle"`
}

// Propose mints a single-use link code for the calling identity.
func (h *Handler) Propose(c *fiber.Ctx) error {
	var req proposeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	platform, err := identity.ParsePlatform(req.Platform)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	initiator, err := h.resolver.EnsureUser(c.UserContext(), platform, req.Handle)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidTarget) {
			return fiber.NewError(http.StatusBadRequest, "invalid handle")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	record, err := h.coordinator.Propose(c.UserContext(), initiator, platform)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"code":       record.Code,
		"expires_at": record.ExpiresAt,
	})
}

type mergeRequest struct {
	Code     string `json:"code"`
	Platform string `json:"platform"`
	Handle   string `json:"handle"`
	Keep     string `json:"keep"`
}

// Merge redeems a link code from the other platform and consolidates the
// two identities. The keep field picks which custodied wallet survives.
func (h *Handler) Merge(c *fiber.Ctx) error {
	var req mergeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	platform, err := identity.ParsePlatform(req.Platform)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	decision, err := parseDecision(req.Keep)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	claimant, err := h.resolver.EnsureUser(c.UserContext(), platform, req.Handle)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidTarget) {
			return fiber.NewError(http.StatusBadRequest, "invalid handle")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	result, err := h.coordinator.Merge(c.UserContext(), req.Code, claimant.ID, decision)
	if err != nil {
		if errors.Is(err, ErrMergeConflict) {
			return fiber.NewError(http.StatusConflict, "link code is invalid, expired, or already used")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"survivor_id": result.SurvivorID,
		"merged_id":   result.MergedID,
	})
}

func parseDecision(keep string) (Decision, error) {
	switch keep {
	case "initiator", string(KeepInitiatorWallet):
		return KeepInitiatorWallet, nil
	case "claimant", string(KeepClaimantWallet):
		return KeepClaimantWallet, nil
	default:
		return "", errors.New(`keep must be "initiator" or "claimant"`)
	}
}
