package deposit

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/kobo-vault/kobo_vault/internal/gateway"
	"github.com/kobo-vault/kobo_vault/internal/ledger"
	"github.com/kobo-vault/kobo_vault/internal/middleware"
	"github.com/kobo-vault/kobo_vault/internal/money"
)

const signatureHeader = "x-paystack-signature"

var validate = validator.New()

// Handler exposes deposit endpoints including the settlement webhook.
type Handler struct {
	service *Service
}

// NewHandler constructs a deposit handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type initiateRequest struct {
	Amount string `json:"amount" validate:"required"`
}

type initiateResponse struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
}

// Initiate starts a deposit and returns the hosted checkout link.
func (h *Handler) Initiate(c *fiber.Ctx) error {
	var req initiateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	amount, err := money.Parse(req.Amount)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid amount")
	}

	result, err := h.service.Initiate(c.UserContext(), middleware.UserID(c), amount)
	if err != nil {
		switch {
		case errors.Is(err, ErrAmountBelowMinimum):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ledger.ErrWalletNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrGatewayFailure):
			return fiber.NewError(http.StatusBadGateway, err.Error())
		default:
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(initiateResponse{
		Reference:        result.Reference,
		AuthorizationURL: result.AuthorizationURL,
	})
}

// Webhook receives processor events. The signature is verified over the raw
// request body before anything is decoded.
func (h *Handler) Webhook(c *fiber.Ctx) error {
	payload := c.Body()
	signature := c.Get(signatureHeader)

	if err := h.service.Settle(c.UserContext(), payload, signature); err != nil {
		switch {
		case errors.Is(err, gateway.ErrInvalidSignature):
			return fiber.NewError(http.StatusUnauthorized, err.Error())
		case errors.Is(err, ledger.ErrTransactionNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		default:
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "ok"})
}

type statusResponse struct {
	Reference string      `json:"reference"`
	Status    string      `json:"status"`
	Amount    money.Money `json:"amount"`
}

// Status reports the state of a deposit by reference.
func (h *Handler) Status(c *fiber.Ctx) error {
	reference := c.Params("reference")

	result, err := h.service.Status(c.UserContext(), reference)
	if err != nil {
		if errors.Is(err, ledger.ErrTransactionNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	return c.Status(http.StatusOK).JSON(statusResponse{
		Reference: result.Reference,
		Status:    string(result.Status),
		Amount:    result.Amount,
	})
}
