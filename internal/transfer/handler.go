package transfer

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/kobo-vault/kobo_vault/internal/ledger"
	"github.com/kobo-vault/kobo_vault/internal/middleware"
	"github.com/kobo-vault/kobo_vault/internal/money"
)

var validate = validator.New()

// Handler exposes the wallet-to-wallet transfer endpoint.
type Handler struct {
	service *Service
}

// NewHandler constructs a transfer handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type transferRequest struct {
	WalletNumber string `json:"wallet_number" validate:"required,len=13,numeric"`
	Amount       string `json:"amount" validate:"required"`
}

type transferResponse struct {
	OutReference     string      `json:"reference"`
	SenderBalance    money.Money `json:"sender_balance"`
	RecipientBalance money.Money `json:"recipient_balance"`
	CompletedAt      time.Time   `json:"completed_at"`
}

// Transfer moves funds from the caller's wallet to the named wallet.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
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

	result, err := h.service.Transfer(c.UserContext(), Input{
		SenderUserID:          middleware.UserID(c),
		RecipientWalletNumber: req.WalletNumber,
		Amount:                amount,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, ledger.ErrWalletNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrSelfTransfer):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		default:
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(transferResponse{
		OutReference:     result.OutReference,
		SenderBalance:    result.SenderBalance,
		RecipientBalance: result.RecipientBalance,
		CompletedAt:      result.CompletedAt,
	})
}
