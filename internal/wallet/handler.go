package wallet

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kobo-vault/kobo_vault/internal/ledger"
	"github.com/kobo-vault/kobo_vault/internal/middleware"
	"github.com/kobo-vault/kobo_vault/internal/money"
)

// Handler exposes wallet read endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a wallet handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type balanceResponse struct {
	WalletNumber string      `json:"wallet_number"`
	Balance      money.Money `json:"balance"`
	AsOf         time.Time   `json:"as_of"`
}

// Balance returns the caller's wallet balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	b, err := h.service.Balance(c.UserContext(), middleware.UserID(c))
	if err != nil {
		if errors.Is(err, ledger.ErrWalletNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	return c.Status(http.StatusOK).JSON(balanceResponse{
		WalletNumber: b.WalletNumber,
		Balance:      b.Amount,
		AsOf:         b.AsOf,
	})
}

type transactionResponse struct {
	ID          string      `json:"id"`
	Kind        string      `json:"kind"`
	Amount      money.Money `json:"amount"`
	Status      string      `json:"status"`
	Reference   string      `json:"reference"`
	Description string      `json:"description,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Transactions lists the caller's transaction history, newest first.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	txs, err := h.service.History(c.UserContext(), middleware.UserID(c))
	if err != nil {
		if errors.Is(err, ledger.ErrWalletNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, transactionResponse{
			ID:          tx.ID,
			Kind:        string(tx.Kind),
			Amount:      tx.Amount,
			Status:      string(tx.Status),
			Reference:   tx.Reference,
			Description: tx.Description,
			CreatedAt:   tx.CreatedAt,
		})
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{"transactions": out})
}
