package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kobo-vault/kobo_vault/internal/transfer"
)

// RegisterTransferRoutes wires the wallet-to-wallet transfer endpoint.
func RegisterTransferRoutes(r fiber.Router, h *transfer.Handler, auth fiber.Handler, extra ...fiber.Handler) {
	handlers := append([]fiber.Handler{auth}, extra...)
	handlers = append(handlers, h.Transfer)
	r.Post("/transfers", handlers...)
}
