package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kobo-vault/kobo_vault/internal/wallet"
)

// RegisterWalletRoutes wires wallet read endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler, auth fiber.Handler) {
	grp := r.Group("/wallet", auth)
	grp.Get("", h.Balance)
	grp.Get("/transactions", h.Transactions)
}
