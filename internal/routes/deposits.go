package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kobo-vault/kobo_vault/internal/deposit"
)

// RegisterDepositRoutes wires deposit initiation and status lookup.
func RegisterDepositRoutes(r fiber.Router, h *deposit.Handler, depositAuth, readAuth fiber.Handler) {
	r.Post("/deposits", depositAuth, h.Initiate)
	r.Get("/deposits/:reference", readAuth, h.Status)
}
