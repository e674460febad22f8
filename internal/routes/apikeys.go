package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kobo-vault/kobo_vault/internal/apikey"
)

// RegisterAPIKeyRoutes wires API key management. These endpoints require a
// session token; keys cannot mint other keys.
func RegisterAPIKeyRoutes(r fiber.Router, h *apikey.Handler, auth fiber.Handler) {
	grp := r.Group("/keys", auth)
	grp.Post("", h.Create)
	grp.Post("/rollover", h.Rollover)
}
