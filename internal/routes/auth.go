package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kobo-vault/kobo_vault/internal/auth"
)

// RegisterAuthRoutes wires registration and login endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, rateLimit fiber.Handler) {
	grp := r.Group("/auth")
	grp.Post("/register", h.Register)
	grp.Post("/login", rateLimit, h.Login)
}
