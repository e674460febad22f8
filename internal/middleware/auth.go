package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/kobo-vault/kobo_vault/internal/auth"
)

const apiKeyHeader = "X-API-Key"

// KeyValidator resolves an API key secret to its owning user, enforcing the
// required permission.
type KeyValidator interface {
	Validate(ctx context.Context, secret, permission string) (string, error)
}

// FlexibleAuth accepts either a Bearer access token or an API key. API keys
// must carry the permission required by the route; session tokens grant all
// permissions. The resolved user id is stored in c.Locals("user_id").
func FlexibleAuth(tokens *auth.Service, keys KeyValidator, permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret := c.Get(apiKeyHeader); secret != "" {
			userID, err := keys.Validate(c.UserContext(), secret, permission)
			if err != nil {
				return fiber.NewError(http.StatusUnauthorized, err.Error())
			}
			c.Locals("user_id", userID)
			c.Locals("auth_method", "api_key")
			return c.Next()
		}

		return bearerAuth(c, tokens)
	}
}

// TokenAuth requires a Bearer access token. API keys are not accepted, so
// key management stays behind interactive sessions.
func TokenAuth(tokens *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return bearerAuth(c, tokens)
	}
}

func bearerAuth(c *fiber.Ctx, tokens *auth.Service) error {
	authz := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return fiber.NewError(http.StatusUnauthorized, "missing credentials")
	}
	sub, err := tokens.Verify(strings.TrimSpace(authz[len("Bearer "):]))
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, "invalid token")
	}

	c.Locals("user_id", sub)
	c.Locals("auth_method", "token")
	return c.Next()
}

// UserID extracts the authenticated user id set by FlexibleAuth.
func UserID(c *fiber.Ctx) string {
	uid, _ := c.Locals("user_id").(string)
	return uid
}
