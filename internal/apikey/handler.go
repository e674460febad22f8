package apikey

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/kobo-vault/kobo_vault/internal/middleware"
)

var validate = validator.New()

// Handler exposes API key management endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an API key handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Name        string   `json:"name" validate:"required,min=2"`
	Permissions []string `json:"permissions" validate:"required,min=1"`
	Expiry      string   `json:"expiry" validate:"required"`
}

type keyResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Secret      string    `json:"secret,omitempty"`
	Permissions []string  `json:"permissions"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// Create issues a new API key. The secret is only returned here, never on
// later reads.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	key, err := h.service.Create(c.UserContext(), CreateInput{
		UserID:      middleware.UserID(c),
		Name:        req.Name,
		Permissions: req.Permissions,
		Expiry:      req.Expiry,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidPermission), errors.Is(err, ErrInvalidExpiry):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrKeyLimit):
			return fiber.NewError(http.StatusConflict, err.Error())
		default:
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(toKeyResponse(key))
}

type rolloverRequest struct {
	KeyID  string `json:"key_id" validate:"required"`
	Expiry string `json:"expiry" validate:"required"`
}

// Rollover replaces an expired key with a fresh secret under the same name
// and permissions.
func (h *Handler) Rollover(c *fiber.Ctx) error {
	var req rolloverRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	key, err := h.service.Rollover(c.UserContext(), middleware.UserID(c), req.KeyID, req.Expiry)
	if err != nil {
		switch {
		case errors.Is(err, ErrKeyNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrKeyNotExpired), errors.Is(err, ErrInvalidExpiry):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		default:
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(toKeyResponse(key))
}

func toKeyResponse(key Key) keyResponse {
	return keyResponse{
		ID:          key.ID,
		Name:        key.Name,
		Secret:      key.Secret,
		Permissions: key.Permissions,
		ExpiresAt:   key.ExpiresAt,
		CreatedAt:   key.CreatedAt,
	}
}
