package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/kobo-vault/kobo_vault/internal/apikey"
	"github.com/kobo-vault/kobo_vault/internal/auth"
	"github.com/kobo-vault/kobo_vault/internal/config"
	"github.com/kobo-vault/kobo_vault/internal/deposit"
	"github.com/kobo-vault/kobo_vault/internal/gateway"
	"github.com/kobo-vault/kobo_vault/internal/identity"
	"github.com/kobo-vault/kobo_vault/internal/ledger"
	"github.com/kobo-vault/kobo_vault/internal/middleware"
	"github.com/kobo-vault/kobo_vault/internal/notification"
	"github.com/kobo-vault/kobo_vault/internal/transfer"
	"github.com/kobo-vault/kobo_vault/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger

	// Gateway overrides the payment processor client. Left nil, a Paystack
	// client is built from config.
	Gateway gateway.Client
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	var store ledger.Store
	var identityRepo identity.Repository
	var keyRepo apikey.Repository
	if d.DB != nil {
		store = ledger.NewPostgresStore(d.DB)
		identityRepo = identity.NewPostgresRepository(d.DB)
		keyRepo = apikey.NewPostgresRepository(d.DB)
	} else {
		store = ledger.NewInMemory()
		identityRepo = identity.NewMemoryRepository(store)
		keyRepo = apikey.NewMemoryRepository()
	}

	gw := d.Gateway
	if gw == nil {
		gw = gateway.NewPaystackClient(d.Cfg.PaystackSecret, d.Cfg.PaystackBaseURL, d.Cfg.GatewayTimeout)
	}

	notifier := notification.NewLoggerNotifier(d.Logger)
	identitySvc := identity.NewService(identityRepo)
	tokenSvc := auth.NewService(d.Cfg.JWTSecret, d.Cfg.AccessTokenTTL)
	keySvc := apikey.NewService(keyRepo)
	depositSvc := deposit.NewService(store, identityRepo, gw, notifier, d.Cfg.MinDeposit, d.Cfg.GatewayTimeout)
	transferSvc := transfer.NewService(store, notifier)
	walletSvc := wallet.NewService(store)

	authHandler := auth.NewHandler(identitySvc, tokenSvc)
	depositHandler := deposit.NewHandler(depositSvc)
	transferHandler := transfer.NewHandler(transferSvc)
	walletHandler := wallet.NewHandler(walletSvc)
	keyHandler := apikey.NewHandler(keySvc)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes. The webhook authenticates itself via the processor
	// signature, not a session.
	RegisterAuthRoutes(api, authHandler, middleware.LoginRateLimit(d.Cache, 5))
	api.Post("/deposits/webhook", depositHandler.Webhook)

	// Protected routes carry a per-route permission so scoped API keys work.
	depositAuth := middleware.FlexibleAuth(tokenSvc, keySvc, apikey.PermissionDeposit)
	transferAuth := middleware.FlexibleAuth(tokenSvc, keySvc, apikey.PermissionTransfer)
	readAuth := middleware.FlexibleAuth(tokenSvc, keySvc, apikey.PermissionRead)

	RegisterDepositRoutes(api, depositHandler, depositAuth, readAuth)
	RegisterTransferRoutes(api, transferHandler, transferAuth, transferGuards(d)...)
	RegisterWalletRoutes(api, walletHandler, readAuth)
	RegisterAPIKeyRoutes(api, keyHandler, middleware.TokenAuth(tokenSvc))

	return nil
}

// transferGuards returns extra middleware for the transfer route. With Redis
// available the Idempotency-Key header is enforced so retried submissions do
// not double-spend.
func transferGuards(d Deps) []fiber.Handler {
	if d.Cache == nil {
		return nil
	}
	return []fiber.Handler{middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)}
}
