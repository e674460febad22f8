package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kobo-vault/kobo_vault/internal/config"
	"github.com/kobo-vault/kobo_vault/internal/gateway"
	"github.com/kobo-vault/kobo_vault/internal/logging"
	"github.com/kobo-vault/kobo_vault/internal/money"
)

const webhookSecret = "sk_test_webhook"

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	cfg := config.Config{
		AppName:        "KoboVault",
		AppEnv:         "test",
		LogLevel:       "error",
		JWTSecret:      "test-jwt-secret",
		AccessTokenTTL: time.Hour,
		PaystackSecret: webhookSecret,
		GatewayTimeout: 2 * time.Second,
		IdempotencyTTL: time.Minute,
		MinDeposit:     money.FromUnits(100),
	}

	app := fiber.New()
	err = Setup(app, Deps{
		Cfg:     cfg,
		Cache:   cache,
		Logger:  logging.Discard(),
		Gateway: gateway.StaticClient{Secret: webhookSecret},
	})
	require.NoError(t, err)

	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any, headers map[string]string) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &decoded)
	}
	return resp.StatusCode, decoded
}

func registerUser(t *testing.T, app *fiber.App, email string) (token, walletNumber string) {
	t.Helper()
	status, body := doJSON(t, app, fiber.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    email,
		"name":     "Test User",
		"password": "correct-horse",
	}, nil)
	require.Equal(t, http.StatusCreated, status, "register response: %v", body)
	return body["access_token"].(string), body["wallet_number"].(string)
}

func settleDeposit(t *testing.T, app *fiber.App, reference string, amountMinor int64) (int, map[string]any) {
	t.Helper()
	payload := []byte(fmt.Sprintf(`{"event":"charge.success","data":{"reference":%q,"amount":%d}}`, reference, amountMinor))
	sig := gateway.SignPayload(webhookSecret, payload)

	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/deposits/webhook", bytes.NewReader(payload))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set("x-paystack-signature", sig)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var decoded map[string]any
	_ = json.Unmarshal(raw, &decoded)
	return resp.StatusCode, decoded
}

func TestRegisterLoginAndBalance(t *testing.T) {
	app := newTestApp(t)

	token, walletNumber := registerUser(t, app, "alice@example.test")
	assert.Len(t, walletNumber, 13)

	status, body := doJSON(t, app, fiber.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "alice@example.test",
		"password": "correct-horse",
	}, nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["access_token"])

	status, body = doJSON(t, app, fiber.MethodGet, "/api/v1/wallet", token, nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, walletNumber, body["wallet_number"])
	assert.EqualValues(t, 0, body["balance"])
}

func TestDepositLifecycleOverHTTP(t *testing.T) {
	app := newTestApp(t)
	token, _ := registerUser(t, app, "bob@example.test")

	status, body := doJSON(t, app, fiber.MethodPost, "/api/v1/deposits", token, map[string]string{
		"amount": "500",
	}, nil)
	require.Equal(t, http.StatusCreated, status, "initiate response: %v", body)
	reference := body["reference"].(string)
	assert.Contains(t, body["authorization_url"], reference)

	status, body = doJSON(t, app, fiber.MethodGet, "/api/v1/deposits/"+reference, token, nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "PENDING", body["status"])

	status, _ = settleDeposit(t, app, reference, 50000)
	require.Equal(t, http.StatusOK, status)

	// Replay must not double-credit.
	status, _ = settleDeposit(t, app, reference, 50000)
	require.Equal(t, http.StatusOK, status)

	status, body = doJSON(t, app, fiber.MethodGet, "/api/v1/wallet", token, nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 500, body["balance"])
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	app := newTestApp(t)

	payload := []byte(`{"event":"charge.success","data":{"reference":"DEP_x","amount":1000}}`)
	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/deposits/webhook", bytes.NewReader(payload))
	req.Header.Set("x-paystack-signature", "deadbeef")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTransferOverHTTP(t *testing.T) {
	app := newTestApp(t)
	senderToken, _ := registerUser(t, app, "carol@example.test")
	_, recipientWallet := registerUser(t, app, "dave@example.test")

	status, body := doJSON(t, app, fiber.MethodPost, "/api/v1/deposits", senderToken, map[string]string{
		"amount": "1000",
	}, nil)
	require.Equal(t, http.StatusCreated, status)
	settleDeposit(t, app, body["reference"].(string), 100000)

	transferBody := map[string]string{
		"wallet_number": recipientWallet,
		"amount":        "400",
	}
	status, body = doJSON(t, app, fiber.MethodPost, "/api/v1/transfers", senderToken, transferBody, map[string]string{
		"Idempotency-Key": "txn-1",
	})
	require.Equal(t, http.StatusCreated, status, "transfer response: %v", body)
	assert.EqualValues(t, 600, body["sender_balance"])
	assert.EqualValues(t, 400, body["recipient_balance"])

	// Same Idempotency-Key replays the stored response instead of moving
	// funds again.
	status, body = doJSON(t, app, fiber.MethodPost, "/api/v1/transfers", senderToken, transferBody, map[string]string{
		"Idempotency-Key": "txn-1",
	})
	require.Equal(t, http.StatusCreated, status)
	assert.EqualValues(t, 600, body["sender_balance"])

	status, body = doJSON(t, app, fiber.MethodGet, "/api/v1/wallet", senderToken, nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 600, body["balance"])
}

func TestTransferRequiresIdempotencyKey(t *testing.T) {
	app := newTestApp(t)
	token, _ := registerUser(t, app, "erin@example.test")

	status, _ := doJSON(t, app, fiber.MethodPost, "/api/v1/transfers", token, map[string]string{
		"wallet_number": "1234567890123",
		"amount":        "10",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestInsufficientFundsOverHTTP(t *testing.T) {
	app := newTestApp(t)
	senderToken, _ := registerUser(t, app, "frank@example.test")
	_, recipientWallet := registerUser(t, app, "grace@example.test")

	status, _ := doJSON(t, app, fiber.MethodPost, "/api/v1/transfers", senderToken, map[string]string{
		"wallet_number": recipientWallet,
		"amount":        "50",
	}, map[string]string{"Idempotency-Key": "txn-poor"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestAPIKeyScopedAccess(t *testing.T) {
	app := newTestApp(t)
	token, walletNumber := registerUser(t, app, "heidi@example.test")

	status, body := doJSON(t, app, fiber.MethodPost, "/api/v1/keys", token, map[string]any{
		"name":        "reporting",
		"permissions": []string{"read"},
		"expiry":      "1D",
	}, nil)
	require.Equal(t, http.StatusCreated, status, "create key response: %v", body)
	secret := body["secret"].(string)
	assert.Contains(t, secret, "sk_live_")

	// Read scope works.
	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/wallet", nil)
	req.Header.Set("X-API-Key", secret)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Transfer scope is missing, so the key is refused.
	status, _ = doJSON(t, app, fiber.MethodPost, "/api/v1/transfers", "", map[string]string{
		"wallet_number": walletNumber,
		"amount":        "10",
	}, map[string]string{"X-API-Key": secret, "Idempotency-Key": "txn-key"})
	assert.Equal(t, http.StatusUnauthorized, status)

	// Keys cannot mint keys.
	status, _ = doJSON(t, app, fiber.MethodPost, "/api/v1/keys", "", map[string]any{
		"name":        "escalation",
		"permissions": []string{"transfer"},
		"expiry":      "1D",
	}, map[string]string{"X-API-Key": secret})
	assert.Equal(t, http.StatusUnauthorized, status)
}
