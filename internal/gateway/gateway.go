// Package gateway is the boundary to the external payment processor. The
// ledger core only depends on the Client interface; the Paystack HTTP
// implementation and a static stub live alongside it.
package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"

	"github.com/kobo-vault/kobo_vault/internal/money"
)

// ErrInvalidSignature indicates a webhook payload whose signature does not
// match the shared secret. Callers must not mutate any state on this error.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Checkout is the hosted-checkout handle returned by the processor.
type Checkout struct {
	AuthorizationURL string
	AccessCode       string
	GatewayReference string
}

// Verification is the processor's view of a transaction.
type Verification struct {
	Status    string
	Amount    money.Money
	Reference string
}

// Client represents a connector to the external payment processor. Amounts
// crossing this boundary are converted to the processor's minor unit.
type Client interface {
	InitializeCheckout(ctx context.Context, email string, amount money.Money, reference string) (Checkout, error)
	VerifyTransaction(ctx context.Context, reference string) (Verification, error)
	VerifySignature(payload []byte, signature string) bool
}

// SignPayload computes the hex-encoded HMAC-SHA512 signature the processor
// attaches to webhook deliveries.
func SignPayload(secret string, payload []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func signatureMatches(secret string, payload []byte, signature string) bool {
	expected := SignPayload(secret, payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}
