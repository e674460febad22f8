package gateway

import (
	"context"

	"github.com/google/uuid"

	"github.com/kobo-vault/kobo_vault/internal/money"
)

// StaticClient simulates a processor that approves every checkout. Signature
// verification is real when a secret is configured, which lets tests exercise
// the webhook path end to end.
type StaticClient struct {
	Secret string
}

// InitializeCheckout approves the request with a synthetic checkout URL.
func (s StaticClient) InitializeCheckout(_ context.Context, _ string, _ money.Money, reference string) (Checkout, error) {
	return Checkout{
		AuthorizationURL: "https://checkout.example.test/" + reference,
		AccessCode:       uuid.NewString(),
		GatewayReference: reference,
	}, nil
}

// VerifyTransaction reports the transaction as successful.
func (s StaticClient) VerifyTransaction(_ context.Context, reference string) (Verification, error) {
	return Verification{Status: "success", Reference: reference}, nil
}

// VerifySignature validates against the configured secret, or accepts
// everything when none is set.
func (s StaticClient) VerifySignature(payload []byte, signature string) bool {
	if s.Secret == "" {
		return true
	}
	return signatureMatches(s.Secret, payload, signature)
}
