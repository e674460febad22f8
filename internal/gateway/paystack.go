package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kobo-vault/kobo_vault/internal/money"
)

// DefaultBaseURL is the production Paystack API endpoint.
const DefaultBaseURL = "https://api.paystack.co"

// PaystackClient talks to the Paystack REST API.
type PaystackClient struct {
	secret  string
	baseURL string
	http    *http.Client
}

// NewPaystackClient builds a Paystack connector. The timeout bounds every
// outbound call in addition to the caller's context.
func NewPaystackClient(secret, baseURL string, timeout time.Duration) *PaystackClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PaystackClient{
		secret:  secret,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type initializeRequest struct {
	Email     string `json:"email"`
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// InitializeCheckout creates a hosted-checkout transaction. The amount is sent
// in kobo as Paystack expects.
func (c *PaystackClient) InitializeCheckout(ctx context.Context, email string, amount money.Money, reference string) (Checkout, error) {
	minor, err := amount.MinorUnits()
	if err != nil {
		return Checkout{}, err
	}

	payload, err := json.Marshal(initializeRequest{Email: email, Amount: minor, Reference: reference})
	if err != nil {
		return Checkout{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transaction/initialize", bytes.NewReader(payload))
	if err != nil {
		return Checkout{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Checkout{}, fmt.Errorf("paystack initialize: %w", err)
	}
	defer resp.Body.Close()

	var body initializeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Checkout{}, fmt.Errorf("paystack initialize: decode response: %w", err)
	}
	if !body.Status {
		if body.Message == "" {
			body.Message = "initialization failed"
		}
		return Checkout{}, fmt.Errorf("paystack initialize: %s", body.Message)
	}

	return Checkout{
		AuthorizationURL: body.Data.AuthorizationURL,
		AccessCode:       body.Data.AccessCode,
		GatewayReference: body.Data.Reference,
	}, nil
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status    string `json:"status"`
		Amount    int64  `json:"amount"`
		Reference string `json:"reference"`
	} `json:"data"`
}

// VerifyTransaction fetches the processor-side state of a transaction. The
// reported amount is converted from kobo back to the ledger unit.
func (c *PaystackClient) VerifyTransaction(ctx context.Context, reference string) (Verification, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transaction/verify/"+reference, nil)
	if err != nil {
		return Verification{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return Verification{}, fmt.Errorf("paystack verify: %w", err)
	}
	defer resp.Body.Close()

	var body verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Verification{}, fmt.Errorf("paystack verify: decode response: %w", err)
	}
	if !body.Status {
		if body.Message == "" {
			body.Message = "verification failed"
		}
		return Verification{}, fmt.Errorf("paystack verify: %s", body.Message)
	}

	return Verification{
		Status:    body.Data.Status,
		Amount:    money.FromMinorUnits(body.Data.Amount),
		Reference: body.Data.Reference,
	}, nil
}

// VerifySignature checks the x-paystack-signature header against the raw
// webhook payload using the shared secret.
func (c *PaystackClient) VerifySignature(payload []byte, signature string) bool {
	return signatureMatches(c.secret, payload, signature)
}
