package deposit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kobo-vault/kobo_vault/internal/gateway"
	"github.com/kobo-vault/kobo_vault/internal/identity"
	"github.com/kobo-vault/kobo_vault/internal/ledger"
	"github.com/kobo-vault/kobo_vault/internal/money"
)

const webhookSecret = "whsec_test"

type env struct {
	store ledger.Store
	users identity.Repository
	svc   *Service
}

func newEnv(t *testing.T, gw gateway.Client) env {
	t.Helper()
	store := ledger.NewInMemory()
	users := identity.NewMemoryRepository(store)
	svc := NewService(store, users, gw, nil, money.FromUnits(100), time.Second)
	return env{store: store, users: users, svc: svc}
}

func registerUser(t *testing.T, e env) (identity.User, ledger.Wallet) {
	t.Helper()
	idSvc := identity.NewService(e.users)
	user, wallet, err := idSvc.Register(context.Background(), identity.RegisterInput{
		Email:    fmt.Sprintf("user-%d@example.com", time.Now().UnixNano()),
		Name:     "Test User",
		Password: "correct horse",
	})
	require.NoError(t, err)
	return user, wallet
}

func chargeSuccessPayload(reference string, minor int64) []byte {
	payload, _ := json.Marshal(map[string]any{
		"event": "charge.success",
		"data":  map[string]any{"reference": reference, "amount": minor},
	})
	return payload
}

func TestDepositLifecycle(t *testing.T) {
	e := newEnv(t, gateway.StaticClient{Secret: webhookSecret})
	user, wallet := registerUser(t, e)
	ctx := context.Background()

	res, err := e.svc.Initiate(ctx, user.ID, money.FromUnits(5_000))
	require.NoError(t, err)
	assert.NotEmpty(t, res.Reference)
	assert.NotEmpty(t, res.AuthorizationURL)

	status, err := e.svc.Status(ctx, res.Reference)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPending, status.Status)

	payload := chargeSuccessPayload(res.Reference, 500_000)
	require.NoError(t, e.svc.Settle(ctx, payload, gateway.SignPayload(webhookSecret, payload)))

	w, err := e.store.WalletByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(money.FromUnits(5_000)), "balance %s", w.Balance)

	status, err = e.svc.Status(ctx, res.Reference)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusSuccess, status.Status)

	// Replaying the identical delivery must not credit twice.
	require.NoError(t, e.svc.Settle(ctx, payload, gateway.SignPayload(webhookSecret, payload)))
	w, err = e.store.WalletByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(money.FromUnits(5_000)), "balance %s after replay", w.Balance)

	entries, err := e.store.TransactionsByWallet(ctx, wallet.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.KindDeposit, entries[0].Kind)
}

func TestSettleRejectsInvalidSignature(t *testing.T) {
	e := newEnv(t, gateway.StaticClient{Secret: webhookSecret})
	user, _ := registerUser(t, e)
	ctx := context.Background()

	res, err := e.svc.Initiate(ctx, user.ID, money.FromUnits(5_000))
	require.NoError(t, err)

	payload := chargeSuccessPayload(res.Reference, 500_000)
	err = e.svc.Settle(ctx, payload, gateway.SignPayload("wrong-secret", payload))
	assert.ErrorIs(t, err, gateway.ErrInvalidSignature)

	w, err := e.store.WalletByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(money.Zero()), "wallet credited despite bad signature")

	status, err := e.svc.Status(ctx, res.Reference)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPending, status.Status)
}

func TestSettleIgnoresOtherEvents(t *testing.T) {
	e := newEnv(t, gateway.StaticClient{Secret: webhookSecret})
	user, _ := registerUser(t, e)
	ctx := context.Background()

	res, err := e.svc.Initiate(ctx, user.ID, money.FromUnits(5_000))
	require.NoError(t, err)

	payload, _ := json.Marshal(map[string]any{
		"event": "charge.failed",
		"data":  map[string]any{"reference": res.Reference, "amount": 500_000},
	})
	require.NoError(t, e.svc.Settle(ctx, payload, gateway.SignPayload(webhookSecret, payload)))

	status, err := e.svc.Status(ctx, res.Reference)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPending, status.Status)
}

func TestSettleUnknownReference(t *testing.T) {
	e := newEnv(t, gateway.StaticClient{Secret: webhookSecret})
	registerUser(t, e)

	payload := chargeSuccessPayload("DEP_unknown", 100)
	err := e.svc.Settle(context.Background(), payload, gateway.SignPayload(webhookSecret, payload))
	assert.ErrorIs(t, err, ledger.ErrTransactionNotFound)
}

func TestInitiateEnforcesMinimum(t *testing.T) {
	e := newEnv(t, gateway.StaticClient{})
	user, _ := registerUser(t, e)

	_, err := e.svc.Initiate(context.Background(), user.ID, money.FromUnits(50))
	assert.ErrorIs(t, err, ErrAmountBelowMinimum)

	_, err = e.svc.Initiate(context.Background(), user.ID, money.Zero())
	assert.ErrorIs(t, err, ErrAmountBelowMinimum)
}

func TestInitiateUnknownUser(t *testing.T) {
	e := newEnv(t, gateway.StaticClient{})
	_, err := e.svc.Initiate(context.Background(), "b5a9e0d2-0000-0000-0000-000000000000", money.FromUnits(500))
	assert.ErrorIs(t, err, identity.ErrUserNotFound)
}

type failingGateway struct {
	gateway.StaticClient
}

func (failingGateway) InitializeCheckout(context.Context, string, money.Money, string) (gateway.Checkout, error) {
	return gateway.Checkout{}, errors.New("connection reset")
}

func TestInitiateGatewayFailureLeavesPending(t *testing.T) {
	e := newEnv(t, failingGateway{gateway.StaticClient{Secret: webhookSecret}})
	user, wallet := registerUser(t, e)
	ctx := context.Background()

	_, err := e.svc.Initiate(ctx, user.ID, money.FromUnits(5_000))
	require.ErrorIs(t, err, ErrGatewayFailure)

	// The entry must survive as PENDING so a later webhook can settle it.
	entries, err := e.store.TransactionsByWallet(ctx, wallet.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.StatusPending, entries[0].Status)

	payload := chargeSuccessPayload(entries[0].Reference, 500_000)
	require.NoError(t, e.svc.Settle(ctx, payload, gateway.SignPayload(webhookSecret, payload)))

	w, err := e.store.WalletByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(money.FromUnits(5_000)))
}

func TestStatusUnknownReference(t *testing.T) {
	e := newEnv(t, gateway.StaticClient{})
	_, err := e.svc.Status(context.Background(), "DEP_missing")
	assert.ErrorIs(t, err, ledger.ErrTransactionNotFound)
}
