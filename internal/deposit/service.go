package deposit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kobo-vault/kobo_vault/internal/gateway"
	"github.com/kobo-vault/kobo_vault/internal/identity"
	"github.com/kobo-vault/kobo_vault/internal/ledger"
	"github.com/kobo-vault/kobo_vault/internal/money"
	"github.com/kobo-vault/kobo_vault/internal/notification"
)

var (
	// ErrAmountBelowMinimum indicates a deposit below the configured floor.
	ErrAmountBelowMinimum = errors.New("amount below minimum deposit")

	// ErrGatewayFailure indicates the processor could not be reached or rejected
	// the initiation. The deposit entry stays PENDING and may still settle via a
	// later webhook, so callers may retry the status query.
	ErrGatewayFailure = errors.New("payment gateway failure")
)

// referenceAttempts bounds regeneration when a reference collides. Collisions
// are astronomically unlikely; repeated ones point at a systemic fault.
const referenceAttempts = 3

const eventChargeSuccess = "charge.success"

// Service orchestrates external deposits: initiation against the processor and
// settlement on webhook confirmation. Settlement idempotency is keyed on the
// deposit reference.
type Service struct {
	store          ledger.Store
	users          identity.Repository
	gateway        gateway.Client
	notifier       notification.Notifier
	minAmount      money.Money
	gatewayTimeout time.Duration
}

// NewService constructs a deposit service.
func NewService(store ledger.Store, users identity.Repository, gw gateway.Client, notifier notification.Notifier, minAmount money.Money, gatewayTimeout time.Duration) *Service {
	if gatewayTimeout <= 0 {
		gatewayTimeout = 30 * time.Second
	}
	return &Service{
		store:          store,
		users:          users,
		gateway:        gw,
		notifier:       notifier,
		minAmount:      minAmount,
		gatewayTimeout: gatewayTimeout,
	}
}

// InitiateResult is returned to the caller so they can complete checkout.
type InitiateResult struct {
	Reference        string
	AuthorizationURL string
}

// Initiate records a PENDING deposit and asks the processor for a hosted
// checkout. A processor failure leaves the entry PENDING; the webhook or a
// status query can still resolve it.
func (s *Service) Initiate(ctx context.Context, userID string, amount money.Money) (InitiateResult, error) {
	if !amount.IsPositive() || amount.LessThan(s.minAmount) {
		return InitiateResult{}, ErrAmountBelowMinimum
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return InitiateResult{}, err
	}
	wallet, err := s.store.WalletByUser(ctx, userID)
	if err != nil {
		return InitiateResult{}, err
	}

	tx := ledger.Transaction{
		WalletID:    wallet.ID,
		Kind:        ledger.KindDeposit,
		Amount:      amount,
		Status:      ledger.StatusPending,
		Description: "Wallet deposit via Paystack",
	}
	for attempt := 0; ; attempt++ {
		tx.ID = uuid.NewString()
		tx.Reference = newReference()
		err = s.store.CreateTransaction(ctx, tx)
		if err == nil {
			break
		}
		if !errors.Is(err, ledger.ErrDuplicateReference) || attempt+1 >= referenceAttempts {
			return InitiateResult{}, fmt.Errorf("allocate deposit reference: %w", err)
		}
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	checkout, err := s.gateway.InitializeCheckout(gwCtx, user.Email, amount, tx.Reference)
	if err != nil {
		return InitiateResult{}, fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}

	if err := s.store.AttachGatewayDetails(ctx, tx.ID, checkout.GatewayReference, checkout.AuthorizationURL); err != nil {
		return InitiateResult{}, err
	}

	return InitiateResult{Reference: tx.Reference, AuthorizationURL: checkout.AuthorizationURL}, nil
}

type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
	} `json:"data"`
}

// Settle processes a processor webhook delivery. The signature check runs
// before anything else; nothing is mutated when it fails. Event types other
// than charge.success are acknowledged without state change. Replays of an
// already settled reference are no-ops.
func (s *Service) Settle(ctx context.Context, payload []byte, signature string) error {
	if !s.gateway.VerifySignature(payload, signature) {
		return gateway.ErrInvalidSignature
	}

	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("decode webhook payload: %w", err)
	}
	if event.Event != eventChargeSuccess {
		return nil
	}

	amount := money.FromMinorUnits(event.Data.Amount)
	res, err := s.store.SettleDeposit(ctx, event.Data.Reference, amount)
	if err != nil {
		return err
	}

	if !res.AlreadySettled && s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindDepositSettled,
			Destination: res.Transaction.WalletID,
			Body:        fmt.Sprintf("Deposit %s of %s settled", res.Transaction.Reference, amount),
		})
	}

	return nil
}

// StatusResult reports the current state of a deposit.
type StatusResult struct {
	Reference string
	Status    ledger.Status
	Amount    money.Money
}

// Status fetches the deposit state by reference.
func (s *Service) Status(ctx context.Context, reference string) (StatusResult, error) {
	tx, err := s.store.TransactionByReference(ctx, reference)
	if err != nil {
		return StatusResult{}, err
	}
	return StatusResult{Reference: tx.Reference, Status: tx.Status, Amount: tx.Amount}, nil
}

// newReference builds a reference of the form DEP_<unix-ms>_<suffix>. The
// suffix comes from a UUID, so collisions require a duplicated timestamp and a
// 36-bit random match.
func newReference() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("DEP_%d_%s", time.Now().UnixMilli(), suffix)
}
