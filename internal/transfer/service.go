package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kobo-vault/kobo_vault/internal/ledger"
	"github.com/kobo-vault/kobo_vault/internal/money"
	"github.com/kobo-vault/kobo_vault/internal/notification"
)

// ErrSelfTransfer indicates sender and recipient resolve to the same wallet.
var ErrSelfTransfer = errors.New("cannot transfer to own wallet")

// Service moves funds between wallets. Transfers settle synchronously: the
// debit, the credit and both ledger entries commit as one unit or not at all.
type Service struct {
	store    ledger.Store
	notifier notification.Notifier
}

// NewService constructs a transfer service.
func NewService(store ledger.Store, notifier notification.Notifier) *Service {
	return &Service{store: store, notifier: notifier}
}

// Input captures the data needed to move funds.
type Input struct {
	SenderUserID          string
	RecipientWalletNumber string
	Amount                money.Money
}

// Result describes a completed transfer.
type Result struct {
	SenderBalance    money.Money
	RecipientBalance money.Money
	OutReference     string
	InReference      string
	CompletedAt      time.Time
}

// Transfer debits the sender's wallet and credits the recipient's, appending a
// TRANSFER_OUT and a TRANSFER_IN entry. The balance check before posting is
// advisory; the store's atomic debit is the authoritative guard.
func (s *Service) Transfer(ctx context.Context, input Input) (Result, error) {
	if !input.Amount.IsPositive() {
		return Result{}, fmt.Errorf("amount must be positive")
	}

	sender, err := s.store.WalletByUser(ctx, input.SenderUserID)
	if err != nil {
		return Result{}, err
	}
	recipient, err := s.store.WalletByNumber(ctx, input.RecipientWalletNumber)
	if err != nil {
		return Result{}, err
	}
	if sender.ID == recipient.ID {
		return Result{}, ErrSelfTransfer
	}
	if sender.Balance.LessThan(input.Amount) {
		return Result{}, ledger.ErrInsufficientFunds
	}

	base := newReferenceBase()
	now := time.Now().UTC()
	posting := ledger.TransferPosting{
		Out: ledger.Transaction{
			ID:                    uuid.NewString(),
			WalletID:              sender.ID,
			Kind:                  ledger.KindTransferOut,
			Amount:                input.Amount,
			Status:                ledger.StatusSuccess,
			Reference:             base + "_OUT",
			SenderID:              sender.UserID,
			ReceiverID:            recipient.UserID,
			RecipientWalletNumber: recipient.Number,
			Description:           fmt.Sprintf("Transfer to %s", recipient.Number),
			CreatedAt:             now,
		},
		In: ledger.Transaction{
			ID:          uuid.NewString(),
			WalletID:    recipient.ID,
			Kind:        ledger.KindTransferIn,
			Amount:      input.Amount,
			Status:      ledger.StatusSuccess,
			Reference:   base + "_IN",
			SenderID:    sender.UserID,
			ReceiverID:  recipient.UserID,
			Description: fmt.Sprintf("Transfer from %s", sender.Number),
			CreatedAt:   now,
		},
	}

	res, err := s.store.Transfer(ctx, posting)
	if err != nil {
		return Result{}, err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindTransferReceived,
			Destination: recipient.UserID,
			Body:        fmt.Sprintf("You received %s from wallet %s", input.Amount, sender.Number),
		})
	}

	return Result{
		SenderBalance:    res.FromBalance,
		RecipientBalance: res.ToBalance,
		OutReference:     posting.Out.Reference,
		InReference:      posting.In.Reference,
		CompletedAt:      now,
	}, nil
}

func newReferenceBase() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("TRF_%d_%s", time.Now().UnixMilli(), suffix)
}
