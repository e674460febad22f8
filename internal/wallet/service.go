package wallet

import (
	"context"
	"time"

	"github.com/kobo-vault/kobo_vault/internal/ledger"
	"github.com/kobo-vault/kobo_vault/internal/money"
)

// Service exposes the read side of a user's wallet. Every read goes through
// the store; balances are never cached in process.
type Service struct {
	store ledger.Store
}

// NewService builds a wallet service instance.
func NewService(store ledger.Store) *Service {
	return &Service{store: store}
}

// Balance encapsulates available funds for a wallet.
type Balance struct {
	WalletNumber string
	Amount       money.Money
	AsOf         time.Time
}

// Balance returns the current balance for the user's wallet.
func (s *Service) Balance(ctx context.Context, userID string) (Balance, error) {
	w, err := s.store.WalletByUser(ctx, userID)
	if err != nil {
		return Balance{}, err
	}
	return Balance{WalletNumber: w.Number, Amount: w.Balance, AsOf: time.Now().UTC()}, nil
}

// History lists the wallet's ledger entries, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]ledger.Transaction, error) {
	w, err := s.store.WalletByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.store.TransactionsByWallet(ctx, w.ID)
}
