package wallet

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/kobo-vault/kobo_vault/internal/ledger"
	"github.com/kobo-vault/kobo_vault/internal/money"
)

func TestServiceBalance(t *testing.T) {
	store := ledger.NewInMemory()
	svc := NewService(store)
	ctx := context.Background()

	w := ledger.Wallet{ID: uuid.NewString(), UserID: uuid.NewString(), Number: "1000000000001"}
	if err := store.CreateWallet(ctx, w); err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	ledger.SeedBalance(store, w.ID, money.FromUnits(2_500))

	balance, err := svc.Balance(ctx, w.UserID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Amount.Equal(money.FromUnits(2_500)) {
		t.Fatalf("expected balance 2500, got %s", balance.Amount)
	}
	if balance.WalletNumber != w.Number {
		t.Fatalf("expected wallet number %s, got %s", w.Number, balance.WalletNumber)
	}

	if _, err := svc.Balance(ctx, uuid.NewString()); err != ledger.ErrWalletNotFound {
		t.Fatalf("expected wallet not found, got %v", err)
	}
}

func TestServiceHistory(t *testing.T) {
	store := ledger.NewInMemory()
	svc := NewService(store)
	ctx := context.Background()

	w := ledger.Wallet{ID: uuid.NewString(), UserID: uuid.NewString(), Number: "1000000000001"}
	if err := store.CreateWallet(ctx, w); err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	refs := []string{"DEP_a", "DEP_b", "DEP_c"}
	for _, ref := range refs {
		tx := ledger.Transaction{ID: uuid.NewString(), WalletID: w.ID, Kind: ledger.KindDeposit,
			Amount: money.FromUnits(100), Status: ledger.StatusPending, Reference: ref}
		if err := store.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("create transaction %s: %v", ref, err)
		}
	}

	history, err := svc.History(ctx, w.UserID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(history))
	}
	if history[0].Reference != "DEP_c" || history[2].Reference != "DEP_a" {
		t.Fatalf("history not newest-first: %v, %v", history[0].Reference, history[2].Reference)
	}
}
