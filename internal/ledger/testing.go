package ledger

import "github.com/kobo-vault/kobo_vault/internal/money"

// SeedBalance is a test helper that sets a wallet balance directly when using
// the in-memory store.
func SeedBalance(s Store, walletID string, amount money.Money) {
	if mem, ok := s.(*inMemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		if w, exists := mem.wallets[walletID]; exists {
			w.Balance = amount
		}
	}
}
