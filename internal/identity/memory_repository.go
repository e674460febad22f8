package identity

import (
	"context"
	"sync"

	"github.com/kobo-vault/kobo_vault/internal/ledger"
)

type memoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]User
	byEmail map[string]string
	wallets ledger.Store
}

// NewMemoryRepository constructs an in-memory repository for tests. Wallets
// provisioned during Create are written to the supplied store.
func NewMemoryRepository(wallets ledger.Store) Repository {
	return &memoryRepository{
		byID:    make(map[string]User),
		byEmail: make(map[string]string),
		wallets: wallets,
	}
}

func (r *memoryRepository) Create(ctx context.Context, user User, wallet ledger.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[user.Email]; exists {
		return ErrEmailTaken
	}
	if err := r.wallets.CreateWallet(ctx, wallet); err != nil {
		return err
	}
	r.byID[user.ID] = user
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byID[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return r.byID[id], nil
}
