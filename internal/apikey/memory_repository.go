package apikey

import (
	"context"
	"errors"
	"sync"
	"time"
)

type memoryRepository struct {
	mu       sync.RWMutex
	byID     map[string]Key
	bySecret map[string]string
}

// NewMemoryRepository constructs an in-memory repository for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		byID:     make(map[string]Key),
		bySecret: make(map[string]string),
	}
}

func (r *memoryRepository) Create(_ context.Context, key Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.bySecret[key.Secret]; exists {
		return errors.New("api key secret exists")
	}
	r.byID[key.ID] = key
	r.bySecret[key.Secret] = key.ID
	return nil
}

func (r *memoryRepository) FindBySecret(_ context.Context, secret string) (Key, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.bySecret[secret]
	if !ok {
		return Key{}, ErrKeyNotFound
	}
	return r.byID[id], nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (Key, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.byID[id]
	if !ok {
		return Key{}, ErrKeyNotFound
	}
	return key, nil
}

func (r *memoryRepository) CountActive(_ context.Context, userID string, now time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, key := range r.byID {
		if key.UserID == userID && key.Active(now) {
			count++
		}
	}
	return count, nil
}
