package ledger

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/kobo-vault/kobo_vault/internal/money"
)

type inMemoryStore struct {
	mu       sync.RWMutex
	wallets  map[string]*Wallet
	byUser   map[string]string
	byNumber map[string]string
	txs      map[string]*Transaction
	byRef    map[string]string
	seq      map[string]int
	nextSeq  int
}

// NewInMemory creates a concurrency-safe in-memory store useful for unit tests.
// Composite operations validate before mutating, so a failed unit leaves no
// partial state behind.
func NewInMemory() Store {
	return &inMemoryStore{
		wallets:  make(map[string]*Wallet),
		byUser:   make(map[string]string),
		byNumber: make(map[string]string),
		txs:      make(map[string]*Transaction),
		byRef:    make(map[string]string),
		seq:      make(map[string]int),
	}
}

func (s *inMemoryStore) CreateWallet(_ context.Context, w Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.wallets[w.ID]; exists {
		return errors.New("wallet id exists")
	}
	if _, exists := s.byUser[w.UserID]; exists {
		return errors.New("user already has a wallet")
	}
	if _, exists := s.byNumber[w.Number]; exists {
		return errors.New("wallet number exists")
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	stored := w
	s.wallets[w.ID] = &stored
	s.byUser[w.UserID] = w.ID
	s.byNumber[w.Number] = w.ID
	return nil
}

func (s *inMemoryStore) WalletByUser(_ context.Context, userID string) (Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byUser[userID]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return *s.wallets[id], nil
}

func (s *inMemoryStore) WalletByNumber(_ context.Context, number string) (Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byNumber[number]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return *s.wallets[id], nil
}

func (s *inMemoryStore) Credit(_ context.Context, walletID string, amount money.Money) (money.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creditLocked(walletID, amount)
}

func (s *inMemoryStore) Debit(_ context.Context, walletID string, amount money.Money) (money.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debitLocked(walletID, amount)
}

func (s *inMemoryStore) creditLocked(walletID string, amount money.Money) (money.Money, error) {
	w, ok := s.wallets[walletID]
	if !ok {
		return money.Money{}, ErrWalletNotFound
	}
	w.Balance = w.Balance.Add(amount)
	return w.Balance, nil
}

func (s *inMemoryStore) debitLocked(walletID string, amount money.Money) (money.Money, error) {
	w, ok := s.wallets[walletID]
	if !ok {
		return money.Money{}, ErrWalletNotFound
	}
	if w.Balance.LessThan(amount) {
		return money.Money{}, ErrInsufficientFunds
	}
	w.Balance = w.Balance.Sub(amount)
	return w.Balance, nil
}

func (s *inMemoryStore) CreateTransaction(_ context.Context, tx Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createTransactionLocked(tx)
}

func (s *inMemoryStore) createTransactionLocked(tx Transaction) error {
	if _, exists := s.byRef[tx.Reference]; exists {
		return ErrDuplicateReference
	}
	if _, exists := s.txs[tx.ID]; exists {
		return errors.New("transaction id exists")
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	stored := tx
	s.txs[tx.ID] = &stored
	s.byRef[tx.Reference] = tx.ID
	s.nextSeq++
	s.seq[tx.ID] = s.nextSeq
	return nil
}

func (s *inMemoryStore) TransactionByReference(_ context.Context, reference string) (Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byRef[reference]
	if !ok {
		return Transaction{}, ErrTransactionNotFound
	}
	return *s.txs[id], nil
}

func (s *inMemoryStore) UpdateTransactionStatus(_ context.Context, id string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateStatusLocked(id, status)
}

func (s *inMemoryStore) updateStatusLocked(id string, status Status) error {
	tx, ok := s.txs[id]
	if !ok {
		return ErrTransactionNotFound
	}
	if tx.Status != StatusPending || (status != StatusSuccess && status != StatusFailed) {
		return ErrInvalidTransition
	}
	tx.Status = status
	return nil
}

func (s *inMemoryStore) AttachGatewayDetails(_ context.Context, id, gatewayReference, checkoutURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return ErrTransactionNotFound
	}
	tx.GatewayReference = gatewayReference
	tx.CheckoutURL = checkoutURL
	return nil
}

func (s *inMemoryStore) TransactionsByWallet(_ context.Context, walletID string) ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Transaction
	for _, tx := range s.txs {
		if tx.WalletID == walletID {
			out = append(out, *tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return s.seq[out[i].ID] > s.seq[out[j].ID]
	})
	return out, nil
}

func (s *inMemoryStore) SettleDeposit(_ context.Context, reference string, amount money.Money) (SettleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byRef[reference]
	if !ok {
		return SettleResult{}, ErrTransactionNotFound
	}
	tx := s.txs[id]

	w, ok := s.wallets[tx.WalletID]
	if !ok {
		return SettleResult{}, ErrWalletNotFound
	}

	if tx.Status == StatusSuccess {
		return SettleResult{Transaction: *tx, WalletBalance: w.Balance, AlreadySettled: true}, nil
	}
	if tx.Status != StatusPending {
		return SettleResult{}, ErrInvalidTransition
	}

	tx.Status = StatusSuccess
	w.Balance = w.Balance.Add(amount)
	return SettleResult{Transaction: *tx, WalletBalance: w.Balance}, nil
}

func (s *inMemoryStore) Transfer(_ context.Context, posting TransferPosting) (TransferResult, error) {
	if !posting.Out.Amount.IsPositive() || !posting.Out.Amount.Equal(posting.In.Amount) {
		return TransferResult{}, errors.New("posting amounts must be positive and equal")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	from, ok := s.wallets[posting.Out.WalletID]
	if !ok {
		return TransferResult{}, ErrWalletNotFound
	}
	to, ok := s.wallets[posting.In.WalletID]
	if !ok {
		return TransferResult{}, ErrWalletNotFound
	}
	if from.Balance.LessThan(posting.Out.Amount) {
		return TransferResult{}, ErrInsufficientFunds
	}
	if _, exists := s.byRef[posting.Out.Reference]; exists {
		return TransferResult{}, ErrDuplicateReference
	}
	if _, exists := s.byRef[posting.In.Reference]; exists {
		return TransferResult{}, ErrDuplicateReference
	}

	from.Balance = from.Balance.Sub(posting.Out.Amount)
	to.Balance = to.Balance.Add(posting.In.Amount)
	if err := s.createTransactionLocked(posting.Out); err != nil {
		return TransferResult{}, err
	}
	if err := s.createTransactionLocked(posting.In); err != nil {
		return TransferResult{}, err
	}

	return TransferResult{FromBalance: from.Balance, ToBalance: to.Balance}, nil
}
