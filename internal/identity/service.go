package identity

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kobo-vault/kobo_vault/internal/ledger"
	"github.com/kobo-vault/kobo_vault/internal/money"
)

// ErrInvalidCredentials indicates a failed email/password check.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service manages account provisioning and credential checks.
type Service struct {
	repo Repository
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RegisterInput captures data required to open an account.
type RegisterInput struct {
	Email    string
	Name     string
	Password string
}

// Register creates a user and their wallet in one unit. The wallet starts at
// zero balance and carries a freshly generated wallet number.
func (s *Service) Register(ctx context.Context, input RegisterInput) (User, ledger.Wallet, error) {
	if len(input.Password) < 8 {
		return User{}, ledger.Wallet{}, errors.New("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, ledger.Wallet{}, err
	}

	now := time.Now().UTC()
	user := User{
		ID:           uuid.NewString(),
		Email:        input.Email,
		Name:         input.Name,
		PasswordHash: hash,
		CreatedAt:    now,
	}
	wallet := ledger.Wallet{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Number:    generateWalletNumber(),
		Balance:   money.Zero(),
		CreatedAt: now,
	}

	if err := s.repo.Create(ctx, user, wallet); err != nil {
		return User{}, ledger.Wallet{}, err
	}

	return user, wallet, nil
}

// Authenticate verifies email/password credentials.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	user, err := s.repo.FindByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(creds.Password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// generateWalletNumber builds a 13-digit number from the current timestamp and
// a random suffix.
func generateWalletNumber() string {
	ms := time.Now().UnixMilli() % 10_000_000_000
	suffix, err := rand.Int(rand.Reader, big.NewInt(1000))
	if err != nil {
		suffix = big.NewInt(ms % 1000)
	}
	return fmt.Sprintf("%010d%03d", ms, suffix.Int64())
}
