package apikey

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const secretPrefix = "sk_live_"

// Service manages API key issuance, rollover and validation.
type Service struct {
	repo Repository
}

// NewService creates a new API key service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput captures data required to issue a key.
type CreateInput struct {
	UserID      string
	Name        string
	Permissions []string
	Expiry      string
}

// Create issues a new key for the user, enforcing the per-user active-key cap
// and the known permission set.
func (s *Service) Create(ctx context.Context, input CreateInput) (Key, error) {
	for _, p := range input.Permissions {
		switch p {
		case PermissionDeposit, PermissionTransfer, PermissionRead:
		default:
			return Key{}, fmt.Errorf("%w: %s", ErrInvalidPermission, p)
		}
	}

	now := time.Now().UTC()
	expiresAt, err := expiryFrom(now, input.Expiry)
	if err != nil {
		return Key{}, err
	}

	active, err := s.repo.CountActive(ctx, input.UserID, now)
	if err != nil {
		return Key{}, err
	}
	if active >= maxActiveKeys {
		return Key{}, ErrKeyLimit
	}

	secret, err := generateSecret()
	if err != nil {
		return Key{}, err
	}

	key := Key{
		ID:          uuid.NewString(),
		UserID:      input.UserID,
		Name:        input.Name,
		Secret:      secret,
		Permissions: input.Permissions,
		ExpiresAt:   expiresAt,
		CreatedAt:   now,
	}
	if err := s.repo.Create(ctx, key); err != nil {
		return Key{}, err
	}
	return key, nil
}

// Rollover issues a replacement for an expired key, inheriting its name and
// permissions. Keys that are still live cannot be rolled over.
func (s *Service) Rollover(ctx context.Context, userID, keyID, expiry string) (Key, error) {
	old, err := s.repo.FindByID(ctx, keyID)
	if err != nil {
		return Key{}, err
	}
	if old.UserID != userID {
		return Key{}, ErrKeyNotFound
	}

	now := time.Now().UTC()
	if old.ExpiresAt.After(now) {
		return Key{}, ErrKeyNotExpired
	}

	return s.Create(ctx, CreateInput{
		UserID:      userID,
		Name:        old.Name,
		Permissions: old.Permissions,
		Expiry:      expiry,
	})
}

// Validate resolves a presented secret to its owning user, checking liveness
// and, when non-empty, the required permission.
func (s *Service) Validate(ctx context.Context, secret, requiredPermission string) (string, error) {
	key, err := s.repo.FindBySecret(ctx, secret)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	if key.Revoked {
		return "", ErrKeyRevoked
	}
	if !key.ExpiresAt.After(now) {
		return "", ErrKeyExpired
	}
	if requiredPermission != "" && !key.HasPermission(requiredPermission) {
		return "", fmt.Errorf("%w: %s", ErrPermissionDenied, requiredPermission)
	}
	return key.UserID, nil
}

func expiryFrom(now time.Time, code string) (time.Time, error) {
	switch code {
	case "1H":
		return now.Add(time.Hour), nil
	case "1D":
		return now.Add(24 * time.Hour), nil
	case "1M":
		return now.AddDate(0, 1, 0), nil
	case "1Y":
		return now.AddDate(1, 0, 0), nil
	default:
		return time.Time{}, ErrInvalidExpiry
	}
}

func generateSecret() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return secretPrefix + hex.EncodeToString(raw), nil
}
