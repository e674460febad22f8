package apikey

import (
	"errors"
	"time"
)

// Permissions an API key can carry.
const (
	PermissionDeposit  = "deposit"
	PermissionTransfer = "transfer"
	PermissionRead     = "read"
)

// maxActiveKeys bounds the number of live keys per user.
const maxActiveKeys = 5

var (
	// ErrKeyNotFound occurs when no key matches the lookup.
	ErrKeyNotFound = errors.New("api key not found")

	// ErrKeyLimit occurs when a user already holds the maximum number of active keys.
	ErrKeyLimit = errors.New("maximum number of active api keys reached")

	// ErrInvalidPermission indicates an unknown permission name.
	ErrInvalidPermission = errors.New("invalid permission")

	// ErrInvalidExpiry indicates an unsupported expiry code.
	ErrInvalidExpiry = errors.New("invalid expiry, use 1H, 1D, 1M or 1Y")

	// ErrKeyExpired indicates the key's expiry has passed.
	ErrKeyExpired = errors.New("api key expired")

	// ErrKeyRevoked indicates the key was revoked.
	ErrKeyRevoked = errors.New("api key revoked")

	// ErrKeyNotExpired protects rollover: only expired keys can be rolled over.
	ErrKeyNotExpired = errors.New("api key is not expired yet")

	// ErrPermissionDenied indicates the key lacks the required permission.
	ErrPermissionDenied = errors.New("api key lacks required permission")
)

// Key is an issued API credential.
type Key struct {
	ID          string
	UserID      string
	Name        string
	Secret      string
	Permissions []string
	Revoked     bool
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// Active reports whether the key is usable at the given instant.
func (k Key) Active(now time.Time) bool {
	return !k.Revoked && k.ExpiresAt.After(now)
}

// HasPermission reports whether the key grants the named permission.
func (k Key) HasPermission(permission string) bool {
	for _, p := range k.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}
