package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kobo-vault/kobo_vault/internal/identity"
)

func TestIssueAndVerify(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	tok, err := svc.Issue(identity.User{ID: "user-1", Email: "a@b.test"})
	require.NoError(t, err)
	assert.NotEmpty(t, tok.AccessToken)
	assert.Equal(t, int64(3600), tok.ExpiresIn)

	sub, err := svc.Verify(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	tok, err := NewService("secret-a", time.Hour).Issue(identity.User{ID: "user-1"})
	require.NoError(t, err)

	_, err = NewService("secret-b", time.Hour).Verify(tok.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	svc := &Service{secret: []byte("test-secret"), ttl: -time.Minute}
	tok, err := svc.Issue(identity.User{ID: "user-1"})
	require.NoError(t, err)

	_, err = svc.Verify(tok.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := NewService("test-secret", time.Hour).Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
