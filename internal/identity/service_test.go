package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kobo-vault/kobo_vault/internal/ledger"
	"github.com/kobo-vault/kobo_vault/internal/money"
)

func newTestService(t *testing.T) (*Service, ledger.Store) {
	t.Helper()
	store := ledger.NewInMemory()
	return NewService(NewMemoryRepository(store)), store
}

func TestRegisterProvisionsWallet(t *testing.T) {
	svc, store := newTestService(t)

	user, wallet, err := svc.Register(context.Background(), RegisterInput{
		Email:    "alice@example.test",
		Name:     "Alice",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	assert.Equal(t, user.ID, wallet.UserID)
	assert.Len(t, wallet.Number, 13)
	assert.True(t, wallet.Balance.Equal(money.Zero()), "new wallet must start at zero")

	stored, err := store.WalletByUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, wallet.ID, stored.ID)

	byNumber, err := store.WalletByNumber(context.Background(), wallet.Number)
	require.NoError(t, err)
	assert.Equal(t, wallet.ID, byNumber.ID)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.Register(context.Background(), RegisterInput{
		Email:    "bob@example.test",
		Name:     "Bob",
		Password: "short",
	})
	assert.Error(t, err)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)

	input := RegisterInput{Email: "carol@example.test", Name: "Carol", Password: "correct-horse"}
	_, _, err := svc.Register(context.Background(), input)
	require.NoError(t, err)

	_, _, err = svc.Register(context.Background(), input)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newTestService(t)

	user, _, err := svc.Register(context.Background(), RegisterInput{
		Email:    "dave@example.test",
		Name:     "Dave",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	got, err := svc.Authenticate(context.Background(), Credentials{Email: "dave@example.test", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Authenticate(context.Background(), Credentials{Email: "dave@example.test", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), Credentials{Email: "nobody@example.test", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
