package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankenlab/frankend/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestUser(t *testing.T, s *Store, email string) *types.User {
	t.Helper()
	user := &types.User{
		Email:        email,
		Name:         "Test User",
		PasswordHash: "hash",
		Credits:      100,
	}
	require.NoError(t, NewUserStore(s).CreateUser(user))
	return user
}

func TestCreateAndGetUser(t *testing.T) {
	s := newTestStore(t)
	users := NewUserStore(s)

	user := createTestUser(t, s, "mary@example.com")
	assert.NotEmpty(t, user.ID)

	got, err := users.GetUser(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "mary@example.com", got.Email)
	assert.Equal(t, 100.0, got.Credits)

	byEmail, err := users.GetUserByEmail("mary@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	users := NewUserStore(s)

	createTestUser(t, s, "dup@example.com")
	err := users.CreateUser(&types.User{
		Email:        "dup@example.com",
		Name:         "Other",
		PasswordHash: "hash",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestGetUserNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := NewUserStore(s).GetUser("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdjustCredits(t *testing.T) {
	s := newTestStore(t)
	users := NewUserStore(s)
	user := createTestUser(t, s, "credits@example.com")

	balance, err := users.AdjustCredits(user.ID, -30)
	require.NoError(t, err)
	assert.Equal(t, 70.0, balance)

	balance, err = users.AdjustCredits(user.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 80.0, balance)
}

func TestAdjustCreditsInsufficient(t *testing.T) {
	s := newTestStore(t)
	users := NewUserStore(s)
	user := createTestUser(t, s, "broke@example.com")

	_, err := users.AdjustCredits(user.ID, -100.01)
	assert.ErrorIs(t, err, ErrInsufficientCredits)

	// Balance unchanged after the failed debit.
	got, err := users.GetUser(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.Credits)
}

func TestDebitCreditsBelowZero(t *testing.T) {
	s := newTestStore(t)
	users := NewUserStore(s)
	user := createTestUser(t, s, "overdrawn@example.com")

	balance, err := users.DebitCredits(user.ID, 130)
	require.NoError(t, err)
	assert.Equal(t, -30.0, balance)

	_, err = users.DebitCredits("missing", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdjustCreditsUnknownUser(t *testing.T) {
	s := newTestStore(t)

	_, err := NewUserStore(s).AdjustCredits("missing", -1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTokenLifecycle(t *testing.T) {
	s := newTestStore(t)
	users := NewUserStore(s)
	user := createTestUser(t, s, "token@example.com")

	token := &types.AuthToken{
		Token:     "tok-1",
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(time.Hour).UTC(),
	}
	require.NoError(t, users.CreateToken(token))

	got, err := users.GetToken("tok-1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.UserID)

	require.NoError(t, users.DeleteToken("tok-1"))
	_, err = users.GetToken("tok-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteExpiredTokens(t *testing.T) {
	s := newTestStore(t)
	users := NewUserStore(s)
	user := createTestUser(t, s, "expiry@example.com")

	require.NoError(t, users.CreateToken(&types.AuthToken{
		Token: "stale", UserID: user.ID,
		ExpiresAt: time.Now().Add(-time.Hour).UTC(),
	}))
	require.NoError(t, users.CreateToken(&types.AuthToken{
		Token: "fresh", UserID: user.ID,
		ExpiresAt: time.Now().Add(time.Hour).UTC(),
	}))

	require.NoError(t, users.DeleteExpiredTokens(time.Now()))

	_, err := users.GetToken("stale")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = users.GetToken("fresh")
	assert.NoError(t, err)
}

func TestProviderKeyUpsert(t *testing.T) {
	s := newTestStore(t)
	users := NewUserStore(s)
	user := createTestUser(t, s, "keys@example.com")

	key := &types.ProviderKey{
		Provider: "openai",
		Hint:     "sk-...abcd",
		Secret:   &types.EncryptedPayload{Version: 1, Recipient: "age1x", Ciphertext: "c1"},
	}
	require.NoError(t, users.UpsertProviderKey(user.ID, key))

	got, err := users.GetProviderKey(user.ID, "openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-...abcd", got.Hint)
	require.NotNil(t, got.Secret)
	assert.Equal(t, "c1", got.Secret.Ciphertext)

	// Upsert replaces the stored secret.
	key.Hint = "sk-...wxyz"
	key.Secret = &types.EncryptedPayload{Version: 1, Recipient: "age1x", Ciphertext: "c2"}
	require.NoError(t, users.UpsertProviderKey(user.ID, key))

	got, err = users.GetProviderKey(user.ID, "openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-...wxyz", got.Hint)
	assert.Equal(t, "c2", got.Secret.Ciphertext)

	keys, err := users.ListProviderKeys(user.ID)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Nil(t, keys[0].Secret)

	require.NoError(t, users.DeleteProviderKey(user.ID, "openai"))
	_, err = users.GetProviderKey(user.ID, "openai")
	assert.ErrorIs(t, err, ErrNotFound)
}
