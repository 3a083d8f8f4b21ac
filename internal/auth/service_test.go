package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankenlab/frankend/internal/store"
	"github.com/frankenlab/frankend/pkg/types"
)

func newTestService(t *testing.T) (*Service, *store.UserStore) {
	t.Helper()
	s, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	users := store.NewUserStore(s)
	svc := NewService(users, types.AuthConfig{TokenTTLHours: 1}, 100)
	return svc, users
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestService(t)

	user, err := svc.Register("Mary@Example.com", "Mary", "supersecret")
	require.NoError(t, err)
	assert.Equal(t, "mary@example.com", user.Email)
	assert.Equal(t, 100.0, user.Credits)
	assert.NotEqual(t, "supersecret", user.PasswordHash)

	token, loggedIn, err := svc.Login("mary@example.com", "supersecret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.NotEmpty(t, token.Token)
	assert.True(t, token.ExpiresAt.After(time.Now()))
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Register("not-an-email", "x", "supersecret")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.Register("short@example.com", "x", "tiny")
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = svc.Register("dup@example.com", "x", "supersecret")
	require.NoError(t, err)
	_, err = svc.Register("dup@example.com", "x", "supersecret")
	assert.ErrorIs(t, err, store.ErrEmailTaken)
}

func TestRegisterDefaultsNameFromEmail(t *testing.T) {
	svc, _ := newTestService(t)

	user, err := svc.Register("frank@example.com", "", "supersecret")
	require.NoError(t, err)
	assert.Equal(t, "frank", user.Name)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Register("mary@example.com", "Mary", "supersecret")
	require.NoError(t, err)

	_, _, err = svc.Login("mary@example.com", "wrongpassword")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login("nobody@example.com", "supersecret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newTestService(t)

	user, err := svc.Register("mary@example.com", "Mary", "supersecret")
	require.NoError(t, err)
	token, _, err := svc.Login("mary@example.com", "supersecret")
	require.NoError(t, err)

	got, err := svc.Authenticate(token.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Authenticate("no-such-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = svc.Authenticate("")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestAuthenticateExpiredToken(t *testing.T) {
	svc, users := newTestService(t)

	user, err := svc.Register("mary@example.com", "Mary", "supersecret")
	require.NoError(t, err)

	stale := &types.AuthToken{
		Token:     "stale-token",
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(-time.Minute).UTC(),
	}
	require.NoError(t, users.CreateToken(stale))

	_, err = svc.Authenticate("stale-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	// Expired tokens are removed once seen.
	_, err = users.GetToken("stale-token")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLogout(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Register("mary@example.com", "Mary", "supersecret")
	require.NoError(t, err)
	token, _, err := svc.Login("mary@example.com", "supersecret")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(token.Token))
	_, err = svc.Authenticate(token.Token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
