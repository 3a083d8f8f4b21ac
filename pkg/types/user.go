package types

import "time"

// User is a registered account. PasswordHash is never serialized.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Credits   float64   `json:"credits"`
	CreatedAt time.Time `json:"created_at"`

	PasswordHash string `json:"-"`
}

// AuthToken is an opaque bearer token issued at login.
type AuthToken struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ProviderKey is a stored, encrypted provider API key. Only the key hint is
// ever returned to clients.
type ProviderKey struct {
	Provider  string            `json:"provider"`
	Hint      string            `json:"hint"`
	Secret    *EncryptedPayload `json:"-"`
	UpdatedAt time.Time         `json:"updated_at"`
}
