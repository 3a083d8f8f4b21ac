package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/frankenlab/frankend/pkg/types"
)

// UserStore manages user accounts, auth tokens, credit balances and
// provider API keys.
type UserStore struct {
	store *Store
}

// NewUserStore creates a user store backed by the given store.
func NewUserStore(store *Store) *UserStore {
	return &UserStore{store: store}
}

// CreateUser inserts a new user. The ID is assigned when empty.
func (u *UserStore) CreateUser(user *types.User) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := u.store.db.Exec(`
		INSERT INTO users (id, email, name, password_hash, credits, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.Name, user.PasswordHash, user.Credits,
		user.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID.
func (u *UserStore) GetUser(id string) (*types.User, error) {
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()

	return u.scanUser(u.store.db.QueryRow(`
		SELECT id, email, name, password_hash, credits, created_at
		FROM users WHERE id = ?`, id))
}

// GetUserByEmail retrieves a user by email address.
func (u *UserStore) GetUserByEmail(email string) (*types.User, error) {
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()

	return u.scanUser(u.store.db.QueryRow(`
		SELECT id, email, name, password_hash, credits, created_at
		FROM users WHERE email = ?`, email))
}

func (u *UserStore) scanUser(row *sql.Row) (*types.User, error) {
	var user types.User
	var createdAt string
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash,
		&user.Credits, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &user, nil
}

// AdjustCredits atomically applies a delta to a user's credit balance and
// returns the new balance. A debit that would push the balance below zero
// fails with ErrInsufficientCredits and leaves the balance untouched.
func (u *UserStore) AdjustCredits(userID string, delta float64) (float64, error) {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	res, err := u.store.db.Exec(`
		UPDATE users SET credits = credits + ?
		WHERE id = ? AND credits + ? >= 0`,
		delta, userID, delta,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to adjust credits: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to adjust credits: %w", err)
	}
	if affected == 0 {
		var exists int
		err := u.store.db.QueryRow(`SELECT 1 FROM users WHERE id = ?`, userID).Scan(&exists)
		if err == sql.ErrNoRows {
			return 0, ErrNotFound
		}
		if err != nil {
			return 0, fmt.Errorf("failed to adjust credits: %w", err)
		}
		return 0, ErrInsufficientCredits
	}

	var balance float64
	if err := u.store.db.QueryRow(`SELECT credits FROM users WHERE id = ?`, userID).Scan(&balance); err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	return balance, nil
}

// DebitCredits subtracts an amount from a user's balance without the
// below-zero floor and returns the new balance, which may be negative. The
// charge path uses this so a call that costs more than the remaining balance
// is still paid for; the balance check before the next call stops further
// spending.
func (u *UserStore) DebitCredits(userID string, amount float64) (float64, error) {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	res, err := u.store.db.Exec(`
		UPDATE users SET credits = credits - ? WHERE id = ?`,
		amount, userID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to debit credits: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to debit credits: %w", err)
	}
	if affected == 0 {
		return 0, ErrNotFound
	}

	var balance float64
	if err := u.store.db.QueryRow(`SELECT credits FROM users WHERE id = ?`, userID).Scan(&balance); err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	return balance, nil
}

// CreateToken stores an auth token.
func (u *UserStore) CreateToken(token *types.AuthToken) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	_, err := u.store.db.Exec(`
		INSERT INTO auth_tokens (token, user_id, expires_at)
		VALUES (?, ?, ?)`,
		token.Token, token.UserID, token.ExpiresAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}
	return nil
}

// GetToken looks up an auth token.
func (u *UserStore) GetToken(token string) (*types.AuthToken, error) {
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()

	var t types.AuthToken
	var expiresAt string
	err := u.store.db.QueryRow(`
		SELECT token, user_id, expires_at
		FROM auth_tokens WHERE token = ?`, token).
		Scan(&t.Token, &t.UserID, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	t.ExpiresAt, _ = time.Parse(time.RFC3339Nano, expiresAt)
	return &t, nil
}

// DeleteToken removes an auth token, if present.
func (u *UserStore) DeleteToken(token string) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	if _, err := u.store.db.Exec(`DELETE FROM auth_tokens WHERE token = ?`, token); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// DeleteExpiredTokens removes tokens whose expiry has passed.
func (u *UserStore) DeleteExpiredTokens(now time.Time) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	_, err := u.store.db.Exec(`DELETE FROM auth_tokens WHERE expires_at < ?`,
		now.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	return nil
}

// UpsertProviderKey stores or replaces the encrypted API key for a provider.
func (u *UserStore) UpsertProviderKey(userID string, key *types.ProviderKey) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	secret, err := json.Marshal(key.Secret)
	if err != nil {
		return fmt.Errorf("failed to marshal secret: %w", err)
	}
	if key.UpdatedAt.IsZero() {
		key.UpdatedAt = time.Now().UTC()
	}

	_, err = u.store.db.Exec(`
		INSERT INTO provider_keys (user_id, provider, hint, secret, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, provider) DO UPDATE SET
			hint = excluded.hint,
			secret = excluded.secret,
			updated_at = excluded.updated_at`,
		userID, key.Provider, key.Hint, string(secret),
		key.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to store provider key: %w", err)
	}
	return nil
}

// GetProviderKey retrieves the encrypted API key for a provider.
func (u *UserStore) GetProviderKey(userID, provider string) (*types.ProviderKey, error) {
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()

	var key types.ProviderKey
	var secret, updatedAt string
	err := u.store.db.QueryRow(`
		SELECT provider, hint, secret, updated_at
		FROM provider_keys WHERE user_id = ? AND provider = ?`,
		userID, provider).
		Scan(&key.Provider, &key.Hint, &secret, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get provider key: %w", err)
	}
	if err := json.Unmarshal([]byte(secret), &key.Secret); err != nil {
		return nil, fmt.Errorf("failed to unmarshal secret: %w", err)
	}
	key.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &key, nil
}

// ListProviderKeys returns all provider keys for a user without their secrets.
func (u *UserStore) ListProviderKeys(userID string) ([]*types.ProviderKey, error) {
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()

	rows, err := u.store.db.Query(`
		SELECT provider, hint, updated_at
		FROM provider_keys WHERE user_id = ?
		ORDER BY provider`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list provider keys: %w", err)
	}
	defer rows.Close()

	var keys []*types.ProviderKey
	for rows.Next() {
		var key types.ProviderKey
		var updatedAt string
		if err := rows.Scan(&key.Provider, &key.Hint, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan provider key: %w", err)
		}
		key.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		keys = append(keys, &key)
	}
	return keys, rows.Err()
}

// DeleteProviderKey removes a stored provider key.
func (u *UserStore) DeleteProviderKey(userID, provider string) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	res, err := u.store.db.Exec(`
		DELETE FROM provider_keys WHERE user_id = ? AND provider = ?`,
		userID, provider)
	if err != nil {
		return fmt.Errorf("failed to delete provider key: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
