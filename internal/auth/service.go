// Package auth implements registration, login and bearer-token
// authentication.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/frankenlab/frankend/internal/store"
	"github.com/frankenlab/frankend/pkg/types"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTokenInvalid       = errors.New("invalid or expired token")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidEmail       = errors.New("a valid email address is required")
)

// Service issues and verifies opaque bearer tokens backed by the user store.
type Service struct {
	users           *store.UserStore
	tokenTTL        time.Duration
	startingCredits float64
}

// NewService creates an auth service. New accounts are seeded with
// startingCredits.
func NewService(users *store.UserStore, cfg types.AuthConfig, startingCredits float64) *Service {
	ttl := time.Duration(cfg.TokenTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &Service{
		users:           users,
		tokenTTL:        ttl,
		startingCredits: startingCredits,
	}
}

// Register creates a new account with the starting credit grant.
func (s *Service) Register(email, name, password string) (*types.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	if len(password) < 8 {
		return nil, ErrWeakPassword
	}
	if name == "" {
		name = email[:strings.Index(email, "@")]
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &types.User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Credits:      s.startingCredits,
	}
	if err := s.users.CreateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies the password and issues a fresh bearer token.
func (s *Service) Login(email, password string) (*types.AuthToken, *types.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, ErrInvalidCredentials
	}

	token := &types.AuthToken{
		Token:     uuid.New().String(),
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(s.tokenTTL).UTC(),
	}
	if err := s.users.CreateToken(token); err != nil {
		return nil, nil, err
	}
	return token, user, nil
}

// Authenticate resolves a bearer token to its user. Expired tokens are
// deleted on sight.
func (s *Service) Authenticate(token string) (*types.User, error) {
	if token == "" {
		return nil, ErrTokenInvalid
	}

	t, err := s.users.GetToken(token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}

	if time.Now().After(t.ExpiresAt) {
		_ = s.users.DeleteToken(token)
		return nil, ErrTokenInvalid
	}

	user, err := s.users.GetUser(t.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	return user, nil
}

// Logout revokes a bearer token.
func (s *Service) Logout(token string) error {
	return s.users.DeleteToken(token)
}
