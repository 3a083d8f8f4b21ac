package llm

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/frankenlab/frankend/internal/crypto"
	"github.com/frankenlab/frankend/internal/store"
	"github.com/frankenlab/frankend/pkg/types"
)

var (
	// ErrUnknownProvider means neither the head nor the model name identified
	// a supported provider.
	ErrUnknownProvider = errors.New("unknown model provider")

	// ErrNoAPIKey means no user key is stored and no server fallback is
	// configured for the provider.
	ErrNoAPIKey = errors.New("no API key available for provider")
)

// Router resolves a compiled head to a ready-to-call Provider: it maps models
// to providers and finds an API key, preferring the user's stored key over
// the server fallback from config.
type Router struct {
	config   *types.ModelsConfig
	payloads *crypto.PayloadService
	users    *store.UserStore

	// Cached decrypted server fallback keys
	apiKeysMu    sync.RWMutex
	fallbackKeys map[string]string
}

// NewRouter creates a model Router.
func NewRouter(config *types.ModelsConfig, payloads *crypto.PayloadService, users *store.UserStore) *Router {
	return &Router{
		config:       config,
		payloads:     payloads,
		users:        users,
		fallbackKeys: make(map[string]string),
	}
}

// DefaultModel returns the configured default model.
func (r *Router) DefaultModel() string {
	if r.config.Default != "" {
		return r.config.Default
	}
	return "gpt-4o-mini"
}

// ProviderForModel infers the provider from a model name.
func ProviderForModel(model string) string {
	switch {
	case strings.HasPrefix(model, "claude"):
		return "anthropic"
	case strings.HasPrefix(model, "gpt"), strings.HasPrefix(model, "o1"):
		return "openai"
	case strings.HasPrefix(model, "gemini"):
		return "gemini"
	default:
		return "unknown"
	}
}

// ProviderFor builds a Provider for the given user and compiled head. The
// head's provider field wins; a head that carries only a model name falls
// back to prefix inference.
func (r *Router) ProviderFor(userID string, head *types.HeadSpec) (Provider, error) {
	if head == nil {
		return nil, fmt.Errorf("no head to route: %w", ErrUnknownProvider)
	}

	provider := head.Provider
	if provider == "" || provider == "unknown" {
		provider = ProviderForModel(head.Model)
	}

	apiKey, err := r.resolveKey(userID, provider)
	if err != nil {
		return nil, err
	}

	settings := Settings{
		Model:       head.Model,
		Temperature: head.Temperature,
		MaxTokens:   head.MaxTokens,
	}

	switch provider {
	case "anthropic":
		return NewAnthropicProvider(apiKey, settings), nil
	case "openai":
		return NewOpenAIProvider(apiKey, settings), nil
	case "gemini":
		return NewGeminiProvider(apiKey, settings), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
}

// resolveKey finds the API key for a provider: the user's stored key when
// present, the decrypted server fallback otherwise.
func (r *Router) resolveKey(userID, provider string) (string, error) {
	if userID != "" {
		stored, err := r.users.GetProviderKey(userID, provider)
		if err == nil {
			key, err := r.payloads.OpenString(stored.Secret)
			if err != nil {
				return "", fmt.Errorf("failed to decrypt stored key: %w", err)
			}
			return key, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return "", err
		}
	}

	return r.fallbackKey(provider)
}

func (r *Router) fallbackKey(provider string) (string, error) {
	r.apiKeysMu.RLock()
	if key, ok := r.fallbackKeys[provider]; ok {
		r.apiKeysMu.RUnlock()
		return key, nil
	}
	r.apiKeysMu.RUnlock()

	providerConfig, ok := r.config.Providers[provider]
	if !ok || providerConfig.APIKeyEncrypted == "" {
		return "", fmt.Errorf("%w: %s", ErrNoAPIKey, provider)
	}

	key, err := r.payloads.OpenString(&types.EncryptedPayload{
		Version:    crypto.PayloadVersion,
		Ciphertext: providerConfig.APIKeyEncrypted,
	})
	if err != nil {
		return "", fmt.Errorf("failed to decrypt fallback key: %w", err)
	}

	r.apiKeysMu.Lock()
	r.fallbackKeys[provider] = key
	r.apiKeysMu.Unlock()

	return key, nil
}
