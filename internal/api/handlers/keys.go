package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/frankenlab/frankend/internal/auth"
	"github.com/frankenlab/frankend/internal/crypto"
	"github.com/frankenlab/frankend/internal/store"
	"github.com/frankenlab/frankend/pkg/types"
)

// supported provider slots for stored API keys
var knownProviders = map[string]bool{
	"openai":    true,
	"anthropic": true,
	"gemini":    true,
}

// KeysHandler manages stored provider API keys. Keys are sealed with the
// server identity on write; responses only ever carry the hint.
type KeysHandler struct {
	users    *store.UserStore
	payloads *crypto.PayloadService
}

// NewKeysHandler creates a new KeysHandler.
func NewKeysHandler(users *store.UserStore, payloads *crypto.PayloadService) *KeysHandler {
	return &KeysHandler{users: users, payloads: payloads}
}

// List returns the caller's stored key hints.
func (h *KeysHandler) List(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	keys, err := h.users.ListProviderKeys(user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, keys)
}

type putKeyRequest struct {
	APIKey string `json:"api_key"`
}

// Put stores or replaces the caller's key for a provider.
func (h *KeysHandler) Put(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	provider := c.Param("provider")
	if !knownProviders[provider] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown provider"})
		return
	}

	var req putKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.APIKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "api_key is required"})
		return
	}

	sealed, err := h.payloads.SealString(req.APIKey)
	if err != nil {
		respondError(c, err)
		return
	}

	key := &types.ProviderKey{
		Provider: provider,
		Hint:     keyHint(req.APIKey),
		Secret:   sealed,
	}
	if err := h.users.UpsertProviderKey(user.ID, key); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, key)
}

// Delete removes the caller's key for a provider.
func (h *KeysHandler) Delete(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	if err := h.users.DeleteProviderKey(user.ID, c.Param("provider")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// keyHint keeps just enough of the key to recognize it in the UI.
func keyHint(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "..." + key[len(key)-4:]
}
