package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/frankenlab/frankend/internal/auth"
	"github.com/frankenlab/frankend/internal/credits"
)

// CreditsHandler serves credit balances and usage history.
type CreditsHandler struct {
	ledger *credits.Ledger
}

// NewCreditsHandler creates a new CreditsHandler.
func NewCreditsHandler(ledger *credits.Ledger) *CreditsHandler {
	return &CreditsHandler{ledger: ledger}
}

// Balance returns the caller's current balance.
func (h *CreditsHandler) Balance(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	balance, err := h.ledger.Balance(user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

// Usage returns the caller's usage summary and recent events.
func (h *CreditsHandler) Usage(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	summary, err := h.ledger.Summary(user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	events, err := h.ledger.History(user.ID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"summary": summary,
		"events":  events,
	})
}
