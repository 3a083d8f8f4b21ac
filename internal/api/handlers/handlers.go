// Package handlers provides HTTP request handlers.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/frankenlab/frankend/internal/agent"
	"github.com/frankenlab/frankend/internal/auth"
	"github.com/frankenlab/frankend/internal/chat"
	"github.com/frankenlab/frankend/internal/credits"
	"github.com/frankenlab/frankend/internal/llm"
	"github.com/frankenlab/frankend/internal/store"
)

// respondError maps domain errors to HTTP status codes. Anything unmapped is
// a 500 with the error text.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrEmailTaken):
		status = http.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrTokenInvalid):
		status = http.StatusUnauthorized
	case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrInvalidEmail):
		status = http.StatusBadRequest
	case errors.Is(err, agent.ErrForbidden), errors.Is(err, chat.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, credits.ErrInsufficientCredits):
		status = http.StatusPaymentRequired
	case errors.Is(err, agent.ErrNotReady),
		errors.Is(err, chat.ErrAgentDisabled),
		errors.Is(err, llm.ErrUnknownProvider),
		errors.Is(err, llm.ErrNoAPIKey):
		status = http.StatusUnprocessableEntity
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
