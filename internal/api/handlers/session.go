package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/frankenlab/frankend/internal/auth"
	"github.com/frankenlab/frankend/internal/chat"
)

// SessionHandler handles chat session requests.
type SessionHandler struct {
	chat *chat.Manager
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(chatManager *chat.Manager) *SessionHandler {
	return &SessionHandler{chat: chatManager}
}

// Get returns a chat session.
func (h *SessionHandler) Get(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	session, err := h.chat.GetSession(user.ID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Messages returns a session's full transcript.
func (h *SessionHandler) Messages(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	messages, err := h.chat.History(user.ID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

type sendRequest struct {
	Content string `json:"content"`
}

// Send posts a user message and blocks until the agent replies.
func (h *SessionHandler) Send(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	response, err := h.chat.Send(c.Request.Context(), user.ID, c.Param("id"), req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reply": response.Content,
		"model": response.Model,
		"usage": response.Usage,
	})
}
