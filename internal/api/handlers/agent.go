package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/frankenlab/frankend/internal/agent"
	"github.com/frankenlab/frankend/internal/auth"
	"github.com/frankenlab/frankend/internal/chat"
	"github.com/frankenlab/frankend/pkg/types"
)

// AgentHandler handles agent deployment and lifecycle requests.
type AgentHandler struct {
	agents *agent.Service
	chat   *chat.Manager
}

// NewAgentHandler creates a new AgentHandler.
func NewAgentHandler(agents *agent.Service, chatManager *chat.Manager) *AgentHandler {
	return &AgentHandler{agents: agents, chat: chatManager}
}

type deployRequest struct {
	BlueprintID string `json:"blueprint_id"`
	Name        string `json:"name"`
}

// Deploy compiles a blueprint into a running agent.
func (h *AgentHandler) Deploy(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	var req deployRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.BlueprintID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "blueprint_id is required"})
		return
	}

	deployed, err := h.agents.Deploy(user.ID, req.BlueprintID, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, deployed)
}

// List returns the user's deployed agents.
func (h *AgentHandler) List(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	agents, err := h.agents.List(user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, agents)
}

// Get returns one deployed agent.
func (h *AgentHandler) Get(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	deployed, err := h.agents.Get(user.ID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, deployed)
}

type statusRequest struct {
	Status types.AgentStatus `json:"status"`
}

// SetStatus enables or disables an agent.
func (h *AgentHandler) SetStatus(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Status != types.AgentActive && req.Status != types.AgentDisabled {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be active or disabled"})
		return
	}

	deployed, err := h.agents.SetStatus(user.ID, c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, deployed)
}

// Delete removes an agent and its chat history.
func (h *AgentHandler) Delete(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	if err := h.agents.Delete(user.ID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type startSessionRequest struct {
	Title string `json:"title"`
}

// StartSession opens a chat session against an agent.
func (h *AgentHandler) StartSession(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	var req startSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	session, err := h.chat.StartSession(user.ID, c.Param("id"), req.Title)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// ListSessions returns an agent's chat sessions.
func (h *AgentHandler) ListSessions(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	// Ownership check rides on Get.
	if _, err := h.agents.Get(user.ID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	sessions, err := h.chat.ListSessions(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}
