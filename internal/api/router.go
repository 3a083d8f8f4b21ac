// Package api provides the REST API for frankend.
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/frankenlab/frankend/internal/agent"
	"github.com/frankenlab/frankend/internal/api/handlers"
	"github.com/frankenlab/frankend/internal/auth"
	"github.com/frankenlab/frankend/internal/chat"
	"github.com/frankenlab/frankend/internal/credits"
	"github.com/frankenlab/frankend/internal/crypto"
	"github.com/frankenlab/frankend/internal/store"
	"github.com/frankenlab/frankend/pkg/types"
)

// writeWait bounds how long a single WebSocket write may block.
const writeWait = 10 * time.Second

// Router holds all API dependencies and routes.
type Router struct {
	engine *gin.Engine

	authService  *auth.Service
	blueprints   *store.BlueprintStore
	users        *store.UserStore
	agentService *agent.Service
	chatManager  *chat.Manager
	ledger       *credits.Ledger
	payloads     *crypto.PayloadService

	// WebSocket upgrader
	upgrader websocket.Upgrader

	// WebSocket clients, keyed by connection with the owning user's id so
	// lifecycle notifications reach only that user's tabs.
	wsClientsMu sync.RWMutex
	wsClients   map[*websocket.Conn]string
}

// NewRouter creates a new API router.
func NewRouter(
	authService *auth.Service,
	blueprints *store.BlueprintStore,
	users *store.UserStore,
	agentService *agent.Service,
	chatManager *chat.Manager,
	ledger *credits.Ledger,
	payloads *crypto.PayloadService,
) *Router {
	r := &Router{
		engine:       gin.Default(),
		authService:  authService,
		blueprints:   blueprints,
		users:        users,
		agentService: agentService,
		chatManager:  chatManager,
		ledger:       ledger,
		payloads:     payloads,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for development
			},
		},
		wsClients: make(map[*websocket.Conn]string),
	}

	r.setupRoutes()
	return r
}

// setupRoutes configures all API routes.
func (r *Router) setupRoutes() {
	// Health check
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authRequired := auth.Middleware(r.authService)

	// API v1 group
	v1 := r.engine.Group("/api/v1")
	{
		// Auth
		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/register", r.register)
			authRoutes.POST("/login", r.login)
			authRoutes.POST("/logout", authRequired, r.logout)
			authRoutes.GET("/me", authRequired, r.me)
		}

		// Catalog
		v1.GET("/catalog", r.listCatalog)

		// Blueprints
		blueprints := v1.Group("/blueprints", authRequired)
		{
			blueprints.POST("/validate", r.validateBlueprint)
			blueprints.POST("/export", r.exportBlueprint)
			blueprints.GET("", r.listBlueprints)
			blueprints.POST("", r.createBlueprint)
			blueprints.GET("/:id", r.getBlueprint)
			blueprints.PUT("/:id", r.updateBlueprint)
			blueprints.DELETE("/:id", r.deleteBlueprint)
			blueprints.POST("/:id/publish", r.publishBlueprint)
			blueprints.DELETE("/:id/publish", r.unpublishBlueprint)
		}

		// Marketplace
		marketplace := v1.Group("/marketplace")
		{
			marketplace.GET("", r.listMarketplace)
			marketplace.GET("/:id", r.getListing)
			marketplace.POST("/:id/clone", authRequired, r.cloneListing)
		}

		// Agents
		agents := v1.Group("/agents", authRequired)
		{
			agents.GET("", r.listAgents)
			agents.POST("", r.deployAgent)
			agents.GET("/:id", r.getAgent)
			agents.PUT("/:id/status", r.setAgentStatus)
			agents.DELETE("/:id", r.deleteAgent)
			agents.POST("/:id/sessions", r.startSession)
			agents.GET("/:id/sessions", r.listSessions)
		}

		// Sessions
		sessions := v1.Group("/sessions", authRequired)
		{
			sessions.GET("/:id", r.getSession)
			sessions.GET("/:id/messages", r.listMessages)
			sessions.POST("/:id/messages", r.sendMessage)
		}

		// Credits
		creditRoutes := v1.Group("/credits", authRequired)
		{
			creditRoutes.GET("", r.getBalance)
			creditRoutes.GET("/usage", r.getUsage)
		}

		// Provider keys
		keys := v1.Group("/keys", authRequired)
		{
			keys.GET("", r.listKeys)
			keys.PUT("/:provider", r.putKey)
			keys.DELETE("/:provider", r.deleteKey)
		}
	}

	// WebSocket for streaming chat
	r.engine.GET("/ws", r.handleWebSocket)
}

// Handler returns the HTTP handler.
func (r *Router) Handler() http.Handler {
	return r.engine
}

// Auth handlers

func (r *Router) register(c *gin.Context) {
	h := handlers.NewAuthHandler(r.authService)
	h.Register(c)
}

func (r *Router) login(c *gin.Context) {
	h := handlers.NewAuthHandler(r.authService)
	h.Login(c)
}

func (r *Router) logout(c *gin.Context) {
	h := handlers.NewAuthHandler(r.authService)
	h.Logout(c)
}

func (r *Router) me(c *gin.Context) {
	h := handlers.NewAuthHandler(r.authService)
	h.Me(c)
}

// Catalog handlers

func (r *Router) listCatalog(c *gin.Context) {
	h := handlers.NewCatalogHandler()
	h.List(c)
}

// Blueprint handlers

func (r *Router) validateBlueprint(c *gin.Context) {
	h := handlers.NewBlueprintHandler(r.blueprints)
	h.Validate(c)
}

func (r *Router) exportBlueprint(c *gin.Context) {
	h := handlers.NewBlueprintHandler(r.blueprints)
	h.Export(c)
}

func (r *Router) listBlueprints(c *gin.Context) {
	h := handlers.NewBlueprintHandler(r.blueprints)
	h.List(c)
}

func (r *Router) createBlueprint(c *gin.Context) {
	h := handlers.NewBlueprintHandler(r.blueprints)
	h.Create(c)
}

func (r *Router) getBlueprint(c *gin.Context) {
	h := handlers.NewBlueprintHandler(r.blueprints)
	h.Get(c)
}

func (r *Router) updateBlueprint(c *gin.Context) {
	h := handlers.NewBlueprintHandler(r.blueprints)
	h.Update(c)
}

func (r *Router) deleteBlueprint(c *gin.Context) {
	h := handlers.NewBlueprintHandler(r.blueprints)
	h.Delete(c)
}

func (r *Router) publishBlueprint(c *gin.Context) {
	h := handlers.NewBlueprintHandler(r.blueprints)
	h.Publish(c)
}

func (r *Router) unpublishBlueprint(c *gin.Context) {
	h := handlers.NewBlueprintHandler(r.blueprints)
	h.Unpublish(c)
}

// Marketplace handlers

func (r *Router) listMarketplace(c *gin.Context) {
	h := handlers.NewMarketplaceHandler(r.blueprints)
	h.List(c)
}

func (r *Router) getListing(c *gin.Context) {
	h := handlers.NewMarketplaceHandler(r.blueprints)
	h.Get(c)
}

func (r *Router) cloneListing(c *gin.Context) {
	h := handlers.NewMarketplaceHandler(r.blueprints)
	h.Clone(c)
}

// Agent handlers

func (r *Router) listAgents(c *gin.Context) {
	h := handlers.NewAgentHandler(r.agentService, r.chatManager)
	h.List(c)
}

func (r *Router) deployAgent(c *gin.Context) {
	h := handlers.NewAgentHandler(r.agentService, r.chatManager)
	h.Deploy(c)
	if user, ok := auth.CurrentUser(c); ok && c.Writer.Status() == http.StatusCreated {
		r.notifyUser(user.ID, "agent_deployed", gin.H{})
	}
}

func (r *Router) getAgent(c *gin.Context) {
	h := handlers.NewAgentHandler(r.agentService, r.chatManager)
	h.Get(c)
}

func (r *Router) setAgentStatus(c *gin.Context) {
	h := handlers.NewAgentHandler(r.agentService, r.chatManager)
	h.SetStatus(c)
	if user, ok := auth.CurrentUser(c); ok && c.Writer.Status() == http.StatusOK {
		r.notifyUser(user.ID, "agent_status", gin.H{"agent_id": c.Param("id")})
	}
}

func (r *Router) deleteAgent(c *gin.Context) {
	h := handlers.NewAgentHandler(r.agentService, r.chatManager)
	h.Delete(c)
	if user, ok := auth.CurrentUser(c); ok && c.Writer.Status() == http.StatusOK {
		r.notifyUser(user.ID, "agent_deleted", gin.H{"agent_id": c.Param("id")})
	}
}

func (r *Router) startSession(c *gin.Context) {
	h := handlers.NewAgentHandler(r.agentService, r.chatManager)
	h.StartSession(c)
}

func (r *Router) listSessions(c *gin.Context) {
	h := handlers.NewAgentHandler(r.agentService, r.chatManager)
	h.ListSessions(c)
}

// Session handlers

func (r *Router) getSession(c *gin.Context) {
	h := handlers.NewSessionHandler(r.chatManager)
	h.Get(c)
}

func (r *Router) listMessages(c *gin.Context) {
	h := handlers.NewSessionHandler(r.chatManager)
	h.Messages(c)
}

func (r *Router) sendMessage(c *gin.Context) {
	h := handlers.NewSessionHandler(r.chatManager)
	h.Send(c)
}

// Credits handlers

func (r *Router) getBalance(c *gin.Context) {
	h := handlers.NewCreditsHandler(r.ledger)
	h.Balance(c)
}

func (r *Router) getUsage(c *gin.Context) {
	h := handlers.NewCreditsHandler(r.ledger)
	h.Usage(c)
}

// Key handlers

func (r *Router) listKeys(c *gin.Context) {
	h := handlers.NewKeysHandler(r.users, r.payloads)
	h.List(c)
}

func (r *Router) putKey(c *gin.Context) {
	h := handlers.NewKeysHandler(r.users, r.payloads)
	h.Put(c)
}

func (r *Router) deleteKey(c *gin.Context) {
	h := handlers.NewKeysHandler(r.users, r.payloads)
	h.Delete(c)
}

// WebSocket handler

// chatRequest is the single frame a client sends to stream one exchange.
type chatRequest struct {
	Action    string `json:"action"`
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
}

func (r *Router) handleWebSocket(c *gin.Context) {
	// The browser WebSocket API cannot set headers, so the token rides the
	// query string.
	user, err := r.authService.Authenticate(c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	conn, err := r.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	// Register client
	r.wsClientsMu.Lock()
	r.wsClients[conn] = user.ID
	r.wsClientsMu.Unlock()

	defer func() {
		r.wsClientsMu.Lock()
		delete(r.wsClients, conn)
		r.wsClientsMu.Unlock()
		conn.Close()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var req chatRequest
		if err := json.Unmarshal(message, &req); err != nil {
			r.writeFrame(conn, "error", gin.H{"error": "malformed frame"})
			continue
		}

		switch req.Action {
		case "chat":
			r.streamChat(c, conn, user.ID, req)
		default:
			r.writeFrame(conn, "error", gin.H{"error": "unknown action"})
		}
	}
}

// streamChat runs one streaming exchange over the socket: chunk frames while
// the model talks, then a done frame with usage, or an error frame.
func (r *Router) streamChat(c *gin.Context, conn *websocket.Conn, userID string, req chatRequest) {
	chunks := make(chan string)
	result := make(chan *types.LLMResponse, 1)
	errs := make(chan error, 1)

	go func() {
		response, err := r.chatManager.Stream(c.Request.Context(), userID, req.SessionID, req.Content, chunks)
		if err != nil {
			errs <- err
			return
		}
		result <- response
	}()

	for delta := range chunks {
		r.writeFrame(conn, "chunk", gin.H{"session_id": req.SessionID, "delta": delta})
	}

	select {
	case response := <-result:
		r.writeFrame(conn, "done", gin.H{
			"session_id": req.SessionID,
			"model":      response.Model,
			"usage":      response.Usage,
		})
	case err := <-errs:
		r.writeFrame(conn, "error", gin.H{"session_id": req.SessionID, "error": err.Error()})
	}
}

func (r *Router) writeFrame(conn *websocket.Conn, msgType string, payload interface{}) {
	msg := types.WebSocketMessage{
		Type:    msgType,
		Payload: payload,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.TextMessage, data)
}

// notifyUser pushes a message to every open socket belonging to a user, so
// other tabs see agent lifecycle changes without polling.
func (r *Router) notifyUser(userID, msgType string, payload interface{}) {
	msg := types.WebSocketMessage{
		Type:    msgType,
		Payload: payload,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	r.wsClientsMu.RLock()
	defer r.wsClientsMu.RUnlock()

	for conn, owner := range r.wsClients {
		if owner != userID {
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteMessage(websocket.TextMessage, data)
	}
}
