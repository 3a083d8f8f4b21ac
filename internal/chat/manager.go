// Package chat runs conversations against deployed agents: it assembles the
// prompt from the agent's compiled blueprint, calls the model and settles the
// credit cost.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/frankenlab/frankend/internal/blueprint"
	"github.com/frankenlab/frankend/internal/credits"
	"github.com/frankenlab/frankend/internal/llm"
	"github.com/frankenlab/frankend/internal/store"
	"github.com/frankenlab/frankend/pkg/types"
)

var (
	ErrForbidden     = errors.New("session does not belong to user")
	ErrAgentDisabled = errors.New("agent is disabled")
)

// historyCacheSize bounds the number of session transcripts kept in memory.
const historyCacheSize = 256

// ProviderSource resolves a compiled head to a callable model provider.
// *llm.Router is the production implementation.
type ProviderSource interface {
	ProviderFor(userID string, head *types.HeadSpec) (llm.Provider, error)
}

// Manager owns the chat runtime for deployed agents.
type Manager struct {
	sessions  *store.SessionStore
	agents    *store.AgentStore
	providers ProviderSource
	ledger    *credits.Ledger

	// Recent transcripts, keyed by session ID.
	history *lru.Cache[string, []types.ChatMessage]

	// Per-session locks so two sends into one session serialize.
	locks sync.Map
}

func (m *Manager) lockSession(sessionID string) func() {
	v, _ := m.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// NewManager creates a chat manager.
func NewManager(sessions *store.SessionStore, agents *store.AgentStore, providers ProviderSource, ledger *credits.Ledger) (*Manager, error) {
	history, err := lru.New[string, []types.ChatMessage](historyCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create history cache: %w", err)
	}
	return &Manager{
		sessions:  sessions,
		agents:    agents,
		providers: providers,
		ledger:    ledger,
		history:   history,
	}, nil
}

// StartSession creates a chat session against one of the user's agents.
func (m *Manager) StartSession(userID, agentID, title string) (*types.ChatSession, error) {
	agent, err := m.agents.GetAgent(agentID)
	if err != nil {
		return nil, err
	}
	if agent.OwnerID != userID {
		return nil, ErrForbidden
	}

	session := &types.ChatSession{
		AgentID: agentID,
		UserID:  userID,
		Title:   title,
	}
	if err := m.sessions.CreateSession(session); err != nil {
		return nil, err
	}
	return session, nil
}

// ListSessions returns the sessions recorded against an agent.
func (m *Manager) ListSessions(agentID string) ([]*types.ChatSession, error) {
	return m.sessions.ListSessions(agentID)
}

// GetSession returns one of the user's sessions.
func (m *Manager) GetSession(userID, sessionID string) (*types.ChatSession, error) {
	session, err := m.sessions.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, ErrForbidden
	}
	return session, nil
}

// Send runs one blocking exchange: the user message goes in, the assistant
// reply comes back, both are persisted and the call is charged.
func (m *Manager) Send(ctx context.Context, userID, sessionID, content string) (*types.LLMResponse, error) {
	unlock := m.lockSession(sessionID)
	defer unlock()

	exchange, err := m.prepare(ctx, userID, sessionID, content)
	if err != nil {
		return nil, err
	}
	defer exchange.cancel()

	response, err := exchange.provider.Chat(exchange.ctx, exchange.messages)
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}

	if err := m.settle(exchange, content, response.Content, response.Usage); err != nil {
		return nil, err
	}
	return &response, nil
}

// Stream runs one streaming exchange, sending text deltas to chunks. The
// channel is closed when the model finishes. Persistence and billing happen
// after the stream completes.
func (m *Manager) Stream(ctx context.Context, userID, sessionID, content string, chunks chan<- string) (*types.LLMResponse, error) {
	unlock := m.lockSession(sessionID)
	defer unlock()

	exchange, err := m.prepare(ctx, userID, sessionID, content)
	if err != nil {
		close(chunks)
		return nil, err
	}
	defer exchange.cancel()

	collected := make(chan string)
	done := make(chan string)
	go func() {
		var full string
		for delta := range collected {
			full += delta
			chunks <- delta
		}
		close(chunks)
		done <- full
	}()

	usage, streamErr := exchange.provider.StreamChat(exchange.ctx, exchange.messages, collected)
	close(collected)
	full := <-done

	if streamErr != nil {
		return nil, fmt.Errorf("model stream failed: %w", streamErr)
	}

	var tokens types.TokenUsage
	if usage != nil {
		tokens = *usage
	}
	if err := m.settle(exchange, content, full, tokens); err != nil {
		return nil, err
	}

	return &types.LLMResponse{
		Content: full,
		Model:   exchange.provider.Model(),
		Usage:   tokens,
	}, nil
}

// History returns the full persisted transcript of a session.
func (m *Manager) History(userID, sessionID string) ([]*types.ChatMessageRecord, error) {
	session, err := m.sessions.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, ErrForbidden
	}
	return m.sessions.ListMessages(sessionID)
}

// exchange carries the per-call state assembled by prepare.
type exchange struct {
	ctx      context.Context
	cancel   context.CancelFunc
	session  *types.ChatSession
	agent    *types.DeployedAgent
	provider llm.Provider
	messages []types.ChatMessage
}

func (m *Manager) prepare(ctx context.Context, userID, sessionID, content string) (*exchange, error) {
	session, err := m.sessions.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, ErrForbidden
	}

	agent, err := m.agents.GetAgent(session.AgentID)
	if err != nil {
		return nil, err
	}
	if agent.Status != types.AgentActive {
		return nil, ErrAgentDisabled
	}

	ok, err := m.ledger.HasCredits(userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, credits.ErrInsufficientCredits
	}

	provider, err := m.providers.ProviderFor(userID, agent.Compiled.Head)
	if err != nil {
		return nil, err
	}

	messages := m.assemble(sessionID, &agent.Compiled, content)

	callCtx, cancel := context.WithTimeout(ctx, callTimeout(&agent.Compiled))
	return &exchange{
		ctx:      callCtx,
		cancel:   cancel,
		session:  session,
		agent:    agent,
		provider: provider,
		messages: messages,
	}, nil
}

// assemble builds the prompt: system prompt from the head, a memory window
// sized by the heart, then the new user message. Agents without a heart are
// stateless and see only the current message.
func (m *Manager) assemble(sessionID string, compiled *types.Blueprint, content string) []types.ChatMessage {
	var messages []types.ChatMessage

	if compiled.Head != nil && compiled.Head.SystemPrompt != "" {
		messages = append(messages, types.ChatMessage{Role: "system", Content: compiled.Head.SystemPrompt})
	}

	window := 0
	if compiled.Heart != nil && compiled.Heart.MemoryEnabled {
		window = compiled.Heart.HistoryLength
	}
	if window > 0 {
		messages = append(messages, m.recentHistory(sessionID, window)...)
	}

	return append(messages, types.ChatMessage{Role: "user", Content: content})
}

func (m *Manager) recentHistory(sessionID string, window int) []types.ChatMessage {
	if cached, ok := m.history.Get(sessionID); ok {
		if len(cached) > window {
			return cached[len(cached)-window:]
		}
		return cached
	}

	records, err := m.sessions.RecentMessages(sessionID, window)
	if err != nil {
		log.Printf("chat: failed to load history for session %s: %v", sessionID, err)
		return nil
	}

	history := make([]types.ChatMessage, 0, len(records))
	for _, r := range records {
		history = append(history, types.ChatMessage{Role: r.Role, Content: r.Content})
	}
	m.history.Add(sessionID, history)
	return history
}

// settle persists both turns, charges the call and refreshes the cached
// transcript.
func (m *Manager) settle(ex *exchange, userContent, assistantContent string, usage types.TokenUsage) error {
	now := time.Now().UTC()
	if err := m.sessions.AppendMessage(&types.ChatMessageRecord{
		SessionID: ex.session.ID,
		Role:      "user",
		Content:   userContent,
		CreatedAt: now,
	}); err != nil {
		return fmt.Errorf("failed to persist user message: %w", err)
	}
	if err := m.sessions.AppendMessage(&types.ChatMessageRecord{
		SessionID: ex.session.ID,
		Role:      "assistant",
		Content:   assistantContent,
	}); err != nil {
		return fmt.Errorf("failed to persist assistant message: %w", err)
	}

	if cached, ok := m.history.Get(ex.session.ID); ok {
		m.history.Add(ex.session.ID, append(cached,
			types.ChatMessage{Role: "user", Content: userContent},
			types.ChatMessage{Role: "assistant", Content: assistantContent},
		))
	}

	model := ""
	if ex.agent.Compiled.Head != nil {
		model = ex.agent.Compiled.Head.Model
	}
	// The charge may push the balance negative; the balance check in prepare
	// blocks the next call.
	return m.ledger.Charge(ex.session.UserID, &types.UsageEvent{
		AgentID:          ex.agent.ID,
		SessionID:        ex.session.ID,
		Model:            model,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
	})
}

func callTimeout(compiled *types.Blueprint) time.Duration {
	secs := blueprint.DefaultTimeoutSecs
	if compiled.Spine != nil && compiled.Spine.TimeoutSeconds != nil && *compiled.Spine.TimeoutSeconds > 0 {
		secs = *compiled.Spine.TimeoutSeconds
	}
	return time.Duration(secs) * time.Second
}
