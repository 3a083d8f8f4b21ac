package types

import "time"

// ChatSession is one conversation with a deployed agent.
type ChatSession struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agent_id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatMessageRecord is a persisted message within a session.
type ChatMessageRecord struct {
	SessionID string    `json:"session_id"`
	Index     int       `json:"index"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// UsageEvent records billable token consumption for one provider call.
type UsageEvent struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	AgentID          string    `json:"agent_id"`
	SessionID        string    `json:"session_id"`
	Model            string    `json:"model"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	Cost             float64   `json:"cost"`
	CreatedAt        time.Time `json:"created_at"`
}

// UsageSummary aggregates a user's consumption.
type UsageSummary struct {
	TotalEvents      int     `json:"total_events"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalCost        float64 `json:"total_cost"`
}

// WebSocketMessage is the envelope for all /ws frames.
type WebSocketMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}
