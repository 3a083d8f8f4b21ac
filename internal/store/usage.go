package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/frankenlab/frankend/pkg/types"
)

// UsageStore records token consumption and the credit cost of each model
// call.
type UsageStore struct {
	store *Store
}

// NewUsageStore creates a usage store backed by the given store.
func NewUsageStore(store *Store) *UsageStore {
	return &UsageStore{store: store}
}

// AppendUsage records a usage event. The ID is assigned when empty.
func (u *UsageStore) AppendUsage(event *types.UsageEvent) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	_, err := u.store.db.Exec(`
		INSERT INTO usage_events (id, user_id, agent_id, session_id, model,
			prompt_tokens, completion_tokens, cost, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.UserID, event.AgentID, event.SessionID, event.Model,
		event.PromptTokens, event.CompletionTokens, event.Cost,
		event.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

// ListUsage returns a user's most recent usage events, newest first.
func (u *UsageStore) ListUsage(userID string, limit int) ([]*types.UsageEvent, error) {
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	rows, err := u.store.db.Query(`
		SELECT id, user_id, agent_id, session_id, model, prompt_tokens,
			completion_tokens, cost, created_at
		FROM usage_events WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage: %w", err)
	}
	defer rows.Close()

	var events []*types.UsageEvent
	for rows.Next() {
		var event types.UsageEvent
		var createdAt string
		err := rows.Scan(&event.ID, &event.UserID, &event.AgentID,
			&event.SessionID, &event.Model, &event.PromptTokens,
			&event.CompletionTokens, &event.Cost, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan usage event: %w", err)
		}
		event.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		events = append(events, &event)
	}
	return events, rows.Err()
}

// SummarizeUsage aggregates a user's total consumption.
func (u *UsageStore) SummarizeUsage(userID string) (*types.UsageSummary, error) {
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()

	var summary types.UsageSummary
	err := u.store.db.QueryRow(`
		SELECT COUNT(*),
			COALESCE(SUM(prompt_tokens), 0),
			COALESCE(SUM(completion_tokens), 0),
			COALESCE(SUM(cost), 0)
		FROM usage_events WHERE user_id = ?`, userID).
		Scan(&summary.TotalEvents, &summary.PromptTokens,
			&summary.CompletionTokens, &summary.TotalCost)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize usage: %w", err)
	}
	return &summary, nil
}
