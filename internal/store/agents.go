package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/frankenlab/frankend/pkg/types"
)

// AgentStore manages deployed agents.
type AgentStore struct {
	store *Store
}

// NewAgentStore creates an agent store backed by the given store.
func NewAgentStore(store *Store) *AgentStore {
	return &AgentStore{store: store}
}

// CreateAgent inserts a new deployed agent. The ID is assigned when empty.
func (a *AgentStore) CreateAgent(agent *types.DeployedAgent) error {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()

	if agent.ID == "" {
		agent.ID = uuid.New().String()
	}
	if agent.CreatedAt.IsZero() {
		agent.CreatedAt = time.Now().UTC()
	}
	if agent.Status == "" {
		agent.Status = types.AgentActive
	}

	compiled, err := json.Marshal(agent.Compiled)
	if err != nil {
		return fmt.Errorf("failed to marshal compiled blueprint: %w", err)
	}

	_, err = a.store.db.Exec(`
		INSERT INTO agents (id, owner_id, blueprint_id, name, compiled, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		agent.ID, agent.OwnerID, agent.BlueprintID, agent.Name,
		string(compiled), string(agent.Status),
		agent.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}
	return nil
}

// GetAgent retrieves a deployed agent by ID.
func (a *AgentStore) GetAgent(id string) (*types.DeployedAgent, error) {
	a.store.mu.RLock()
	defer a.store.mu.RUnlock()

	row := a.store.db.QueryRow(`
		SELECT id, owner_id, blueprint_id, name, compiled, status, created_at
		FROM agents WHERE id = ?`, id)
	return scanAgent(row)
}

func scanAgent(row *sql.Row) (*types.DeployedAgent, error) {
	var agent types.DeployedAgent
	var compiled, status, createdAt string
	err := row.Scan(&agent.ID, &agent.OwnerID, &agent.BlueprintID, &agent.Name,
		&compiled, &status, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	if err := json.Unmarshal([]byte(compiled), &agent.Compiled); err != nil {
		return nil, fmt.Errorf("failed to unmarshal compiled blueprint: %w", err)
	}
	agent.Status = types.AgentStatus(status)
	agent.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &agent, nil
}

// ListAgents returns a user's deployed agents, newest first.
func (a *AgentStore) ListAgents(ownerID string) ([]*types.DeployedAgent, error) {
	a.store.mu.RLock()
	defer a.store.mu.RUnlock()

	rows, err := a.store.db.Query(`
		SELECT id, owner_id, blueprint_id, name, compiled, status, created_at
		FROM agents WHERE owner_id = ?
		ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer rows.Close()

	var agents []*types.DeployedAgent
	for rows.Next() {
		var agent types.DeployedAgent
		var compiled, status, createdAt string
		err := rows.Scan(&agent.ID, &agent.OwnerID, &agent.BlueprintID,
			&agent.Name, &compiled, &status, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}
		if err := json.Unmarshal([]byte(compiled), &agent.Compiled); err != nil {
			return nil, fmt.Errorf("failed to unmarshal compiled blueprint: %w", err)
		}
		agent.Status = types.AgentStatus(status)
		agent.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		agents = append(agents, &agent)
	}
	return agents, rows.Err()
}

// SetAgentStatus updates the status of a deployed agent.
func (a *AgentStore) SetAgentStatus(id string, status types.AgentStatus) error {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()

	res, err := a.store.db.Exec(`UPDATE agents SET status = ? WHERE id = ?`,
		string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update agent status: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAgent removes a deployed agent and, via cascade, its sessions.
func (a *AgentStore) DeleteAgent(id string) error {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()

	res, err := a.store.db.Exec(`DELETE FROM agents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete agent: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
