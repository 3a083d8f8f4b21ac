package types

import "time"

// AgentStatus represents the lifecycle state of a deployed agent.
type AgentStatus string

const (
	AgentActive   AgentStatus = "active"
	AgentDisabled AgentStatus = "disabled"
)

// DeployedAgent is a blueprint that has been compiled and made chat-able.
// Compiled is the converter output frozen at deploy time; later edits to the
// source blueprint do not affect a running agent.
type DeployedAgent struct {
	ID          string      `json:"id"`
	OwnerID     string      `json:"owner_id"`
	BlueprintID string      `json:"blueprint_id,omitempty"`
	Name        string      `json:"name"`
	Compiled    Blueprint   `json:"compiled"`
	Status      AgentStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
}
