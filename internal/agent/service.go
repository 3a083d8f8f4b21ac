// Package agent turns saved blueprints into deployed, chat-able agents.
package agent

import (
	"errors"
	"fmt"

	"github.com/frankenlab/frankend/internal/blueprint"
	"github.com/frankenlab/frankend/internal/store"
	"github.com/frankenlab/frankend/pkg/types"
)

var (
	ErrForbidden = errors.New("agent does not belong to user")

	// ErrNotReady means the configuration failed the readiness checks and
	// cannot be deployed.
	ErrNotReady = errors.New("configuration is not ready to deploy")
)

// Service deploys agents and manages their lifecycle.
type Service struct {
	agents     *store.AgentStore
	blueprints *store.BlueprintStore
}

// NewService creates an agent service.
func NewService(agents *store.AgentStore, blueprints *store.BlueprintStore) *Service {
	return &Service{agents: agents, blueprints: blueprints}
}

// Deploy compiles a saved blueprint and creates an active agent from it. The
// compiled output is frozen on the agent: later edits to the blueprint do not
// affect it. Deployment requires a strict export so a deployed agent never
// carries unresolved components.
func (s *Service) Deploy(userID, blueprintID, name string) (*types.DeployedAgent, error) {
	saved, err := s.blueprints.GetBlueprint(blueprintID)
	if err != nil {
		return nil, err
	}
	if saved.OwnerID != userID {
		return nil, ErrForbidden
	}

	result := blueprint.CheckReadiness(saved.Configuration)
	if !result.Valid {
		return nil, fmt.Errorf("%w: %s", ErrNotReady, result.Errors[0])
	}

	compiled, err := blueprint.Export(saved.Configuration)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotReady, err)
	}

	if name == "" {
		name = saved.Name
	}
	if name == "" {
		name = compiled.Name
	}

	deployed := &types.DeployedAgent{
		OwnerID:     userID,
		BlueprintID: blueprintID,
		Name:        name,
		Compiled:    compiled,
		Status:      types.AgentActive,
	}
	if err := s.agents.CreateAgent(deployed); err != nil {
		return nil, err
	}

	// Keep the compiled output on the blueprint too, so the editor can show
	// what was deployed.
	saved.Compiled = &compiled
	if err := s.blueprints.UpdateBlueprint(saved); err != nil {
		return nil, err
	}

	return deployed, nil
}

// Get returns one of the user's agents.
func (s *Service) Get(userID, agentID string) (*types.DeployedAgent, error) {
	agent, err := s.agents.GetAgent(agentID)
	if err != nil {
		return nil, err
	}
	if agent.OwnerID != userID {
		return nil, ErrForbidden
	}
	return agent, nil
}

// List returns the user's agents, newest first.
func (s *Service) List(userID string) ([]*types.DeployedAgent, error) {
	return s.agents.ListAgents(userID)
}

// SetStatus enables or disables one of the user's agents.
func (s *Service) SetStatus(userID, agentID string, status types.AgentStatus) (*types.DeployedAgent, error) {
	agent, err := s.Get(userID, agentID)
	if err != nil {
		return nil, err
	}
	if err := s.agents.SetAgentStatus(agent.ID, status); err != nil {
		return nil, err
	}
	agent.Status = status
	return agent, nil
}

// Delete removes one of the user's agents along with its sessions.
func (s *Service) Delete(userID, agentID string) error {
	if _, err := s.Get(userID, agentID); err != nil {
		return err
	}
	return s.agents.DeleteAgent(agentID)
}
