package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankenlab/frankend/internal/store"
	"github.com/frankenlab/frankend/pkg/types"
)

func newTestService(t *testing.T) (*Service, *store.BlueprintStore, *types.User) {
	t.Helper()

	s, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	users := store.NewUserStore(s)
	user := &types.User{Email: "deploy@example.com", Name: "Deployer", PasswordHash: "h"}
	require.NoError(t, users.CreateUser(user))

	blueprints := store.NewBlueprintStore(s)
	return NewService(store.NewAgentStore(s), blueprints), blueprints, user
}

func readyConfiguration() types.AgentConfiguration {
	return types.AgentConfiguration{
		Head: &types.ComponentInstance{
			InstanceID: "inst-head",
			CatalogID:  "gpt4o-mini",
			Name:       "GPT-4o Mini",
		},
		Leg: &types.ComponentInstance{
			InstanceID: "inst-leg",
			CatalogID:  "single-agent",
		},
	}
}

func savedBlueprint(t *testing.T, blueprints *store.BlueprintStore, ownerID string, cfg types.AgentConfiguration) *types.SavedBlueprint {
	t.Helper()
	bp := &types.SavedBlueprint{OwnerID: ownerID, Name: "My Agent", Configuration: cfg}
	require.NoError(t, blueprints.CreateBlueprint(bp))
	return bp
}

func TestDeployFreezesCompiledOutput(t *testing.T) {
	svc, blueprints, user := newTestService(t)
	bp := savedBlueprint(t, blueprints, user.ID, readyConfiguration())

	agent, err := svc.Deploy(user.ID, bp.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "My Agent", agent.Name)
	assert.Equal(t, types.AgentActive, agent.Status)
	require.NotNil(t, agent.Compiled.Head)
	assert.Equal(t, "gpt-4o-mini", agent.Compiled.Head.Model)
	assert.Equal(t, "openai", agent.Compiled.Head.Provider)

	// Deploy also records the compiled output on the blueprint.
	saved, err := blueprints.GetBlueprint(bp.ID)
	require.NoError(t, err)
	require.NotNil(t, saved.Compiled)

	// Editing the blueprint afterwards does not touch the deployed agent.
	saved.Configuration.Head.CatalogID = "claude-sonnet"
	require.NoError(t, blueprints.UpdateBlueprint(saved))

	got, err := svc.Get(user.ID, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", got.Compiled.Head.Model)
}

func TestDeployCustomName(t *testing.T) {
	svc, blueprints, user := newTestService(t)
	bp := savedBlueprint(t, blueprints, user.ID, readyConfiguration())

	agent, err := svc.Deploy(user.ID, bp.ID, "Production Bot")
	require.NoError(t, err)
	assert.Equal(t, "Production Bot", agent.Name)
}

func TestDeployRejectsIncompleteConfiguration(t *testing.T) {
	svc, blueprints, user := newTestService(t)

	cfg := readyConfiguration()
	cfg.Head = nil
	bp := savedBlueprint(t, blueprints, user.ID, cfg)

	_, err := svc.Deploy(user.ID, bp.ID, "")
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestDeployRejectsUnknownComponents(t *testing.T) {
	svc, blueprints, user := newTestService(t)

	cfg := readyConfiguration()
	cfg.Head.CatalogID = "mystery-model"
	bp := savedBlueprint(t, blueprints, user.ID, cfg)

	// Lenient conversion would pass the id through; deployment refuses it.
	_, err := svc.Deploy(user.ID, bp.ID, "")
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestDeployOwnership(t *testing.T) {
	svc, blueprints, user := newTestService(t)
	bp := savedBlueprint(t, blueprints, user.ID, readyConfiguration())

	_, err := svc.Deploy("someone-else", bp.ID, "")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Deploy(user.ID, "missing", "")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStatusAndDelete(t *testing.T) {
	svc, blueprints, user := newTestService(t)
	bp := savedBlueprint(t, blueprints, user.ID, readyConfiguration())

	agent, err := svc.Deploy(user.ID, bp.ID, "")
	require.NoError(t, err)

	updated, err := svc.SetStatus(user.ID, agent.ID, types.AgentDisabled)
	require.NoError(t, err)
	assert.Equal(t, types.AgentDisabled, updated.Status)

	_, err = svc.SetStatus("someone-else", agent.ID, types.AgentActive)
	assert.ErrorIs(t, err, ErrForbidden)

	list, err := svc.List(user.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.ErrorIs(t, svc.Delete("someone-else", agent.ID), ErrForbidden)
	require.NoError(t, svc.Delete(user.ID, agent.ID))
	_, err = svc.Get(user.ID, agent.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
