package blueprint

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankenlab/frankend/pkg/types"
)

func headInstance(catalogID string, conf map[string]any) *types.ComponentInstance {
	def, _ := Lookup(catalogID)
	return &types.ComponentInstance{
		InstanceID: "inst-" + catalogID,
		CatalogID:  catalogID,
		Name:       def.Name,
		Config:     conf,
	}
}

func legInstance(catalogID string) *types.ComponentInstance {
	return &types.ComponentInstance{
		InstanceID: "inst-" + catalogID,
		CatalogID:  catalogID,
	}
}

func TestConvertMinimalSingleAgent(t *testing.T) {
	cfg := types.AgentConfiguration{
		Head: &types.ComponentInstance{InstanceID: "i1", CatalogID: "gpt4o-mini", Config: map[string]any{}},
		Leg:  legInstance("single-agent"),
	}

	bp := Convert(cfg)

	assert.Equal(t, "Unnamed Agent", bp.Name)
	require.NotNil(t, bp.Head)
	assert.Equal(t, "openai", bp.Head.Provider)
	assert.Equal(t, "gpt-4o-mini", bp.Head.Model)
	assert.Equal(t, "You are a helpful AI assistant.", bp.Head.SystemPrompt)
	assert.Equal(t, 0.7, bp.Head.Temperature)
	assert.Equal(t, 1000, bp.Head.MaxTokens)
	assert.Equal(t, "single_agent", bp.Legs.ExecutionMode)

	// Unsupplied sections stay absent from the document.
	assert.Nil(t, bp.Arms)
	assert.Nil(t, bp.Heart)
	assert.Nil(t, bp.Spine)

	data, err := json.Marshal(bp)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"arms"`)
	assert.NotContains(t, string(data), `"heart"`)
	assert.NotContains(t, string(data), `"spine"`)
}

func TestConvertIsIdempotent(t *testing.T) {
	cfg := types.AgentConfiguration{
		Head: headInstance("claude-sonnet", map[string]any{"temperature": 0.2}),
		Arms: []types.ComponentInstance{
			{InstanceID: "a1", CatalogID: "web-search", Config: map[string]any{"maxResults": 9}},
			{InstanceID: "a2", CatalogID: "calculator"},
		},
		Heart: &types.ComponentInstance{InstanceID: "h1", CatalogID: "conversation-memory"},
		Leg:   legInstance("single-agent"),
		Spine: &types.ComponentInstance{InstanceID: "s1", CatalogID: "timeout"},
	}

	first := Convert(cfg)
	second := Convert(cfg)

	assert.Equal(t, first, second)
}

func TestConvertUsesHeadDisplayName(t *testing.T) {
	cfg := types.AgentConfiguration{
		Head: headInstance("gpt4o", nil),
		Leg:  legInstance("workflow"),
	}

	bp := Convert(cfg)

	assert.Equal(t, "GPT-4o", bp.Name)
	assert.Equal(t, "workflow", bp.Legs.ExecutionMode)
}

func TestConvertAppliesToolDefaultsAndKeyTranslation(t *testing.T) {
	cfg := types.AgentConfiguration{
		Head: headInstance("gpt4o-mini", nil),
		Leg:  legInstance("single-agent"),
		Arms: []types.ComponentInstance{
			{InstanceID: "a1", CatalogID: "web-search", Config: map[string]any{"maxResults": 20}},
			{InstanceID: "a2", CatalogID: "code-runner"},
		},
	}

	bp := Convert(cfg)

	require.Len(t, bp.Arms, 2)
	assert.Equal(t, "web_search", bp.Arms[0].Type)
	assert.Equal(t, 20, bp.Arms[0].Config["max_results"])
	assert.Equal(t, "basic", bp.Arms[0].Config["search_depth"])
	assert.NotContains(t, bp.Arms[0].Config, "maxResults")

	assert.Equal(t, "code_runner", bp.Arms[1].Type)
	assert.Equal(t, "python", bp.Arms[1].Config["language"])
}

func TestConvertUnknownToolPassesThrough(t *testing.T) {
	cfg := types.AgentConfiguration{
		Head: headInstance("gpt4o-mini", nil),
		Leg:  legInstance("single-agent"),
		Arms: []types.ComponentInstance{
			{InstanceID: "a1", CatalogID: "quantum-oracle", Config: map[string]any{"qubits": 4}},
		},
	}

	bp := Convert(cfg)

	require.Len(t, bp.Arms, 1)
	assert.Equal(t, "quantum-oracle", bp.Arms[0].Type)
	assert.Empty(t, bp.Arms[0].Config)
	assert.NotNil(t, bp.Arms[0].Config)
}

func TestConvertUnknownLegPassesThrough(t *testing.T) {
	cfg := types.AgentConfiguration{
		Head: headInstance("gpt4o-mini", nil),
		Leg:  legInstance("swarm"),
	}

	bp := Convert(cfg)

	assert.Equal(t, "swarm", bp.Legs.ExecutionMode)
}

func TestConvertUnknownHeadPassesIDThrough(t *testing.T) {
	cfg := types.AgentConfiguration{
		Head: &types.ComponentInstance{InstanceID: "i1", CatalogID: "claude-next"},
		Leg:  legInstance("single-agent"),
	}

	bp := Convert(cfg)

	require.NotNil(t, bp.Head)
	assert.Equal(t, "anthropic", bp.Head.Provider)
	assert.Equal(t, "claude-next", bp.Head.Model)
	assert.Equal(t, 0.7, bp.Head.Temperature)
}

func TestConvertSpineVariants(t *testing.T) {
	base := types.AgentConfiguration{
		Head: headInstance("gpt4o-mini", nil),
		Leg:  legInstance("single-agent"),
	}

	t.Run("tool call limit default", func(t *testing.T) {
		cfg := base
		cfg.Spine = &types.ComponentInstance{InstanceID: "s1", CatalogID: "max-tool-calls"}
		bp := Convert(cfg)
		require.NotNil(t, bp.Spine)
		require.NotNil(t, bp.Spine.MaxToolCalls)
		assert.Equal(t, 10, *bp.Spine.MaxToolCalls)
		assert.Nil(t, bp.Spine.TimeoutSeconds)
		assert.Nil(t, bp.Spine.AllowedDomains)
	})

	t.Run("timeout configured", func(t *testing.T) {
		cfg := base
		cfg.Spine = &types.ComponentInstance{
			InstanceID: "s1",
			CatalogID:  "timeout",
			Config:     map[string]any{"timeoutSeconds": 120},
		}
		bp := Convert(cfg)
		require.NotNil(t, bp.Spine)
		require.NotNil(t, bp.Spine.TimeoutSeconds)
		assert.Equal(t, 120, *bp.Spine.TimeoutSeconds)
	})

	t.Run("allowed domains", func(t *testing.T) {
		cfg := base
		cfg.Spine = &types.ComponentInstance{
			InstanceID: "s1",
			CatalogID:  "allowed-domains",
			Config:     map[string]any{"allowedDomains": []any{"example.com", "api.example.com"}},
		}
		bp := Convert(cfg)
		require.NotNil(t, bp.Spine)
		assert.Equal(t, []string{"example.com", "api.example.com"}, bp.Spine.AllowedDomains)
	})

	t.Run("unknown guardrail yields empty object", func(t *testing.T) {
		cfg := base
		cfg.Spine = &types.ComponentInstance{InstanceID: "s1", CatalogID: "rate-limit"}
		bp := Convert(cfg)
		require.NotNil(t, bp.Spine)
		assert.Equal(t, types.SpineSpec{}, *bp.Spine)
	})
}

func TestConvertHeartDefaults(t *testing.T) {
	cfg := types.AgentConfiguration{
		Head:  headInstance("gpt4o-mini", nil),
		Leg:   legInstance("single-agent"),
		Heart: &types.ComponentInstance{InstanceID: "h1", CatalogID: "conversation-memory"},
	}

	bp := Convert(cfg)

	require.NotNil(t, bp.Heart)
	assert.True(t, bp.Heart.MemoryEnabled)
	assert.Equal(t, 10, bp.Heart.HistoryLength)
	assert.False(t, bp.Heart.KnowledgeEnabled)
}

func TestConvertTeamUsesLeaderNameAndHead(t *testing.T) {
	cfg := types.AgentConfiguration{
		Leg: legInstance("team"),
		TeamMembers: []types.TeamMember{
			{
				Name: "Research Lead",
				Role: "leader",
				Head: headInstance("claude-sonnet", nil),
				Arms: []types.ComponentInstance{
					{InstanceID: "a1", CatalogID: "web-search"},
				},
			},
			{Name: "Scribe", Role: "member"},
		},
	}

	bp := Convert(cfg)

	assert.Equal(t, "Research Lead", bp.Name)
	require.NotNil(t, bp.Head, "leader's head backs the team blueprint")
	assert.Equal(t, "claude-sonnet-4-20250514", bp.Head.Model)
	assert.Equal(t, "team", bp.Legs.ExecutionMode)

	require.Len(t, bp.Legs.TeamMembers, 2)
	assert.Equal(t, "Research Lead", bp.Legs.TeamMembers[0].Name)
	require.NotNil(t, bp.Legs.TeamMembers[0].Head)
	require.Len(t, bp.Legs.TeamMembers[0].Arms, 1)
	assert.Equal(t, "web_search", bp.Legs.TeamMembers[0].Arms[0].Type)
	assert.Nil(t, bp.Legs.TeamMembers[1].Head)
}

func TestConvertTeamNameFallback(t *testing.T) {
	cfg := types.AgentConfiguration{
		Leg:         legInstance("team"),
		TeamMembers: []types.TeamMember{},
	}

	bp := Convert(cfg)

	assert.Equal(t, "Team Agent", bp.Name)
	assert.Nil(t, bp.Head)
}
