package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankenlab/frankend/pkg/types"
)

func createTestAgent(t *testing.T, s *Store, ownerID string) *types.DeployedAgent {
	t.Helper()
	agent := &types.DeployedAgent{
		OwnerID: ownerID,
		Name:    "Test Agent",
		Compiled: types.Blueprint{
			Name: "Test Agent",
			Head: &types.HeadSpec{Provider: "openai", Model: "gpt-4o-mini"},
			Legs: types.LegSpec{ExecutionMode: string(types.ModeSingleAgent)},
		},
	}
	require.NoError(t, NewAgentStore(s).CreateAgent(agent))
	return agent
}

func TestAgentCRUD(t *testing.T) {
	s := newTestStore(t)
	agents := NewAgentStore(s)
	user := createTestUser(t, s, "agents@example.com")

	agent := createTestAgent(t, s, user.ID)
	assert.Equal(t, types.AgentActive, agent.Status)

	got, err := agents.GetAgent(agent.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test Agent", got.Name)
	require.NotNil(t, got.Compiled.Head)
	assert.Equal(t, "gpt-4o-mini", got.Compiled.Head.Model)

	require.NoError(t, agents.SetAgentStatus(agent.ID, types.AgentDisabled))
	got, err = agents.GetAgent(agent.ID)
	require.NoError(t, err)
	assert.Equal(t, types.AgentDisabled, got.Status)

	list, err := agents.ListAgents(user.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, agents.DeleteAgent(agent.ID))
	_, err = agents.GetAgent(agent.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)
	sessions := NewSessionStore(s)
	user := createTestUser(t, s, "sessions@example.com")
	agent := createTestAgent(t, s, user.ID)

	session := &types.ChatSession{AgentID: agent.ID, UserID: user.ID, Title: "First chat"}
	require.NoError(t, sessions.CreateSession(session))
	assert.NotEmpty(t, session.ID)

	got, err := sessions.GetSession(session.ID)
	require.NoError(t, err)
	assert.Equal(t, agent.ID, got.AgentID)

	list, err := sessions.ListSessions(agent.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, sessions.DeleteSession(session.ID))
	_, err = sessions.GetSession(session.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppendMessageAssignsSequentialIndexes(t *testing.T) {
	s := newTestStore(t)
	sessions := NewSessionStore(s)
	user := createTestUser(t, s, "msgs@example.com")
	agent := createTestAgent(t, s, user.ID)

	session := &types.ChatSession{AgentID: agent.ID, UserID: user.ID}
	require.NoError(t, sessions.CreateSession(session))

	for i, content := range []string{"hello", "hi there", "how are you?"} {
		msg := &types.ChatMessageRecord{
			SessionID: session.ID,
			Role:      "user",
			Content:   content,
		}
		require.NoError(t, sessions.AppendMessage(msg))
		assert.Equal(t, i, msg.Index)
	}

	messages, err := sessions.ListMessages(session.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "hello", messages[0].Content)
	assert.Equal(t, "how are you?", messages[2].Content)
}

func TestRecentMessagesWindow(t *testing.T) {
	s := newTestStore(t)
	sessions := NewSessionStore(s)
	user := createTestUser(t, s, "window@example.com")
	agent := createTestAgent(t, s, user.ID)

	session := &types.ChatSession{AgentID: agent.ID, UserID: user.ID}
	require.NoError(t, sessions.CreateSession(session))

	for i := 0; i < 5; i++ {
		require.NoError(t, sessions.AppendMessage(&types.ChatMessageRecord{
			SessionID: session.ID,
			Role:      "user",
			Content:   fmt.Sprintf("message %d", i),
		}))
	}

	recent, err := sessions.RecentMessages(session.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "message 3", recent[0].Content)
	assert.Equal(t, "message 4", recent[1].Content)

	empty, err := sessions.RecentMessages(session.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDeleteAgentCascadesSessions(t *testing.T) {
	s := newTestStore(t)
	sessions := NewSessionStore(s)
	user := createTestUser(t, s, "cascade@example.com")
	agent := createTestAgent(t, s, user.ID)

	session := &types.ChatSession{AgentID: agent.ID, UserID: user.ID}
	require.NoError(t, sessions.CreateSession(session))
	require.NoError(t, sessions.AppendMessage(&types.ChatMessageRecord{
		SessionID: session.ID, Role: "user", Content: "hello",
	}))

	require.NoError(t, NewAgentStore(s).DeleteAgent(agent.ID))

	_, err := sessions.GetSession(session.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	messages, err := sessions.ListMessages(session.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestUsageEventsAndSummary(t *testing.T) {
	s := newTestStore(t)
	usage := NewUsageStore(s)
	user := createTestUser(t, s, "usage@example.com")
	agent := createTestAgent(t, s, user.ID)

	for i := 0; i < 3; i++ {
		require.NoError(t, usage.AppendUsage(&types.UsageEvent{
			UserID:           user.ID,
			AgentID:          agent.ID,
			SessionID:        "sess-1",
			Model:            "gpt-4o-mini",
			PromptTokens:     100,
			CompletionTokens: 50,
			Cost:             0.15,
		}))
	}

	events, err := usage.ListUsage(user.ID, 2)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	summary, err := usage.SummarizeUsage(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalEvents)
	assert.Equal(t, 300, summary.PromptTokens)
	assert.Equal(t, 150, summary.CompletionTokens)
	assert.InDelta(t, 0.45, summary.TotalCost, 1e-9)
}
