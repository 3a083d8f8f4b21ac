package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankenlab/frankend/internal/credits"
	"github.com/frankenlab/frankend/internal/llm"
	"github.com/frankenlab/frankend/internal/store"
	"github.com/frankenlab/frankend/pkg/types"
)

// fakeProvider records the messages it was called with and replies with a
// canned response.
type fakeProvider struct {
	reply    string
	usage    types.TokenUsage
	err      error
	lastSent []types.ChatMessage
}

func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Model() string { return "fake-model" }

func (f *fakeProvider) Chat(ctx context.Context, messages []types.ChatMessage) (types.LLMResponse, error) {
	f.lastSent = messages
	if f.err != nil {
		return types.LLMResponse{}, f.err
	}
	return types.LLMResponse{Content: f.reply, Model: "fake-model", Usage: f.usage}, nil
}

func (f *fakeProvider) StreamChat(ctx context.Context, messages []types.ChatMessage, chunks chan<- string) (*types.TokenUsage, error) {
	f.lastSent = messages
	if f.err != nil {
		return nil, f.err
	}
	for _, r := range f.reply {
		chunks <- string(r)
	}
	usage := f.usage
	return &usage, nil
}

type fakeSource struct {
	provider *fakeProvider
	err      error
}

func (s *fakeSource) ProviderFor(userID string, head *types.HeadSpec) (llm.Provider, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.provider, nil
}

type fixture struct {
	manager *Manager
	user    *types.User
	agent   *types.DeployedAgent
	fake    *fakeProvider
	ledger  *credits.Ledger
}

func newFixture(t *testing.T, compiled types.Blueprint) *fixture {
	t.Helper()

	s, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	users := store.NewUserStore(s)
	user := &types.User{Email: "chat@example.com", Name: "Chatter", PasswordHash: "h", Credits: 10}
	require.NoError(t, users.CreateUser(user))

	agents := store.NewAgentStore(s)
	agent := &types.DeployedAgent{OwnerID: user.ID, Name: "Agent", Compiled: compiled}
	require.NoError(t, agents.CreateAgent(agent))

	ledger := credits.NewLedger(users, store.NewUsageStore(s), types.CreditsConfig{DefaultPrice: 0.01})
	fake := &fakeProvider{reply: "hello back", usage: types.TokenUsage{PromptTokens: 10, CompletionTokens: 5}}

	manager, err := NewManager(store.NewSessionStore(s), agents, &fakeSource{provider: fake}, ledger)
	require.NoError(t, err)

	return &fixture{manager: manager, user: user, agent: agent, fake: fake, ledger: ledger}
}

func statelessBlueprint() types.Blueprint {
	return types.Blueprint{
		Name: "Stateless",
		Head: &types.HeadSpec{
			Provider:     "openai",
			Model:        "gpt-4o-mini",
			SystemPrompt: "You are a helpful AI assistant.",
		},
		Legs: types.LegSpec{ExecutionMode: string(types.ModeSingleAgent)},
	}
}

func memoryBlueprint(window int) types.Blueprint {
	bp := statelessBlueprint()
	bp.Heart = &types.HeartSpec{MemoryEnabled: true, HistoryLength: window}
	return bp
}

func TestSendPersistsAndCharges(t *testing.T) {
	f := newFixture(t, statelessBlueprint())

	session, err := f.manager.StartSession(f.user.ID, f.agent.ID, "")
	require.NoError(t, err)

	response, err := f.manager.Send(context.Background(), f.user.ID, session.ID, "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello back", response.Content)

	history, err := f.manager.History(f.user.ID, session.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "hi", history[0].Content)
	assert.Equal(t, "assistant", history[1].Role)

	// 15 tokens at the 0.01/1k default.
	balance, err := f.ledger.Balance(f.user.ID)
	require.NoError(t, err)
	assert.InDelta(t, 10-0.00015, balance, 1e-9)
}

func TestSendIncludesSystemPrompt(t *testing.T) {
	f := newFixture(t, statelessBlueprint())

	session, err := f.manager.StartSession(f.user.ID, f.agent.ID, "")
	require.NoError(t, err)
	_, err = f.manager.Send(context.Background(), f.user.ID, session.ID, "hi")
	require.NoError(t, err)

	require.NotEmpty(t, f.fake.lastSent)
	assert.Equal(t, "system", f.fake.lastSent[0].Role)
	assert.Equal(t, "You are a helpful AI assistant.", f.fake.lastSent[0].Content)
}

func TestStatelessAgentSeesOnlyCurrentMessage(t *testing.T) {
	f := newFixture(t, statelessBlueprint())

	session, err := f.manager.StartSession(f.user.ID, f.agent.ID, "")
	require.NoError(t, err)

	_, err = f.manager.Send(context.Background(), f.user.ID, session.ID, "first")
	require.NoError(t, err)
	_, err = f.manager.Send(context.Background(), f.user.ID, session.ID, "second")
	require.NoError(t, err)

	// System prompt plus the new user message; no transcript.
	require.Len(t, f.fake.lastSent, 2)
	assert.Equal(t, "second", f.fake.lastSent[1].Content)
}

func TestMemoryWindowLimitsHistory(t *testing.T) {
	f := newFixture(t, memoryBlueprint(2))

	session, err := f.manager.StartSession(f.user.ID, f.agent.ID, "")
	require.NoError(t, err)

	for _, msg := range []string{"one", "two", "three"} {
		_, err = f.manager.Send(context.Background(), f.user.ID, session.ID, msg)
		require.NoError(t, err)
	}

	// system + 2 history turns + current message.
	require.Len(t, f.fake.lastSent, 4)
	assert.Equal(t, "two", f.fake.lastSent[1].Content)
	assert.Equal(t, "hello back", f.fake.lastSent[2].Content)
	assert.Equal(t, "three", f.fake.lastSent[3].Content)
}

func TestStreamDeliversChunksAndSettles(t *testing.T) {
	f := newFixture(t, statelessBlueprint())

	session, err := f.manager.StartSession(f.user.ID, f.agent.ID, "")
	require.NoError(t, err)

	chunks := make(chan string)
	var streamed string
	done := make(chan struct{})
	go func() {
		for c := range chunks {
			streamed += c
		}
		close(done)
	}()

	response, err := f.manager.Stream(context.Background(), f.user.ID, session.ID, "hi", chunks)
	<-done
	require.NoError(t, err)
	assert.Equal(t, "hello back", streamed)
	assert.Equal(t, "hello back", response.Content)

	history, err := f.manager.History(f.user.ID, session.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestSendForbiddenForOtherUsers(t *testing.T) {
	f := newFixture(t, statelessBlueprint())

	session, err := f.manager.StartSession(f.user.ID, f.agent.ID, "")
	require.NoError(t, err)

	_, err = f.manager.Send(context.Background(), "someone-else", session.ID, "hi")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.manager.History("someone-else", session.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSendToDisabledAgent(t *testing.T) {
	f := newFixture(t, statelessBlueprint())

	session, err := f.manager.StartSession(f.user.ID, f.agent.ID, "")
	require.NoError(t, err)

	s := f.manager.agents
	require.NoError(t, s.SetAgentStatus(f.agent.ID, types.AgentDisabled))

	_, err = f.manager.Send(context.Background(), f.user.ID, session.ID, "hi")
	assert.ErrorIs(t, err, ErrAgentDisabled)
}

func TestSendWithoutCredits(t *testing.T) {
	f := newFixture(t, statelessBlueprint())

	session, err := f.manager.StartSession(f.user.ID, f.agent.ID, "")
	require.NoError(t, err)

	// Drain the balance with one expensive call.
	f.fake.usage = types.TokenUsage{PromptTokens: 500000, CompletionTokens: 500000}
	_, err = f.manager.Send(context.Background(), f.user.ID, session.ID, "expensive")
	require.NoError(t, err)

	_, err = f.manager.Send(context.Background(), f.user.ID, session.ID, "hi again")
	assert.ErrorIs(t, err, credits.ErrInsufficientCredits)
}

func TestSendOverdrawCharged(t *testing.T) {
	f := newFixture(t, statelessBlueprint())

	session, err := f.manager.StartSession(f.user.ID, f.agent.ID, "")
	require.NoError(t, err)

	// 3M tokens at 0.01/1k = 30.0 credits against a 10.0 balance. The
	// exchange stands, the full cost is charged and the balance goes
	// negative.
	f.fake.usage = types.TokenUsage{PromptTokens: 1500000, CompletionTokens: 1500000}
	_, err = f.manager.Send(context.Background(), f.user.ID, session.ID, "expensive")
	require.NoError(t, err)

	balance, err := f.ledger.Balance(f.user.ID)
	require.NoError(t, err)
	assert.InDelta(t, -20.0, balance, 1e-9)

	history, err := f.manager.History(f.user.ID, session.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	events, err := f.ledger.History(f.user.ID, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.InDelta(t, 30.0, events[0].Cost, 1e-9)

	// The negative balance blocks the next call.
	_, err = f.manager.Send(context.Background(), f.user.ID, session.ID, "hi again")
	assert.ErrorIs(t, err, credits.ErrInsufficientCredits)
}

func TestSendModelError(t *testing.T) {
	f := newFixture(t, statelessBlueprint())

	session, err := f.manager.StartSession(f.user.ID, f.agent.ID, "")
	require.NoError(t, err)

	f.fake.err = errors.New("rate limited")
	_, err = f.manager.Send(context.Background(), f.user.ID, session.ID, "hi")
	require.Error(t, err)

	// Failed calls persist nothing and charge nothing.
	history, err := f.manager.History(f.user.ID, session.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	balance, err := f.ledger.Balance(f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, balance)
}

func TestStartSessionOwnership(t *testing.T) {
	f := newFixture(t, statelessBlueprint())

	_, err := f.manager.StartSession("someone-else", f.agent.ID, "")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.manager.StartSession(f.user.ID, "missing-agent", "")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
