// Package llm abstracts the model providers behind a single chat interface.
// Each implementation hides its SDK's client setup, request shape and
// streaming protocol.
package llm

import (
	"context"

	"github.com/frankenlab/frankend/pkg/types"
)

// Provider is the interface every model backend implements.
type Provider interface {
	// Name returns the provider name, used for logging.
	Name() string

	// Model returns the model this provider instance targets.
	Model() string

	// Chat sends a completion request and waits for the full response.
	Chat(ctx context.Context, messages []types.ChatMessage) (types.LLMResponse, error)

	// StreamChat streams a completion, sending text deltas to chunks. The
	// returned usage is nil when the provider does not report it.
	StreamChat(ctx context.Context, messages []types.ChatMessage, chunks chan<- string) (*types.TokenUsage, error)
}

// Settings carries the per-agent generation parameters applied to every
// call.
type Settings struct {
	Model       string
	Temperature float64
	MaxTokens   int
}
