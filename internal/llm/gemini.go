package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/frankenlab/frankend/pkg/types"
)

// GeminiProvider implements Provider for Google Gemini models.
type GeminiProvider struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
	// client initialization error, returned on first use
	initErr error
}

// NewGeminiProvider creates a Gemini provider. If client initialization
// fails, the error is stored and returned on first use.
func NewGeminiProvider(apiKey string, settings Settings) *GeminiProvider {
	p := &GeminiProvider{
		model:       settings.Model,
		maxTokens:   int32(settings.MaxTokens),
		temperature: float32(settings.Temperature),
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		p.initErr = fmt.Errorf("failed to initialize Gemini client: %w", err)
		return p
	}

	p.client = client
	return p
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

func (p *GeminiProvider) Model() string {
	return p.model
}

// Chat sends a completion request.
func (p *GeminiProvider) Chat(ctx context.Context, messages []types.ChatMessage) (types.LLMResponse, error) {
	if p.initErr != nil {
		return types.LLMResponse{}, p.initErr
	}

	contents, config := p.buildRequest(messages)

	response, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return types.LLMResponse{}, fmt.Errorf("chat completion failed: %w", err)
	}

	result := types.LLMResponse{
		Content: response.Text(),
		Model:   p.model,
	}
	if response.UsageMetadata != nil {
		result.Usage = types.TokenUsage{
			PromptTokens:     int(response.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(response.UsageMetadata.CandidatesTokenCount),
		}
	}
	return result, nil
}

// StreamChat streams a completion via the SDK's response iterator.
func (p *GeminiProvider) StreamChat(ctx context.Context, messages []types.ChatMessage, chunks chan<- string) (*types.TokenUsage, error) {
	if p.initErr != nil {
		return nil, p.initErr
	}

	contents, config := p.buildRequest(messages)

	var usage *types.TokenUsage
	for response, err := range p.client.Models.GenerateContentStream(ctx, p.model, contents, config) {
		if err != nil {
			return usage, fmt.Errorf("stream error: %w", err)
		}

		if response.UsageMetadata != nil {
			usage = &types.TokenUsage{
				PromptTokens:     int(response.UsageMetadata.PromptTokenCount),
				CompletionTokens: int(response.UsageMetadata.CandidatesTokenCount),
			}
		}

		text := response.Text()
		if text != "" {
			select {
			case chunks <- text:
			case <-ctx.Done():
				return usage, ctx.Err()
			}
		}
	}

	return usage, nil
}

func (p *GeminiProvider) buildRequest(messages []types.ChatMessage) ([]*genai.Content, *genai.GenerateContentConfig) {
	contents, systemInstruction := convertToGeminiMessages(messages)

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(p.temperature),
		MaxOutputTokens: p.maxTokens,
	}
	if systemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
	}
	return contents, config
}

// convertToGeminiMessages converts chat messages to Gemini's format. The
// system message becomes a system instruction.
func convertToGeminiMessages(messages []types.ChatMessage) ([]*genai.Content, string) {
	var contents []*genai.Content
	var systemInstruction string

	for _, msg := range messages {
		switch msg.Role {
		case "system":
			systemInstruction = msg.Content
		case "user":
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		case "assistant":
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		}
	}

	return contents, systemInstruction
}

var _ Provider = (*GeminiProvider)(nil)
