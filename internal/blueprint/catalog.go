// Package blueprint implements the component catalog, the editor workbench
// state transitions, and the conversion of editor configurations into the
// backend blueprint document format.
package blueprint

import (
	"github.com/frankenlab/frankend/pkg/types"
)

// Generic head parameter defaults. Catalog entries declare these same values;
// the converter reads them through the definition table so the two can never
// drift.
const (
	DefaultSystemPrompt = "You are a helpful AI assistant."
	DefaultTemperature  = 0.7
	DefaultMaxTokens    = 1000
	DefaultSearchDepth  = "basic"
	DefaultMaxToolCalls = 10
	DefaultTimeoutSecs  = 60
)

// Well-known catalog ids referenced by the converter and workbench.
const (
	LegSingleAgent = "single-agent"
	LegTeam        = "team"
	LegWorkflow    = "workflow"

	SpineMaxToolCalls   = "max-tool-calls"
	SpineTimeout        = "timeout"
	SpineAllowedDomains = "allowed-domains"
)

// Definition is one catalog entry: display data, the backend mapping for the
// entry, and its declared parameter defaults keyed by UI config key.
type Definition struct {
	ID          string              `json:"id"`
	Kind        types.ComponentKind `json:"kind"`
	Name        string              `json:"name"`
	Category    string              `json:"category"`
	Color       string              `json:"color"`
	Description string              `json:"description,omitempty"`

	// Head entries only.
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`

	// Arm entries only.
	ToolType string `json:"tool_type,omitempty"`

	// Leg entries only.
	Mode types.ExecutionMode `json:"mode,omitempty"`

	Defaults map[string]any `json:"defaults,omitempty"`
}

// toolParam maps one UI config key to its backend key and default value.
// Params are ordered so converted configs are deterministic.
type toolParam struct {
	uiKey   string
	wireKey string
	def     any
}

// toolMapping ties a tool catalog id to its backend type tag and parameters.
type toolMapping struct {
	wireType string
	params   []toolParam
}

var toolMappings = map[string]toolMapping{
	"web-search": {
		wireType: "web_search",
		params: []toolParam{
			{uiKey: "maxResults", wireKey: "max_results", def: 5},
			{uiKey: "searchDepth", wireKey: "search_depth", def: DefaultSearchDepth},
		},
	},
	"calculator": {
		wireType: "calculator",
	},
	"code-runner": {
		wireType: "code_runner",
		params: []toolParam{
			{uiKey: "language", wireKey: "language", def: "python"},
		},
	},
	"http-request": {
		wireType: "http_request",
		params: []toolParam{
			{uiKey: "method", wireKey: "method", def: "GET"},
		},
	},
	"knowledge-search": {
		wireType: "knowledge_search",
		params: []toolParam{
			{uiKey: "topK", wireKey: "top_k", def: 3},
		},
	},
}

// headDefaults are the declared parameters shared by every head entry.
func headDefaults() map[string]any {
	return map[string]any{
		"systemPrompt": DefaultSystemPrompt,
		"temperature":  DefaultTemperature,
		"maxTokens":    DefaultMaxTokens,
	}
}

// toolDefaults builds a Defaults map from a tool's ordered params.
func toolDefaults(id string) map[string]any {
	m := toolMappings[id]
	if len(m.params) == 0 {
		return nil
	}
	out := make(map[string]any, len(m.params))
	for _, p := range m.params {
		out[p.uiKey] = p.def
	}
	return out
}

var catalog = []Definition{
	// Heads
	{ID: "gpt4o", Kind: types.KindHead, Name: "GPT-4o", Category: "LLM", Color: "#74aa9c",
		Provider: "openai", Model: "gpt-4o", Defaults: headDefaults()},
	{ID: "gpt4o-mini", Kind: types.KindHead, Name: "GPT-4o Mini", Category: "LLM", Color: "#74aa9c",
		Provider: "openai", Model: "gpt-4o-mini", Defaults: headDefaults()},
	{ID: "claude-sonnet", Kind: types.KindHead, Name: "Claude Sonnet", Category: "LLM", Color: "#d4a27f",
		Provider: "anthropic", Model: "claude-sonnet-4-20250514", Defaults: headDefaults()},
	{ID: "claude-haiku", Kind: types.KindHead, Name: "Claude Haiku", Category: "LLM", Color: "#d4a27f",
		Provider: "anthropic", Model: "claude-3-5-haiku-20241022", Defaults: headDefaults()},
	{ID: "gemini-flash", Kind: types.KindHead, Name: "Gemini Flash", Category: "LLM", Color: "#4285f4",
		Provider: "gemini", Model: "gemini-2.0-flash", Defaults: headDefaults()},

	// Arms
	{ID: "web-search", Kind: types.KindArm, Name: "Web Search", Category: "Tool", Color: "#5b8def",
		ToolType: "web_search", Defaults: toolDefaults("web-search")},
	{ID: "calculator", Kind: types.KindArm, Name: "Calculator", Category: "Tool", Color: "#f2a65a",
		ToolType: "calculator"},
	{ID: "code-runner", Kind: types.KindArm, Name: "Code Runner", Category: "Tool", Color: "#8e7cc3",
		ToolType: "code_runner", Defaults: toolDefaults("code-runner")},
	{ID: "http-request", Kind: types.KindArm, Name: "HTTP Request", Category: "Tool", Color: "#6aa84f",
		ToolType: "http_request", Defaults: toolDefaults("http-request")},
	{ID: "knowledge-search", Kind: types.KindArm, Name: "Knowledge Search", Category: "Tool", Color: "#c27ba0",
		ToolType: "knowledge_search", Defaults: toolDefaults("knowledge-search")},

	// Hearts
	{ID: "conversation-memory", Kind: types.KindHeart, Name: "Conversation Memory", Category: "Memory", Color: "#e06666",
		Defaults: map[string]any{"memoryEnabled": true, "historyLength": 10, "knowledgeEnabled": false}},
	{ID: "knowledge-base", Kind: types.KindHeart, Name: "Knowledge Base", Category: "Memory", Color: "#e06666",
		Defaults: map[string]any{"memoryEnabled": true, "historyLength": 10, "knowledgeEnabled": true}},

	// Legs
	{ID: LegSingleAgent, Kind: types.KindLeg, Name: "Single Agent", Category: "Execution", Color: "#ffd966",
		Mode: types.ModeSingleAgent},
	{ID: LegTeam, Kind: types.KindLeg, Name: "Agent Team", Category: "Execution", Color: "#ffd966",
		Mode: types.ModeTeam},
	{ID: LegWorkflow, Kind: types.KindLeg, Name: "Workflow", Category: "Execution", Color: "#ffd966",
		Mode: types.ModeWorkflow},

	// Spines
	{ID: SpineMaxToolCalls, Kind: types.KindSpine, Name: "Tool Call Limit", Category: "Guardrail", Color: "#999999",
		Defaults: map[string]any{"maxToolCalls": DefaultMaxToolCalls}},
	{ID: SpineTimeout, Kind: types.KindSpine, Name: "Timeout", Category: "Guardrail", Color: "#999999",
		Defaults: map[string]any{"timeoutSeconds": DefaultTimeoutSecs}},
	{ID: SpineAllowedDomains, Kind: types.KindSpine, Name: "Allowed Domains", Category: "Guardrail", Color: "#999999",
		Defaults: map[string]any{"allowedDomains": []string{}}},
}

var catalogByID = func() map[string]Definition {
	m := make(map[string]Definition, len(catalog))
	for _, d := range catalog {
		m[d.ID] = d
	}
	return m
}()

// Catalog returns all component definitions in display order.
func Catalog() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a catalog definition by id.
func Lookup(id string) (Definition, bool) {
	d, ok := catalogByID[id]
	return d, ok
}

// IsTeamMode reports whether the configuration's leg selects team mode.
func IsTeamMode(cfg types.AgentConfiguration) bool {
	return cfg.Leg != nil && cfg.Leg.CatalogID == LegTeam
}

// defaultFor reads a declared default from a definition, falling back to the
// supplied value when the definition does not declare the key.
func defaultFor(def Definition, key string, fallback any) any {
	if v, ok := def.Defaults[key]; ok {
		return v
	}
	return fallback
}

// Config readers. Instance config values arrive from JSON, so numbers may be
// float64 even for integer parameters.

func configString(cfg map[string]any, key string, def string) string {
	if v, ok := cfg[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

func configFloat(cfg map[string]any, key string, def float64) float64 {
	if v, ok := cfg[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case float32:
			return float64(n)
		case int:
			return float64(n)
		}
	}
	return def
}

func configInt(cfg map[string]any, key string, def int) int {
	if v, ok := cfg[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return def
}

func configBool(cfg map[string]any, key string, def bool) bool {
	if v, ok := cfg[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

func configStringSlice(cfg map[string]any, key string, def []string) []string {
	v, ok := cfg[key]
	if !ok {
		return def
	}
	switch s := v.(type) {
	case []string:
		out := make([]string, len(s))
		copy(out, s)
		return out
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return def
}

// asFloat converts a declared default to float64.
func asFloat(v any, fallback float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return fallback
}

// asInt converts a declared default to int.
func asInt(v any, fallback int) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return fallback
}

// asBool converts a declared default to bool.
func asBool(v any, fallback bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return fallback
}

// asString converts a declared default to string.
func asString(v any, fallback string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fallback
}
