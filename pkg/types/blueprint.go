// Package types provides shared type definitions for the FrankenAgent Lab backend.
package types

import "time"

// ComponentKind identifies which body slot a catalog entry occupies.
type ComponentKind string

const (
	KindHead  ComponentKind = "head"
	KindArm   ComponentKind = "arm"
	KindHeart ComponentKind = "heart"
	KindLeg   ComponentKind = "leg"
	KindSpine ComponentKind = "spine"
)

// ExecutionMode is the backend execution-mode enum.
type ExecutionMode string

const (
	ModeSingleAgent ExecutionMode = "single_agent"
	ModeTeam        ExecutionMode = "team"
	ModeWorkflow    ExecutionMode = "workflow"
)

// Position is canvas placement for a component instance. Layout only,
// never semantic.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ComponentInstance is a placed, configured reference to a catalog entry.
// Config keys follow the catalog entry's declared parameter names
// (UI camelCase, e.g. "systemPrompt", "maxResults").
type ComponentInstance struct {
	InstanceID string         `json:"instance_id"`
	CatalogID  string         `json:"catalog_id"`
	Name       string         `json:"name"`
	Category   string         `json:"category,omitempty"`
	Color      string         `json:"color,omitempty"`
	Config     map[string]any `json:"config,omitempty"`
	Position   Position       `json:"position"`
}

// TeamMember is one member agent of a team configuration. The member at
// position 0 is the leader.
type TeamMember struct {
	Name  string              `json:"name"`
	Role  string              `json:"role"` // "leader" or "member"
	Head  *ComponentInstance  `json:"head,omitempty"`
	Arms  []ComponentInstance `json:"arms,omitempty"`
	Heart *ComponentInstance  `json:"heart,omitempty"`
}

// AgentConfiguration is the working document assembled in the editor.
// TeamMembers is populated only while the leg selects team mode.
type AgentConfiguration struct {
	Head        *ComponentInstance  `json:"head,omitempty"`
	Arms        []ComponentInstance `json:"arms,omitempty"`
	Heart       *ComponentInstance  `json:"heart,omitempty"`
	Leg         *ComponentInstance  `json:"leg,omitempty"`
	Spine       *ComponentInstance  `json:"spine,omitempty"`
	TeamMembers []TeamMember        `json:"team_members,omitempty"`
}

// Blueprint is the backend-shaped configuration document. Key names on the
// nested specs are a wire contract shared with the compile service and must
// not change.
type Blueprint struct {
	Name  string     `json:"name"`
	Head  *HeadSpec  `json:"head,omitempty"`
	Arms  []ArmSpec  `json:"arms,omitempty"`
	Legs  LegSpec    `json:"legs"`
	Heart *HeartSpec `json:"heart,omitempty"`
	Spine *SpineSpec `json:"spine,omitempty"`
}

// HeadSpec describes the language-model driver.
type HeadSpec struct {
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	SystemPrompt string  `json:"system_prompt"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
}

// ArmSpec describes one invocable tool.
type ArmSpec struct {
	Type   string         `json:"type"`
	Config map[string]any `json:"config"`
}

// LegSpec describes the execution mode and, in team mode, the members.
type LegSpec struct {
	ExecutionMode string           `json:"execution_mode"`
	TeamMembers   []TeamMemberSpec `json:"team_members,omitempty"`
}

// TeamMemberSpec is the backend shape of one team member.
type TeamMemberSpec struct {
	Name  string     `json:"name"`
	Role  string     `json:"role"`
	Head  *HeadSpec  `json:"head,omitempty"`
	Arms  []ArmSpec  `json:"arms,omitempty"`
	Heart *HeartSpec `json:"heart,omitempty"`
}

// HeartSpec describes the memory policy.
type HeartSpec struct {
	MemoryEnabled    bool `json:"memory_enabled"`
	HistoryLength    int  `json:"history_length"`
	KnowledgeEnabled bool `json:"knowledge_enabled"`
}

// SpineSpec holds at most one active guardrail. An unrecognized guardrail
// id produces the empty object.
type SpineSpec struct {
	MaxToolCalls   *int     `json:"max_tool_calls,omitempty"`
	TimeoutSeconds *int     `json:"timeout_seconds,omitempty"`
	AllowedDomains []string `json:"allowed_domains,omitempty"`
}

// ValidationResult reports configuration completeness. Errors carries every
// violated rule, in rule order.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// SavedBlueprint is a persisted blueprint row.
type SavedBlueprint struct {
	ID            string             `json:"id"`
	OwnerID       string             `json:"owner_id"`
	Name          string             `json:"name"`
	Description   string             `json:"description,omitempty"`
	Configuration AgentConfiguration `json:"configuration"`
	Compiled      *Blueprint         `json:"compiled,omitempty"`
	Public        bool               `json:"public"`
	CloneCount    int                `json:"clone_count"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// MarketplaceListing is the public view of a published blueprint.
type MarketplaceListing struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	AuthorName  string    `json:"author_name"`
	CloneCount  int       `json:"clone_count"`
	PublishedAt time.Time `json:"published_at"`
}
