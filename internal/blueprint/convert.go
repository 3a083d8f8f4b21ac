package blueprint

import (
	"log"
	"strings"

	"github.com/frankenlab/frankend/pkg/types"
)

// Name fallbacks used when no display name is available.
const (
	FallbackTeamName   = "Team Agent"
	FallbackSingleName = "Unnamed Agent"
)

// Convert maps an editor configuration onto the backend blueprint document.
// It is the lenient variant used by the validate/deploy path: it never fails,
// applies declared defaults for any omitted config value, and passes
// unrecognized catalog ids through so that catalog entries added ahead of a
// mapping update still produce a usable document. Every passthrough is
// logged so catalog drift stays observable. Pure apart from that logging:
// converting the same configuration twice yields deep-equal documents.
func Convert(cfg types.AgentConfiguration) types.Blueprint {
	bp := types.Blueprint{
		Name: resolveName(cfg),
		Legs: convertLeg(cfg),
	}

	head := cfg.Head
	if head == nil && IsTeamMode(cfg) {
		if lead := leader(cfg); lead != nil {
			head = lead.Head
		}
	}
	if head != nil {
		spec := convertHead(*head)
		bp.Head = &spec
	}

	for _, arm := range cfg.Arms {
		bp.Arms = append(bp.Arms, convertArm(arm))
	}

	if cfg.Heart != nil {
		spec := convertHeart(*cfg.Heart)
		bp.Heart = &spec
	}

	if cfg.Spine != nil {
		spec := convertSpine(*cfg.Spine)
		bp.Spine = &spec
	}

	return bp
}

// leader returns the member at position 0, if any.
func leader(cfg types.AgentConfiguration) *types.TeamMember {
	if len(cfg.TeamMembers) == 0 {
		return nil
	}
	return &cfg.TeamMembers[0]
}

func resolveName(cfg types.AgentConfiguration) string {
	if IsTeamMode(cfg) {
		if lead := leader(cfg); lead != nil && lead.Name != "" {
			return lead.Name
		}
		return FallbackTeamName
	}
	if cfg.Head != nil && cfg.Head.Name != "" {
		return cfg.Head.Name
	}
	return FallbackSingleName
}

func convertHead(inst types.ComponentInstance) types.HeadSpec {
	def, known := Lookup(inst.CatalogID)
	if !known || def.Kind != types.KindHead {
		log.Printf("blueprint: unknown head component %q, passing id through as model", inst.CatalogID)
		def = Definition{
			Provider: inferProvider(inst.CatalogID),
			Model:    inst.CatalogID,
			Defaults: headDefaults(),
		}
	}

	return types.HeadSpec{
		Provider:     def.Provider,
		Model:        def.Model,
		SystemPrompt: configString(inst.Config, "systemPrompt", asString(defaultFor(def, "systemPrompt", nil), DefaultSystemPrompt)),
		Temperature:  configFloat(inst.Config, "temperature", asFloat(defaultFor(def, "temperature", nil), DefaultTemperature)),
		MaxTokens:    configInt(inst.Config, "maxTokens", asInt(defaultFor(def, "maxTokens", nil), DefaultMaxTokens)),
	}
}

// inferProvider guesses a provider from a model-like identifier. Used only on
// the unknown-head passthrough path.
func inferProvider(id string) string {
	switch {
	case strings.HasPrefix(id, "claude"):
		return "anthropic"
	case strings.HasPrefix(id, "gpt") || strings.HasPrefix(id, "o1"):
		return "openai"
	case strings.HasPrefix(id, "gemini"):
		return "gemini"
	}
	return "unknown"
}

func convertArm(inst types.ComponentInstance) types.ArmSpec {
	mapping, known := toolMappings[inst.CatalogID]
	if !known {
		log.Printf("blueprint: unknown tool component %q, passing id through with empty config", inst.CatalogID)
		return types.ArmSpec{Type: inst.CatalogID, Config: map[string]any{}}
	}

	conf := make(map[string]any, len(mapping.params))
	for _, p := range mapping.params {
		if v, ok := inst.Config[p.uiKey]; ok {
			conf[p.wireKey] = v
			continue
		}
		conf[p.wireKey] = p.def
	}

	return types.ArmSpec{Type: mapping.wireType, Config: conf}
}

func convertLeg(cfg types.AgentConfiguration) types.LegSpec {
	spec := types.LegSpec{ExecutionMode: string(types.ModeSingleAgent)}

	if cfg.Leg != nil {
		def, known := Lookup(cfg.Leg.CatalogID)
		if known && def.Kind == types.KindLeg {
			spec.ExecutionMode = string(def.Mode)
		} else {
			log.Printf("blueprint: unknown leg component %q, passing mode through verbatim", cfg.Leg.CatalogID)
			spec.ExecutionMode = cfg.Leg.CatalogID
		}
	}

	if IsTeamMode(cfg) {
		for _, m := range cfg.TeamMembers {
			spec.TeamMembers = append(spec.TeamMembers, convertMember(m))
		}
	}

	return spec
}

// convertMember applies the same per-field default and mapping rules used for
// the top-level head/arms/heart, scoped to one team member.
func convertMember(m types.TeamMember) types.TeamMemberSpec {
	spec := types.TeamMemberSpec{
		Name: m.Name,
		Role: m.Role,
	}

	if m.Head != nil {
		head := convertHead(*m.Head)
		spec.Head = &head
	}
	for _, arm := range m.Arms {
		spec.Arms = append(spec.Arms, convertArm(arm))
	}
	if m.Heart != nil {
		heart := convertHeart(*m.Heart)
		spec.Heart = &heart
	}

	return spec
}

func convertHeart(inst types.ComponentInstance) types.HeartSpec {
	def, known := Lookup(inst.CatalogID)
	if !known || def.Kind != types.KindHeart {
		log.Printf("blueprint: unknown heart component %q, using generic memory defaults", inst.CatalogID)
		def = Definition{}
	}

	return types.HeartSpec{
		MemoryEnabled:    configBool(inst.Config, "memoryEnabled", asBool(defaultFor(def, "memoryEnabled", nil), true)),
		HistoryLength:    configInt(inst.Config, "historyLength", asInt(defaultFor(def, "historyLength", nil), 10)),
		KnowledgeEnabled: configBool(inst.Config, "knowledgeEnabled", asBool(defaultFor(def, "knowledgeEnabled", nil), false)),
	}
}

func convertSpine(inst types.ComponentInstance) types.SpineSpec {
	switch inst.CatalogID {
	case SpineMaxToolCalls:
		n := configInt(inst.Config, "maxToolCalls", DefaultMaxToolCalls)
		return types.SpineSpec{MaxToolCalls: &n}
	case SpineTimeout:
		n := configInt(inst.Config, "timeoutSeconds", DefaultTimeoutSecs)
		return types.SpineSpec{TimeoutSeconds: &n}
	case SpineAllowedDomains:
		return types.SpineSpec{AllowedDomains: configStringSlice(inst.Config, "allowedDomains", []string{})}
	}
	log.Printf("blueprint: unknown spine component %q, emitting empty guardrail", inst.CatalogID)
	return types.SpineSpec{}
}
