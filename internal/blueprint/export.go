package blueprint

import (
	"fmt"

	"github.com/frankenlab/frankend/pkg/types"
)

// Export compiles a configuration for the file-export flow. Unlike Convert it
// fails instead of defaulting: a missing head or leg and any unrecognized
// head or tool catalog id are reported immediately with a message suitable
// for showing to the user. The two variants serve different call sites and
// are deliberately kept separate; do not fold one into the other.
func Export(cfg types.AgentConfiguration) (types.Blueprint, error) {
	head := cfg.Head
	if head == nil && IsTeamMode(cfg) {
		if lead := leader(cfg); lead != nil {
			head = lead.Head
		}
	}
	if head == nil {
		return types.Blueprint{}, fmt.Errorf("cannot export: a Head (LLM) component is required")
	}
	if cfg.Leg == nil {
		return types.Blueprint{}, fmt.Errorf("cannot export: an execution mode (Leg) component is required")
	}

	if def, ok := Lookup(head.CatalogID); !ok || def.Kind != types.KindHead {
		return types.Blueprint{}, fmt.Errorf("cannot export: unknown head component %q", head.CatalogID)
	}
	for _, arm := range cfg.Arms {
		if _, ok := toolMappings[arm.CatalogID]; !ok {
			return types.Blueprint{}, fmt.Errorf("cannot export: unknown tool component %q", arm.CatalogID)
		}
	}
	for i, m := range cfg.TeamMembers {
		if m.Head != nil {
			if def, ok := Lookup(m.Head.CatalogID); !ok || def.Kind != types.KindHead {
				return types.Blueprint{}, fmt.Errorf("cannot export: unknown head component %q on team member %d", m.Head.CatalogID, i+1)
			}
		}
		for _, arm := range m.Arms {
			if _, ok := toolMappings[arm.CatalogID]; !ok {
				return types.Blueprint{}, fmt.Errorf("cannot export: unknown tool component %q on team member %d", arm.CatalogID, i+1)
			}
		}
	}

	// All ids resolved, so the lenient mapping takes no fallback path here.
	return Convert(cfg), nil
}
