package blueprint

import (
	"github.com/frankenlab/frankend/pkg/types"
)

// Validation messages shown verbatim in the editor.
const (
	MsgHeadRequired   = "Head (LLM) is required"
	MsgLegRequired    = "Execution mode (Leg) is required"
	MsgTooManyArms    = "Maximum 6 tools allowed"
	MsgNoTeamMembers  = "At least one team member is required"
	MsgNoTeamHead     = "At least one team member needs a Head (LLM)"
)

// Validate checks single-agent completeness. Every rule is evaluated; the
// result carries one message per violated rule so callers can display all
// problems at once. It never fails and knows nothing about team mode; callers
// use CheckTeamReadiness when the leg selects team mode.
func Validate(cfg types.AgentConfiguration) types.ValidationResult {
	var errs []string

	if cfg.Head == nil {
		errs = append(errs, MsgHeadRequired)
	}
	if cfg.Leg == nil {
		errs = append(errs, MsgLegRequired)
	}
	if len(cfg.Arms) > MaxArms {
		errs = append(errs, MsgTooManyArms)
	}

	return types.ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// CheckTeamReadiness checks the team-mode variant of completeness: a leg must
// be present, the team must be non-empty, and at least one member must carry
// a head. Like Validate, all rules are evaluated.
func CheckTeamReadiness(cfg types.AgentConfiguration) types.ValidationResult {
	var errs []string

	if cfg.Leg == nil {
		errs = append(errs, MsgLegRequired)
	}
	if len(cfg.TeamMembers) == 0 {
		errs = append(errs, MsgNoTeamMembers)
	} else {
		hasHead := false
		for _, m := range cfg.TeamMembers {
			if m.Head != nil {
				hasHead = true
				break
			}
		}
		if !hasHead {
			errs = append(errs, MsgNoTeamHead)
		}
	}

	return types.ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// CheckReadiness composes the two validators the way the deploy flow does:
// team-aware when the leg selects team mode, single-agent otherwise.
func CheckReadiness(cfg types.AgentConfiguration) types.ValidationResult {
	if IsTeamMode(cfg) {
		return CheckTeamReadiness(cfg)
	}
	return Validate(cfg)
}
