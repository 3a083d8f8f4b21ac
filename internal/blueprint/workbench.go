package blueprint

import (
	"errors"
	"fmt"

	"github.com/frankenlab/frankend/pkg/types"
)

// MaxArms is the hard limit on tool components per agent (and per team
// member). Enforced at mutation time: an attempt to add beyond the limit is
// rejected, never truncated.
const MaxArms = 6

var (
	ErrSlotOccupied     = errors.New("slot already occupied")
	ErrTooManyArms      = errors.New("maximum 6 tools allowed")
	ErrUnknownComponent = errors.New("unknown catalog id")
	ErrNotTeamMode      = errors.New("configuration is not in team mode")
	ErrNoSuchMember     = errors.New("no such team member")
	ErrNotFoundInConfig = errors.New("component instance not found")
)

// The workbench reducers below are pure: each takes a configuration by value
// and returns a new value, leaving the input untouched. The editing session
// owns exactly one AgentConfiguration and threads it through these functions.

// NewConfiguration returns an empty editing document.
func NewConfiguration() types.AgentConfiguration {
	return types.AgentConfiguration{}
}

// AddComponent places a component instance into the configuration. Single
// slots (head, heart, leg, spine) reject a second occupant until the current
// one is removed; arms reject the seventh tool.
func AddComponent(cfg types.AgentConfiguration, inst types.ComponentInstance) (types.AgentConfiguration, error) {
	def, ok := Lookup(inst.CatalogID)
	if !ok {
		return cfg, fmt.Errorf("%w: %s", ErrUnknownComponent, inst.CatalogID)
	}

	switch def.Kind {
	case types.KindHead:
		if cfg.Head != nil {
			return cfg, fmt.Errorf("%w: head", ErrSlotOccupied)
		}
		cfg.Head = &inst
	case types.KindArm:
		if len(cfg.Arms) >= MaxArms {
			return cfg, ErrTooManyArms
		}
		cfg.Arms = append(cloneArms(cfg.Arms), inst)
	case types.KindHeart:
		if cfg.Heart != nil {
			return cfg, fmt.Errorf("%w: heart", ErrSlotOccupied)
		}
		cfg.Heart = &inst
	case types.KindLeg:
		if cfg.Leg != nil {
			return cfg, fmt.Errorf("%w: leg", ErrSlotOccupied)
		}
		return setLeg(cfg, inst), nil
	case types.KindSpine:
		if cfg.Spine != nil {
			return cfg, fmt.Errorf("%w: spine", ErrSlotOccupied)
		}
		cfg.Spine = &inst
	}

	return cfg, nil
}

// SwitchLeg replaces the execution-mode component directly, applying the
// mode-transition rules without requiring a remove-then-add round trip.
func SwitchLeg(cfg types.AgentConfiguration, inst types.ComponentInstance) (types.AgentConfiguration, error) {
	def, ok := Lookup(inst.CatalogID)
	if !ok || def.Kind != types.KindLeg {
		return cfg, fmt.Errorf("%w: %s", ErrUnknownComponent, inst.CatalogID)
	}
	return setLeg(cfg, inst), nil
}

// setLeg installs a leg and applies the team-mode transition: entering team
// mode moves assembly into team members, so the top-level head, arms, and
// heart are cleared and the member list starts empty; leaving team mode
// drops the member list.
func setLeg(cfg types.AgentConfiguration, inst types.ComponentInstance) types.AgentConfiguration {
	cfg.Leg = &inst
	if inst.CatalogID == LegTeam {
		cfg.Head = nil
		cfg.Arms = nil
		cfg.Heart = nil
		cfg.TeamMembers = []types.TeamMember{}
	} else {
		cfg.TeamMembers = nil
	}
	return cfg
}

// RemoveComponent removes a top-level component instance by its placement id.
func RemoveComponent(cfg types.AgentConfiguration, instanceID string) (types.AgentConfiguration, error) {
	switch {
	case cfg.Head != nil && cfg.Head.InstanceID == instanceID:
		cfg.Head = nil
	case cfg.Heart != nil && cfg.Heart.InstanceID == instanceID:
		cfg.Heart = nil
	case cfg.Spine != nil && cfg.Spine.InstanceID == instanceID:
		cfg.Spine = nil
	case cfg.Leg != nil && cfg.Leg.InstanceID == instanceID:
		wasTeam := cfg.Leg.CatalogID == LegTeam
		cfg.Leg = nil
		if wasTeam {
			cfg.TeamMembers = nil
		}
	default:
		idx := armIndex(cfg.Arms, instanceID)
		if idx < 0 {
			return cfg, ErrNotFoundInConfig
		}
		arms := cloneArms(cfg.Arms)
		cfg.Arms = append(arms[:idx], arms[idx+1:]...)
	}
	return cfg, nil
}

// UpdateComponent replaces the free-form config of a placed instance.
func UpdateComponent(cfg types.AgentConfiguration, instanceID string, conf map[string]any) (types.AgentConfiguration, error) {
	replace := func(inst *types.ComponentInstance) *types.ComponentInstance {
		c := *inst
		c.Config = conf
		return &c
	}

	switch {
	case cfg.Head != nil && cfg.Head.InstanceID == instanceID:
		cfg.Head = replace(cfg.Head)
	case cfg.Heart != nil && cfg.Heart.InstanceID == instanceID:
		cfg.Heart = replace(cfg.Heart)
	case cfg.Leg != nil && cfg.Leg.InstanceID == instanceID:
		cfg.Leg = replace(cfg.Leg)
	case cfg.Spine != nil && cfg.Spine.InstanceID == instanceID:
		cfg.Spine = replace(cfg.Spine)
	default:
		idx := armIndex(cfg.Arms, instanceID)
		if idx < 0 {
			return cfg, ErrNotFoundInConfig
		}
		arms := cloneArms(cfg.Arms)
		arms[idx].Config = conf
		cfg.Arms = arms
	}
	return cfg, nil
}

// AddTeamMember appends a member. The member at position 0 is the leader.
func AddTeamMember(cfg types.AgentConfiguration, m types.TeamMember) (types.AgentConfiguration, error) {
	if !IsTeamMode(cfg) {
		return cfg, ErrNotTeamMode
	}
	if len(m.Arms) > MaxArms {
		return cfg, ErrTooManyArms
	}

	members := cloneMembers(cfg.TeamMembers)
	if len(members) == 0 {
		m.Role = "leader"
		if m.Name == "" {
			m.Name = "Team Leader"
		}
	} else {
		m.Role = "member"
		if m.Name == "" {
			m.Name = fmt.Sprintf("Member %d", len(members)+1)
		}
	}
	cfg.TeamMembers = append(members, m)
	return cfg, nil
}

// RemoveTeamMember deletes the member at the given position. Removing the
// leader promotes the new position-0 member.
func RemoveTeamMember(cfg types.AgentConfiguration, index int) (types.AgentConfiguration, error) {
	if !IsTeamMode(cfg) {
		return cfg, ErrNotTeamMode
	}
	if index < 0 || index >= len(cfg.TeamMembers) {
		return cfg, ErrNoSuchMember
	}

	members := cloneMembers(cfg.TeamMembers)
	members = append(members[:index], members[index+1:]...)
	if index == 0 && len(members) > 0 {
		members[0].Role = "leader"
		if members[0].Name == "" {
			members[0].Name = "Team Leader"
		}
	}
	cfg.TeamMembers = members
	return cfg, nil
}

// UpdateTeamMember renames the member at the given position. Role is
// positional (position 0 leads) and not editable here.
func UpdateTeamMember(cfg types.AgentConfiguration, index int, name string) (types.AgentConfiguration, error) {
	if !IsTeamMode(cfg) {
		return cfg, ErrNotTeamMode
	}
	if index < 0 || index >= len(cfg.TeamMembers) {
		return cfg, ErrNoSuchMember
	}

	members := cloneMembers(cfg.TeamMembers)
	members[index].Name = name
	cfg.TeamMembers = members
	return cfg, nil
}

// UpdateMemberComponent replaces the free-form config of a component placed
// on a team member.
func UpdateMemberComponent(cfg types.AgentConfiguration, index int, instanceID string, conf map[string]any) (types.AgentConfiguration, error) {
	if !IsTeamMode(cfg) {
		return cfg, ErrNotTeamMode
	}
	if index < 0 || index >= len(cfg.TeamMembers) {
		return cfg, ErrNoSuchMember
	}

	members := cloneMembers(cfg.TeamMembers)
	m := &members[index]

	switch {
	case m.Head != nil && m.Head.InstanceID == instanceID:
		c := *m.Head
		c.Config = conf
		m.Head = &c
	case m.Heart != nil && m.Heart.InstanceID == instanceID:
		c := *m.Heart
		c.Config = conf
		m.Heart = &c
	default:
		idx := armIndex(m.Arms, instanceID)
		if idx < 0 {
			return cfg, ErrNotFoundInConfig
		}
		arms := cloneArms(m.Arms)
		arms[idx].Config = conf
		m.Arms = arms
	}

	cfg.TeamMembers = members
	return cfg, nil
}

// AddMemberComponent places a component on a team member, under the same
// slot and arm-count rules as the top level.
func AddMemberComponent(cfg types.AgentConfiguration, index int, inst types.ComponentInstance) (types.AgentConfiguration, error) {
	if !IsTeamMode(cfg) {
		return cfg, ErrNotTeamMode
	}
	if index < 0 || index >= len(cfg.TeamMembers) {
		return cfg, ErrNoSuchMember
	}
	def, ok := Lookup(inst.CatalogID)
	if !ok {
		return cfg, fmt.Errorf("%w: %s", ErrUnknownComponent, inst.CatalogID)
	}

	members := cloneMembers(cfg.TeamMembers)
	m := &members[index]

	switch def.Kind {
	case types.KindHead:
		if m.Head != nil {
			return cfg, fmt.Errorf("%w: member head", ErrSlotOccupied)
		}
		m.Head = &inst
	case types.KindArm:
		if len(m.Arms) >= MaxArms {
			return cfg, ErrTooManyArms
		}
		m.Arms = append(cloneArms(m.Arms), inst)
	case types.KindHeart:
		if m.Heart != nil {
			return cfg, fmt.Errorf("%w: member heart", ErrSlotOccupied)
		}
		m.Heart = &inst
	default:
		return cfg, fmt.Errorf("%w: %s cannot be placed on a team member", ErrUnknownComponent, inst.CatalogID)
	}

	cfg.TeamMembers = members
	return cfg, nil
}

// RemoveMemberComponent removes a component instance from a team member.
func RemoveMemberComponent(cfg types.AgentConfiguration, index int, instanceID string) (types.AgentConfiguration, error) {
	if !IsTeamMode(cfg) {
		return cfg, ErrNotTeamMode
	}
	if index < 0 || index >= len(cfg.TeamMembers) {
		return cfg, ErrNoSuchMember
	}

	members := cloneMembers(cfg.TeamMembers)
	m := &members[index]

	switch {
	case m.Head != nil && m.Head.InstanceID == instanceID:
		m.Head = nil
	case m.Heart != nil && m.Heart.InstanceID == instanceID:
		m.Heart = nil
	default:
		idx := armIndex(m.Arms, instanceID)
		if idx < 0 {
			return cfg, ErrNotFoundInConfig
		}
		arms := cloneArms(m.Arms)
		m.Arms = append(arms[:idx], arms[idx+1:]...)
	}

	cfg.TeamMembers = members
	return cfg, nil
}

// Clear resets the editing document to empty.
func Clear(types.AgentConfiguration) types.AgentConfiguration {
	return types.AgentConfiguration{}
}

func armIndex(arms []types.ComponentInstance, instanceID string) int {
	for i, a := range arms {
		if a.InstanceID == instanceID {
			return i
		}
	}
	return -1
}

func cloneArms(arms []types.ComponentInstance) []types.ComponentInstance {
	if arms == nil {
		return nil
	}
	out := make([]types.ComponentInstance, len(arms))
	copy(out, arms)
	return out
}

func cloneMembers(members []types.TeamMember) []types.TeamMember {
	if members == nil {
		return nil
	}
	out := make([]types.TeamMember, len(members))
	copy(out, members)
	return out
}
