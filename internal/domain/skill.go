package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Skill is a named capability that must be enabled on an agent before the
// matching action path may run.
type Skill string

const (
	SkillAddTask Skill = "add_task" // Create tasks on behalf of the agent
	SkillTimer   Skill = "timer"    // Run periodic instructions against tasks
)

// skillRegistry is the fixed set of known skills.
var skillRegistry = map[Skill]string{
	SkillAddTask: "Create new tasks with title, labels, folder, priority and category",
	SkillTimer:   "Periodically execute an instruction against a set of tasks",
}

// SkillInfo describes a registered skill.
type SkillInfo struct {
	Name        Skill  `json:"name"`
	Description string `json:"description"`
}

// SkillRegistry returns the registered skills sorted by name.
func SkillRegistry() []SkillInfo {
	out := make([]SkillInfo, 0, len(skillRegistry))
	for name, desc := range skillRegistry {
		out = append(out, SkillInfo{Name: name, Description: desc})
	}
	slices.SortFunc(out, func(a, b SkillInfo) int { return strings.Compare(string(a.Name), string(b.Name)) })
	return out
}

// IsKnown returns true if the skill is in the registry.
func (s Skill) IsKnown() bool {
	_, ok := skillRegistry[s]
	return ok
}

// ParseSkills validates skill names against the registry and removes duplicates.
func ParseSkills(names []string) ([]Skill, error) {
	skills := make([]Skill, 0, len(names))
	for _, n := range names {
		s := Skill(strings.TrimSpace(n))
		if !s.IsKnown() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSkill, n)
		}
		if !slices.Contains(skills, s) {
			skills = append(skills, s)
		}
	}
	return skills, nil
}

// IsSkillEnabled is the capability gate. Unknown skills and nil agents are never enabled.
func IsSkillEnabled(agent *Agent, skill Skill) bool {
	if agent == nil || !skill.IsKnown() {
		return false
	}
	return slices.Contains(agent.Skills, skill)
}

// RequireSkill returns ErrSkillDisabled unless the gate allows the skill.
func RequireSkill(agent *Agent, skill Skill) error {
	if IsSkillEnabled(agent, skill) {
		return nil
	}
	name := "<nil>"
	if agent != nil {
		name = agent.Name
	}
	return fmt.Errorf("agent %s cannot use %s: %w", name, skill, ErrSkillDisabled)
}

// EnabledSkills returns the registered skills the agent has enabled.
func EnabledSkills(agent *Agent) []Skill {
	if agent == nil {
		return nil
	}
	var out []Skill
	for _, s := range agent.Skills {
		if s.IsKnown() && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
