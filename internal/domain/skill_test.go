package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSkillEnabled(t *testing.T) {
	agent := &Agent{Name: "Planner", Skills: []Skill{SkillTimer, Skill("teleport")}}

	tests := []struct {
		name  string
		agent *Agent
		skill Skill
		want  bool
	}{
		{"enabled skill", agent, SkillTimer, true},
		{"not enabled", agent, SkillAddTask, false},
		{"unknown skill stored on agent", agent, Skill("teleport"), false},
		{"nil agent", nil, SkillTimer, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSkillEnabled(tt.agent, tt.skill))
		})
	}
}

func TestRequireSkill(t *testing.T) {
	agent := &Agent{Name: "Planner", Skills: []Skill{SkillTimer}}

	require.NoError(t, RequireSkill(agent, SkillTimer))

	err := RequireSkill(agent, SkillAddTask)
	assert.ErrorIs(t, err, ErrSkillDisabled)
	assert.Contains(t, err.Error(), "add_task")
}

func TestEnabledSkills_DropsUnknownAndDuplicates(t *testing.T) {
	agent := &Agent{Skills: []Skill{SkillTimer, "teleport", SkillTimer, SkillAddTask}}

	assert.Equal(t, []Skill{SkillTimer, SkillAddTask}, EnabledSkills(agent))
	assert.Nil(t, EnabledSkills(nil))
}

func TestParseSkills(t *testing.T) {
	skills, err := ParseSkills([]string{"timer", " add_task", "timer"})
	require.NoError(t, err)
	assert.Equal(t, []Skill{SkillTimer, SkillAddTask}, skills)

	_, err = ParseSkills([]string{"web_search"})
	assert.ErrorIs(t, err, ErrUnknownSkill)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSkillRegistry_Sorted(t *testing.T) {
	reg := SkillRegistry()
	require.Len(t, reg, 2)
	assert.Equal(t, SkillAddTask, reg[0].Name)
	assert.Equal(t, SkillTimer, reg[1].Name)
	for _, s := range reg {
		assert.NotEmpty(t, s.Description)
	}
}

func TestErrorCategories(t *testing.T) {
	assert.True(t, errors.Is(ErrTaskNotFound, ErrNotFound))
	assert.True(t, errors.Is(fmt.Errorf("get: %w", ErrAgentNotFound), ErrNotFound))
	assert.False(t, errors.Is(ErrTaskNotFound, ErrInvalidInput))
	assert.True(t, errors.Is(ErrEmptyTitle, ErrInvalidInput))

	wrapped := Persistence("save job", errors.New("disk full"))
	assert.ErrorIs(t, wrapped, ErrPersistence)
	assert.Contains(t, wrapped.Error(), "disk full")

	passthrough := Persistence("get task", ErrTaskNotFound)
	assert.ErrorIs(t, passthrough, ErrTaskNotFound)
	assert.NotErrorIs(t, passthrough, ErrPersistence)
	assert.NoError(t, Persistence("noop", nil))

	assert.ErrorIs(t, OracleFailure("execute", nil), ErrOracleFailure)
	assert.ErrorIs(t, OracleFailure("execute", errors.New("timeout")), ErrOracleFailure)
}

func TestCorruptRecordsError(t *testing.T) {
	var c CorruptRecordsError
	assert.NoError(t, c.OrNil())

	c.Add("j1", errors.New("bad json"))
	err := c.OrNil()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "j1: bad json")

	var target *CorruptRecordsError
	require.True(t, errors.As(err, &target))
	assert.Equal(t, []string{"j1"}, target.IDs)
}
