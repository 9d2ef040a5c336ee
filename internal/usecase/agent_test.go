package usecase

import (
	"context"
	"testing"

	"github.com/dorae/dorae/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAgent_Execute(t *testing.T) {
	// Setup
	f := newFixture()
	uc := NewCreateAgent(f.agents, f.clock, f.logger)

	// Execute
	out, err := uc.Execute(context.Background(), CreateAgentInput{
		Name:    " Planner ",
		Role:    "organizer",
		Skills:  []string{"add_task", "timer", "add_task"},
		Folders: []string{"ops", "ops"},
	})

	// Assert
	require.NoError(t, err)
	agent := out.Agent
	assert.NotEmpty(t, agent.ID)
	assert.Equal(t, "Planner", agent.Name)
	assert.Equal(t, domain.AgentIdle, agent.Status)
	assert.Equal(t, []string{"ops"}, agent.Folders)
	assert.True(t, domain.IsSkillEnabled(agent, domain.SkillAddTask))
	assert.True(t, domain.IsSkillEnabled(agent, domain.SkillTimer))
	assert.Equal(t, fixedNow, agent.Created)
}

func TestCreateAgent_Execute_Validation(t *testing.T) {
	f := newFixture()
	uc := NewCreateAgent(f.agents, f.clock, f.logger)

	_, err := uc.Execute(context.Background(), CreateAgentInput{Name: ""})
	assert.ErrorIs(t, err, domain.ErrEmptyName)

	_, err = uc.Execute(context.Background(), CreateAgentInput{Name: "x", Skills: []string{"fly"}})
	assert.ErrorIs(t, err, domain.ErrUnknownSkill)

	_, err = uc.Execute(context.Background(), CreateAgentInput{Name: "x", Status: "sleeping"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.Empty(t, f.agents.Agents)
}

func TestEditAgent_Execute(t *testing.T) {
	f := newFixture()
	f.putAgent("agentA", "Planner")
	uc := NewEditAgent(f.agents, f.logger)

	skills := []string{"add_task"}
	out, err := uc.Execute(context.Background(), EditAgentInput{
		AgentID: "agentA",
		Skills:  &skills,
		Status:  strPtr("busy"),
	})

	require.NoError(t, err)
	assert.Equal(t, domain.AgentBusy, out.Agent.Status)
	assert.True(t, domain.IsSkillEnabled(out.Agent, domain.SkillAddTask))

	show := NewShowAgent(f.agents)
	shown, err := show.Execute(context.Background(), ShowAgentInput{AgentID: "agentA"})
	require.NoError(t, err)
	assert.Equal(t, []domain.Skill{domain.SkillAddTask}, shown.Agent.Skills)

	_, err = uc.Execute(context.Background(), EditAgentInput{AgentID: "agentA"})
	assert.ErrorIs(t, err, domain.ErrNoFieldsToUpdate)

	_, err = uc.Execute(context.Background(), EditAgentInput{AgentID: "agentA", Name: strPtr(" ")})
	assert.ErrorIs(t, err, domain.ErrEmptyName)
}

func TestDeleteAgent_Execute(t *testing.T) {
	f := newFixture()
	f.putAgent("agentA", "Planner")
	uc := NewDeleteAgent(f.agents, f.logger)

	require.NoError(t, uc.Execute(context.Background(), DeleteAgentInput{AgentID: "agentA"}))

	err := uc.Execute(context.Background(), DeleteAgentInput{AgentID: "agentA"})
	assert.ErrorIs(t, err, domain.ErrAgentNotFound)

	list, err := NewListAgents(f.agents).Execute(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list.Agents)
}

func TestAgentNotes(t *testing.T) {
	f := newFixture()
	f.putAgent("agentA", "Planner")
	ctx := context.Background()

	added, err := NewAddAgentNote(f.agents, f.ids, f.clock).Execute(ctx, AddAgentNoteInput{AgentID: "agentA", Content: "prefers mornings"})
	require.NoError(t, err)
	assert.Equal(t, "prefers mornings", added.Note.Content)

	f.clock.Advance(60)
	err = NewEditAgentNote(f.agents, f.clock).Execute(ctx, EditAgentNoteInput{AgentID: "agentA", NoteID: added.Note.ID, Content: "prefers evenings"})
	require.NoError(t, err)

	shown, err := NewShowAgent(f.agents).Execute(ctx, ShowAgentInput{AgentID: "agentA"})
	require.NoError(t, err)
	require.Len(t, shown.Agent.Notes, 1)
	assert.Equal(t, "prefers evenings", shown.Agent.Notes[0].Content)
	assert.NotNil(t, shown.Agent.Notes[0].LastEditedAt)

	err = NewEditAgentNote(f.agents, f.clock).Execute(ctx, EditAgentNoteInput{AgentID: "agentA", NoteID: "missing", Content: "x"})
	assert.ErrorIs(t, err, domain.ErrNoteNotFound)

	del := NewDeleteAgentNote(f.agents)
	require.NoError(t, del.Execute(ctx, DeleteAgentNoteInput{AgentID: "agentA", NoteID: added.Note.ID}))
	require.NoError(t, del.Execute(ctx, DeleteAgentNoteInput{AgentID: "agentA", NoteID: added.Note.ID}))

	_, err = NewAddAgentNote(f.agents, f.ids, f.clock).Execute(ctx, AddAgentNoteInput{AgentID: "agentA"})
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)
}
