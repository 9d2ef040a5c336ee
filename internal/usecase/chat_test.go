package usecase

import (
	"context"
	"testing"

	"github.com/dorae/dorae/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTaskReply(title string) *domain.ChatReply {
	return &domain.ChatReply{
		Text: "On it.",
		Action: &domain.Action{
			Kind: domain.ActionCreateTask,
			Task: &domain.ActionTaskSpec{Title: title, Priority: "high", InitialUpdate: "from chat"},
		},
	}
}

func TestChat_Execute_CreatesTaskThroughDispatcher(t *testing.T) {
	// Setup
	f := newFixture()
	f.putAgent("agentA", "Planner", domain.SkillAddTask)
	f.oracle.Reply = createTaskReply("Plan offsite")
	uc := NewChat(f.tasks, f.agents, f.oracle, f.createTaskAsAgent(), f.logger)

	// Execute
	out, err := uc.Execute(context.Background(), ChatInput{Message: "plan the offsite", AgentID: "agentA"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "On it.", out.Reply)
	assert.Empty(t, out.Declined)
	require.NotNil(t, out.Created)
	assert.Equal(t, "Plan offsite", out.Created.Title)
	assert.Equal(t, "agentA", out.Created.AssignedAgentID)
	assert.Equal(t, domain.PriorityHigh, out.Created.Priority)
	require.NotNil(t, f.oracle.LastChat.Agent)
	assert.Equal(t, []domain.Skill{domain.SkillAddTask}, f.oracle.LastChat.Agent.Skills)
}

func TestChat_Execute_DeclinesWithoutSkill(t *testing.T) {
	f := newFixture()
	f.putAgent("agentA", "Planner", domain.SkillTimer)
	f.oracle.Reply = createTaskReply("Plan offsite")
	uc := NewChat(f.tasks, f.agents, f.oracle, f.createTaskAsAgent(), f.logger)

	out, err := uc.Execute(context.Background(), ChatInput{Message: "plan", AgentID: "agentA"})

	require.NoError(t, err)
	assert.Nil(t, out.Created)
	assert.Equal(t, "agent Planner does not have the add_task skill", out.Declined)
	assert.Empty(t, f.tasks.Tasks)
}

func TestChat_Execute_DeclinesWithoutAgent(t *testing.T) {
	f := newFixture()
	f.oracle.Reply = createTaskReply("Plan offsite")
	uc := NewChat(f.tasks, f.agents, f.oracle, f.createTaskAsAgent(), f.logger)

	out, err := uc.Execute(context.Background(), ChatInput{Message: "plan"})

	require.NoError(t, err)
	assert.Equal(t, "create_task requires an agent", out.Declined)
	assert.Empty(t, f.tasks.Tasks)
}

func TestChat_Execute_DeclinesInvalidSpec(t *testing.T) {
	f := newFixture()
	f.putAgent("agentA", "Planner", domain.SkillAddTask)
	f.oracle.Reply = createTaskReply("")
	uc := NewChat(f.tasks, f.agents, f.oracle, f.createTaskAsAgent(), f.logger)

	out, err := uc.Execute(context.Background(), ChatInput{Message: "plan", AgentID: "agentA"})

	require.NoError(t, err)
	assert.Equal(t, domain.ErrEmptyTitle.Error(), out.Declined)
}

func TestChat_Execute_UnsupportedAction(t *testing.T) {
	f := newFixture()
	f.oracle.Reply = &domain.ChatReply{Text: "hi", Action: &domain.Action{Kind: "send_email"}}
	uc := NewChat(f.tasks, f.agents, f.oracle, f.createTaskAsAgent(), f.logger)

	out, err := uc.Execute(context.Background(), ChatInput{Message: "hello"})

	require.NoError(t, err)
	assert.Equal(t, `unsupported action "send_email"`, out.Declined)
}

func TestChat_Execute_ScopesContextToAgent(t *testing.T) {
	f := newFixture()
	agent := f.putAgent("agentA", "Planner")
	agent.Folders = []string{"ops"}
	f.agents.Put(agent)

	mine := f.putTask("mine", domain.StatusActive)
	mine.AssignedAgentID = "agentA"
	mine.Updates = []domain.Update{{Content: "u1"}, {Content: "u2"}, {Content: "u3"}, {Content: "u4"}}
	f.tasks.Put(mine)
	folder := f.putTask("folder", domain.StatusActive)
	folder.FolderID = "ops"
	f.tasks.Put(folder)
	f.putTask("other", domain.StatusActive)

	f.oracle.Reply = &domain.ChatReply{Text: "ok"}
	uc := NewChat(f.tasks, f.agents, f.oracle, f.createTaskAsAgent(), f.logger)

	_, err := uc.Execute(context.Background(), ChatInput{Message: "status?", AgentID: "agentA"})

	require.NoError(t, err)
	tasks := f.oracle.LastChat.Tasks
	require.Len(t, tasks, 2)
	titles := []string{tasks[0].Title, tasks[1].Title}
	assert.ElementsMatch(t, []string{"Task mine", "Task folder"}, titles)
	for _, tc := range tasks {
		if tc.Title == "Task mine" {
			assert.Equal(t, []string{"u2", "u3", "u4"}, tc.RecentUpdates)
		}
	}
}

func TestChat_Execute_OracleFailure(t *testing.T) {
	f := newFixture()
	f.oracle.ChatErr = assert.AnError
	uc := NewChat(f.tasks, f.agents, f.oracle, f.createTaskAsAgent(), f.logger)

	_, err := uc.Execute(context.Background(), ChatInput{Message: "hello"})
	assert.ErrorIs(t, err, domain.ErrOracleFailure)

	f.oracle.ChatErr = nil
	f.oracle.Reply = nil
	_, err = uc.Execute(context.Background(), ChatInput{Message: "hello"})
	assert.ErrorIs(t, err, domain.ErrOracleFailure)

	_, err = uc.Execute(context.Background(), ChatInput{Message: " "})
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)
}
