package usecase

import (
	"context"
	"slices"

	"github.com/dorae/dorae/internal/domain"
	"github.com/dorae/dorae/internal/usecase/shared"
)

// DefaultAgentCreatedLimit caps ListAgentCreatedTasks when no limit is given.
const DefaultAgentCreatedLimit = 10

// ListAgentCreatedTasksInput contains the parameters for listing tasks an agent created.
type ListAgentCreatedTasksInput struct {
	AgentID string
	Limit   int // 0 = DefaultAgentCreatedLimit
}

// ListAgentCreatedTasksOutput contains the matching tasks, newest first.
type ListAgentCreatedTasksOutput struct {
	Tasks []*domain.Task
}

// ListAgentCreatedTasks lists tasks created through the agent's add_task skill.
type ListAgentCreatedTasks struct {
	tasks  domain.TaskRepository
	agents domain.AgentRepository
}

// NewListAgentCreatedTasks creates a new ListAgentCreatedTasks use case.
func NewListAgentCreatedTasks(tasks domain.TaskRepository, agents domain.AgentRepository) *ListAgentCreatedTasks {
	return &ListAgentCreatedTasks{tasks: tasks, agents: agents}
}

// Execute returns at most Limit tasks assigned to the agent whose log carries an add_task entry.
func (uc *ListAgentCreatedTasks) Execute(ctx context.Context, in ListAgentCreatedTasksInput) (*ListAgentCreatedTasksOutput, error) {
	if _, err := shared.GetAgent(ctx, uc.agents, in.AgentID); err != nil {
		return nil, err
	}
	limit := in.Limit
	if limit <= 0 {
		limit = DefaultAgentCreatedLimit
	}

	tasks, err := uc.tasks.List(ctx, domain.TaskFilter{AssignedAgentID: in.AgentID})
	if err != nil {
		return nil, domain.Persistence("list tasks", err)
	}

	out := make([]*domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if createdBySkill(t, in.AgentID) {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, func(a, b *domain.Task) int { return b.Created.Compare(a.Created) })
	if len(out) > limit {
		out = out[:limit]
	}
	return &ListAgentCreatedTasksOutput{Tasks: out}, nil
}

func createdBySkill(t *domain.Task, agentID string) bool {
	return slices.ContainsFunc(t.Updates, func(u domain.Update) bool {
		return u.Provenance != nil && u.Provenance.Skill == domain.SkillAddTask && u.Provenance.AgentID == agentID
	})
}
