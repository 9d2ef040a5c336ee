package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/dorae/dorae/internal/domain"
	"github.com/dorae/dorae/internal/usecase/shared"
)

// CreateTaskAsAgentInput contains the parameters for creating a task through the add_task skill.
// Fields are ordered to minimize memory padding.
type CreateTaskAsAgentInput struct {
	AgentID       string   // Acting agent (required)
	Title         string   // Task title (required)
	Priority      string   // low, medium or high (optional, default medium)
	Category      string   // Category (optional, default General)
	FolderID      string   // Folder (optional)
	Owner         string   // Owning user (optional)
	InitialUpdate string   // Detail update (optional)
	Labels        []string // Labels (optional)
}

// CreateTaskAsAgentOutput contains the result of the dispatch.
type CreateTaskAsAgentOutput struct {
	Task *domain.Task // The persisted task
}

// CreateTaskAsAgent dispatches the add_task skill: it gates the agent, then creates
// an Active task assigned to the agent with provenance-stamped updates.
type CreateTaskAsAgent struct {
	tasks  domain.TaskRepository
	agents domain.AgentRepository
	ids    domain.IDGenerator
	clock  domain.Clock
	logger domain.Logger
}

// NewCreateTaskAsAgent creates a new CreateTaskAsAgent use case.
func NewCreateTaskAsAgent(
	tasks domain.TaskRepository,
	agents domain.AgentRepository,
	ids domain.IDGenerator,
	clock domain.Clock,
	logger domain.Logger,
) *CreateTaskAsAgent {
	return &CreateTaskAsAgent{
		tasks:  tasks,
		agents: agents,
		ids:    ids,
		clock:  clock,
		logger: logger,
	}
}

// Execute creates the task. Input is validated before any store access.
func (uc *CreateTaskAsAgent) Execute(ctx context.Context, in CreateTaskAsAgentInput) (*CreateTaskAsAgentOutput, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, domain.ErrEmptyTitle
	}
	priority, err := domain.ParsePriority(in.Priority)
	if err != nil {
		return nil, err
	}

	agent, err := shared.GetAgent(ctx, uc.agents, in.AgentID)
	if err != nil {
		return nil, err
	}
	if err := domain.RequireSkill(agent, domain.SkillAddTask); err != nil {
		if uc.logger != nil {
			uc.logger.Warn("", "skill", fmt.Sprintf("add_task declined for agent %s (%s)", agent.Name, agent.ID))
		}
		return nil, err
	}

	now := uc.clock.Now()
	prov := &domain.Provenance{AgentID: agent.ID, Skill: domain.SkillAddTask}

	task := buildTask(title, priority, in.Category, in.FolderID, in.Owner, in.Labels, now)
	task.AssignedAgentID = agent.ID
	task.Updates = append(task.Updates,
		newUpdate(uc.ids, now, domain.UpdateCreation, "Task created by agent: "+agent.Name, prov))
	if detail := strings.TrimSpace(in.InitialUpdate); detail != "" {
		task.Updates = append(task.Updates, newUpdate(uc.ids, now, domain.UpdateDetail, detail, prov))
	}

	if err := uc.tasks.Insert(ctx, task); err != nil {
		return nil, domain.Persistence("insert task", err)
	}

	if uc.logger != nil {
		uc.logger.Info(task.ID, "skill", fmt.Sprintf("add_task: agent %s created %q", agent.Name, title))
	}

	return &CreateTaskAsAgentOutput{Task: task}, nil
}
