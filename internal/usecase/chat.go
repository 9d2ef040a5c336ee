package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dorae/dorae/internal/domain"
	"github.com/dorae/dorae/internal/usecase/shared"
)

// chatRecentUpdates is how many log entries per task the oracle sees.
const chatRecentUpdates = 3

// ChatInput contains the parameters for a chat message.
type ChatInput struct {
	Message string // User message (required)
	AgentID string // Speak with this agent's context (optional)
	Owner   string // Scope tasks to this owner when no agent is given (optional)
}

// ChatOutput contains the oracle reply and the outcome of any requested action.
type ChatOutput struct {
	Created  *domain.Task // Task created by a dispatched create_task action
	Reply    string       // Free-text answer
	Declined string       // Why a requested action was not executed
}

// Chat answers a message using the visible tasks as context and dispatches
// a create_task action through the capability gate.
type Chat struct {
	tasks      domain.TaskRepository
	agents     domain.AgentRepository
	oracle     domain.Oracle
	createTask *CreateTaskAsAgent
	logger     domain.Logger
}

// NewChat creates a new Chat use case.
func NewChat(
	tasks domain.TaskRepository,
	agents domain.AgentRepository,
	oracle domain.Oracle,
	createTask *CreateTaskAsAgent,
	logger domain.Logger,
) *Chat {
	return &Chat{
		tasks:      tasks,
		agents:     agents,
		oracle:     oracle,
		createTask: createTask,
		logger:     logger,
	}
}

// Execute sends the message to the oracle.
func (uc *Chat) Execute(ctx context.Context, in ChatInput) (*ChatOutput, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return nil, domain.ErrEmptyMessage
	}

	var agent *domain.Agent
	filter := domain.TaskFilter{Owner: in.Owner}
	if in.AgentID != "" {
		a, err := shared.GetAgent(ctx, uc.agents, in.AgentID)
		if err != nil {
			return nil, err
		}
		agent = a
		filter = domain.TaskFilter{AssignedAgentID: a.ID, FolderIDs: a.Folders}
	}

	tasks, err := uc.tasks.List(ctx, filter)
	if err != nil {
		return nil, domain.Persistence("list tasks", err)
	}
	sortTasks(tasks)
	contexts := make([]domain.TaskContext, 0, len(tasks))
	for _, t := range tasks {
		contexts = append(contexts, domain.TaskContext{
			Title:         t.Title,
			Status:        t.Status,
			Priority:      t.Priority,
			Category:      t.Category,
			Folder:        t.FolderID,
			Labels:        t.Labels,
			RecentUpdates: t.RecentUpdates(chatRecentUpdates),
		})
	}

	var agentCtx *domain.AgentContext
	if agent != nil {
		agentCtx = agent.Context()
	}

	reply, err := uc.oracle.Chat(ctx, message, contexts, agentCtx)
	if err != nil {
		return nil, domain.OracleFailure("chat", err)
	}
	if reply == nil {
		return nil, domain.OracleFailure("chat", nil)
	}

	out := &ChatOutput{Reply: reply.Text}
	if reply.Action != nil {
		uc.dispatch(ctx, agent, in.Owner, reply.Action, out)
	}
	return out, nil
}

// dispatch runs a structured action returned with the reply. Only create_task is
// actionable from chat; the gate is consulted even if the oracle was told the skill list.
func (uc *Chat) dispatch(ctx context.Context, agent *domain.Agent, owner string, action *domain.Action, out *ChatOutput) {
	if action.Kind != domain.ActionCreateTask || action.Task == nil {
		out.Declined = fmt.Sprintf("unsupported action %q", action.Kind)
		return
	}
	if agent == nil {
		out.Declined = "create_task requires an agent"
		return
	}
	if !domain.IsSkillEnabled(agent, domain.SkillAddTask) {
		out.Declined = fmt.Sprintf("agent %s does not have the add_task skill", agent.Name)
		if uc.logger != nil {
			uc.logger.Warn("", "skill", fmt.Sprintf("chat action declined: %s", out.Declined))
		}
		return
	}

	spec := action.Task
	res, err := uc.createTask.Execute(ctx, CreateTaskAsAgentInput{
		AgentID:       agent.ID,
		Title:         spec.Title,
		Priority:      spec.Priority,
		Category:      spec.Category,
		Labels:        spec.Labels,
		FolderID:      spec.FolderID,
		InitialUpdate: spec.InitialUpdate,
		Owner:         owner,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrSkillDisabled):
			out.Declined = err.Error()
		default:
			out.Declined = "task creation failed"
			if uc.logger != nil {
				uc.logger.Error("", "skill", fmt.Sprintf("chat create_task: %v", err))
			}
		}
		return
	}
	out.Created = res.Task
}
