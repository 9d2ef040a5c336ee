package usecase

import (
	"context"
	"fmt"

	"github.com/dorae/dorae/internal/domain"
	"github.com/dorae/dorae/internal/usecase/shared"
)

// CreateTasksFromFileInput contains the parameters for creating tasks from a file.
type CreateTasksFromFileInput struct {
	Content string // File content (Markdown with frontmatter)
	Owner   string // Owner for all tasks (optional)
	AgentID string // Create through this agent's add_task skill (optional)
	DryRun  bool   // If true, parse and validate without creating tasks
}

// CreateTasksFromFileOutput contains the result of creating tasks from a file.
type CreateTasksFromFileOutput struct {
	Drafts []domain.TaskDraft // Parsed drafts, in file order
	Tasks  []*domain.Task     // Created tasks (empty in dry-run mode)
}

// CreateTasksFromFile is the use case for creating tasks from a file.
type CreateTasksFromFile struct {
	agents     domain.AgentRepository
	newTask    *NewTask
	createTask *CreateTaskAsAgent
}

// NewCreateTasksFromFile creates a new CreateTasksFromFile use case.
func NewCreateTasksFromFile(agents domain.AgentRepository, newTask *NewTask, createTask *CreateTaskAsAgent) *CreateTasksFromFile {
	return &CreateTasksFromFile{
		agents:     agents,
		newTask:    newTask,
		createTask: createTask,
	}
}

// Execute creates tasks from the given file content.
// With an agent, the gate is checked once before anything is created.
func (uc *CreateTasksFromFile) Execute(ctx context.Context, in CreateTasksFromFileInput) (*CreateTasksFromFileOutput, error) {
	drafts, err := domain.ParseTaskDrafts(in.Content)
	if err != nil {
		return nil, err
	}

	if in.AgentID != "" {
		agent, err := shared.GetAgent(ctx, uc.agents, in.AgentID)
		if err != nil {
			return nil, err
		}
		if err := domain.RequireSkill(agent, domain.SkillAddTask); err != nil {
			return nil, err
		}
	}

	out := &CreateTasksFromFileOutput{Drafts: drafts}
	if in.DryRun {
		return out, nil
	}

	for i, d := range drafts {
		task, err := uc.create(ctx, in, d)
		if err != nil {
			return out, fmt.Errorf("task %d (%q): %w", i+1, d.Title, err)
		}
		out.Tasks = append(out.Tasks, task)
	}
	return out, nil
}

func (uc *CreateTasksFromFile) create(ctx context.Context, in CreateTasksFromFileInput, d domain.TaskDraft) (*domain.Task, error) {
	if in.AgentID != "" {
		res, err := uc.createTask.Execute(ctx, CreateTaskAsAgentInput{
			AgentID:       in.AgentID,
			Title:         d.Title,
			Priority:      string(d.Priority),
			Category:      d.Category,
			FolderID:      d.FolderID,
			Owner:         in.Owner,
			InitialUpdate: d.Detail,
			Labels:        d.Labels,
		})
		if err != nil {
			return nil, err
		}
		return res.Task, nil
	}
	res, err := uc.newTask.Execute(ctx, NewTaskInput{
		Title:    d.Title,
		Detail:   d.Detail,
		Priority: string(d.Priority),
		Category: d.Category,
		FolderID: d.FolderID,
		Owner:    in.Owner,
		Labels:   d.Labels,
	})
	if err != nil {
		return nil, err
	}
	return res.Task, nil
}
