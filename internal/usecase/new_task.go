// Package usecase contains application use cases.
package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dorae/dorae/internal/domain"
)

// NewTaskInput contains the parameters for creating a new task.
// Fields are ordered to minimize memory padding.
type NewTaskInput struct {
	Title    string   // Task title (required)
	Detail   string   // First detail update (optional)
	Priority string   // low, medium or high (optional, default medium)
	Category string   // Category (optional, default General)
	FolderID string   // Folder (optional)
	Owner    string   // Owning user (optional)
	Labels   []string // Labels (optional)
}

// NewTaskOutput contains the result of creating a new task.
type NewTaskOutput struct {
	Task *domain.Task // The created task
}

// NewTask is the use case for creating a task by hand.
type NewTask struct {
	tasks  domain.TaskRepository
	ids    domain.IDGenerator
	clock  domain.Clock
	logger domain.Logger
}

// NewNewTask creates a new NewTask use case.
func NewNewTask(tasks domain.TaskRepository, ids domain.IDGenerator, clock domain.Clock, logger domain.Logger) *NewTask {
	return &NewTask{
		tasks:  tasks,
		ids:    ids,
		clock:  clock,
		logger: logger,
	}
}

// Execute creates a new Active task with a creation update.
func (uc *NewTask) Execute(ctx context.Context, in NewTaskInput) (*NewTaskOutput, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, domain.ErrEmptyTitle
	}
	priority, err := domain.ParsePriority(in.Priority)
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	task := buildTask(title, priority, in.Category, in.FolderID, in.Owner, in.Labels, now)
	task.Updates = append(task.Updates, newUpdate(uc.ids, now, domain.UpdateCreation, "Task created", nil))
	if detail := strings.TrimSpace(in.Detail); detail != "" {
		task.Updates = append(task.Updates, newUpdate(uc.ids, now, domain.UpdateDetail, detail, nil))
	}

	if err := uc.tasks.Insert(ctx, task); err != nil {
		return nil, domain.Persistence("insert task", err)
	}

	if uc.logger != nil {
		uc.logger.Info(task.ID, "task", fmt.Sprintf("created: %q", title))
	}

	return &NewTaskOutput{Task: task}, nil
}

// buildTask returns an Active task with defaults applied.
func buildTask(title string, priority domain.Priority, category, folderID, owner string, labels []string, now time.Time) *domain.Task {
	category = strings.TrimSpace(category)
	if category == "" {
		category = domain.DefaultCategory
	}
	return &domain.Task{
		Created: now,
		TaskFields: domain.TaskFields{
			Title:      title,
			Status:     domain.StatusActive,
			Priority:   priority,
			Importance: priority.Importance(),
			Category:   category,
			FolderID:   strings.TrimSpace(folderID),
			Owner:      strings.TrimSpace(owner),
			Labels:     normalizeLabels(labels),
			UpdatedAt:  now,
		},
	}
}
