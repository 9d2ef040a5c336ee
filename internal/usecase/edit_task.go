package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dorae/dorae/internal/domain"
	"github.com/dorae/dorae/internal/usecase/shared"
)

// EditTaskInput contains the parameters for editing a task.
// All fields except TaskID are optional. Only non-nil/non-empty fields will be updated.
type EditTaskInput struct {
	Title        *string  // New title (nil = no change)
	Priority     *string  // New priority (nil = no change)
	Category     *string  // New category (nil = no change)
	Status       *string  // New status (nil = no change)
	FolderID     *string  // New folder (nil = no change, "" = none)
	TaskID       string   // Task ID to edit (required)
	AddLabels    []string // Labels to add
	RemoveLabels []string // Labels to remove
}

// EditTaskOutput contains the result of editing a task.
type EditTaskOutput struct {
	Task *domain.Task // The updated task
}

// EditTask is the use case for editing an existing task.
// A status change and property changes may arrive together; all resulting
// audit updates are persisted with the new fields in one atomic Apply.
type EditTask struct {
	tasks  domain.TaskRepository
	ids    domain.IDGenerator
	clock  domain.Clock
	logger domain.Logger
}

// NewEditTask creates a new EditTask use case.
func NewEditTask(tasks domain.TaskRepository, ids domain.IDGenerator, clock domain.Clock, logger domain.Logger) *EditTask {
	return &EditTask{
		tasks:  tasks,
		ids:    ids,
		clock:  clock,
		logger: logger,
	}
}

// Execute edits a task with the given input.
func (uc *EditTask) Execute(ctx context.Context, in EditTaskInput) (*EditTaskOutput, error) {
	// Validate that at least one field is being updated
	if in.Title == nil && in.Priority == nil && in.Category == nil && in.Status == nil &&
		in.FolderID == nil && len(in.AddLabels) == 0 && len(in.RemoveLabels) == 0 {
		return nil, domain.ErrNoFieldsToUpdate
	}

	var title string
	if in.Title != nil {
		title = strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, domain.ErrEmptyTitle
		}
	}
	var priority *domain.Priority
	if in.Priority != nil {
		p, err := domain.ParsePriority(*in.Priority)
		if err != nil {
			return nil, err
		}
		priority = &p
	}
	var category *string
	if in.Category != nil {
		c := strings.TrimSpace(*in.Category)
		if c == "" {
			c = domain.DefaultCategory
		}
		category = &c
	}
	var status domain.Status
	if in.Status != nil {
		s, err := domain.ParseStatus(*in.Status)
		if err != nil {
			return nil, err
		}
		status = s
	}

	var folderID *string
	if in.FolderID != nil {
		f := strings.TrimSpace(*in.FolderID)
		folderID = &f
	}
	var titlePtr *string
	if in.Title != nil {
		titlePtr = &title
	}

	var (
		task    *domain.Task
		updates []domain.Update
	)
	for attempt := 0; ; attempt++ {
		var err error
		task, err = shared.GetTask(ctx, uc.tasks, in.TaskID)
		if err != nil {
			return nil, err
		}
		if task.Status.IsTerminal() {
			return nil, fmt.Errorf("task %s is archived: %w", task.ID, domain.ErrInvalidTransition)
		}
		from := task.Status

		now := uc.clock.Now()
		updates = nil
		if status != "" {
			su, _, err := task.Transition(status, now)
			if err != nil {
				return nil, err
			}
			updates = append(updates, su...)
		}
		updates = append(updates, task.ChangeProperties(priority, category, now)...)
		updates = append(updates, task.ChangeDetails(titlePtr, folderID, now)...)

		for _, l := range normalizeLabels(in.AddLabels) {
			if !slices.Contains(task.Labels, l) {
				task.Labels = append(task.Labels, l)
			}
		}
		if len(in.RemoveLabels) > 0 {
			task.Labels = slices.DeleteFunc(task.Labels, func(l string) bool {
				return slices.Contains(in.RemoveLabels, l)
			})
		}
		task.UpdatedAt = now

		updates = assignIDs(uc.ids, updates)
		fields := task.TaskFields
		err = uc.tasks.Apply(ctx, task.ID, domain.TaskChange{Fields: &fields, ExpectStatus: from, Append: updates})
		if errors.Is(err, domain.ErrStaleTask) && attempt < staleRetries {
			continue
		}
		if err != nil {
			return nil, domain.Persistence("save task", err)
		}
		break
	}
	task.Updates = append(task.Updates, updates...)

	if uc.logger != nil {
		uc.logger.Info(task.ID, "task", fmt.Sprintf("edited (%d audit updates)", len(updates)))
	}

	return &EditTaskOutput{Task: task}, nil
}
