package usecase

import (
	"context"

	"github.com/dorae/dorae/internal/domain"
)

// CloseTaskInput contains the parameters for closing a task.
type CloseTaskInput struct {
	TaskID string // Task ID to close
}

// CloseTaskOutput contains the result of closing or reopening a task.
type CloseTaskOutput struct {
	Task    *domain.Task // The task after the change
	Changed bool         // False when the task was already in the target status
}

// CloseTask is the use case for marking a task complete.
type CloseTask struct {
	tr transitioner
}

// NewCloseTask creates a new CloseTask use case.
func NewCloseTask(tasks domain.TaskRepository, ids domain.IDGenerator, clock domain.Clock, logger domain.Logger) *CloseTask {
	return &CloseTask{tr: transitioner{tasks: tasks, ids: ids, clock: clock, logger: logger}}
}

// Execute closes the task. Closing a Closed task refreshes its completion time.
func (uc *CloseTask) Execute(ctx context.Context, in CloseTaskInput) (*CloseTaskOutput, error) {
	task, changed, err := uc.tr.run(ctx, in.TaskID, domain.StatusClosed)
	if err != nil {
		return nil, err
	}
	return &CloseTaskOutput{Task: task, Changed: changed}, nil
}

// ReopenTaskInput contains the parameters for reopening a task.
type ReopenTaskInput struct {
	TaskID string // Task ID to reopen
}

// ReopenTask is the use case for moving a Closed task back to Active.
type ReopenTask struct {
	tr transitioner
}

// NewReopenTask creates a new ReopenTask use case.
func NewReopenTask(tasks domain.TaskRepository, ids domain.IDGenerator, clock domain.Clock, logger domain.Logger) *ReopenTask {
	return &ReopenTask{tr: transitioner{tasks: tasks, ids: ids, clock: clock, logger: logger}}
}

// Execute reopens the task and clears its completion time.
func (uc *ReopenTask) Execute(ctx context.Context, in ReopenTaskInput) (*CloseTaskOutput, error) {
	task, changed, err := uc.tr.run(ctx, in.TaskID, domain.StatusActive)
	if err != nil {
		return nil, err
	}
	return &CloseTaskOutput{Task: task, Changed: changed}, nil
}
