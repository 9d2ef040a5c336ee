package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/dorae/dorae/internal/domain"
)

// DeleteTaskInput contains the parameters for deleting a task.
type DeleteTaskInput struct {
	TaskID string // Task ID to delete
}

// DeleteTaskOutput contains the result of deleting a task.
type DeleteTaskOutput struct {
	Task     *domain.Task // The task after the change
	Archived bool         // True when the task was already in the trash and is now archived
}

// DeleteTask is the two-stage soft delete: Active/Closed go to the trash,
// trashed tasks are archived. Nothing is ever physically removed.
type DeleteTask struct {
	tr transitioner
}

// NewDeleteTask creates a new DeleteTask use case.
func NewDeleteTask(tasks domain.TaskRepository, ids domain.IDGenerator, clock domain.Clock, logger domain.Logger) *DeleteTask {
	return &DeleteTask{tr: transitioner{tasks: tasks, ids: ids, clock: clock, logger: logger}}
}

// Execute deletes a task with the given ID. Archived tasks are rejected.
func (uc *DeleteTask) Execute(ctx context.Context, in DeleteTaskInput) (*DeleteTaskOutput, error) {
	task, target, _, err := uc.tr.runFrom(ctx, in.TaskID, nil, deleteTarget)
	if err != nil {
		return nil, err
	}
	return &DeleteTaskOutput{Task: task, Archived: target == domain.StatusArchived}, nil
}

func deleteTarget(task *domain.Task) (domain.Status, error) {
	switch task.Status {
	case domain.StatusArchived:
		return "", fmt.Errorf("task %s is archived: %w", task.ID, domain.ErrInvalidTransition)
	case domain.StatusDeleted:
		return domain.StatusArchived, nil
	}
	return domain.StatusDeleted, nil
}

// errNotTrashed marks a task restored between listing and archiving.
var errNotTrashed = errors.New("task left the trash")

func archiveIfTrashed(task *domain.Task) (domain.Status, error) {
	if task.Status != domain.StatusDeleted {
		return "", errNotTrashed
	}
	return domain.StatusArchived, nil
}

// EmptyTrashInput contains the parameters for emptying the trash.
type EmptyTrashInput struct {
	Owner string // Only this owner's trash (optional)
}

// EmptyTrashOutput contains the IDs of the archived tasks.
type EmptyTrashOutput struct {
	Archived []string
}

// EmptyTrash archives every Deleted task.
type EmptyTrash struct {
	tr transitioner
}

// NewEmptyTrash creates a new EmptyTrash use case.
func NewEmptyTrash(tasks domain.TaskRepository, ids domain.IDGenerator, clock domain.Clock, logger domain.Logger) *EmptyTrash {
	return &EmptyTrash{tr: transitioner{tasks: tasks, ids: ids, clock: clock, logger: logger}}
}

// Execute archives each trashed task. A failure on one task does not stop the others;
// the failures are joined into the returned error alongside the partial output.
func (uc *EmptyTrash) Execute(ctx context.Context, in EmptyTrashInput) (*EmptyTrashOutput, error) {
	trashed, err := uc.tr.tasks.List(ctx, domain.TaskFilter{
		Statuses: []domain.Status{domain.StatusDeleted},
		Owner:    in.Owner,
	})
	if err != nil {
		return nil, domain.Persistence("list trash", err)
	}

	out := &EmptyTrashOutput{Archived: make([]string, 0, len(trashed))}
	var errs []error
	for _, task := range trashed {
		_, _, _, err := uc.tr.runFrom(ctx, task.ID, task, archiveIfTrashed)
		if errors.Is(err, errNotTrashed) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("archive %s: %w", task.ID, err))
			continue
		}
		out.Archived = append(out.Archived, task.ID)
	}
	return out, errors.Join(errs...)
}
